// Copyright (c) 2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package explorer

import (
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"blockwatch.cc/packdb/pack"

	"github.com/Preciousbas/polichain-governance/gov"
	"github.com/Preciousbas/polichain-governance/gov/metadata"
	"github.com/Preciousbas/polichain-governance/gov/model"
	"github.com/Preciousbas/polichain-governance/ledger"
	"github.com/Preciousbas/polichain-governance/server"
)

func init() {
	server.Register(TimelockOp{})
}

var _ server.RESTful = (*TimelockOp)(nil)

// TimelockOp is the API representation of a queued timelock operation.
// JSON payloads are embedded verbatim, anything else is rendered as hex.
type TimelockOp struct {
	Id          uint64          `json:"row_id"`
	Hash        string          `json:"hash"`
	Status      ledger.OpStatus `json:"status"`
	Target      ledger.Address  `json:"target"`
	Value       int64           `json:"value"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	PayloadHex  string          `json:"payload_hex,omitempty"`
	Predecessor string          `json:"predecessor,omitempty"`
	Salt        string          `json:"salt,omitempty"`
	Proposer    ledger.Address  `json:"proposer"`
	Delay       int64           `json:"delay"`
	Height      int64           `json:"height"`
	QueuedTime  time.Time       `json:"queued_time"`
	ReadyTime   time.Time       `json:"ready_time"`
	IsDone      bool            `json:"is_done"`
	DoneTime    *time.Time      `json:"done_time,omitempty"`
	Description string          `json:"description,omitempty"`
	Category    string          `json:"category,omitempty"`

	lastmod time.Time `json:"-"`
	expires time.Time `json:"-"`
}

func NewTimelockOp(ctx *server.Context, op *model.TimelockOp) *TimelockOp {
	o := &TimelockOp{
		Id:          uint64(op.RowId),
		Hash:        op.Hash.String(),
		Status:      op.Status(ctx.Now),
		Target:      op.Target,
		Value:       op.Value,
		Proposer:    op.Proposer,
		Delay:       int64(op.Delay / time.Second),
		Height:      op.Height,
		QueuedTime:  op.QueuedTime,
		ReadyTime:   op.ReadyTime,
		IsDone:      op.IsDone,
		Description: op.Description,
		Category:    op.Category,
		lastmod:     op.QueuedTime,
	}
	if json.Valid(op.Payload) {
		o.Payload = json.RawMessage(op.Payload)
	} else if len(op.Payload) > 0 {
		o.PayloadHex = hex.EncodeToString(op.Payload)
	}
	if !op.Predecessor.IsZero() {
		o.Predecessor = op.Predecessor.String()
	}
	if len(op.Salt) > 0 {
		o.Salt = hex.EncodeToString(op.Salt)
	}
	if op.IsDone {
		t := op.DoneTime
		o.DoneTime = &t
		o.lastmod = t
		// executed ops never change again
	} else {
		// pending ops may be cancelled, ready ops executed at any time
		o.expires = ctx.Now
	}
	return o
}

func (o TimelockOp) LastModified() time.Time {
	return o.lastmod
}

func (o TimelockOp) Expires() time.Time {
	return o.expires
}

func (o TimelockOp) RESTPrefix() string {
	return "/explorer/op"
}

func (o TimelockOp) RESTPath(r *mux.Router) string {
	path, _ := r.Get("op").URLPath("ident", o.Hash)
	return path.String()
}

func (o TimelockOp) RegisterDirectRoutes(r *mux.Router) error {
	r.HandleFunc(o.RESTPrefix(), server.C(ListOps)).Methods("GET")
	r.HandleFunc(o.RESTPrefix(), server.C(ScheduleOp)).Methods("POST")
	return nil
}

func (o TimelockOp) RegisterRoutes(r *mux.Router) error {
	r.HandleFunc("/execute", server.C(ExecuteOp)).Methods("POST")
	r.HandleFunc("/{ident}", server.C(ReadOp)).Methods("GET").Name("op")
	r.HandleFunc("/{ident}/cancel", server.C(CancelOp)).Methods("POST")
	return nil
}

func parseOpIdent(ctx *server.Context) ledger.OpHash {
	ident, ok := mux.Vars(ctx.Request)["ident"]
	if !ok || ident == "" {
		panic(server.EBadRequest(server.EC_RESOURCE_ID_MISSING, "missing operation hash", nil))
	}
	hash, err := ledger.ParseOpHash(ident)
	if err != nil {
		panic(server.EBadRequest(server.EC_RESOURCE_ID_MALFORMED, "invalid operation hash", err))
	}
	return hash
}

func loadOp(ctx *server.Context) *model.TimelockOp {
	hash := parseOpIdent(ctx)
	op, err := ctx.Engine.Op(ctx.Context, hash)
	if err != nil {
		fail(err)
	}
	return op
}

type OpListRequest struct {
	ListRequest
	Proposer string `schema:"proposer"`
	Target   string `schema:"target"`
}

func ListOps(ctx *server.Context) (interface{}, int) {
	args := &OpListRequest{ListRequest: ListRequest{Order: pack.OrderAsc}}
	ctx.ParseRequestArgs(args)
	args.Limit = ctx.Cfg.ClampExplore(args.Limit)

	table, err := ctx.Engine.Store().Table(model.OpTableKey)
	if err != nil {
		fail(err)
	}
	q := pack.NewQuery(ctx.RequestID).
		WithTable(table).
		WithOffset(int(args.Offset)).
		WithLimit(int(args.Limit)).
		WithOrder(args.Order)
	q = withCursor(q, args.Cursor, args.Order)
	if args.Proposer != "" {
		q = q.AndEqual("proposer", requireAddress(args.Proposer, "proposer"))
	}
	if args.Target != "" {
		q = q.AndEqual("target", requireAddress(args.Target, "target"))
	}
	// status is derived from is_done and ready_time, translate here
	if mode, val, ok := server.Query(ctx, "status"); ok {
		if mode != pack.FilterModeEqual {
			panic(server.EBadRequest(server.EC_PARAM_INVALID, "unsupported status filter mode", nil))
		}
		switch status := ledger.ParseOpStatus(val); status {
		case ledger.OpStatusPending:
			q = q.AndEqual("is_done", false).AndGt("ready_time", ctx.Now)
		case ledger.OpStatusReady:
			q = q.AndEqual("is_done", false).AndLte("ready_time", ctx.Now)
		case ledger.OpStatusDone:
			q = q.AndEqual("is_done", true)
		default:
			panic(server.EBadRequest(server.EC_PARAM_INVALID, "invalid status", nil))
		}
	}
	ops, err := model.ListOps(ctx.Context, table, q)
	if err != nil {
		fail(err)
	}
	resp := make([]*TimelockOp, 0, len(ops))
	for _, v := range ops {
		resp = append(resp, NewTimelockOp(ctx, v))
	}
	return resp, http.StatusOK
}

func ReadOp(ctx *server.Context) (interface{}, int) {
	return NewTimelockOp(ctx, loadOp(ctx)), http.StatusOK
}

type ScheduleOpRequest struct {
	Sender      string          `json:"sender"`
	Target      string          `json:"target"`
	Value       int64           `json:"value"`
	Payload     json.RawMessage `json:"payload"`
	Predecessor string          `json:"predecessor"`
	Salt        string          `json:"salt"`
	Delay       int64           `json:"delay"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
}

func (r ScheduleOpRequest) Decode() (req gov.ScheduleRequest, err error) {
	req = gov.ScheduleRequest{
		Value:       r.Value,
		Payload:     []byte(r.Payload),
		Delay:       time.Duration(r.Delay) * time.Second,
		Description: r.Description,
		Category:    r.Category,
	}
	if r.Target != "" {
		var e error
		req.Target, e = ledger.ParseAddress(r.Target)
		if e != nil {
			return req, server.EBadRequest(server.EC_PARAM_INVALID, "invalid target", e)
		}
	}
	if r.Predecessor != "" {
		var e error
		req.Predecessor, e = ledger.ParseOpHash(r.Predecessor)
		if e != nil {
			return req, server.EBadRequest(server.EC_PARAM_INVALID, "invalid predecessor", e)
		}
	}
	if r.Salt != "" {
		buf, e := hex.DecodeString(r.Salt)
		if e != nil || len(buf) != len(req.Salt) {
			return req, server.EBadRequest(server.EC_PARAM_INVALID, "invalid salt", e)
		}
		copy(req.Salt[:], buf)
	}
	if r.Category != "" && !metadata.IsCategory(r.Category) {
		return req, server.EBadRequest(server.EC_PARAM_INVALID, "unknown category", nil)
	}
	return req, nil
}

func ScheduleOp(ctx *server.Context) (interface{}, int) {
	checkWritable(ctx)
	args := &ScheduleOpRequest{}
	ctx.ParseRequestArgs(args)
	sender := requireAddress(args.Sender, "sender")
	req, aerr := args.Decode()
	if aerr != nil {
		panic(aerr)
	}
	op, err := ctx.Engine.Schedule(ctx.Context, sender, req)
	if err != nil {
		fail(err)
	}
	return NewTimelockOp(ctx, op), http.StatusCreated
}

type ExecuteOpRequest struct {
	Sender      string          `json:"sender"`
	Target      string          `json:"target"`
	Value       int64           `json:"value"`
	Payload     json.RawMessage `json:"payload"`
	Predecessor string          `json:"predecessor"`
	Salt        string          `json:"salt"`
}

func (r ExecuteOpRequest) Decode() (req gov.ExecuteRequest, err error) {
	full, aerr := ScheduleOpRequest{
		Sender:      r.Sender,
		Target:      r.Target,
		Value:       r.Value,
		Payload:     r.Payload,
		Predecessor: r.Predecessor,
		Salt:        r.Salt,
	}.Decode()
	if aerr != nil {
		return req, aerr
	}
	return gov.ExecuteRequest{
		Target:      full.Target,
		Value:       full.Value,
		Payload:     full.Payload,
		Predecessor: full.Predecessor,
		Salt:        full.Salt,
	}, nil
}

func ExecuteOp(ctx *server.Context) (interface{}, int) {
	checkWritable(ctx)
	args := &ExecuteOpRequest{}
	ctx.ParseRequestArgs(args)
	sender := requireAddress(args.Sender, "sender")
	req, aerr := args.Decode()
	if aerr != nil {
		panic(aerr)
	}
	op, err := ctx.Engine.ExecuteOp(ctx.Context, sender, req)
	if err != nil {
		fail(err)
	}
	return NewTimelockOp(ctx, op), http.StatusOK
}

func CancelOp(ctx *server.Context) (interface{}, int) {
	checkWritable(ctx)
	hash := parseOpIdent(ctx)
	args := &SenderRequest{}
	ctx.ParseRequestArgs(args)
	sender := requireAddress(args.Sender, "sender")
	if err := ctx.Engine.CancelOp(ctx.Context, sender, hash); err != nil {
		fail(err)
	}
	return nil, http.StatusNoContent
}
