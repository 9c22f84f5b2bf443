// Copyright (c) 2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package explorer

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"blockwatch.cc/packdb/pack"

	"github.com/Preciousbas/polichain-governance/gov/metadata"
	"github.com/Preciousbas/polichain-governance/gov/model"
	"github.com/Preciousbas/polichain-governance/ledger"
	"github.com/Preciousbas/polichain-governance/server"
)

func init() {
	server.Register(Proposal{})
}

var _ server.RESTful = (*Proposal)(nil)

// Proposal is the API representation of a governance proposal. Structured
// descriptions are decoded into a metadata object for convenience.
type Proposal struct {
	Id            uint64                 `json:"row_id"`
	Proposer      ledger.Address         `json:"proposer"`
	Description   string                 `json:"description"`
	Metadata      *metadata.ProposalInfo `json:"metadata,omitempty"`
	Kind          ledger.ActionKind      `json:"kind"`
	Target        string                 `json:"target,omitempty"`
	Amount        int64                  `json:"amount,omitempty"`
	NewQuorumPct  int64                  `json:"new_quorum_pct,omitempty"`
	ForWeight     int64                  `json:"for_weight"`
	AgainstWeight int64                  `json:"against_weight"`
	NumVoters     int64                  `json:"num_voters"`
	Snapshot      int64                  `json:"snapshot"`
	Height        int64                  `json:"height"`
	StartTime     time.Time              `json:"start_time"`
	EndTime       time.Time              `json:"end_time"`
	Status        ledger.ProposalStatus  `json:"status"`
	IsOpen        bool                   `json:"is_open"`
	IsExecuted    bool                   `json:"is_executed"`
	QuorumPct     int64                  `json:"quorum_pct,omitempty"`
	QuorumWeight  int64                  `json:"quorum_weight,omitempty"`
	NoQuorum      bool                   `json:"no_quorum,omitempty"`
	NoMajority    bool                   `json:"no_majority,omitempty"`
	FinalizedTime *time.Time             `json:"finalized_time,omitempty"`

	lastmod time.Time `json:"-"`
	expires time.Time `json:"-"`
}

func NewProposal(ctx *server.Context, p *model.Proposal) *Proposal {
	pp := &Proposal{
		Id:            uint64(p.RowId),
		Proposer:      p.Proposer,
		Description:   p.Description,
		Kind:          p.Kind,
		Amount:        p.Amount,
		NewQuorumPct:  p.NewQuorumPct,
		ForWeight:     p.ForWeight,
		AgainstWeight: p.AgainstWeight,
		NumVoters:     p.NumVoters,
		Snapshot:      p.Snapshot,
		Height:        p.Height,
		StartTime:     p.StartTime,
		EndTime:       p.EndTime,
		Status:        p.Status,
		IsOpen:        p.IsOpen(ctx.Now),
		IsExecuted:    p.IsExecuted,
		QuorumPct:     p.QuorumPct,
		QuorumWeight:  p.QuorumWeight,
		NoQuorum:      p.NoQuorum,
		NoMajority:    p.NoMajority,
		lastmod:       p.StartTime,
	}
	if !p.Target.IsZero() {
		pp.Target = p.Target.String()
	}
	if metadata.IsStructured(p.Description) {
		pp.Metadata = metadata.ParseProposal(p.Description)
	}
	if !p.FinalizedTime.IsZero() {
		t := p.FinalizedTime
		pp.FinalizedTime = &t
		pp.lastmod = t
	}
	// tallies keep moving while voting is open and passed proposals may
	// still execute, only failed and executed rows are immutable
	switch p.Status {
	case ledger.ProposalStatusActive, ledger.ProposalStatusPassed:
		pp.expires = ctx.Now
	}
	return pp
}

func (p Proposal) LastModified() time.Time {
	return p.lastmod
}

func (p Proposal) Expires() time.Time {
	return p.expires
}

func (p Proposal) RESTPrefix() string {
	return "/explorer/proposal"
}

func (p Proposal) RESTPath(r *mux.Router) string {
	path, _ := r.Get("proposal").URLPath("ident", strconv.FormatUint(p.Id, 10))
	return path.String()
}

func (p Proposal) RegisterDirectRoutes(r *mux.Router) error {
	r.HandleFunc(p.RESTPrefix(), server.C(ListProposals)).Methods("GET")
	r.HandleFunc(p.RESTPrefix(), server.C(SubmitProposal)).Methods("POST")
	return nil
}

func (p Proposal) RegisterRoutes(r *mux.Router) error {
	r.HandleFunc("/{ident}", server.C(ReadProposal)).Methods("GET").Name("proposal")
	r.HandleFunc("/{ident}/ballots", server.C(ListProposalBallots)).Methods("GET")
	r.HandleFunc("/{ident}/votes/{address}", server.C(ReadVoterStatus)).Methods("GET")
	r.HandleFunc("/{ident}/quorum", server.C(ReadQuorumProgress)).Methods("GET")
	r.HandleFunc("/{ident}/ballot", server.C(SubmitBallot)).Methods("POST")
	r.HandleFunc("/{ident}/finalize", server.C(FinalizeProposal)).Methods("POST")
	r.HandleFunc("/{ident}/execute", server.C(ExecuteProposal)).Methods("POST")
	return nil
}

func parseProposalIdent(ctx *server.Context) model.ProposalID {
	ident, ok := mux.Vars(ctx.Request)["ident"]
	if !ok || ident == "" {
		panic(server.EBadRequest(server.EC_RESOURCE_ID_MISSING, "missing proposal id", nil))
	}
	id, err := strconv.ParseUint(ident, 10, 64)
	if err != nil {
		panic(server.EBadRequest(server.EC_RESOURCE_ID_MALFORMED, "invalid proposal id", err))
	}
	return model.ProposalID(id)
}

func loadProposal(ctx *server.Context) *model.Proposal {
	id := parseProposalIdent(ctx)
	p, err := ctx.Engine.Proposal(ctx.Context, id)
	if err != nil {
		fail(err)
	}
	return p
}

type ProposalListRequest struct {
	ListRequest
	Status   string `schema:"status"`
	Proposer string `schema:"proposer"`
}

func ListProposals(ctx *server.Context) (interface{}, int) {
	args := &ProposalListRequest{ListRequest: ListRequest{Order: pack.OrderAsc}}
	ctx.ParseRequestArgs(args)
	args.Limit = ctx.Cfg.ClampExplore(args.Limit)

	table, err := ctx.Engine.Store().Table(model.ProposalTableKey)
	if err != nil {
		fail(err)
	}
	q := pack.NewQuery(ctx.RequestID).
		WithTable(table).
		WithOffset(int(args.Offset)).
		WithLimit(int(args.Limit)).
		WithOrder(args.Order)
	q = withCursor(q, args.Cursor, args.Order)
	if args.Status != "" {
		status := ledger.ParseProposalStatus(args.Status)
		if !status.IsValid() {
			panic(server.EBadRequest(server.EC_PARAM_INVALID, "invalid status", nil))
		}
		q = q.AndEqual("status", status)
	}
	if args.Proposer != "" {
		q = q.AndEqual("proposer", requireAddress(args.Proposer, "proposer"))
	}
	proposals, err := model.ListProposals(ctx.Context, table, q)
	if err != nil {
		fail(err)
	}
	resp := make([]*Proposal, 0, len(proposals))
	for _, v := range proposals {
		resp = append(resp, NewProposal(ctx, v))
	}
	return resp, http.StatusOK
}

func ReadProposal(ctx *server.Context) (interface{}, int) {
	return NewProposal(ctx, loadProposal(ctx)), http.StatusOK
}

// Ballot is the API representation of a cast vote.
type Ballot struct {
	Id         uint64         `json:"row_id"`
	ProposalId uint64         `json:"proposal_id"`
	Voter      ledger.Address `json:"voter"`
	Support    bool           `json:"support"`
	Weight     int64          `json:"weight"`
	Height     int64          `json:"height"`
	Time       time.Time      `json:"time"`
}

func NewBallot(b *model.Ballot) *Ballot {
	return &Ballot{
		Id:         uint64(b.RowId),
		ProposalId: uint64(b.ProposalId),
		Voter:      b.Voter,
		Support:    b.Support,
		Weight:     b.Weight,
		Height:     b.Height,
		Time:       b.Time,
	}
}

func ListProposalBallots(ctx *server.Context) (interface{}, int) {
	p := loadProposal(ctx)
	args := &ListRequest{Order: pack.OrderAsc}
	ctx.ParseRequestArgs(args)
	args.Limit = ctx.Cfg.ClampExplore(args.Limit)

	table, err := ctx.Engine.Store().Table(model.BallotTableKey)
	if err != nil {
		fail(err)
	}
	q := pack.NewQuery(ctx.RequestID).
		WithTable(table).
		WithOffset(int(args.Offset)).
		WithLimit(int(args.Limit)).
		WithOrder(args.Order).
		AndEqual("proposal_id", p.RowId)
	q = withCursor(q, args.Cursor, args.Order)
	ballots, err := model.ListBallots(ctx.Context, table, q)
	if err != nil {
		fail(err)
	}
	resp := make([]*Ballot, 0, len(ballots))
	for _, v := range ballots {
		resp = append(resp, NewBallot(v))
	}
	return resp, http.StatusOK
}

func ReadVoterStatus(ctx *server.Context) (interface{}, int) {
	id := parseProposalIdent(ctx)
	ident, ok := mux.Vars(ctx.Request)["address"]
	if !ok || ident == "" {
		panic(server.EBadRequest(server.EC_RESOURCE_ID_MISSING, "missing voter address", nil))
	}
	addr, err := ledger.ParseAddress(ident)
	if err != nil {
		panic(server.EBadRequest(server.EC_RESOURCE_ID_MALFORMED, "invalid voter address", err))
	}
	status, err := ctx.Engine.VoterStatus(ctx.Context, id, addr)
	if err != nil {
		fail(err)
	}
	return status, http.StatusOK
}

func ReadQuorumProgress(ctx *server.Context) (interface{}, int) {
	id := parseProposalIdent(ctx)
	progress, err := ctx.Engine.QuorumProgress(ctx.Context, id)
	if err != nil {
		fail(err)
	}
	return progress, http.StatusOK
}

type ProposeRequest struct {
	Sender      string `json:"sender"`
	Kind        string `json:"kind"`
	Description string `json:"description"`
	Target      string `json:"target"`
	Amount      int64  `json:"amount"`
	QuorumPct   int64  `json:"quorum_pct"`
}

func SubmitProposal(ctx *server.Context) (interface{}, int) {
	checkWritable(ctx)
	args := &ProposeRequest{}
	ctx.ParseRequestArgs(args)
	sender := requireAddress(args.Sender, "sender")

	// reject malformed metadata before it hits the ledger
	if metadata.IsStructured(args.Description) {
		if schema, ok := metadata.GetSchema("proposal"); ok {
			if err := schema.ValidateBytes([]byte(args.Description)); err != nil {
				panic(server.EBadRequest(server.EC_PARAM_INVALID, "invalid proposal metadata", err))
			}
		}
	}

	var (
		p   *model.Proposal
		err error
	)
	if args.Kind == "" {
		args.Kind = ledger.ActionGeneral.String()
	}
	switch kind := ledger.ParseActionKind(args.Kind); kind {
	case ledger.ActionGeneral:
		p, err = ctx.Engine.ProposeGeneral(ctx.Context, sender, args.Description)
	case ledger.ActionMintTokens:
		target := requireAddress(args.Target, "target")
		p, err = ctx.Engine.ProposeMint(ctx.Context, sender, args.Description, target, args.Amount)
	case ledger.ActionTransferFunds:
		target := requireAddress(args.Target, "target")
		p, err = ctx.Engine.ProposeTransfer(ctx.Context, sender, args.Description, target, args.Amount)
	case ledger.ActionUpdateQuorum:
		p, err = ctx.Engine.ProposeUpdateQuorum(ctx.Context, sender, args.Description, args.QuorumPct)
	default:
		panic(server.EBadRequest(server.EC_PARAM_INVALID, "invalid proposal kind", nil))
	}
	if err != nil {
		fail(err)
	}
	return NewProposal(ctx, p), http.StatusCreated
}

type VoteRequest struct {
	Sender  string `json:"sender"`
	Support *bool  `json:"support"`
}

func SubmitBallot(ctx *server.Context) (interface{}, int) {
	checkWritable(ctx)
	id := parseProposalIdent(ctx)
	args := &VoteRequest{}
	ctx.ParseRequestArgs(args)
	sender := requireAddress(args.Sender, "sender")
	if args.Support == nil {
		panic(server.EBadRequest(server.EC_PARAM_REQUIRED, "missing support", nil))
	}
	ballot, err := ctx.Engine.Vote(ctx.Context, sender, id, *args.Support)
	if err != nil {
		fail(err)
	}
	return NewBallot(ballot), http.StatusCreated
}

type SenderRequest struct {
	Sender string `json:"sender"`
}

func FinalizeProposal(ctx *server.Context) (interface{}, int) {
	checkWritable(ctx)
	id := parseProposalIdent(ctx)
	args := &SenderRequest{}
	ctx.ParseRequestArgs(args)
	sender := requireAddress(args.Sender, "sender")
	p, err := ctx.Engine.Finalize(ctx.Context, sender, id)
	if err != nil {
		fail(err)
	}
	return NewProposal(ctx, p), http.StatusOK
}

func ExecuteProposal(ctx *server.Context) (interface{}, int) {
	checkWritable(ctx)
	id := parseProposalIdent(ctx)
	args := &SenderRequest{}
	ctx.ParseRequestArgs(args)
	sender := requireAddress(args.Sender, "sender")
	p, err := ctx.Engine.ExecuteProposal(ctx.Context, sender, id)
	if err != nil {
		fail(err)
	}
	return NewProposal(ctx, p), http.StatusOK
}
