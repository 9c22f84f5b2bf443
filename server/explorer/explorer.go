// Copyright (c) 2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package explorer

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"

	"github.com/Preciousbas/polichain-governance/gov/model"
	"github.com/Preciousbas/polichain-governance/ledger"
	"github.com/Preciousbas/polichain-governance/server"
)

func init() {
	server.Register(Explorer{})
}

var _ server.RESTful = (*Explorer)(nil)

// PurgeCaches drops all API-level caches. Engine caches are purged
// separately through the system endpoint.
func PurgeCaches() {
	purgeTipStore()
}

type Explorer struct{}

func (e Explorer) LastModified() time.Time {
	return time.Now().UTC()
}

func (e Explorer) Expires() time.Time {
	return time.Time{}
}

func (e Explorer) RESTPrefix() string {
	return "/explorer"
}

func (e Explorer) RESTPath(r *mux.Router) string {
	return e.RESTPrefix()
}

func (e Explorer) RegisterDirectRoutes(r *mux.Router) error {
	return nil
}

func (e Explorer) RegisterRoutes(r *mux.Router) error {
	r.HandleFunc("/tip", server.C(GetGovernanceTip)).Methods("GET")
	r.HandleFunc("/config", server.C(GetGovernanceConfig)).Methods("GET")
	r.HandleFunc("/status", server.C(GetStatus)).Methods("GET")
	r.HandleFunc("/genesis", server.C(GetGenesis)).Methods("GET")
	r.HandleFunc("/events", server.C(ListEvents)).Methods("GET")
	return nil
}

type Status struct {
	Status   string    `json:"status"`
	Network  string    `json:"network"`
	Height   int64     `json:"height"`
	Time     time.Time `json:"time"`
	ReadOnly bool      `json:"read_only"`
}

func GetStatus(ctx *server.Context) (interface{}, int) {
	s := Status{
		Status:   "running",
		Network:  ctx.Tip.Network,
		Height:   ctx.Tip.Height,
		Time:     ctx.Tip.Time,
		ReadOnly: ctx.Cfg.Http.ReadOnly,
	}
	switch {
	case ctx.Server.IsShutdown():
		s.Status = "stopping"
	case ctx.Server.IsOffline():
		s.Status = "offline"
	}
	return s, http.StatusOK
}

// GovernanceTip is the live state summary served at /explorer/tip. Supply
// numbers come from the voting-power oracle and are cached per height.
type GovernanceTip struct {
	Name        string    `json:"name"`
	Network     string    `json:"network"`
	Symbol      string    `json:"symbol"`
	Height      int64     `json:"height"`
	Timestamp   time.Time `json:"timestamp"`
	GenesisTime time.Time `json:"genesis_time"`

	NumProposals int64 `json:"total_proposals"`
	NumOps       int64 `json:"total_ops"`
	NumEvents    int64 `json:"total_events"`

	QuorumPct int64  `json:"quorum_pct"`
	MinDelay  int64  `json:"min_delay"`
	Executor  string `json:"executor,omitempty"`

	Treasury        ledger.Address `json:"treasury"`
	TotalSupply     int64          `json:"total_supply"`
	TreasuryBalance int64          `json:"treasury_balance"`

	expires time.Time `json:"-"`
}

func (t GovernanceTip) LastModified() time.Time {
	return t.Timestamp
}

func (t GovernanceTip) Expires() time.Time {
	return t.expires
}

var (
	tipStore atomic.Value
	tipMutex sync.Mutex
)

func init() {
	tipStore.Store(&GovernanceTip{})
}

func purgeTipStore() {
	tipMutex.Lock()
	defer tipMutex.Unlock()
	tipStore.Store(&GovernanceTip{})
}

func getTip(ctx *server.Context) *GovernanceTip {
	tip := tipStore.Load().(*GovernanceTip)
	if tip.Timestamp.IsZero() || tip.Height < ctx.Tip.Height {
		tipMutex.Lock()
		defer tipMutex.Unlock()
		// reload and check again after lock acquisition
		tip = tipStore.Load().(*GovernanceTip)
		if tip.Timestamp.IsZero() || tip.Height < ctx.Tip.Height {
			tip = buildGovernanceTip(ctx)
			tipStore.Store(tip)
		}
	}
	return tip
}

func buildGovernanceTip(ctx *server.Context) *GovernanceTip {
	supply, err := ctx.Token.TotalSupply(ctx.Context)
	if err != nil {
		fail(err)
	}
	treasury, err := ctx.Token.BalanceOf(ctx.Context, ledger.TreasuryAddress)
	if err != nil {
		fail(err)
	}
	tip := &GovernanceTip{
		Name:        ctx.Tip.Name,
		Network:     ctx.Tip.Network,
		Symbol:      ctx.Tip.Symbol,
		Height:      ctx.Tip.Height,
		Timestamp:   ctx.Tip.Time,
		GenesisTime: ctx.Tip.GenesisTime,

		NumProposals: ctx.Tip.NumProposals,
		NumOps:       ctx.Tip.NumOps,
		NumEvents:    ctx.Tip.NumEvents,

		QuorumPct: ctx.Tip.QuorumPct,
		MinDelay:  int64(ctx.Tip.MinDelay / time.Second),

		Treasury:        ledger.TreasuryAddress,
		TotalSupply:     supply,
		TreasuryBalance: treasury,

		// no block cadence to predict the next change, cache briefly
		expires: ctx.Now.Add(30 * time.Second),
	}
	if !ctx.Tip.Executor.IsZero() {
		tip.Executor = ctx.Tip.Executor.String()
	}
	if tip.Timestamp.IsZero() {
		tip.Timestamp = ctx.Tip.GenesisTime
	}
	return tip
}

func GetGovernanceTip(ctx *server.Context) (interface{}, int) {
	return getTip(ctx), http.StatusOK
}

// GovernanceConfig echoes the deployment parameters fixed at genesis.
// Values a passed proposal can change at runtime are served by /explorer/tip.
type GovernanceConfig struct {
	Name              string `json:"name"`
	Network           string `json:"network"`
	Symbol            string `json:"symbol"`
	Version           int    `json:"version"`
	Decimals          int    `json:"decimals"`
	Units             int64  `json:"units"`
	MaxSupply         int64  `json:"max_supply"`
	VotingPeriod      int64  `json:"voting_period"`
	ProposalThreshold int64  `json:"proposal_threshold"`
	QuorumPct         int64  `json:"quorum_pct"`
	MinDelay          int64  `json:"min_delay"`
	MaxDelay          int64  `json:"max_delay"`

	lastmod time.Time `json:"-"`
}

func (c GovernanceConfig) LastModified() time.Time {
	return c.lastmod
}

func (c GovernanceConfig) Expires() time.Time {
	return time.Time{}
}

func GetGovernanceConfig(ctx *server.Context) (interface{}, int) {
	p := ctx.Params
	return GovernanceConfig{
		Name:              p.Name,
		Network:           p.Network,
		Symbol:            p.Symbol,
		Version:           p.Version,
		Decimals:          p.Decimals,
		Units:             p.Token,
		MaxSupply:         p.MaxSupply,
		VotingPeriod:      int64(p.VotingPeriod / time.Second),
		ProposalThreshold: p.ProposalThreshold,
		QuorumPct:         p.QuorumPct,
		MinDelay:          int64(p.MinDelay / time.Second),
		MaxDelay:          int64(p.MaxDelay / time.Second),
		lastmod:           ctx.Tip.GenesisTime,
	}, http.StatusOK
}

func GetGenesis(ctx *server.Context) (interface{}, int) {
	buf, err := ctx.Engine.Genesis(ctx.Context)
	if err != nil {
		fail(err)
	}
	return buf, http.StatusOK
}

// Event is the API representation of a governance log entry.
type Event struct {
	Id         uint64          `json:"row_id"`
	Height     int64           `json:"height"`
	Time       time.Time       `json:"time"`
	Type       model.EventType `json:"type"`
	Sender     ledger.Address  `json:"sender"`
	ProposalId uint64          `json:"proposal_id,omitempty"`
	OpHash     string          `json:"op_hash,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

func NewEvent(e *model.Event) *Event {
	ev := &Event{
		Id:         uint64(e.RowId),
		Height:     e.Height,
		Time:       e.Time,
		Type:       e.Type,
		Sender:     e.Sender,
		ProposalId: uint64(e.ProposalId),
	}
	if !e.OpHash.IsZero() {
		ev.OpHash = e.OpHash.String()
	}
	if json.Valid(e.Payload) {
		ev.Payload = json.RawMessage(e.Payload)
	}
	return ev
}

// ListEvents streams the governance log in insertion order. The cursor
// argument resumes after the given event id which makes this endpoint
// suitable for polling consumers without a ZeroMQ subscription.
func ListEvents(ctx *server.Context) (interface{}, int) {
	args := &ListRequest{}
	ctx.ParseRequestArgs(args)
	args.Limit = ctx.Cfg.ClampExplore(args.Limit)

	events, err := ctx.Engine.Events(ctx.Context, model.EventID(args.Cursor), args.Limit)
	if err != nil {
		fail(err)
	}
	resp := make([]*Event, 0, len(events))
	for _, v := range events {
		resp = append(resp, NewEvent(v))
	}
	return resp, http.StatusOK
}
