// Copyright (c) 2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package model

import (
	"context"
	"time"

	"blockwatch.cc/packdb/pack"

	"github.com/Preciousbas/polichain-governance/ledger"
)

const ProposalTableKey = "proposal"

type ProposalID uint64

func (id ProposalID) U64() uint64 {
	return uint64(id)
}

// Proposal is a registry entry progressing active -> passed/failed ->
// executed. Vote accumulators only grow and freeze once the status
// leaves active. Quorum columns are written at finalization with the
// percentage in force at that moment.
type Proposal struct {
	RowId         ProposalID            `pack:"I,pk"      json:"row_id"`
	Proposer      ledger.Address        `pack:"P,bloom=3" json:"proposer"`
	Description   string                `pack:"D,snappy"  json:"description"`
	Kind          ledger.ActionKind     `pack:"k"         json:"kind"`
	Target        ledger.Address        `pack:"T"         json:"target"`
	Amount        int64                 `pack:"a"         json:"amount"`
	NewQuorumPct  int64                 `pack:"u,i8"      json:"new_quorum_pct"`
	ForWeight     int64                 `pack:"f"         json:"for_weight"`
	AgainstWeight int64                 `pack:"g"         json:"against_weight"`
	NumVoters     int64                 `pack:"n,i32"     json:"num_voters"`
	Snapshot      int64                 `pack:"s,i32"     json:"snapshot"`
	Height        int64                 `pack:"<,i32"     json:"height"`
	StartTime     time.Time             `pack:"b"         json:"start_time"`
	EndTime       time.Time             `pack:"e"         json:"end_time"`
	Status        ledger.ProposalStatus `pack:"S"         json:"status"`
	IsExecuted    bool                  `pack:"x,snappy"  json:"is_executed"`
	QuorumPct     int64                 `pack:"q,i8"      json:"quorum_pct"`
	QuorumWeight  int64                 `pack:"w"         json:"quorum_weight"`
	NoQuorum      bool                  `pack:"y,snappy"  json:"no_quorum"`
	NoMajority    bool                  `pack:"z,snappy"  json:"no_majority"`
	FinalizedTime time.Time             `pack:"t"         json:"finalized_time"`
}

// Ensure Proposal implements the pack.Item interface.
var _ pack.Item = (*Proposal)(nil)

func (p *Proposal) ID() uint64 {
	return uint64(p.RowId)
}

func (p *Proposal) SetID(id uint64) {
	p.RowId = ProposalID(id)
}

func (p *Proposal) Reset() {
	*p = Proposal{}
}

func (_ Proposal) TableKey() string {
	return ProposalTableKey
}

func (_ Proposal) TableOpts() pack.Options {
	return pack.NoOptions
}

func (_ Proposal) IndexOpts(_ string) pack.Options {
	return pack.NoOptions
}

// IsOpen is true while ballots are still accepted.
func (p *Proposal) IsOpen(now time.Time) bool {
	return p.Status == ledger.ProposalStatusActive && !now.After(p.EndTime)
}

// IsExpired is true for active proposals whose window has closed
// without finalization.
func (p *Proposal) IsExpired(now time.Time) bool {
	return p.Status == ledger.ProposalStatusActive && now.After(p.EndTime)
}

func (p *Proposal) Store(ctx context.Context, t *pack.Table) error {
	if p.RowId > 0 {
		return t.Update(ctx, p)
	}
	return t.Insert(ctx, p)
}

func GetProposalId(ctx context.Context, t *pack.Table, id ProposalID) (*Proposal, error) {
	p := &Proposal{}
	err := pack.NewQuery("find.proposal_by_id").
		WithTable(t).
		AndEqual("row_id", id).
		Execute(ctx, p)
	if err != nil {
		return nil, err
	}
	if p.RowId == 0 {
		return nil, ErrNoProposal
	}
	return p, nil
}

func ListProposals(ctx context.Context, t *pack.Table, q pack.Query) ([]*Proposal, error) {
	list := make([]*Proposal, 0)
	err := q.WithTable(t).Execute(ctx, &list)
	if err != nil {
		list = list[:0]
		return nil, err
	}
	return list, nil
}
