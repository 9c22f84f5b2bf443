// Copyright (c) 2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package model

import (
	"context"
	"time"

	"blockwatch.cc/packdb/pack"

	"github.com/Preciousbas/polichain-governance/ledger"
)

const BallotTableKey = "ballot"

type BallotID uint64

func (id BallotID) U64() uint64 {
	return uint64(id)
}

// Ballot is a write-once vote record. One row per (proposal, voter);
// weight is resolved at the proposal's snapshot and never changes.
type Ballot struct {
	RowId      BallotID       `pack:"I,pk"      json:"row_id"`
	ProposalId ProposalID     `pack:"P,bloom=3" json:"proposal_id"`
	Voter      ledger.Address `pack:"V,bloom=3" json:"voter"`
	Support    bool           `pack:"s,snappy"  json:"support"`
	Weight     int64          `pack:"w"         json:"weight"`
	Height     int64          `pack:"h,i32"     json:"height"`
	Time       time.Time      `pack:"t"         json:"time"`
}

// Ensure Ballot implements the pack.Item interface.
var _ pack.Item = (*Ballot)(nil)

func (b *Ballot) ID() uint64 {
	return uint64(b.RowId)
}

func (b *Ballot) SetID(id uint64) {
	b.RowId = BallotID(id)
}

func (b *Ballot) Reset() {
	*b = Ballot{}
}

func (_ Ballot) TableKey() string {
	return BallotTableKey
}

func (_ Ballot) TableOpts() pack.Options {
	return pack.NoOptions
}

func (_ Ballot) IndexOpts(_ string) pack.Options {
	return pack.NoOptions
}

func (b *Ballot) Store(ctx context.Context, t *pack.Table) error {
	if b.RowId > 0 {
		return t.Update(ctx, b)
	}
	return t.Insert(ctx, b)
}

func GetBallot(ctx context.Context, t *pack.Table, id ProposalID, voter ledger.Address) (*Ballot, error) {
	b := &Ballot{}
	err := pack.NewQuery("find.ballot_by_voter").
		WithTable(t).
		AndEqual("proposal_id", id).
		AndEqual("voter", voter).
		Execute(ctx, b)
	if err != nil {
		return nil, err
	}
	if b.RowId == 0 {
		return nil, ErrNoBallot
	}
	return b, nil
}

func ListProposalBallots(ctx context.Context, t *pack.Table, id ProposalID) ([]*Ballot, error) {
	list := make([]*Ballot, 0)
	err := pack.NewQuery("list.ballots_by_proposal").
		WithTable(t).
		AndEqual("proposal_id", id).
		Execute(ctx, &list)
	if err != nil {
		list = list[:0]
		return nil, err
	}
	return list, nil
}

func ListBallots(ctx context.Context, t *pack.Table, q pack.Query) ([]*Ballot, error) {
	list := make([]*Ballot, 0)
	err := q.WithTable(t).Execute(ctx, &list)
	if err != nil {
		list = list[:0]
		return nil, err
	}
	return list, nil
}
