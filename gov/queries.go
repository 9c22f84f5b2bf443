// Copyright (c) 2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package gov

import (
	"context"

	"blockwatch.cc/packdb/pack"
	"blockwatch.cc/packdb/store"

	"github.com/Preciousbas/polichain-governance/gov/model"
	"github.com/Preciousbas/polichain-governance/ledger"
)

// Read queries run lock-free against the tables; they never advance
// the tip.

func (e *Engine) Proposal(ctx context.Context, id model.ProposalID) (*model.Proposal, error) {
	table, err := e.store.Table(model.ProposalTableKey)
	if err != nil {
		return nil, err
	}
	return model.GetProposalId(ctx, table, id)
}

func (e *Engine) Proposals(ctx context.Context, offset, limit uint) ([]*model.Proposal, error) {
	table, err := e.store.Table(model.ProposalTableKey)
	if err != nil {
		return nil, err
	}
	q := pack.NewQuery("list.proposals").
		WithTable(table).
		WithOffset(int(offset)).
		WithLimit(int(limit))
	return model.ListProposals(ctx, table, q)
}

// ActiveProposals lists proposals still open for voting.
func (e *Engine) ActiveProposals(ctx context.Context) ([]*model.Proposal, error) {
	table, err := e.store.Table(model.ProposalTableKey)
	if err != nil {
		return nil, err
	}
	q := pack.NewQuery("list.active_proposals").
		WithTable(table).
		AndEqual("status", ledger.ProposalStatusActive).
		AndGt("end_time", e.clock().UTC())
	return model.ListProposals(ctx, table, q)
}

func (e *Engine) Op(ctx context.Context, hash ledger.OpHash) (*model.TimelockOp, error) {
	table, err := e.store.Table(model.OpTableKey)
	if err != nil {
		return nil, err
	}
	return model.GetOpByHash(ctx, table, hash)
}

func (e *Engine) Ops(ctx context.Context, offset, limit uint) ([]*model.TimelockOp, error) {
	table, err := e.store.Table(model.OpTableKey)
	if err != nil {
		return nil, err
	}
	q := pack.NewQuery("list.ops").
		WithTable(table).
		WithOffset(int(offset)).
		WithLimit(int(limit))
	return model.ListOps(ctx, table, q)
}

func (e *Engine) ProposalBallots(ctx context.Context, id model.ProposalID) ([]*model.Ballot, error) {
	table, err := e.store.Table(model.BallotTableKey)
	if err != nil {
		return nil, err
	}
	return model.ListProposalBallots(ctx, table, id)
}

func (e *Engine) Roles(ctx context.Context, role ledger.Role) ([]*model.RoleGrant, error) {
	table, err := e.store.Table(model.RoleTableKey)
	if err != nil {
		return nil, err
	}
	return model.ListRoleGrants(ctx, table, role)
}

// Events lists events with row id greater than after, oldest first.
func (e *Engine) Events(ctx context.Context, after model.EventID, limit uint) ([]*model.Event, error) {
	table, err := e.store.Table(model.EventTableKey)
	if err != nil {
		return nil, err
	}
	q := pack.NewQuery("list.events").
		WithTable(table).
		AndGt("I", after).
		WithLimit(int(limit))
	return model.ListEvents(ctx, table, q)
}

// Genesis returns the raw blob the database was bootstrapped from.
func (e *Engine) Genesis(ctx context.Context) ([]byte, error) {
	var blob []byte
	err := e.store.statedb.View(func(dbTx store.Tx) error {
		var err error
		blob, err = dbLoadGenesis(dbTx)
		return err
	})
	return blob, err
}

// VoterStatus reports a voter's standing on one proposal without
// mutating anything.
type VoterStatus struct {
	ProposalId model.ProposalID `json:"proposal_id"`
	Voter      ledger.Address   `json:"voter"`
	Open       bool             `json:"open"`
	Weight     int64            `json:"weight"`
	HasVoted   bool             `json:"has_voted"`
	Support    bool             `json:"support"`
	Eligible   bool             `json:"eligible"`
}

func (e *Engine) VoterStatus(ctx context.Context, id model.ProposalID, voter ledger.Address) (*VoterStatus, error) {
	proposals, err := e.store.Table(model.ProposalTableKey)
	if err != nil {
		return nil, err
	}
	p, err := model.GetProposalId(ctx, proposals, id)
	if err != nil {
		return nil, err
	}
	weight, err := e.token.VotingPowerAt(ctx, voter, p.Snapshot)
	if err != nil {
		return nil, err
	}
	vs := &VoterStatus{
		ProposalId: id,
		Voter:      voter,
		Open:       p.IsOpen(e.clock().UTC()),
		Weight:     weight,
	}
	ballots, err := e.store.Table(model.BallotTableKey)
	if err != nil {
		return nil, err
	}
	if b, err := model.GetBallot(ctx, ballots, id, voter); err == nil {
		vs.HasVoted = true
		vs.Support = b.Support
	}
	vs.Eligible = vs.Open && vs.Weight > 0 && !vs.HasVoted
	return vs, nil
}

// QuorumProgress reports cast weight against the required quorum. For
// open proposals the requirement tracks the current quorum percentage
// and can move when that parameter changes.
type QuorumProgress struct {
	ProposalId    model.ProposalID `json:"proposal_id"`
	Supply        int64            `json:"supply"`
	QuorumPct     int64            `json:"quorum_pct"`
	QuorumWeight  int64            `json:"quorum_weight"`
	TurnoutWeight int64            `json:"turnout_weight"`
	ForWeight     int64            `json:"for_weight"`
	AgainstWeight int64            `json:"against_weight"`
	Reached       bool             `json:"reached"`
}

func (e *Engine) QuorumProgress(ctx context.Context, id model.ProposalID) (*QuorumProgress, error) {
	proposals, err := e.store.Table(model.ProposalTableKey)
	if err != nil {
		return nil, err
	}
	p, err := model.GetProposalId(ctx, proposals, id)
	if err != nil {
		return nil, err
	}
	qp := &QuorumProgress{
		ProposalId:    id,
		TurnoutWeight: p.ForWeight + p.AgainstWeight,
		ForWeight:     p.ForWeight,
		AgainstWeight: p.AgainstWeight,
	}
	if p.Status != ledger.ProposalStatusActive {
		// finalized proposals froze their requirement
		qp.QuorumPct = p.QuorumPct
		qp.QuorumWeight = p.QuorumWeight
		supply, err := e.supplyAt(ctx, p.Snapshot)
		if err != nil {
			return nil, err
		}
		qp.Supply = supply
	} else {
		supply, err := e.supplyAt(ctx, p.Snapshot)
		if err != nil {
			return nil, err
		}
		qp.Supply = supply
		qp.QuorumPct = e.Tip().QuorumPct
		qp.QuorumWeight = supply * qp.QuorumPct / 100
	}
	qp.Reached = qp.TurnoutWeight >= qp.QuorumWeight
	return qp, nil
}
