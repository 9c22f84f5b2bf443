// Copyright (c) 2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package gov

import (
	"context"
	"errors"
	"fmt"

	"blockwatch.cc/packdb/pack"
	"github.com/tidwall/gjson"

	"github.com/Preciousbas/polichain-governance/gov/model"
	"github.com/Preciousbas/polichain-governance/ledger"
)

// ProposeGeneral submits a proposal with no execution effect beyond the
// on-record decision.
func (e *Engine) ProposeGeneral(ctx context.Context, sender ledger.Address, desc string) (*model.Proposal, error) {
	return e.propose(ctx, sender, ledger.ActionGeneral, desc, ledger.ZeroAddress, 0, 0)
}

// ProposeMint submits a proposal to mint tokens to target on execution.
func (e *Engine) ProposeMint(ctx context.Context, sender ledger.Address, desc string, target ledger.Address, amount int64) (*model.Proposal, error) {
	return e.propose(ctx, sender, ledger.ActionMintTokens, desc, target, amount, 0)
}

// ProposeTransfer submits a proposal to pay amount from the treasury to
// target on execution.
func (e *Engine) ProposeTransfer(ctx context.Context, sender ledger.Address, desc string, target ledger.Address, amount int64) (*model.Proposal, error) {
	return e.propose(ctx, sender, ledger.ActionTransferFunds, desc, target, amount, 0)
}

// ProposeUpdateQuorum submits a proposal to change the quorum
// percentage on execution.
func (e *Engine) ProposeUpdateQuorum(ctx context.Context, sender ledger.Address, desc string, pct int64) (*model.Proposal, error) {
	return e.propose(ctx, sender, ledger.ActionUpdateQuorum, desc, ledger.ZeroAddress, 0, pct)
}

func (e *Engine) propose(ctx context.Context, sender ledger.Address, kind ledger.ActionKind, desc string, target ledger.Address, amount, pct int64) (*model.Proposal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.begin()
	defer e.abort()

	if desc == "" {
		return nil, model.ErrEmptyDescription
	}
	switch kind {
	case ledger.ActionGeneral:
		// no payload
	case ledger.ActionMintTokens:
		if amount <= 0 {
			return nil, model.ErrZeroAmount
		}
	case ledger.ActionTransferFunds:
		if amount <= 0 {
			return nil, model.ErrZeroAmount
		}
		if target.IsZero() {
			return nil, model.ErrZeroAddress
		}
	case ledger.ActionUpdateQuorum:
		if pct < 1 || pct > 100 {
			return nil, model.ErrQuorumRange
		}
	default:
		return nil, model.ErrInvalidAction
	}

	// the threshold gate reads live weight, not a snapshot
	weight, err := e.token.VotingPower(ctx, sender)
	if err != nil {
		return nil, fmt.Errorf("reading voting power: %w", err)
	}
	if weight <= 0 || weight < e.params.ProposalThreshold {
		return nil, model.ErrBelowThreshold
	}

	table, err := e.store.Table(model.ProposalTableKey)
	if err != nil {
		return nil, err
	}
	p := &model.Proposal{
		Proposer:    sender,
		Description: desc,
		Kind:        kind,
		Target:      target,
		Amount:      amount,
		Snapshot:    s.height - 1,
		Height:      s.height,
		StartTime:   s.now,
		EndTime:     s.now.Add(e.params.VotingPeriod),
		Status:      ledger.ProposalStatusActive,
	}
	if kind == ledger.ActionUpdateQuorum {
		p.NewQuorumPct = pct
	}
	if err := p.Store(ctx, table); err != nil {
		return nil, err
	}
	s.tip.NumProposals++

	e.emit(model.EventTypeProposalCreated, sender, p.RowId, ledger.ZeroOpHash, map[string]interface{}{
		"proposer":    sender,
		"description": desc,
		"kind":        kind,
		"snapshot":    p.Snapshot,
		"end_time":    p.EndTime,
	})
	if err := e.commit(ctx); err != nil {
		return nil, err
	}
	log.Debugf("Proposal %d created by %s kind=%s snap=%d.", p.RowId, sender, kind, p.Snapshot)
	return p, nil
}

// Vote casts a ballot. Weight is the voter's power at the proposal
// snapshot; one ballot per voter, rejected after the window closes.
func (e *Engine) Vote(ctx context.Context, sender ledger.Address, id model.ProposalID, support bool) (*model.Ballot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.begin()
	defer e.abort()

	proposals, err := e.store.Table(model.ProposalTableKey)
	if err != nil {
		return nil, err
	}
	p, err := model.GetProposalId(ctx, proposals, id)
	if err != nil {
		return nil, err
	}
	if p.Status != ledger.ProposalStatusActive {
		return nil, model.ErrNotActive
	}
	if s.now.After(p.EndTime) {
		return nil, model.ErrVotingClosed
	}

	ballots, err := e.store.Table(model.BallotTableKey)
	if err != nil {
		return nil, err
	}
	if e.seenBallot(ctx, ballots, id, sender) {
		return nil, model.ErrAlreadyVoted
	}

	weight, err := e.token.VotingPowerAt(ctx, sender, p.Snapshot)
	if err != nil {
		return nil, fmt.Errorf("reading voting power at snapshot %d: %w", p.Snapshot, err)
	}
	if weight <= 0 {
		return nil, model.ErrNoVotingPower
	}

	b := &model.Ballot{
		ProposalId: id,
		Voter:      sender,
		Support:    support,
		Weight:     weight,
		Height:     s.height,
		Time:       s.now,
	}
	if err := b.Store(ctx, ballots); err != nil {
		return nil, err
	}
	if support {
		p.ForWeight += weight
	} else {
		p.AgainstWeight += weight
	}
	p.NumVoters++
	if err := p.Store(ctx, proposals); err != nil {
		return nil, err
	}
	e.bcache.Add(id, sender)

	e.emit(model.EventTypeVoteCast, sender, id, ledger.ZeroOpHash, map[string]interface{}{
		"voter":   sender,
		"support": support,
		"weight":  weight,
	})
	if err := e.commit(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

// seenBallot consults the ballot cache first, the table on a miss.
// Cache misses are not authoritative since entries evict under
// pressure.
func (e *Engine) seenBallot(ctx context.Context, table *pack.Table, id model.ProposalID, voter ledger.Address) bool {
	if e.bcache.Has(id, voter) {
		return true
	}
	if _, err := model.GetBallot(ctx, table, id, voter); err == nil {
		e.bcache.Add(id, voter)
		return true
	}
	return false
}

// Finalize closes an expired proposal, callable by anyone. The quorum
// percentage in force now decides, even for proposals created under an
// older percentage.
func (e *Engine) Finalize(ctx context.Context, sender ledger.Address, id model.ProposalID) (*model.Proposal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.begin()
	defer e.abort()

	proposals, err := e.store.Table(model.ProposalTableKey)
	if err != nil {
		return nil, err
	}
	p, err := model.GetProposalId(ctx, proposals, id)
	if err != nil {
		return nil, err
	}
	if p.Status != ledger.ProposalStatusActive {
		return nil, model.ErrNotActive
	}
	if !s.now.After(p.EndTime) {
		return nil, model.ErrVotingOpen
	}
	if err := e.finalize(ctx, s, p); err != nil {
		return nil, err
	}
	if err := p.Store(ctx, proposals); err != nil {
		return nil, err
	}
	e.emit(model.EventTypeProposalFinalized, sender, id, ledger.ZeroOpHash, map[string]interface{}{
		"status":         p.Status,
		"for_weight":     p.ForWeight,
		"against_weight": p.AgainstWeight,
		"quorum_weight":  p.QuorumWeight,
		"no_quorum":      p.NoQuorum,
		"no_majority":    p.NoMajority,
	})
	if err := e.commit(ctx); err != nil {
		return nil, err
	}
	log.Debugf("Proposal %d finalized %s for=%d against=%d quorum=%d.",
		p.RowId, p.Status, p.ForWeight, p.AgainstWeight, p.QuorumWeight)
	return p, nil
}

// finalize computes the outcome in place. Supply is read at the
// snapshot, the percentage is the current parameter; ties fail.
func (e *Engine) finalize(ctx context.Context, s *stepCtx, p *model.Proposal) error {
	supply, err := e.supplyAt(ctx, p.Snapshot)
	if err != nil {
		return fmt.Errorf("reading supply at snapshot %d: %w", p.Snapshot, err)
	}
	p.QuorumPct = s.tip.QuorumPct
	p.QuorumWeight = supply * s.tip.QuorumPct / 100
	p.FinalizedTime = s.now
	turnout := p.ForWeight + p.AgainstWeight
	switch {
	case turnout < p.QuorumWeight:
		p.Status = ledger.ProposalStatusFailed
		p.NoQuorum = true
	case p.ForWeight > p.AgainstWeight:
		p.Status = ledger.ProposalStatusPassed
	default:
		p.Status = ledger.ProposalStatusFailed
		p.NoMajority = true
	}
	return nil
}

// ExecuteProposal dispatches a passed proposal's action. Only the bound
// executing authority may call; expired active proposals finalize on
// the fly. A failing action aborts the whole step.
func (e *Engine) ExecuteProposal(ctx context.Context, sender ledger.Address, id model.ProposalID) (*model.Proposal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.begin()
	defer e.abort()

	p, err := e.executeProposal(ctx, sender, id)
	if err != nil {
		return nil, err
	}
	if err := e.commit(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

// executeProposal runs within an open step so the timelock dispatch
// path can reuse it.
func (e *Engine) executeProposal(ctx context.Context, sender ledger.Address, id model.ProposalID) (*model.Proposal, error) {
	s := e.cur
	proposals, err := e.store.Table(model.ProposalTableKey)
	if err != nil {
		return nil, err
	}
	p, err := model.GetProposalId(ctx, proposals, id)
	if err != nil {
		return nil, err
	}
	if s.tip.Executor.IsZero() || sender != s.tip.Executor {
		return nil, model.ErrNotExecutor
	}

	var finalized bool
	if p.IsExpired(s.now) {
		if err := e.finalize(ctx, s, p); err != nil {
			return nil, err
		}
		finalized = true
	}
	if p.IsExecuted {
		return nil, model.ErrAlreadyExecuted
	}
	if p.Status != ledger.ProposalStatusPassed {
		return nil, model.ErrNotPassed
	}

	// dispatch before any write so a failed action leaves no state
	switch p.Kind {
	case ledger.ActionGeneral:
		// decision on record only
	case ledger.ActionMintTokens:
		if err := e.token.Mint(ctx, p.Target, p.Amount); err != nil {
			return nil, asActionError("mint", err)
		}
	case ledger.ActionTransferFunds:
		if err := e.spend(ctx, p.Target, p.Amount); err != nil {
			return nil, err
		}
	case ledger.ActionUpdateQuorum:
		if p.NewQuorumPct < 1 || p.NewQuorumPct > 100 {
			return nil, model.ErrQuorumRange
		}
		s.tip.QuorumPct = p.NewQuorumPct
		e.emit(model.EventTypeQuorumUpdated, sender, id, ledger.ZeroOpHash, map[string]interface{}{
			"quorum_pct": p.NewQuorumPct,
		})
	default:
		return nil, model.ErrInvalidAction
	}

	p.IsExecuted = true
	p.Status = ledger.ProposalStatusExecuted
	if err := p.Store(ctx, proposals); err != nil {
		return nil, err
	}
	if finalized {
		e.emit(model.EventTypeProposalFinalized, sender, id, ledger.ZeroOpHash, map[string]interface{}{
			"status":         ledger.ProposalStatusPassed,
			"for_weight":     p.ForWeight,
			"against_weight": p.AgainstWeight,
			"quorum_weight":  p.QuorumWeight,
		})
	}
	e.emit(model.EventTypeProposalExecuted, sender, id, ledger.ZeroOpHash, map[string]interface{}{
		"kind":   p.Kind,
		"target": p.Target,
		"amount": p.Amount,
	})
	log.Debugf("Proposal %d executed kind=%s.", p.RowId, p.Kind)
	return p, nil
}

// BindExecutor fixes the executing authority, once. Normal setups bind
// the timelock address and never touch this again.
func (e *Engine) BindExecutor(ctx context.Context, sender, executor ledger.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.begin()
	defer e.abort()

	if executor.IsZero() {
		return model.ErrZeroAddress
	}
	if !e.auth.HasRole(ledger.RoleAdmin, sender) {
		return model.ErrNotAdmin
	}
	if !s.tip.Executor.IsZero() {
		return model.ErrExecutorBound
	}
	s.tip.Executor = executor
	e.emit(model.EventTypeExecutorBound, sender, 0, ledger.ZeroOpHash, map[string]interface{}{
		"executor": executor,
	})
	return e.commit(ctx)
}

// governorCall handles queued operations targeting the registry
// address. The only method is proposal execution, the second leg of the
// two-step indirection.
func (e *Engine) governorCall(ctx context.Context, call Call) error {
	if call.Value != 0 {
		return fmt.Errorf("%w: governor accepts no funds", model.ErrInvalidArgument)
	}
	method := gjson.GetBytes(call.Payload, "method").String()
	switch method {
	case "execute_proposal":
		id := gjson.GetBytes(call.Payload, "id").Uint()
		if id == 0 {
			return fmt.Errorf("%w: missing proposal id", model.ErrInvalidArgument)
		}
		_, err := e.executeProposal(ctx, call.Sender, model.ProposalID(id))
		return err
	default:
		return fmt.Errorf("%w: unknown governor method %q", model.ErrInvalidArgument, method)
	}
}

// asActionError folds external failures into the action error class
// unless they already carry it.
func asActionError(op string, err error) error {
	if errors.Is(err, model.ErrActionFailed) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", model.ErrActionFailed, op, err)
}
