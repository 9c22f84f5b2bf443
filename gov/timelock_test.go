// Copyright (c) 2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package gov

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Preciousbas/polichain-governance/gov/model"
	"github.com/Preciousbas/polichain-governance/ledger"
)

func salted(n byte) [32]byte {
	var s [32]byte
	s[0] = n
	return s
}

func TestScheduleChecks(t *testing.T) {
	env := newTestEnv(t, scenarioGenesis())
	eng, ctx := env.engine, env.ctx()

	req := ScheduleRequest{
		Target: addrEve,
		Value:  500,
		Salt:   salted(1),
		Delay:  2 * time.Minute,
	}

	// only proposer role holders may queue
	_, err := eng.Schedule(ctx, addrAlice, req)
	assert.ErrorIs(t, err, model.ErrMissingRole)

	short := req
	short.Delay = 30 * time.Second
	_, err = eng.Schedule(ctx, addrAdmin, short)
	assert.ErrorIs(t, err, model.ErrDelayTooShort)

	long := req
	long.Delay = env.params.MaxDelay + time.Hour
	_, err = eng.Schedule(ctx, addrAdmin, long)
	assert.ErrorIs(t, err, model.ErrDelayTooLong)

	op, err := eng.Schedule(ctx, addrAdmin, req)
	require.NoError(t, err)
	assert.Equal(t, req.Hash(), op.Hash)
	assert.Equal(t, addrAdmin, op.Proposer)
	assert.Equal(t, env.clock.Now().Add(2*time.Minute), op.ReadyTime)
	assert.Equal(t, int64(1), eng.Tip().NumOps)

	// same identity tuple cannot be queued twice
	_, err = eng.Schedule(ctx, addrAdmin, req)
	assert.ErrorIs(t, err, model.ErrAlreadyScheduled)

	// a different salt makes a fresh identity
	resalted := req
	resalted.Salt = salted(2)
	op2, err := eng.Schedule(ctx, addrAdmin, resalted)
	require.NoError(t, err)
	assert.NotEqual(t, op.Hash, op2.Hash)
}

func TestOpLifecycle(t *testing.T) {
	env := newTestEnv(t, scenarioGenesis())
	eng, ctx := env.engine, env.ctx()

	req := ScheduleRequest{
		Target:      addrEve,
		Value:       500,
		Salt:        salted(1),
		Delay:       2 * time.Minute,
		Description: "grant for eve",
		Category:    "treasury",
	}
	op, err := eng.Schedule(ctx, addrAdmin, req)
	require.NoError(t, err)
	assert.False(t, op.IsDone)

	exec := ExecuteRequest{Target: req.Target, Value: req.Value, Salt: req.Salt}

	// one second early is still locked
	env.clock.Advance(2*time.Minute - time.Second)
	_, err = eng.ExecuteOp(ctx, addrDave, exec)
	assert.ErrorIs(t, err, model.ErrNotReady)

	// the ready timestamp itself unlocks
	env.clock.Advance(time.Second)
	op, err = eng.ExecuteOp(ctx, addrDave, exec)
	require.NoError(t, err)
	assert.True(t, op.IsDone)
	assert.Equal(t, env.clock.Now(), op.DoneTime)

	bal, err := env.token.BalanceOf(ctx, addrEve)
	require.NoError(t, err)
	assert.Equal(t, int64(500), bal)
	bal, err = env.token.BalanceOf(ctx, ledger.TreasuryAddress)
	require.NoError(t, err)
	assert.Equal(t, int64(91500), bal)

	// done rows drop their metadata but keep blocking the id
	row, err := eng.Op(ctx, op.Hash)
	require.NoError(t, err)
	assert.True(t, row.IsDone)
	assert.Empty(t, row.Description)
	assert.Empty(t, row.Category)

	_, err = eng.ExecuteOp(ctx, addrDave, exec)
	assert.ErrorIs(t, err, model.ErrAlreadyDone)
	_, err = eng.Schedule(ctx, addrAdmin, req)
	assert.ErrorIs(t, err, model.ErrAlreadyScheduled)
}

func TestExecuteOpChecks(t *testing.T) {
	env := newTestEnv(t, scenarioGenesis())
	eng, ctx := env.engine, env.ctx()

	// executing an id that was never queued
	_, err := eng.ExecuteOp(ctx, addrDave, ExecuteRequest{Target: addrEve, Salt: salted(9)})
	assert.ErrorIs(t, err, model.ErrNoOp)

	// a funded call to a registered handler aborts without marking done
	req := ScheduleRequest{
		Target: ledger.GovernorAddress,
		Value:  100,
		Salt:   salted(1),
		Delay:  time.Minute,
	}
	op, err := eng.Schedule(ctx, addrAdmin, req)
	require.NoError(t, err)
	env.clock.Advance(time.Minute)

	_, err = eng.ExecuteOp(ctx, addrDave, ExecuteRequest{
		Target: req.Target, Value: req.Value, Salt: req.Salt,
	})
	assert.ErrorIs(t, err, model.ErrInvalidArgument)
	row, err := eng.Op(ctx, op.Hash)
	require.NoError(t, err)
	assert.False(t, row.IsDone, "failed dispatch leaves the op pending")
}

func TestExecutorRoleRestricted(t *testing.T) {
	g := scenarioGenesis()
	g.Roles = []*GenesisRole{
		{Role: ledger.RoleAdmin, Addr: addrAdmin},
		{Role: ledger.RoleProposer, Addr: addrAdmin},
		{Role: ledger.RoleCanceller, Addr: addrAdmin},
		{Role: ledger.RoleExecutor, Addr: addrBob},
	}
	env := newTestEnv(t, g)
	eng, ctx := env.engine, env.ctx()

	req := ScheduleRequest{Target: addrEve, Value: 100, Salt: salted(1), Delay: time.Minute}
	_, err := eng.Schedule(ctx, addrAdmin, req)
	require.NoError(t, err)
	env.clock.Advance(time.Minute)

	exec := ExecuteRequest{Target: req.Target, Value: req.Value, Salt: req.Salt}
	_, err = eng.ExecuteOp(ctx, addrCarol, exec)
	assert.ErrorIs(t, err, model.ErrMissingRole)

	_, err = eng.ExecuteOp(ctx, addrBob, exec)
	require.NoError(t, err)
}

func TestCancelOp(t *testing.T) {
	env := newTestEnv(t, scenarioGenesis())
	eng, ctx := env.engine, env.ctx()

	req := ScheduleRequest{Target: addrEve, Value: 100, Salt: salted(1), Delay: time.Minute}
	op, err := eng.Schedule(ctx, addrAdmin, req)
	require.NoError(t, err)

	err = eng.CancelOp(ctx, addrAlice, op.Hash)
	assert.ErrorIs(t, err, model.ErrMissingRole)

	err = eng.CancelOp(ctx, addrAdmin, op.Hash)
	require.NoError(t, err)
	_, err = eng.Op(ctx, op.Hash)
	assert.ErrorIs(t, err, model.ErrNoOp, "cancelled rows are deleted")

	err = eng.CancelOp(ctx, addrAdmin, op.Hash)
	assert.ErrorIs(t, err, model.ErrNoOp)

	// a cancelled id can be queued again
	op, err = eng.Schedule(ctx, addrAdmin, req)
	require.NoError(t, err)

	env.clock.Advance(time.Minute)
	op, err = eng.ExecuteOp(ctx, addrDave, ExecuteRequest{
		Target: req.Target, Value: req.Value, Salt: req.Salt,
	})
	require.NoError(t, err)

	// done ops are history, not cancellable
	err = eng.CancelOp(ctx, addrAdmin, op.Hash)
	assert.ErrorIs(t, err, model.ErrAlreadyDone)
}

func TestPredecessorGate(t *testing.T) {
	env := newTestEnv(t, scenarioGenesis())
	eng, ctx := env.engine, env.ctx()

	first := ScheduleRequest{Target: addrEve, Value: 100, Salt: salted(1), Delay: time.Minute}
	opA, err := eng.Schedule(ctx, addrAdmin, first)
	require.NoError(t, err)

	second := ScheduleRequest{
		Target:      addrEve,
		Value:       200,
		Predecessor: opA.Hash,
		Salt:        salted(2),
		Delay:       time.Minute,
	}
	_, err = eng.Schedule(ctx, addrAdmin, second)
	require.NoError(t, err)

	env.clock.Advance(time.Minute)

	execA := ExecuteRequest{Target: first.Target, Value: first.Value, Salt: first.Salt}
	execB := ExecuteRequest{
		Target: second.Target, Value: second.Value,
		Predecessor: second.Predecessor, Salt: second.Salt,
	}

	// gate holds while the predecessor is pending
	_, err = eng.ExecuteOp(ctx, addrDave, execB)
	assert.ErrorIs(t, err, model.ErrPredecessorNotDone)

	_, err = eng.ExecuteOp(ctx, addrDave, execA)
	require.NoError(t, err)
	_, err = eng.ExecuteOp(ctx, addrDave, execB)
	require.NoError(t, err)

	bal, err := env.token.BalanceOf(ctx, addrEve)
	require.NoError(t, err)
	assert.Equal(t, int64(300), bal)

	t.Run("UnknownPredecessor", func(t *testing.T) {
		var ghost ledger.OpHash
		ghost[0] = 0xff
		req := ScheduleRequest{Target: addrEve, Value: 50, Predecessor: ghost, Salt: salted(3), Delay: time.Minute}
		_, err := eng.Schedule(ctx, addrAdmin, req)
		require.NoError(t, err)
		env.clock.Advance(time.Minute)
		_, err = eng.ExecuteOp(ctx, addrDave, ExecuteRequest{
			Target: req.Target, Value: req.Value, Predecessor: req.Predecessor, Salt: req.Salt,
		})
		assert.ErrorIs(t, err, model.ErrPredecessorNotDone)
	})

	t.Run("CancelledPredecessor", func(t *testing.T) {
		pre := ScheduleRequest{Target: addrEve, Value: 50, Salt: salted(4), Delay: time.Minute}
		opP, err := eng.Schedule(ctx, addrAdmin, pre)
		require.NoError(t, err)
		dep := ScheduleRequest{Target: addrEve, Value: 60, Predecessor: opP.Hash, Salt: salted(5), Delay: time.Minute}
		_, err = eng.Schedule(ctx, addrAdmin, dep)
		require.NoError(t, err)

		require.NoError(t, eng.CancelOp(ctx, addrAdmin, opP.Hash))
		env.clock.Advance(time.Minute)
		_, err = eng.ExecuteOp(ctx, addrDave, ExecuteRequest{
			Target: dep.Target, Value: dep.Value, Predecessor: dep.Predecessor, Salt: dep.Salt,
		})
		assert.ErrorIs(t, err, model.ErrPredecessorNotDone)
	})
}

// The minimum delay changes only through a queued self-call, so every
// change waits out the delay it replaces.
func TestUpdateDelayViaQueue(t *testing.T) {
	env := newTestEnv(t, scenarioGenesis())
	eng, ctx := env.engine, env.ctx()

	req := ScheduleRequest{
		Target:  ledger.TimelockAddress,
		Payload: UpdateDelayPayload(5 * time.Minute),
		Salt:    salted(1),
		Delay:   time.Minute,
	}
	_, err := eng.Schedule(ctx, addrAdmin, req)
	require.NoError(t, err)
	env.clock.Advance(time.Minute)
	_, err = eng.ExecuteOp(ctx, addrDave, ExecuteRequest{
		Target: req.Target, Payload: req.Payload, Salt: req.Salt,
	})
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, eng.Tip().MinDelay)

	// the old floor no longer works
	_, err = eng.Schedule(ctx, addrAdmin, ScheduleRequest{
		Target: addrEve, Value: 10, Salt: salted(2), Delay: time.Minute,
	})
	assert.ErrorIs(t, err, model.ErrDelayTooShort)

	_, err = eng.Schedule(ctx, addrAdmin, ScheduleRequest{
		Target: addrEve, Value: 10, Salt: salted(2), Delay: 5 * time.Minute,
	})
	require.NoError(t, err)
}

// End-to-end: a transfer proposal passes the vote, is queued behind the
// delay and runs through the queue, which is the bound executing
// authority.
func TestGovernanceTwoStepExecution(t *testing.T) {
	env := newTestEnv(t, scenarioGenesis())
	eng, ctx := env.engine, env.ctx()

	p, err := eng.ProposeTransfer(ctx, addrAlice, "fund eve via queue", addrEve, 900)
	require.NoError(t, err)
	for _, v := range []ledger.Address{addrBob, addrCarol} {
		_, err = eng.Vote(ctx, v, p.RowId, true)
		require.NoError(t, err)
	}
	env.pastVotingPeriod()
	p, err = eng.Finalize(ctx, addrAlice, p.RowId)
	require.NoError(t, err)
	require.Equal(t, ledger.ProposalStatusPassed, p.Status)

	// nobody shortcuts the queue
	_, err = eng.ExecuteProposal(ctx, addrAlice, p.RowId)
	assert.ErrorIs(t, err, model.ErrNotExecutor)

	req := ScheduleRequest{
		Target:      ledger.GovernorAddress,
		Payload:     ExecuteProposalPayload(p.RowId),
		Salt:        salted(1),
		Delay:       10 * time.Minute,
		Description: "fund eve via queue",
	}
	op, err := eng.Schedule(ctx, addrAdmin, req)
	require.NoError(t, err)

	env.clock.Advance(10 * time.Minute)
	op, err = eng.ExecuteOp(ctx, addrDave, ExecuteRequest{
		Target: req.Target, Payload: req.Payload, Salt: req.Salt,
	})
	require.NoError(t, err)
	assert.True(t, op.IsDone)

	p, err = eng.Proposal(ctx, p.RowId)
	require.NoError(t, err)
	assert.Equal(t, ledger.ProposalStatusExecuted, p.Status)

	bal, err := env.token.BalanceOf(ctx, addrEve)
	require.NoError(t, err)
	assert.Equal(t, int64(900), bal)
}
