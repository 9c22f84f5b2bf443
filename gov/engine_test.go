// Copyright (c) 2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package gov

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"blockwatch.cc/packdb/store"
	_ "blockwatch.cc/packdb/store/bolt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"

	"github.com/Preciousbas/polichain-governance/gov/model"
	"github.com/Preciousbas/polichain-governance/ledger"
	"github.com/Preciousbas/polichain-governance/token"
)

var (
	addrAdmin = ledger.NamedAddress("admin")
	addrAlice = ledger.NamedAddress("alice")
	addrBob   = ledger.NamedAddress("bob")
	addrCarol = ledger.NamedAddress("carol")
	addrDave  = ledger.NamedAddress("dave")
	addrEve   = ledger.NamedAddress("eve")
)

// testClock is a manually advanced time source shared by engine and
// assertions.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Unix(1700000000, 0).UTC()}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// testFeed captures published events in memory.
type testFeed struct {
	mu     sync.Mutex
	events []*model.Event
}

func (f *testFeed) Publish(ev *model.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
}

func (f *testFeed) Close() error {
	return nil
}

func (f *testFeed) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

type testEnv struct {
	engine *Engine
	token  *token.Ledger
	clock  *testClock
	feed   *testFeed
	params *ledger.Params
	dir    string
	state  store.DB
}

// scenarioGenesis allocates a 100,000 unit supply with the weights the
// end-to-end voting scenarios expect. The admin account carries the
// management roles and no balance; execution is open to anyone.
func scenarioGenesis() *Genesis {
	return &Genesis{
		Network:   "Sandbox",
		QuorumPct: 4,
		MinDelay:  time.Minute,
		Executor:  ledger.TimelockAddress,
		Treasury:  ledger.TreasuryAddress,
		Accounts: []*GenesisAccount{
			{Addr: addrAlice, Value: 2000},
			{Addr: addrBob, Value: 3000},
			{Addr: addrCarol, Value: 2000},
			{Addr: addrDave, Value: 1000},
			{Addr: ledger.TreasuryAddress, Value: 92000},
		},
		Roles: []*GenesisRole{
			{Role: ledger.RoleAdmin, Addr: addrAdmin},
			{Role: ledger.RoleProposer, Addr: addrAdmin},
			{Role: ledger.RoleCanceller, Addr: addrAdmin},
			{Role: ledger.RoleExecutor, Addr: ledger.ZeroAddress},
		},
	}
}

func newTestEnv(t *testing.T, genesis *Genesis) *testEnv {
	t.Helper()
	dir := t.TempDir()
	params := ledger.NewParams().ForNetwork("Sandbox")
	dbopts := &bolt.Options{Timeout: time.Second}

	statedb, err := store.Create("bolt", filepath.Join(dir, StateDBName), dbopts)
	require.NoError(t, err)
	t.Cleanup(func() { statedb.Close() })

	tok := token.NewLedger(token.LedgerConfig{
		Params: params,
		DBPath: dir,
		DBOpts: dbopts,
	})
	require.NoError(t, tok.Init())
	t.Cleanup(func() { tok.Close() })

	clk := newTestClock()
	feed := &testFeed{}
	eng := NewEngine(EngineConfig{
		Params:    params,
		DBPath:    dir,
		DBOpts:    dbopts,
		StateDB:   statedb,
		Token:     tok,
		Publisher: feed,
		Clock:     clk.Now,
	})
	tok.Bind(eng)
	require.NoError(t, eng.Init(context.Background(), genesis))
	t.Cleanup(func() { eng.Close() })

	return &testEnv{
		engine: eng,
		token:  tok,
		clock:  clk,
		feed:   feed,
		params: params,
		dir:    dir,
		state:  statedb,
	}
}

func (e *testEnv) ctx() context.Context {
	return context.Background()
}

// pastVotingPeriod moves the clock beyond the voting window of
// proposals created at the current timestamp.
func (e *testEnv) pastVotingPeriod() {
	e.clock.Advance(e.params.VotingPeriod + time.Second)
}

func TestGenesisBootstrap(t *testing.T) {
	env := newTestEnv(t, scenarioGenesis())
	eng, ctx := env.engine, env.ctx()

	tip := eng.Tip()
	assert.Equal(t, int64(1), tip.Height)
	assert.Equal(t, int64(4), tip.QuorumPct)
	assert.Equal(t, time.Minute, tip.MinDelay)
	assert.Equal(t, ledger.TimelockAddress, tip.Executor)
	assert.Equal(t, ledger.TreasuryAddress, tip.Treasury)
	assert.Equal(t, "Sandbox", tip.Network)
	assert.NotZero(t, tip.GenesisHash)

	supply, err := env.token.TotalSupply(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(100000), supply)

	bal, err := env.token.BalanceOf(ctx, ledger.TreasuryAddress)
	require.NoError(t, err)
	assert.Equal(t, int64(92000), bal)

	auth := eng.Authority()
	assert.True(t, auth.HasRole(ledger.RoleAdmin, addrAdmin))
	assert.True(t, auth.HasRole(ledger.RoleProposer, addrAdmin))
	assert.True(t, auth.HasRole(ledger.RoleCanceller, addrAdmin))
	assert.True(t, auth.AllowExecutor(addrEve), "zero address grant opens execution to anyone")

	// 4 role grants + executor binding
	events, err := eng.Events(ctx, 0, 100)
	require.NoError(t, err)
	require.Len(t, events, 5)
	assert.Equal(t, model.EventTypeExecutorBound, events[4].Type)
	assert.Equal(t, int64(5), eng.Tip().NumEvents)
	assert.Equal(t, 5, env.feed.Len())
}

func TestReopen(t *testing.T) {
	env := newTestEnv(t, scenarioGenesis())
	ctx := env.ctx()

	// mutate some state before closing
	p, err := env.engine.ProposeGeneral(ctx, addrAlice, "adjust fee schedule")
	require.NoError(t, err)
	tipBefore := env.engine.Tip()
	require.NoError(t, env.engine.Close())

	reopen := func() *Engine {
		eng := NewEngine(EngineConfig{
			Params:  env.params,
			DBPath:  env.dir,
			DBOpts:  &bolt.Options{Timeout: time.Second},
			StateDB: env.state,
			Token:   env.token,
			Clock:   env.clock.Now,
		})
		return eng
	}

	eng := reopen()
	require.NoError(t, eng.Init(ctx, nil))
	tip := eng.Tip()
	assert.Equal(t, tipBefore.Height, tip.Height)
	assert.Equal(t, tipBefore.NumProposals, tip.NumProposals)
	assert.Equal(t, tipBefore.GenesisHash, tip.GenesisHash)
	p2, err := eng.Proposal(ctx, p.RowId)
	require.NoError(t, err)
	assert.Equal(t, p.Description, p2.Description)
	assert.True(t, eng.Authority().HasRole(ledger.RoleAdmin, addrAdmin), "role cache rebuilt from table")
	require.NoError(t, eng.Close())

	// a different genesis must be rejected on reopen
	other := scenarioGenesis()
	other.QuorumPct = 5
	eng = reopen()
	err = eng.Init(ctx, other)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "genesis mismatch")
	eng.Close()
}

func TestProposalChecks(t *testing.T) {
	env := newTestEnv(t, scenarioGenesis())
	eng, ctx := env.engine, env.ctx()
	h := eng.Height()

	_, err := eng.ProposeGeneral(ctx, addrAlice, "")
	assert.ErrorIs(t, err, model.ErrEmptyDescription)

	_, err = eng.ProposeMint(ctx, addrAlice, "mint nothing", addrBob, 0)
	assert.ErrorIs(t, err, model.ErrZeroAmount)

	_, err = eng.ProposeTransfer(ctx, addrAlice, "pay nobody", ledger.ZeroAddress, 100)
	assert.ErrorIs(t, err, model.ErrZeroAddress)

	_, err = eng.ProposeUpdateQuorum(ctx, addrAlice, "no quorum", 0)
	assert.ErrorIs(t, err, model.ErrQuorumRange)

	_, err = eng.ProposeUpdateQuorum(ctx, addrAlice, "all quorum", 101)
	assert.ErrorIs(t, err, model.ErrQuorumRange)

	// eve holds nothing
	_, err = eng.ProposeGeneral(ctx, addrEve, "unfunded idea")
	assert.ErrorIs(t, err, model.ErrBelowThreshold)
	assert.ErrorIs(t, err, model.ErrUnauthorized)

	// rejected calls never advance the execution step
	assert.Equal(t, h, eng.Height())

	// exactly at threshold is enough
	p, err := eng.ProposeGeneral(ctx, addrDave, "threshold edge")
	require.NoError(t, err)
	assert.Equal(t, h, p.Snapshot, "snapshot points one step back")
	assert.Equal(t, h+1, eng.Height())
}

// Scenario: a funded proposer mints 500 to the treasury, quorum 4% of
// 100,000 snapshot supply, votes 5,000 for vs 1,000 against.
func TestProposalLifecycle(t *testing.T) {
	env := newTestEnv(t, scenarioGenesis())
	eng, ctx := env.engine, env.ctx()

	p, err := eng.ProposeMint(ctx, addrAlice, "mint 500 to treasury", ledger.TreasuryAddress, 500)
	require.NoError(t, err)
	assert.Equal(t, ledger.ProposalStatusActive, p.Status)
	assert.Equal(t, int64(1), p.Snapshot)
	assert.Equal(t, env.clock.Now().Add(env.params.VotingPeriod), p.EndTime)

	b, err := eng.Vote(ctx, addrBob, p.RowId, true)
	require.NoError(t, err)
	assert.Equal(t, int64(3000), b.Weight)
	_, err = eng.Vote(ctx, addrCarol, p.RowId, true)
	require.NoError(t, err)
	_, err = eng.Vote(ctx, addrDave, p.RowId, false)
	require.NoError(t, err)

	p, err = eng.Proposal(ctx, p.RowId)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), p.ForWeight)
	assert.Equal(t, int64(1000), p.AgainstWeight)
	assert.Equal(t, int64(3), p.NumVoters)

	// quorum progress against the live percentage
	qp, err := eng.QuorumProgress(ctx, p.RowId)
	require.NoError(t, err)
	assert.Equal(t, int64(100000), qp.Supply)
	assert.Equal(t, int64(4000), qp.QuorumWeight)
	assert.Equal(t, int64(6000), qp.TurnoutWeight)
	assert.True(t, qp.Reached)

	env.pastVotingPeriod()

	p, err = eng.Finalize(ctx, addrDave, p.RowId)
	require.NoError(t, err)
	assert.Equal(t, ledger.ProposalStatusPassed, p.Status)
	assert.Equal(t, int64(4000), p.QuorumWeight)
	assert.Equal(t, int64(4), p.QuorumPct)
	assert.False(t, p.NoQuorum)
	assert.False(t, p.NoMajority)

	p, err = eng.ExecuteProposal(ctx, ledger.TimelockAddress, p.RowId)
	require.NoError(t, err)
	assert.Equal(t, ledger.ProposalStatusExecuted, p.Status)
	assert.True(t, p.IsExecuted)

	bal, err := env.token.BalanceOf(ctx, ledger.TreasuryAddress)
	require.NoError(t, err)
	assert.Equal(t, int64(92500), bal)
	supply, err := env.token.TotalSupply(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(100500), supply)

	h := eng.Height()
	_, err = eng.ExecuteProposal(ctx, ledger.TimelockAddress, p.RowId)
	assert.ErrorIs(t, err, model.ErrAlreadyExecuted)
	assert.Equal(t, h, eng.Height())
}

// Scenario: only the 1,000 weight holder votes; turnout misses the
// 4,000 quorum so direction does not matter.
func TestProposalBelowQuorum(t *testing.T) {
	env := newTestEnv(t, scenarioGenesis())
	eng, ctx := env.engine, env.ctx()

	p, err := eng.ProposeMint(ctx, addrAlice, "mint 500 to treasury", ledger.TreasuryAddress, 500)
	require.NoError(t, err)
	_, err = eng.Vote(ctx, addrDave, p.RowId, false)
	require.NoError(t, err)

	env.pastVotingPeriod()

	p, err = eng.Finalize(ctx, addrBob, p.RowId)
	require.NoError(t, err)
	assert.Equal(t, ledger.ProposalStatusFailed, p.Status)
	assert.True(t, p.NoQuorum)
	assert.False(t, p.NoMajority)

	_, err = eng.ExecuteProposal(ctx, ledger.TimelockAddress, p.RowId)
	assert.ErrorIs(t, err, model.ErrNotPassed)
}

func TestProposalTieFails(t *testing.T) {
	env := newTestEnv(t, scenarioGenesis())
	eng, ctx := env.engine, env.ctx()

	p, err := eng.ProposeGeneral(ctx, addrAlice, "contested change")
	require.NoError(t, err)
	_, err = eng.Vote(ctx, addrBob, p.RowId, true) // 3000 for
	require.NoError(t, err)
	_, err = eng.Vote(ctx, addrCarol, p.RowId, false) // 2000 against
	require.NoError(t, err)
	_, err = eng.Vote(ctx, addrDave, p.RowId, false) // 1000 against
	require.NoError(t, err)

	env.pastVotingPeriod()

	p, err = eng.Finalize(ctx, addrAlice, p.RowId)
	require.NoError(t, err)
	assert.Equal(t, ledger.ProposalStatusFailed, p.Status)
	assert.False(t, p.NoQuorum)
	assert.True(t, p.NoMajority, "6000 turnout meets quorum, 3000:3000 tie fails")
}

func TestVoteRules(t *testing.T) {
	env := newTestEnv(t, scenarioGenesis())
	eng, ctx := env.engine, env.ctx()

	p, err := eng.ProposeGeneral(ctx, addrAlice, "rules of order")
	require.NoError(t, err)

	t.Run("UnknownProposal", func(t *testing.T) {
		_, err := eng.Vote(ctx, addrBob, p.RowId+42, true)
		assert.ErrorIs(t, err, model.ErrNoProposal)
		assert.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("SnapshotIsolation", func(t *testing.T) {
		// balances moved after the snapshot do not count
		require.NoError(t, env.token.Transfer(ctx, addrBob, addrEve, 3000))

		_, err := eng.Vote(ctx, addrEve, p.RowId, true)
		assert.ErrorIs(t, err, model.ErrNoVotingPower)

		b, err := eng.Vote(ctx, addrBob, p.RowId, true)
		require.NoError(t, err)
		assert.Equal(t, int64(3000), b.Weight, "weight fixed at snapshot")
	})

	t.Run("DoubleVote", func(t *testing.T) {
		_, err := eng.Vote(ctx, addrBob, p.RowId, false)
		assert.ErrorIs(t, err, model.ErrAlreadyVoted)
	})

	t.Run("VoterStatus", func(t *testing.T) {
		vs, err := eng.VoterStatus(ctx, p.RowId, addrBob)
		require.NoError(t, err)
		assert.True(t, vs.HasVoted)
		assert.True(t, vs.Support)
		assert.False(t, vs.Eligible)

		vs, err = eng.VoterStatus(ctx, p.RowId, addrCarol)
		require.NoError(t, err)
		assert.False(t, vs.HasVoted)
		assert.Equal(t, int64(2000), vs.Weight)
		assert.True(t, vs.Eligible)
	})

	t.Run("WindowClosed", func(t *testing.T) {
		env.pastVotingPeriod()
		_, err := eng.Vote(ctx, addrCarol, p.RowId, true)
		assert.ErrorIs(t, err, model.ErrVotingClosed)
	})

	t.Run("Frozen", func(t *testing.T) {
		_, err := eng.Finalize(ctx, addrAlice, p.RowId)
		require.NoError(t, err)
		_, err = eng.Vote(ctx, addrDave, p.RowId, true)
		assert.ErrorIs(t, err, model.ErrNotActive)
	})
}

func TestFinalizeRules(t *testing.T) {
	env := newTestEnv(t, scenarioGenesis())
	eng, ctx := env.engine, env.ctx()

	p, err := eng.ProposeGeneral(ctx, addrAlice, "premature finalize")
	require.NoError(t, err)

	_, err = eng.Finalize(ctx, addrAlice, p.RowId)
	assert.ErrorIs(t, err, model.ErrVotingOpen)

	env.pastVotingPeriod()
	_, err = eng.Finalize(ctx, addrAlice, p.RowId)
	require.NoError(t, err)

	_, err = eng.Finalize(ctx, addrAlice, p.RowId)
	assert.ErrorIs(t, err, model.ErrNotActive)
}

// The quorum requirement reads the percentage in force at finalize
// time while supply comes from the proposal snapshot. A quorum change
// therefore moves the bar for every proposal finalized after it, even
// ones created earlier.
func TestQuorumChangeAffectsOpenProposals(t *testing.T) {
	env := newTestEnv(t, scenarioGenesis())
	eng, ctx := env.engine, env.ctx()

	// turnout 3000 misses the 4% bar of 4000
	p1, err := eng.ProposeGeneral(ctx, addrAlice, "underfunded turnout")
	require.NoError(t, err)
	_, err = eng.Vote(ctx, addrBob, p1.RowId, true)
	require.NoError(t, err)

	// a second proposal lowers quorum to 2%
	p2, err := eng.ProposeUpdateQuorum(ctx, addrAlice, "lower quorum to 2", 2)
	require.NoError(t, err)
	for _, v := range []ledger.Address{addrBob, addrCarol, addrDave} {
		_, err = eng.Vote(ctx, v, p2.RowId, true)
		require.NoError(t, err)
	}

	env.pastVotingPeriod()

	p2, err = eng.Finalize(ctx, addrAlice, p2.RowId)
	require.NoError(t, err)
	require.Equal(t, ledger.ProposalStatusPassed, p2.Status)
	p2, err = eng.ExecuteProposal(ctx, ledger.TimelockAddress, p2.RowId)
	require.NoError(t, err)
	assert.Equal(t, int64(2), eng.Tip().QuorumPct)

	// p1 now finalizes under the lowered requirement
	p1, err = eng.Finalize(ctx, addrAlice, p1.RowId)
	require.NoError(t, err)
	assert.Equal(t, ledger.ProposalStatusPassed, p1.Status)
	assert.Equal(t, int64(2), p1.QuorumPct)
	assert.Equal(t, int64(2000), p1.QuorumWeight, "supply from snapshot, percentage from now")
}

// A failing external action aborts the whole step: no status change, no
// balance change, no tip advance; the attempt stays retryable.
func TestExecuteAtomicity(t *testing.T) {
	env := newTestEnv(t, scenarioGenesis())
	eng, ctx := env.engine, env.ctx()

	pass := func(p *model.Proposal) *model.Proposal {
		t.Helper()
		for _, v := range []ledger.Address{addrBob, addrCarol} {
			_, err := eng.Vote(ctx, v, p.RowId, true)
			require.NoError(t, err)
		}
		env.pastVotingPeriod()
		p, err := eng.Finalize(ctx, addrAlice, p.RowId)
		require.NoError(t, err)
		require.Equal(t, ledger.ProposalStatusPassed, p.Status)
		return p
	}

	t.Run("MintOverCap", func(t *testing.T) {
		p, err := eng.ProposeMint(ctx, addrAlice, "mint beyond cap", addrBob, env.params.MaxSupply)
		require.NoError(t, err)
		p = pass(p)

		h := eng.Height()
		supply, _ := env.token.TotalSupply(ctx)

		_, err = eng.ExecuteProposal(ctx, ledger.TimelockAddress, p.RowId)
		assert.ErrorIs(t, err, model.ErrSupplyCap)
		assert.ErrorIs(t, err, model.ErrActionFailed)

		assert.Equal(t, h, eng.Height(), "failed action leaves the tip alone")
		supplyAfter, _ := env.token.TotalSupply(ctx)
		assert.Equal(t, supply, supplyAfter)
		p, err = eng.Proposal(ctx, p.RowId)
		require.NoError(t, err)
		assert.Equal(t, ledger.ProposalStatusPassed, p.Status, "still passed, still retryable")
		assert.False(t, p.IsExecuted)
	})

	t.Run("TransferOverBalance", func(t *testing.T) {
		p, err := eng.ProposeTransfer(ctx, addrAlice, "drain treasury", addrEve, 1000000)
		require.NoError(t, err)
		p = pass(p)

		_, err = eng.ExecuteProposal(ctx, ledger.TimelockAddress, p.RowId)
		assert.ErrorIs(t, err, model.ErrInsufficientFund)

		bal, err := env.token.BalanceOf(ctx, addrEve)
		require.NoError(t, err)
		assert.Zero(t, bal)
	})
}

// Execute on an expired active proposal finalizes it on the fly.
func TestExecuteAutoFinalize(t *testing.T) {
	env := newTestEnv(t, scenarioGenesis())
	eng, ctx := env.engine, env.ctx()

	p, err := eng.ProposeTransfer(ctx, addrAlice, "pay eve", addrEve, 700)
	require.NoError(t, err)
	for _, v := range []ledger.Address{addrBob, addrCarol} {
		_, err = eng.Vote(ctx, v, p.RowId, true)
		require.NoError(t, err)
	}
	env.pastVotingPeriod()

	// no explicit Finalize call
	p, err = eng.ExecuteProposal(ctx, ledger.TimelockAddress, p.RowId)
	require.NoError(t, err)
	assert.Equal(t, ledger.ProposalStatusExecuted, p.Status)

	bal, err := env.token.BalanceOf(ctx, addrEve)
	require.NoError(t, err)
	assert.Equal(t, int64(700), bal)
	bal, err = env.token.BalanceOf(ctx, ledger.TreasuryAddress)
	require.NoError(t, err)
	assert.Equal(t, int64(91300), bal)
}

func TestExecutorGate(t *testing.T) {
	env := newTestEnv(t, scenarioGenesis())
	eng, ctx := env.engine, env.ctx()

	p, err := eng.ProposeGeneral(ctx, addrAlice, "gated execution")
	require.NoError(t, err)
	_, err = eng.Vote(ctx, addrBob, p.RowId, true)
	require.NoError(t, err)
	_, err = eng.Vote(ctx, addrCarol, p.RowId, true)
	require.NoError(t, err)
	env.pastVotingPeriod()
	_, err = eng.Finalize(ctx, addrAlice, p.RowId)
	require.NoError(t, err)

	// only the bound authority may execute, even admins are refused
	_, err = eng.ExecuteProposal(ctx, addrAlice, p.RowId)
	assert.ErrorIs(t, err, model.ErrNotExecutor)
	_, err = eng.ExecuteProposal(ctx, addrAdmin, p.RowId)
	assert.ErrorIs(t, err, model.ErrNotExecutor)

	_, err = eng.ExecuteProposal(ctx, ledger.TimelockAddress, p.RowId)
	require.NoError(t, err)
}

func TestBindExecutor(t *testing.T) {
	g := scenarioGenesis()
	g.Executor = ledger.ZeroAddress // unbound setup
	env := newTestEnv(t, g)
	eng, ctx := env.engine, env.ctx()

	p, err := eng.ProposeGeneral(ctx, addrAlice, "before binding")
	require.NoError(t, err)
	_, err = eng.Vote(ctx, addrBob, p.RowId, true)
	require.NoError(t, err)
	_, err = eng.Vote(ctx, addrCarol, p.RowId, true)
	require.NoError(t, err)
	env.pastVotingPeriod()
	_, err = eng.Finalize(ctx, addrAlice, p.RowId)
	require.NoError(t, err)

	// nobody can execute while unbound
	_, err = eng.ExecuteProposal(ctx, addrAdmin, p.RowId)
	assert.ErrorIs(t, err, model.ErrNotExecutor)

	err = eng.BindExecutor(ctx, addrAlice, ledger.TimelockAddress)
	assert.ErrorIs(t, err, model.ErrNotAdmin)
	err = eng.BindExecutor(ctx, addrAdmin, ledger.ZeroAddress)
	assert.ErrorIs(t, err, model.ErrZeroAddress)

	require.NoError(t, eng.BindExecutor(ctx, addrAdmin, ledger.TimelockAddress))
	assert.Equal(t, ledger.TimelockAddress, eng.Tip().Executor)

	// binding is once only
	err = eng.BindExecutor(ctx, addrAdmin, addrAdmin)
	assert.ErrorIs(t, err, model.ErrExecutorBound)

	_, err = eng.ExecuteProposal(ctx, ledger.TimelockAddress, p.RowId)
	require.NoError(t, err)
}

func TestEventLog(t *testing.T) {
	env := newTestEnv(t, scenarioGenesis())
	eng, ctx := env.engine, env.ctx()

	p, err := eng.ProposeMint(ctx, addrAlice, "mint 500 to treasury", ledger.TreasuryAddress, 500)
	require.NoError(t, err)
	for _, v := range []ledger.Address{addrBob, addrCarol, addrDave} {
		_, err = eng.Vote(ctx, v, p.RowId, true)
		require.NoError(t, err)
	}
	env.pastVotingPeriod()
	_, err = eng.Finalize(ctx, addrAlice, p.RowId)
	require.NoError(t, err)
	_, err = eng.ExecuteProposal(ctx, ledger.TimelockAddress, p.RowId)
	require.NoError(t, err)

	events, err := eng.Events(ctx, 0, 100)
	require.NoError(t, err)
	// 5 genesis events, then the proposal trail
	require.Len(t, events, 11)
	want := []model.EventType{
		model.EventTypeProposalCreated,
		model.EventTypeVoteCast,
		model.EventTypeVoteCast,
		model.EventTypeVoteCast,
		model.EventTypeProposalFinalized,
		model.EventTypeProposalExecuted,
	}
	for i, typ := range want {
		assert.Equal(t, typ, events[5+i].Type, "event %d", i)
	}
	assert.Equal(t, int64(11), eng.Tip().NumEvents)
	assert.Equal(t, env.feed.Len(), len(events), "feed sees every committed event")

	// events after a cursor
	tail, err := eng.Events(ctx, events[8].RowId, 100)
	require.NoError(t, err)
	require.Len(t, tail, 2)
	assert.Equal(t, model.EventTypeProposalFinalized, tail[0].Type)
}
