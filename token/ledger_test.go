// Copyright (c) 2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package token

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"

	"github.com/Preciousbas/polichain-governance/gov/model"
	"github.com/Preciousbas/polichain-governance/ledger"
)

var (
	tokAlice = ledger.NamedAddress("alice")
	tokBob   = ledger.NamedAddress("bob")
	tokCarol = ledger.NamedAddress("carol")
)

// fakeSource drives the stamping height by hand.
type fakeSource struct {
	height int64
	now    time.Time
}

func (s *fakeSource) Height() int64   { return s.height }
func (s *fakeSource) Time() time.Time { return s.now }

func newTestLedger(t *testing.T) (*Ledger, *fakeSource) {
	t.Helper()
	l := NewLedger(LedgerConfig{
		Params: ledger.NewParams().ForNetwork("Sandbox"),
		DBPath: t.TempDir(),
		DBOpts: &bolt.Options{Timeout: time.Second},
	})
	require.NoError(t, l.Init())
	t.Cleanup(func() { l.Close() })
	src := &fakeSource{height: 1, now: time.Unix(1700000000, 0).UTC()}
	l.Bind(src)
	return l, src
}

func TestMintAndSupply(t *testing.T) {
	l, src := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, l.Mint(ctx, tokAlice, 1000))
	bal, err := l.BalanceOf(ctx, tokAlice)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), bal)
	supply, err := l.TotalSupply(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), supply)

	src.height = 2
	require.NoError(t, l.Mint(ctx, tokBob, 500))
	supply, err = l.TotalSupply(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), supply)

	// unknown accounts read zero without error
	bal, err = l.BalanceOf(ctx, tokCarol)
	require.NoError(t, err)
	assert.Zero(t, bal)

	assert.ErrorIs(t, l.Mint(ctx, tokAlice, 0), model.ErrZeroAmount)
	assert.ErrorIs(t, l.Mint(ctx, tokAlice, -5), model.ErrZeroAmount)
	assert.ErrorIs(t, l.Mint(ctx, ledger.ZeroAddress, 10), model.ErrZeroAddress)

	err = l.Mint(ctx, tokAlice, l.params.MaxSupply)
	assert.ErrorIs(t, err, model.ErrSupplyCap)
	assert.ErrorIs(t, err, model.ErrActionFailed)
	supply, err = l.TotalSupply(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), supply, "failed mint writes nothing")
}

func TestTransfer(t *testing.T) {
	l, src := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, l.Mint(ctx, tokAlice, 1000))
	src.height = 2

	require.NoError(t, l.Transfer(ctx, tokAlice, tokBob, 400))
	bal, _ := l.BalanceOf(ctx, tokAlice)
	assert.Equal(t, int64(600), bal)
	bal, _ = l.BalanceOf(ctx, tokBob)
	assert.Equal(t, int64(400), bal)

	supply, err := l.TotalSupply(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), supply, "transfers preserve supply")

	assert.ErrorIs(t, l.Transfer(ctx, tokAlice, tokBob, 601), model.ErrInsufficientBalance)
	assert.ErrorIs(t, l.Transfer(ctx, tokCarol, tokBob, 1), model.ErrInsufficientBalance)
	assert.ErrorIs(t, l.Transfer(ctx, tokAlice, tokBob, 0), model.ErrZeroAmount)
	assert.ErrorIs(t, l.Transfer(ctx, ledger.ZeroAddress, tokBob, 1), model.ErrZeroAddress)
}

// Weight reads walk checkpoints backwards: the latest row at or below
// the queried height wins, heights before the first checkpoint read
// zero.
func TestCheckpointHistory(t *testing.T) {
	l, src := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, l.Mint(ctx, tokAlice, 1000)) // h1: alice 1000
	src.height = 3
	require.NoError(t, l.Mint(ctx, tokBob, 500)) // h3: bob 500
	src.height = 5
	require.NoError(t, l.Transfer(ctx, tokAlice, tokBob, 300)) // h5: alice 700, bob 800

	for _, tc := range []struct {
		addr   ledger.Address
		height int64
		want   int64
	}{
		{tokAlice, 0, 0},
		{tokAlice, 1, 1000},
		{tokAlice, 2, 1000},
		{tokAlice, 4, 1000},
		{tokAlice, 5, 700},
		{tokAlice, 99, 700},
		{tokBob, 2, 0},
		{tokBob, 3, 500},
		{tokBob, 4, 500},
		{tokBob, 5, 800},
		{tokCarol, 5, 0},
	} {
		w, err := l.VotingPowerAt(ctx, tc.addr, tc.height)
		require.NoError(t, err)
		assert.Equal(t, tc.want, w, "%s at height %d", tc.addr, tc.height)
	}

	for _, tc := range []struct {
		height int64
		want   int64
	}{
		{0, 0},
		{1, 1000},
		{2, 1000},
		{3, 1500},
		{5, 1500},
	} {
		s, err := l.TotalSupplyAt(ctx, tc.height)
		require.NoError(t, err)
		assert.Equal(t, tc.want, s, "supply at height %d", tc.height)
	}

	// live weight tracks the balance
	w, err := l.VotingPower(ctx, tokBob)
	require.NoError(t, err)
	assert.Equal(t, int64(800), w)
}

// Several changes at the same height leave the last write as the
// authoritative checkpoint.
func TestCheckpointSameHeight(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, l.Mint(ctx, tokAlice, 1000))
	require.NoError(t, l.Mint(ctx, tokAlice, 200))
	require.NoError(t, l.Transfer(ctx, tokAlice, tokBob, 100))

	w, err := l.VotingPowerAt(ctx, tokAlice, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1100), w)
	s, err := l.TotalSupplyAt(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1200), s)
}
