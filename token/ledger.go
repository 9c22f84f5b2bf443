// Copyright (c) 2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package token

import (
	"context"
	"fmt"
	"sync"
	"time"

	"blockwatch.cc/packdb/pack"

	"github.com/Preciousbas/polichain-governance/gov/model"
	"github.com/Preciousbas/polichain-governance/ledger"
)

const TokenDBKey = "token"

// HeightSource supplies the execution height and time used to stamp
// balance changes. The engine publishes both lock-free, so stamps may
// trail an in-flight step by one; snapshot reads only ever look
// strictly backwards, which makes that harmless.
type HeightSource interface {
	Height() int64
	Time() time.Time
}

type LedgerConfig struct {
	Params *ledger.Params
	DBPath string
	DBOpts interface{}
}

// Ledger is the embedded checkpointed token store. Every balance
// change appends per-account and total-supply checkpoints so voting
// power can be read back at any historical height.
type Ledger struct {
	mu     sync.Mutex
	params *ledger.Params
	path   string
	dbopts interface{}
	src    HeightSource
	db     *pack.DB
	tables map[string]*pack.Table
}

func NewLedger(cfg LedgerConfig) *Ledger {
	return &Ledger{
		params: cfg.Params,
		path:   cfg.DBPath,
		dbopts: cfg.DBOpts,
		tables: make(map[string]*pack.Table),
	}
}

// Bind connects the height source after construction. The engine needs
// the ledger at build time and the ledger needs the engine's clock, so
// wiring happens in two phases.
func (l *Ledger) Bind(src HeightSource) {
	l.src = src
}

func (l *Ledger) stamp() (int64, time.Time) {
	if l.src == nil {
		return 0, time.Time{}
	}
	return l.src.Height(), l.src.Time()
}

// Init opens the token database, creating it and its tables on first
// use.
func (l *Ledger) Init() error {
	db, err := pack.OpenDatabase(l.path, TokenDBKey, l.params.Symbol, l.dbopts)
	if err != nil {
		log.Infof("Creating %s database.", TokenDBKey)
		db, err = pack.CreateDatabase(l.path, TokenDBKey, l.params.Symbol, l.dbopts)
		if err != nil {
			return fmt.Errorf("creating %s database: %w", TokenDBKey, err)
		}
	}
	l.db = db

	for _, m := range model.TokenTables {
		key := m.TableKey()
		fields, err := pack.Fields(m)
		if err != nil {
			return fmt.Errorf("reading fields for table %q from type %T: %v", key, m, err)
		}
		opts := m.TableOpts().Merge(model.ReadConfigOpts(key))
		table, err := db.CreateTableIfNotExists(key, fields, opts)
		if err != nil {
			l.Close()
			return err
		}
		l.tables[key] = table
	}
	return nil
}

func (l *Ledger) Close() error {
	for n, v := range l.tables {
		if v != nil {
			if err := v.Close(); err != nil {
				log.Errorf("Closing %s table: %s", n, err)
			}
		}
		delete(l.tables, n)
	}
	if l.db != nil {
		if err := l.db.Close(); err != nil {
			return err
		}
		l.db = nil
	}
	return nil
}

func (l *Ledger) Table(key string) (*pack.Table, error) {
	t, ok := l.tables[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrNoTable, key)
	}
	return t, nil
}

func (l *Ledger) Tables() []*pack.Table {
	t := []*pack.Table{}
	for _, v := range l.tables {
		t = append(t, v)
	}
	return t
}

// BalanceOf returns the live balance, zero for unknown accounts.
func (l *Ledger) BalanceOf(ctx context.Context, addr ledger.Address) (int64, error) {
	t, err := l.Table(model.BalanceTableKey)
	if err != nil {
		return 0, err
	}
	b, err := model.GetBalance(ctx, t, addr)
	if err != nil {
		if err == model.ErrNoBalance {
			return 0, nil
		}
		return 0, err
	}
	return b.Amount, nil
}

// TotalSupply returns the current total supply.
func (l *Ledger) TotalSupply(ctx context.Context) (int64, error) {
	t, err := l.Table(model.SupplyCheckpointTableKey)
	if err != nil {
		return 0, err
	}
	cp := &model.SupplyCheckpoint{}
	err = pack.NewQuery("find.supply").
		WithTable(t).
		WithDesc().
		WithLimit(1).
		Execute(ctx, cp)
	if err != nil {
		return 0, err
	}
	return cp.Supply, nil
}

// VotingPower returns an account's live voting weight. Weight equals
// balance; there is no delegation.
func (l *Ledger) VotingPower(ctx context.Context, addr ledger.Address) (int64, error) {
	return l.BalanceOf(ctx, addr)
}

// VotingPowerAt returns an account's weight at a height, reading the
// latest checkpoint at or below it. Accounts untouched since genesis
// keep their oldest checkpoint; unknown accounts read zero.
func (l *Ledger) VotingPowerAt(ctx context.Context, addr ledger.Address, height int64) (int64, error) {
	t, err := l.Table(model.CheckpointTableKey)
	if err != nil {
		return 0, err
	}
	cp := &model.Checkpoint{}
	err = pack.NewQuery("find.checkpoint").
		WithTable(t).
		WithDesc().
		AndEqual("address", addr).
		AndLte("height", height).
		WithLimit(1).
		Execute(ctx, cp)
	if err != nil {
		return 0, err
	}
	return cp.Weight, nil
}

// TotalSupplyAt returns the total supply at a height.
func (l *Ledger) TotalSupplyAt(ctx context.Context, height int64) (int64, error) {
	t, err := l.Table(model.SupplyCheckpointTableKey)
	if err != nil {
		return 0, err
	}
	cp := &model.SupplyCheckpoint{}
	err = pack.NewQuery("find.supply_at").
		WithTable(t).
		WithDesc().
		AndLte("height", height).
		WithLimit(1).
		Execute(ctx, cp)
	if err != nil {
		return 0, err
	}
	return cp.Supply, nil
}

// Mint credits new tokens against the supply cap.
func (l *Ledger) Mint(ctx context.Context, to ledger.Address, amount int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if amount <= 0 {
		return model.ErrZeroAmount
	}
	if to.IsZero() {
		return model.ErrZeroAddress
	}
	supply, err := l.TotalSupply(ctx)
	if err != nil {
		return err
	}
	if supply+amount > l.params.MaxSupply {
		return model.ErrSupplyCap
	}
	h, now := l.stamp()
	if err := l.credit(ctx, to, amount, h, now); err != nil {
		return err
	}
	sc := &model.SupplyCheckpoint{Height: h, Supply: supply + amount}
	t, err := l.Table(model.SupplyCheckpointTableKey)
	if err != nil {
		return err
	}
	if err := sc.Store(ctx, t); err != nil {
		return err
	}
	log.Debugf("Minted %d to %s at height %d, supply %d.", amount, to, h, sc.Supply)
	return nil
}

// Transfer moves tokens between accounts. Supply stays unchanged, so
// only per-account checkpoints are written.
func (l *Ledger) Transfer(ctx context.Context, from, to ledger.Address, amount int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if amount <= 0 {
		return model.ErrZeroAmount
	}
	if from.IsZero() || to.IsZero() {
		return model.ErrZeroAddress
	}
	h, now := l.stamp()
	if err := l.debit(ctx, from, amount, h, now); err != nil {
		return err
	}
	if err := l.credit(ctx, to, amount, h, now); err != nil {
		return err
	}
	log.Debugf("Transferred %d from %s to %s at height %d.", amount, from, to, h)
	return nil
}

func (l *Ledger) credit(ctx context.Context, addr ledger.Address, amount, height int64, now time.Time) error {
	balances, err := l.Table(model.BalanceTableKey)
	if err != nil {
		return err
	}
	b, err := model.GetBalance(ctx, balances, addr)
	if err != nil {
		if err != model.ErrNoBalance {
			return err
		}
		b = &model.Balance{Address: addr}
	}
	b.Amount += amount
	b.Height = height
	b.Time = now
	if err := b.Store(ctx, balances); err != nil {
		return err
	}
	return l.checkpoint(ctx, addr, height, b.Amount)
}

func (l *Ledger) debit(ctx context.Context, addr ledger.Address, amount, height int64, now time.Time) error {
	balances, err := l.Table(model.BalanceTableKey)
	if err != nil {
		return err
	}
	b, err := model.GetBalance(ctx, balances, addr)
	if err != nil {
		if err == model.ErrNoBalance {
			return model.ErrInsufficientBalance
		}
		return err
	}
	if b.Amount < amount {
		return model.ErrInsufficientBalance
	}
	b.Amount -= amount
	b.Height = height
	b.Time = now
	if err := b.Store(ctx, balances); err != nil {
		return err
	}
	return l.checkpoint(ctx, addr, height, b.Amount)
}

func (l *Ledger) checkpoint(ctx context.Context, addr ledger.Address, height, weight int64) error {
	t, err := l.Table(model.CheckpointTableKey)
	if err != nil {
		return err
	}
	cp := &model.Checkpoint{Address: addr, Height: height, Weight: weight}
	return cp.Store(ctx, t)
}

// Flush flushes all token tables to disk.
func (l *Ledger) Flush(ctx context.Context) error {
	for _, v := range l.tables {
		if err := ctx.Err(); err != nil {
			return err
		}
		log.Debugf("Flushing %s table.", v.Name())
		if err := v.Flush(ctx); err != nil {
			return err
		}
	}
	return nil
}

// FlushJournals flushes journal data of all token tables to disk.
func (l *Ledger) FlushJournals(ctx context.Context) error {
	for _, v := range l.tables {
		if err := ctx.Err(); err != nil {
			return err
		}
		log.Debugf("Flushing %s journal.", v.Name())
		if err := v.FlushJournal(ctx); err != nil {
			return err
		}
	}
	return nil
}

// GC compacts all token tables and the underlying storage file.
func (l *Ledger) GC(ctx context.Context, ratio float64) error {
	if err := l.Flush(ctx); err != nil {
		return err
	}
	for _, v := range l.tables {
		if err := ctx.Err(); err != nil {
			return err
		}
		log.Debugf("Compacting %s table.", v.Name())
		if err := v.Compact(ctx); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	log.Debugf("Garbage collecting %s database.", TokenDBKey)
	return l.db.GC(ctx, ratio)
}
