// Copyright (c) 2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package gov

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"blockwatch.cc/packdb/store"

	"github.com/Preciousbas/polichain-governance/gov/cache"
	"github.com/Preciousbas/polichain-governance/gov/model"
	"github.com/Preciousbas/polichain-governance/ledger"
)

type EngineConfig struct {
	Params    *ledger.Params
	DBPath    string
	DBOpts    interface{}
	StateDB   store.DB
	Token     TokenBridge
	Publisher Publisher        // optional event feed
	Clock     func() time.Time // defaults to time.Now
}

// Engine hosts the proposal registry, the delayed execution queue and
// the role authority on one serialized execution axis. Every mutating
// entry point takes the engine lock, advances the tip by one step and
// commits or aborts as a unit; reads run lock-free against the tables.
type Engine struct {
	mu     sync.Mutex
	params *ledger.Params
	store  *Store
	token  TokenBridge
	pub    Publisher
	clock  func() time.Time
	auth   *Authority
	bcache *cache.BallotCache
	scache *cache.SupplyCache

	tip    *model.Tip
	height atomic.Int64 // lock-free tip mirrors for collaborators
	utime  atomic.Int64

	calls map[ledger.Address]CallFunc
	cur   *stepCtx
}

// stepCtx carries the in-flight mutation of one execution step. The
// tip clone collects parameter and counter changes; nothing becomes
// visible before commit.
type stepCtx struct {
	height int64
	now    time.Time
	tip    *model.Tip
	events []*model.Event
}

func NewEngine(cfg EngineConfig) *Engine {
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	e := &Engine{
		params: cfg.Params,
		store:  NewStore(cfg.DBPath, cfg.Params.Symbol, cfg.DBOpts, cfg.StateDB),
		token:  cfg.Token,
		pub:    cfg.Publisher,
		clock:  clock,
		bcache: cache.NewBallotCache(1 << cache.BallotCacheSizeLog2),
		scache: cache.NewSupplyCache(cache.SupplyMaxCacheSize),
		calls:  make(map[ledger.Address]CallFunc),
	}
	e.auth = NewAuthority(e)
	e.RegisterCall(ledger.GovernorAddress, e.governorCall)
	e.RegisterCall(ledger.TimelockAddress, e.timelockCall)
	return e
}

// Init opens or bootstraps the governance database. On first run the
// genesis blob seeds balances, roles and parameters.
func (e *Engine) Init(ctx context.Context, genesis *Genesis) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var firstRun bool
	err := e.store.statedb.View(func(dbTx store.Tx) error {
		tip, err := dbLoadTip(dbTx)
		firstRun = err == model.ErrNoTip
		if firstRun {
			return nil
		}
		if err != nil {
			return err
		}
		e.tip = tip
		mft, err := dbTx.Manifest()
		if err != nil {
			return fmt.Errorf("reading database manifest: %v", err)
		}
		if have, want := mft.Name, stateDBKey; have != want {
			return fmt.Errorf("invalid database name %s (expected %s)", have, want)
		}
		if have, want := mft.Version, stateDBSchemaVersion; have != want {
			return fmt.Errorf("unsupported database version %d (expected %d)", have, want)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if firstRun {
		log.Info("Creating governance storage.")
		if genesis == nil {
			genesis = DefaultGenesis(e.params)
		}
		if err := genesis.Check(e.params); err != nil {
			return err
		}
		if err := e.store.Create(); err != nil {
			return err
		}
		if err := e.store.Init(); err != nil {
			return err
		}
		if err := e.bootstrap(ctx, genesis); err != nil {
			return err
		}
	} else {
		if err := e.store.Init(); err != nil {
			return err
		}
		if genesis != nil && genesis.Hash() != e.tip.GenesisHash {
			return fmt.Errorf("genesis mismatch: config hash %016x, db hash %016x",
				genesis.Hash(), e.tip.GenesisHash)
		}
		if e.tip.Network != e.params.Network {
			return fmt.Errorf("network mismatch: config %s, db %s", e.params.Network, e.tip.Network)
		}
	}

	e.height.Store(e.tip.Height)
	e.utime.Store(e.tip.Time.UnixNano())

	roles, err := e.store.Table(model.RoleTableKey)
	if err != nil {
		return err
	}
	if err := e.auth.cache.Build(ctx, roles); err != nil {
		return err
	}

	log.Infof("Governance engine at height %d, %d proposals, %d queued ops.",
		e.tip.Height, e.tip.NumProposals, e.tip.NumOps)
	return nil
}

func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pub != nil {
		if err := e.pub.Close(); err != nil {
			log.Errorf("Closing publisher: %s", err)
		}
	}
	return e.store.Close()
}

func (e *Engine) Params() *ledger.Params {
	return e.params
}

func (e *Engine) Store() *Store {
	return e.store
}

func (e *Engine) Authority() *Authority {
	return e.auth
}

// Height returns the current tip height without taking the engine lock.
func (e *Engine) Height() int64 {
	return e.height.Load()
}

// Time returns the current tip time without taking the engine lock.
func (e *Engine) Time() time.Time {
	return time.Unix(0, e.utime.Load()).UTC()
}

func (e *Engine) Tip() *model.Tip {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tip.Clone()
}

// Token returns the voting-power oracle the engine was built with.
func (e *Engine) Token() TokenBridge {
	return e.token
}

// supplyAt reads total supply at a historical height through the supply
// cache.
func (e *Engine) supplyAt(ctx context.Context, height int64) (int64, error) {
	if supply, ok := e.scache.Get(height); ok {
		return supply, nil
	}
	supply, err := e.token.TotalSupplyAt(ctx, height)
	if err != nil {
		return 0, err
	}
	e.scache.Add(height, supply)
	return supply, nil
}

func (e *Engine) CacheStats() map[string]interface{} {
	stats := make(map[string]interface{})
	stats["ballots"] = e.bcache.Stats()
	stats["roles"] = e.auth.cache.Stats()
	stats["supply"] = e.scache.Stats()
	return stats
}

// PurgeCaches drops and rebuilds all lookup caches from table state.
func (e *Engine) PurgeCaches(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.bcache.Purge()
	e.scache.Purge()
	e.auth.cache.Purge()
	roles, err := e.store.Table(model.RoleTableKey)
	if err != nil {
		return err
	}
	return e.auth.cache.Build(ctx, roles)
}

// RegisterCall binds a dispatch handler to a target address. Must be
// called before Init.
func (e *Engine) RegisterCall(addr ledger.Address, fn CallFunc) {
	e.calls[addr] = fn
}

// begin opens a new execution step. Time never runs backwards even when
// the wall clock does.
func (e *Engine) begin() *stepCtx {
	now := e.clock().UTC()
	if now.Before(e.tip.Time) {
		now = e.tip.Time
	}
	tip := e.tip.Clone()
	tip.Height++
	tip.Time = now
	s := &stepCtx{height: tip.Height, now: now, tip: tip}
	e.cur = s
	return s
}

func (e *Engine) abort() {
	e.cur = nil
}

// commit persists events and the advanced tip, then feeds the
// publisher. Aborted steps leave no trace.
func (e *Engine) commit(ctx context.Context) error {
	s := e.cur
	e.cur = nil
	if len(s.events) > 0 {
		events, err := e.store.Table(model.EventTableKey)
		if err != nil {
			return err
		}
		for _, ev := range s.events {
			if err := ev.Store(ctx, events); err != nil {
				return err
			}
		}
		s.tip.NumEvents += int64(len(s.events))
	}
	err := e.store.statedb.Update(func(dbTx store.Tx) error {
		return dbStoreTip(dbTx, s.tip)
	})
	if err != nil {
		return err
	}
	e.tip = s.tip
	e.height.Store(s.tip.Height)
	e.utime.Store(s.now.UnixNano())
	if e.pub != nil {
		for _, ev := range s.events {
			e.pub.Publish(ev)
		}
	}
	return nil
}

// emit queues an event for the current step. Detail is marshalled to
// JSON; marshal errors only degrade the payload, never the transition.
func (e *Engine) emit(typ model.EventType, sender ledger.Address, pid model.ProposalID, oph ledger.OpHash, detail interface{}) {
	ev := &model.Event{
		Height: e.cur.height,
		Time:   e.cur.now,
		Type:   typ,
		Sender: sender,
	}
	ev.ProposalId = pid
	ev.OpHash = oph
	if detail != nil {
		buf, err := json.Marshal(detail)
		if err != nil {
			log.Errorf("Marshal %s event: %s", typ, err)
		} else {
			ev.Payload = buf
		}
	}
	e.cur.events = append(e.cur.events, ev)
}

// dispatch routes a queued call to its target. Registered targets run
// their handler; unknown targets accept plain value transfers from the
// treasury and ignore the payload.
func (e *Engine) dispatch(ctx context.Context, call Call) error {
	if fn, ok := e.calls[call.Target]; ok {
		return fn(ctx, call)
	}
	if call.Value > 0 {
		if err := e.spend(ctx, call.Target, call.Value); err != nil {
			return err
		}
	}
	return nil
}

// spend moves funds out of the treasury with a balance check.
func (e *Engine) spend(ctx context.Context, to ledger.Address, amount int64) error {
	bal, err := e.token.BalanceOf(ctx, e.cur.tip.Treasury)
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrActionFailed, err)
	}
	if bal < amount {
		return model.ErrInsufficientFund
	}
	if err := e.token.Transfer(ctx, e.cur.tip.Treasury, to, amount); err != nil {
		return fmt.Errorf("%w: %v", model.ErrActionFailed, err)
	}
	return nil
}
