// Copyright (c) 2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package gov

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"blockwatch.cc/packdb/store"
	"github.com/cespare/xxhash"
	"github.com/echa/bson"

	"github.com/Preciousbas/polichain-governance/gov/model"
	"github.com/Preciousbas/polichain-governance/ledger"
)

// Genesis seeds a fresh governance database: initial token allocations,
// role grants and starting parameters. Deployments ship it as a
// hex-encoded BSON document in config; sandbox runs fall back to
// DefaultGenesis.
type Genesis struct {
	Network   string            `json:"network"`
	Time      time.Time         `json:"timestamp"`
	QuorumPct int64             `json:"quorum_pct"`
	MinDelay  time.Duration     `json:"min_delay"`
	Executor  ledger.Address    `json:"executor"`
	Treasury  ledger.Address    `json:"treasury"`
	Accounts  []*GenesisAccount `json:"accounts"`
	Roles     []*GenesisRole    `json:"roles"`

	raw []byte // original blob when decoded from config
}

// bootstrap token allocation
type GenesisAccount struct {
	Addr  ledger.Address `json:"address"`
	Value int64          `json:"value"`
}

// bootstrap role grant
type GenesisRole struct {
	Role ledger.Role    `json:"role"`
	Addr ledger.Address `json:"address"`
}

func (g *Genesis) Supply() int64 {
	var s int64
	for _, v := range g.Accounts {
		s += v.Value
	}
	return s
}

// Hash identifies the genesis a database was bootstrapped from so a
// reopened database can reject a mismatched config.
func (g *Genesis) Hash() uint64 {
	if len(g.raw) > 0 {
		return xxhash.Sum64(g.raw)
	}
	buf, _ := json.Marshal(g)
	return xxhash.Sum64(buf)
}

// Encode returns the blob stored next to the tip, the original BSON
// when one was decoded.
func (g *Genesis) Encode() []byte {
	if len(g.raw) > 0 {
		return g.raw
	}
	buf, _ := json.Marshal(g)
	return buf
}

func (g *Genesis) UnmarshalText(data []byte) error {
	buf := make([]byte, hex.DecodedLen(len(data)))
	if _, err := hex.Decode(buf, data); err != nil {
		return err
	}
	// decode BSON
	encoded := &bootstrap{}
	if err := bson.Unmarshal(buf, encoded); err != nil {
		return err
	}
	// convert BSON to structs
	if err := encoded.Decode(g); err != nil {
		return err
	}
	g.raw = buf
	return nil
}

// ReadGenesis decodes a genesis blob, accepting the hex text form used
// in config files as well as raw BSON.
func ReadGenesis(data []byte) (*Genesis, error) {
	g := &Genesis{}
	if err := g.UnmarshalText(data); err == nil {
		return g, nil
	}
	encoded := &bootstrap{}
	if err := bson.Unmarshal(data, encoded); err != nil {
		return nil, fmt.Errorf("decoding genesis: %v", err)
	}
	if err := encoded.Decode(g); err != nil {
		return nil, err
	}
	g.raw = data
	return g, nil
}

// BSON data types, all values transported as strings
type bootstrap struct {
	Network   string     `bson:"network"`
	Time      string     `bson:"timestamp"`
	QuorumPct string     `bson:"quorum_pct"`
	MinDelay  string     `bson:"min_delay"`
	Executor  string     `bson:"executor"`
	Treasury  string     `bson:"treasury"`
	Accounts  [][]string `bson:"bootstrap_accounts"`
	Roles     [][]string `bson:"bootstrap_roles"`
}

func (b *bootstrap) Decode(g *Genesis) error {
	g.Network = b.Network
	if b.Time != "" {
		t, err := time.Parse(time.RFC3339, b.Time)
		if err != nil {
			return fmt.Errorf("decoding genesis time: %v", err)
		}
		g.Time = t
	}
	if b.QuorumPct != "" {
		pct, err := strconv.ParseInt(b.QuorumPct, 10, 64)
		if err != nil {
			return fmt.Errorf("decoding quorum pct: %v", err)
		}
		g.QuorumPct = pct
	}
	if b.MinDelay != "" {
		d, err := time.ParseDuration(b.MinDelay)
		if err != nil {
			return fmt.Errorf("decoding min delay: %v", err)
		}
		g.MinDelay = d
	}
	if b.Executor != "" {
		addr, err := ledger.ParseAddress(b.Executor)
		if err != nil {
			return fmt.Errorf("decoding executor: %v", err)
		}
		g.Executor = addr
	}
	if b.Treasury != "" {
		addr, err := ledger.ParseAddress(b.Treasury)
		if err != nil {
			return fmt.Errorf("decoding treasury: %v", err)
		}
		g.Treasury = addr
	}
	acc, err := b.DecodeAccounts()
	if err != nil {
		return err
	}
	g.Accounts = acc
	roles, err := b.DecodeRoles()
	if err != nil {
		return err
	}
	g.Roles = roles
	return nil
}

func (b *bootstrap) DecodeAccounts() ([]*GenesisAccount, error) {
	acc := make([]*GenesisAccount, len(b.Accounts))
	for i, v := range b.Accounts {
		if len(v) != 2 {
			return nil, fmt.Errorf("malformed bootstrap account %d", i)
		}
		// [ $address, $amount ]
		addr, err := ledger.ParseAddress(v[0])
		if err != nil {
			return nil, err
		}
		amount, err := strconv.ParseInt(v[1], 10, 64)
		if err != nil {
			return nil, err
		}
		acc[i] = &GenesisAccount{Addr: addr, Value: amount}
	}
	return acc, nil
}

func (b *bootstrap) DecodeRoles() ([]*GenesisRole, error) {
	roles := make([]*GenesisRole, len(b.Roles))
	for i, v := range b.Roles {
		if len(v) != 2 {
			return nil, fmt.Errorf("malformed bootstrap role %d", i)
		}
		// [ $role, $address ]
		role := ledger.ParseRole(v[0])
		if !role.IsValid() {
			return nil, fmt.Errorf("invalid bootstrap role %q", v[0])
		}
		addr, err := ledger.ParseAddress(v[1])
		if err != nil {
			return nil, err
		}
		roles[i] = &GenesisRole{Role: role, Addr: addr}
	}
	return roles, nil
}

// Check validates a genesis against chain parameters before bootstrap.
func (g *Genesis) Check(p *ledger.Params) error {
	if g.Network != "" && g.Network != p.Network {
		return fmt.Errorf("genesis network %s does not match %s", g.Network, p.Network)
	}
	if g.QuorumPct < 1 || g.QuorumPct > 100 {
		return model.ErrQuorumRange
	}
	if g.MinDelay < 0 || g.MinDelay > p.MaxDelay {
		return fmt.Errorf("invalid genesis min delay %s", g.MinDelay)
	}
	if g.Treasury.IsZero() {
		return fmt.Errorf("genesis treasury address is empty")
	}
	var supply int64
	for i, v := range g.Accounts {
		if v.Addr.IsZero() {
			return fmt.Errorf("bootstrap account %d: %w", i, model.ErrZeroAddress)
		}
		if v.Value <= 0 {
			return fmt.Errorf("bootstrap account %d: %w", i, model.ErrZeroAmount)
		}
		supply += v.Value
	}
	if supply > p.MaxSupply {
		return fmt.Errorf("bootstrap supply %d exceeds max supply %d", supply, p.MaxSupply)
	}
	for i, v := range g.Roles {
		if !v.Role.IsValid() {
			return fmt.Errorf("bootstrap role %d: %w", i, model.ErrInvalidRole)
		}
		if v.Addr.IsZero() && v.Role != ledger.RoleExecutor {
			return fmt.Errorf("bootstrap role %d: %w", i, model.ErrZeroAddress)
		}
	}
	return nil
}

// DefaultGenesis builds a sandbox setup: a funded admin holding the
// admin, proposer and canceller roles, execution open to anyone, the
// executing authority pre-bound to the queue.
func DefaultGenesis(p *ledger.Params) *Genesis {
	admin := ledger.NamedAddress("admin")
	return &Genesis{
		Network:   p.Network,
		QuorumPct: p.QuorumPct,
		MinDelay:  p.MinDelay,
		Executor:  ledger.TimelockAddress,
		Treasury:  ledger.TreasuryAddress,
		Accounts: []*GenesisAccount{
			{Addr: admin, Value: 100 * p.Token},
			{Addr: ledger.TreasuryAddress, Value: 100 * p.Token},
		},
		Roles: []*GenesisRole{
			{Role: ledger.RoleAdmin, Addr: admin},
			{Role: ledger.RoleProposer, Addr: admin},
			{Role: ledger.RoleCanceller, Addr: admin},
			{Role: ledger.RoleExecutor, Addr: ledger.ZeroAddress},
		},
	}
}

// bootstrap seeds the fresh database inside one synthetic execution
// step at height 1. Allocations mint before commit so the token side
// checkpoints them at the genesis height.
func (e *Engine) bootstrap(ctx context.Context, genesis *Genesis) error {
	ts := genesis.Time
	if ts.IsZero() {
		ts = e.clock().UTC()
	}
	log.Infof("Bootstrapping %s %s genesis with %d accounts, %d roles, supply %d.",
		e.params.Name, e.params.Network, len(genesis.Accounts), len(genesis.Roles), genesis.Supply())

	err := e.store.statedb.Update(func(dbTx store.Tx) error {
		err := dbTx.SetManifest(store.Manifest{
			Name:    stateDBKey,
			Version: stateDBSchemaVersion,
			Schema:  stateDBSchemaName,
			Label:   e.params.Symbol,
		})
		if err != nil {
			return err
		}
		if _, err := dbTx.Root().CreateBucketIfNotExists(tipBucketName); err != nil {
			return err
		}
		if _, err := dbTx.Root().CreateBucketIfNotExists(genesisBucketName); err != nil {
			return err
		}
		return dbStoreGenesis(dbTx, genesis.Encode())
	})
	if err != nil {
		return err
	}

	e.cur = &stepCtx{
		height: 1,
		now:    ts,
		tip: &model.Tip{
			Name:        e.params.Name,
			Symbol:      e.params.Symbol,
			Network:     e.params.Network,
			Height:      1,
			Time:        ts,
			QuorumPct:   genesis.QuorumPct,
			MinDelay:    genesis.MinDelay,
			Executor:    genesis.Executor,
			Treasury:    genesis.Treasury,
			GenesisTime: ts,
			GenesisHash: genesis.Hash(),
			Version:     stateDBSchemaVersion,
		},
	}
	defer e.abort()

	// collaborators stamp at the genesis height from here on
	e.height.Store(1)
	e.utime.Store(ts.UnixNano())

	for _, v := range genesis.Accounts {
		if err := e.token.Mint(ctx, v.Addr, v.Value); err != nil {
			return fmt.Errorf("minting bootstrap allocation for %s: %w", v.Addr, err)
		}
	}
	for _, v := range genesis.Roles {
		if _, err := e.grantRole(ctx, ledger.ZeroAddress, v.Role, v.Addr); err != nil {
			return fmt.Errorf("granting bootstrap role %s to %s: %w", v.Role, v.Addr, err)
		}
	}
	if !genesis.Executor.IsZero() {
		e.emit(model.EventTypeExecutorBound, ledger.ZeroAddress, 0, ledger.ZeroOpHash, map[string]interface{}{
			"executor": genesis.Executor,
		})
	}
	return e.commit(ctx)
}
