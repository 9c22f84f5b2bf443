// Copyright (c) 2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package model

import (
	"context"
	"time"

	"blockwatch.cc/packdb/pack"

	"github.com/Preciousbas/polichain-governance/ledger"
)

const (
	BalanceTableKey          = "balance"
	CheckpointTableKey       = "checkpoint"
	SupplyCheckpointTableKey = "supply"
)

type BalanceID uint64

func (id BalanceID) U64() uint64 {
	return uint64(id)
}

// Balance is the live token position of one account as kept by the
// embedded dev ledger.
type Balance struct {
	RowId   BalanceID      `pack:"I,pk"      json:"row_id"`
	Address ledger.Address `pack:"A,bloom=3" json:"address"`
	Amount  int64          `pack:"v"         json:"amount"`
	Height  int64          `pack:"h,i32"     json:"height"`
	Time    time.Time      `pack:"t"         json:"time"`
}

var _ pack.Item = (*Balance)(nil)

func (b *Balance) ID() uint64 {
	return uint64(b.RowId)
}

func (b *Balance) SetID(id uint64) {
	b.RowId = BalanceID(id)
}

func (b *Balance) Reset() {
	*b = Balance{}
}

func (_ Balance) TableKey() string {
	return BalanceTableKey
}

func (_ Balance) TableOpts() pack.Options {
	return pack.NoOptions
}

func (_ Balance) IndexOpts(_ string) pack.Options {
	return pack.NoOptions
}

func (b *Balance) Store(ctx context.Context, t *pack.Table) error {
	if b.RowId > 0 {
		return t.Update(ctx, b)
	}
	return t.Insert(ctx, b)
}

func GetBalance(ctx context.Context, t *pack.Table, addr ledger.Address) (*Balance, error) {
	b := &Balance{}
	err := pack.NewQuery("find.balance").
		WithTable(t).
		AndEqual("address", addr).
		Execute(ctx, b)
	if err != nil {
		return nil, err
	}
	if b.RowId == 0 {
		return nil, ErrNoBalance
	}
	return b, nil
}

type CheckpointID uint64

// Checkpoint is one account's voting weight fixed at a height. Rows are
// immutable once a later height exists; historical lookups scan for the
// latest row at or below the requested height.
type Checkpoint struct {
	RowId   CheckpointID   `pack:"I,pk"      json:"row_id"`
	Address ledger.Address `pack:"A,bloom=3" json:"address"`
	Height  int64          `pack:"h,i32"     json:"height"`
	Weight  int64          `pack:"w"         json:"weight"`
}

var _ pack.Item = (*Checkpoint)(nil)

func (c *Checkpoint) ID() uint64 {
	return uint64(c.RowId)
}

func (c *Checkpoint) SetID(id uint64) {
	c.RowId = CheckpointID(id)
}

func (c *Checkpoint) Reset() {
	*c = Checkpoint{}
}

func (_ Checkpoint) TableKey() string {
	return CheckpointTableKey
}

func (_ Checkpoint) TableOpts() pack.Options {
	return pack.NoOptions
}

func (_ Checkpoint) IndexOpts(_ string) pack.Options {
	return pack.NoOptions
}

func (c *Checkpoint) Store(ctx context.Context, t *pack.Table) error {
	if c.RowId > 0 {
		return t.Update(ctx, c)
	}
	return t.Insert(ctx, c)
}

type SupplyCheckpointID uint64

// SupplyCheckpoint fixes the total token supply at a height.
type SupplyCheckpoint struct {
	RowId  SupplyCheckpointID `pack:"I,pk"  json:"row_id"`
	Height int64              `pack:"h,i32" json:"height"`
	Supply int64              `pack:"s"     json:"supply"`
}

var _ pack.Item = (*SupplyCheckpoint)(nil)

func (c *SupplyCheckpoint) ID() uint64 {
	return uint64(c.RowId)
}

func (c *SupplyCheckpoint) SetID(id uint64) {
	c.RowId = SupplyCheckpointID(id)
}

func (c *SupplyCheckpoint) Reset() {
	*c = SupplyCheckpoint{}
}

func (_ SupplyCheckpoint) TableKey() string {
	return SupplyCheckpointTableKey
}

func (_ SupplyCheckpoint) TableOpts() pack.Options {
	return pack.NoOptions
}

func (_ SupplyCheckpoint) IndexOpts(_ string) pack.Options {
	return pack.NoOptions
}

func (c *SupplyCheckpoint) Store(ctx context.Context, t *pack.Table) error {
	if c.RowId > 0 {
		return t.Update(ctx, c)
	}
	return t.Insert(ctx, c)
}
