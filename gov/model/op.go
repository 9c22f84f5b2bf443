// Copyright (c) 2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package model

import (
	"context"
	"time"

	"blockwatch.cc/packdb/pack"

	"github.com/Preciousbas/polichain-governance/ledger"
)

const OpTableKey = "timelock_op"

type OpID uint64

func (id OpID) U64() uint64 {
	return uint64(id)
}

// TimelockOp is a scheduled operation in the delayed execution queue.
// Identity is the content hash, not the row id: cancelled ops leave the
// table so the same hash can be scheduled again, done ops stay forever
// to block re-scheduling. Metadata columns are cleared on execution.
type TimelockOp struct {
	RowId       OpID           `pack:"I,pk"      json:"row_id"`
	Hash        ledger.OpHash  `pack:"H,bloom=3" json:"hash"`
	Target      ledger.Address `pack:"T"         json:"target"`
	Value       int64          `pack:"v"         json:"value"`
	Payload     []byte         `pack:"p,snappy"  json:"payload"`
	Predecessor ledger.OpHash  `pack:"d"         json:"predecessor"`
	Salt        []byte         `pack:"z"         json:"salt"`
	Proposer    ledger.Address `pack:"A,bloom=3" json:"proposer"`
	Delay       time.Duration  `pack:"w"         json:"delay"`
	Height      int64          `pack:"<,i32"     json:"height"`
	QueuedTime  time.Time      `pack:"q"         json:"queued_time"`
	ReadyTime   time.Time      `pack:"r"         json:"ready_time"`
	IsDone      bool           `pack:"x,snappy"  json:"is_done"`
	DoneTime    time.Time      `pack:"e"         json:"done_time"`
	Description string         `pack:"D,snappy"  json:"description"`
	Category    string         `pack:"C,snappy"  json:"category"`
}

// Ensure TimelockOp implements the pack.Item interface.
var _ pack.Item = (*TimelockOp)(nil)

func (o *TimelockOp) ID() uint64 {
	return uint64(o.RowId)
}

func (o *TimelockOp) SetID(id uint64) {
	o.RowId = OpID(id)
}

func (o *TimelockOp) Reset() {
	*o = TimelockOp{}
}

func (_ TimelockOp) TableKey() string {
	return OpTableKey
}

func (_ TimelockOp) TableOpts() pack.Options {
	return pack.NoOptions
}

func (_ TimelockOp) IndexOpts(_ string) pack.Options {
	return pack.NoOptions
}

// Status derives the externally visible queue state at a point in time.
func (o *TimelockOp) Status(now time.Time) ledger.OpStatus {
	switch {
	case o.IsDone:
		return ledger.OpStatusDone
	case !now.Before(o.ReadyTime):
		return ledger.OpStatusReady
	default:
		return ledger.OpStatusPending
	}
}

// IsReady is true once the delay has elapsed and the op has not run.
func (o *TimelockOp) IsReady(now time.Time) bool {
	return !o.IsDone && !now.Before(o.ReadyTime)
}

func (o *TimelockOp) Store(ctx context.Context, t *pack.Table) error {
	if o.RowId > 0 {
		return t.Update(ctx, o)
	}
	return t.Insert(ctx, o)
}

func GetOpByHash(ctx context.Context, t *pack.Table, hash ledger.OpHash) (*TimelockOp, error) {
	o := &TimelockOp{}
	err := pack.NewQuery("find.op_by_hash").
		WithTable(t).
		AndEqual("hash", hash).
		Execute(ctx, o)
	if err != nil {
		return nil, err
	}
	if o.RowId == 0 {
		return nil, ErrNoOp
	}
	return o, nil
}

func ListOps(ctx context.Context, t *pack.Table, q pack.Query) ([]*TimelockOp, error) {
	list := make([]*TimelockOp, 0)
	err := q.WithTable(t).Execute(ctx, &list)
	if err != nil {
		list = list[:0]
		return nil, err
	}
	return list, nil
}
