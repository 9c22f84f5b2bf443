// Copyright (c) 2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package model

import (
	"context"
	"fmt"
	"sync"
	"time"

	"blockwatch.cc/packdb/pack"

	"github.com/Preciousbas/polichain-governance/ledger"
)

const EventTableKey = "event"

var eventPool = &sync.Pool{
	New: func() interface{} { return new(Event) },
}

type EventID uint64

func (id EventID) U64() uint64 {
	return uint64(id)
}

type EventType byte

const (
	EventTypeInvalid EventType = iota
	EventTypeProposalCreated
	EventTypeVoteCast
	EventTypeProposalFinalized
	EventTypeProposalExecuted
	EventTypeOpQueued
	EventTypeOpExecuted
	EventTypeOpCancelled
	EventTypeRoleGranted
	EventTypeRoleRevoked
	EventTypeQuorumUpdated
	EventTypeDelayUpdated
	EventTypeExecutorBound
)

func (t EventType) IsValid() bool {
	return t != EventTypeInvalid
}

func (t EventType) String() string {
	switch t {
	case EventTypeProposalCreated:
		return "proposal_created"
	case EventTypeVoteCast:
		return "vote_cast"
	case EventTypeProposalFinalized:
		return "proposal_finalized"
	case EventTypeProposalExecuted:
		return "proposal_executed"
	case EventTypeOpQueued:
		return "op_queued"
	case EventTypeOpExecuted:
		return "op_executed"
	case EventTypeOpCancelled:
		return "op_cancelled"
	case EventTypeRoleGranted:
		return "role_granted"
	case EventTypeRoleRevoked:
		return "role_revoked"
	case EventTypeQuorumUpdated:
		return "quorum_updated"
	case EventTypeDelayUpdated:
		return "delay_updated"
	case EventTypeExecutorBound:
		return "executor_bound"
	default:
		return "invalid"
	}
}

func ParseEventType(s string) EventType {
	switch s {
	case "proposal_created":
		return EventTypeProposalCreated
	case "vote_cast":
		return EventTypeVoteCast
	case "proposal_finalized":
		return EventTypeProposalFinalized
	case "proposal_executed":
		return EventTypeProposalExecuted
	case "op_queued":
		return EventTypeOpQueued
	case "op_executed":
		return EventTypeOpExecuted
	case "op_cancelled":
		return EventTypeOpCancelled
	case "role_granted":
		return EventTypeRoleGranted
	case "role_revoked":
		return EventTypeRoleRevoked
	case "quorum_updated":
		return EventTypeQuorumUpdated
	case "delay_updated":
		return EventTypeDelayUpdated
	case "executor_bound":
		return EventTypeExecutorBound
	default:
		return EventTypeInvalid
	}
}

func (t *EventType) UnmarshalText(data []byte) error {
	tt := ParseEventType(string(data))
	if !tt.IsValid() {
		return fmt.Errorf("invalid event type '%s'", string(data))
	}
	*t = tt
	return nil
}

func (t EventType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Event is the append-only audit row written with every state
// transition. Payload carries the transition detail as JSON; the same
// rows feed the zmq publisher.
type Event struct {
	RowId      EventID        `pack:"I,pk"     json:"row_id"`
	Height     int64          `pack:"h,i32"    json:"height"`
	Time       time.Time      `pack:"t"        json:"time"`
	Type       EventType      `pack:"y,bloom"  json:"type"`
	Sender     ledger.Address `pack:"S"        json:"sender"`
	ProposalId ProposalID     `pack:"P"        json:"proposal_id"`
	OpHash     ledger.OpHash  `pack:"H"        json:"op_hash"`
	Payload    []byte         `pack:"p,snappy" json:"payload"`
}

// Ensure Event implements the pack.Item interface.
var _ pack.Item = (*Event)(nil)

func NewEvent() *Event {
	return eventPool.Get().(*Event)
}

func (e *Event) ID() uint64 {
	return uint64(e.RowId)
}

func (e *Event) SetID(id uint64) {
	e.RowId = EventID(id)
}

func (e *Event) Reset() {
	*e = Event{}
}

func (e *Event) Free() {
	e.Reset()
	eventPool.Put(e)
}

func (_ Event) TableKey() string {
	return EventTableKey
}

func (_ Event) TableOpts() pack.Options {
	return pack.Options{
		PackSizeLog2:    10,
		JournalSizeLog2: 10,
		CacheSize:       2,
		FillLevel:       100,
	}
}

func (_ Event) IndexOpts(_ string) pack.Options {
	return pack.NoOptions
}

func (e *Event) Store(ctx context.Context, t *pack.Table) error {
	if e.RowId > 0 {
		return t.Update(ctx, e)
	}
	return t.Insert(ctx, e)
}

func ListEvents(ctx context.Context, t *pack.Table, q pack.Query) ([]*Event, error) {
	list := make([]*Event, 0)
	err := q.WithTable(t).Execute(ctx, &list)
	if err != nil {
		list = list[:0]
		return nil, err
	}
	return list, nil
}
