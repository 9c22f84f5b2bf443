// Copyright (c) 2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package gov

import (
	"context"
	"errors"
	"fmt"
	"time"

	"blockwatch.cc/packdb/pack"
	"github.com/tidwall/gjson"

	"github.com/Preciousbas/polichain-governance/gov/model"
	"github.com/Preciousbas/polichain-governance/ledger"
)

// ScheduleRequest describes an operation to queue. Identity derives
// from target, value, payload, predecessor and salt; delay and metadata
// are bookkeeping only and never enter the id.
type ScheduleRequest struct {
	Target      ledger.Address `json:"target"`
	Value       int64          `json:"value"`
	Payload     []byte         `json:"payload"`
	Predecessor ledger.OpHash  `json:"predecessor"`
	Salt        [32]byte       `json:"salt"`
	Delay       time.Duration  `json:"delay"`
	Description string         `json:"description"`
	Category    string         `json:"category"`
}

// ExecuteRequest carries the same identity tuple; the id is recomputed
// on execution so callers cannot run an op under a forged hash.
type ExecuteRequest struct {
	Target      ledger.Address `json:"target"`
	Value       int64          `json:"value"`
	Payload     []byte         `json:"payload"`
	Predecessor ledger.OpHash  `json:"predecessor"`
	Salt        [32]byte       `json:"salt"`
}

func (r ScheduleRequest) Hash() ledger.OpHash {
	return ledger.HashOperation(r.Target, r.Value, r.Payload, r.Predecessor, r.Salt)
}

func (r ExecuteRequest) Hash() ledger.OpHash {
	return ledger.HashOperation(r.Target, r.Value, r.Payload, r.Predecessor, r.Salt)
}

// Schedule queues an operation behind the current minimum delay.
// Pending and done ids both block re-scheduling; cancelled ids are
// free again.
func (e *Engine) Schedule(ctx context.Context, sender ledger.Address, req ScheduleRequest) (*model.TimelockOp, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.begin()
	defer e.abort()

	if !e.auth.HasRole(ledger.RoleProposer, sender) {
		return nil, model.ErrMissingRole
	}
	if req.Delay < s.tip.MinDelay {
		return nil, model.ErrDelayTooShort
	}
	if req.Delay > e.params.MaxDelay {
		return nil, model.ErrDelayTooLong
	}

	hash := req.Hash()
	ops, err := e.store.Table(model.OpTableKey)
	if err != nil {
		return nil, err
	}
	switch _, err := model.GetOpByHash(ctx, ops, hash); {
	case err == nil:
		return nil, model.ErrAlreadyScheduled
	case !errors.Is(err, model.ErrNoOp):
		return nil, err
	}

	payload := make([]byte, len(req.Payload))
	copy(payload, req.Payload)
	salt := make([]byte, len(req.Salt))
	copy(salt, req.Salt[:])
	op := &model.TimelockOp{
		Hash:        hash,
		Target:      req.Target,
		Value:       req.Value,
		Payload:     payload,
		Predecessor: req.Predecessor,
		Salt:        salt,
		Proposer:    sender,
		Delay:       req.Delay,
		Height:      s.height,
		QueuedTime:  s.now,
		ReadyTime:   s.now.Add(req.Delay),
		Description: req.Description,
		Category:    req.Category,
	}
	if err := op.Store(ctx, ops); err != nil {
		return nil, err
	}
	s.tip.NumOps++

	e.emit(model.EventTypeOpQueued, sender, 0, hash, map[string]interface{}{
		"target":      req.Target,
		"value":       req.Value,
		"delay":       req.Delay.Seconds(),
		"ready_time":  op.ReadyTime,
		"description": req.Description,
		"category":    req.Category,
	})
	if err := e.commit(ctx); err != nil {
		return nil, err
	}
	log.Debugf("Op %s queued by %s ready=%s.", hash, sender, op.ReadyTime)
	return op, nil
}

// ExecuteOp runs a ready operation. Done, metadata removal and the
// event are atomic with the dispatched call; a failed call leaves the
// op pending and retryable.
func (e *Engine) ExecuteOp(ctx context.Context, sender ledger.Address, req ExecuteRequest) (*model.TimelockOp, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.begin()
	defer e.abort()

	if !e.auth.AllowExecutor(sender) {
		return nil, model.ErrMissingRole
	}

	hash := req.Hash()
	ops, err := e.store.Table(model.OpTableKey)
	if err != nil {
		return nil, err
	}
	op, err := model.GetOpByHash(ctx, ops, hash)
	if err != nil {
		return nil, err
	}
	if op.IsDone {
		return nil, model.ErrAlreadyDone
	}
	if s.now.Before(op.ReadyTime) {
		return nil, model.ErrNotReady
	}
	if !op.Predecessor.IsZero() {
		pre, err := model.GetOpByHash(ctx, ops, op.Predecessor)
		if err != nil || !pre.IsDone {
			return nil, model.ErrPredecessorNotDone
		}
	}

	err = e.dispatch(ctx, Call{
		Sender:  ledger.TimelockAddress,
		Target:  op.Target,
		Value:   op.Value,
		Payload: op.Payload,
	})
	if err != nil {
		return nil, err
	}

	// the event keeps the metadata, the row drops it
	e.emit(model.EventTypeOpExecuted, sender, 0, hash, map[string]interface{}{
		"target":      op.Target,
		"value":       op.Value,
		"description": op.Description,
		"category":    op.Category,
	})
	op.IsDone = true
	op.DoneTime = s.now
	op.Description = ""
	op.Category = ""
	if err := op.Store(ctx, ops); err != nil {
		return nil, err
	}
	if err := e.commit(ctx); err != nil {
		return nil, err
	}
	log.Debugf("Op %s executed by %s.", hash, sender)
	return op, nil
}

// CancelOp removes a pending operation. The id becomes schedulable
// again; done ops cannot be cancelled.
func (e *Engine) CancelOp(ctx context.Context, sender ledger.Address, hash ledger.OpHash) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.begin()
	defer e.abort()

	if !e.auth.HasRole(ledger.RoleCanceller, sender) {
		return model.ErrMissingRole
	}
	ops, err := e.store.Table(model.OpTableKey)
	if err != nil {
		return err
	}
	op, err := model.GetOpByHash(ctx, ops, hash)
	if err != nil {
		return err
	}
	if op.IsDone {
		return model.ErrAlreadyDone
	}
	_, err = pack.NewQuery("gov.cancel_op").
		WithTable(ops).
		AndEqual("hash", hash).
		Delete(ctx)
	if err != nil {
		return err
	}
	e.emit(model.EventTypeOpCancelled, sender, 0, hash, map[string]interface{}{
		"target":      op.Target,
		"description": op.Description,
		"category":    op.Category,
	})
	if err := e.commit(ctx); err != nil {
		return err
	}
	log.Debugf("Op %s cancelled by %s.", hash, sender)
	return nil
}

// timelockCall handles queued operations targeting the queue itself.
// Routing the delay setter through here puts the delay parameter
// behind the delay it governs.
func (e *Engine) timelockCall(ctx context.Context, call Call) error {
	if call.Value != 0 {
		return fmt.Errorf("%w: timelock accepts no funds", model.ErrInvalidArgument)
	}
	method := gjson.GetBytes(call.Payload, "method").String()
	switch method {
	case "update_delay":
		delay := time.Duration(gjson.GetBytes(call.Payload, "delay").Int()) * time.Second
		if delay < 0 {
			return model.ErrDelayTooShort
		}
		if delay > e.params.MaxDelay {
			return model.ErrDelayTooLong
		}
		e.cur.tip.MinDelay = delay
		e.emit(model.EventTypeDelayUpdated, call.Sender, 0, ledger.ZeroOpHash, map[string]interface{}{
			"min_delay": delay.Seconds(),
		})
		return nil
	default:
		return fmt.Errorf("%w: unknown timelock method %q", model.ErrInvalidArgument, method)
	}
}

// ExecuteProposalPayload builds the call body a queued op uses to run
// a passed proposal through the registry.
func ExecuteProposalPayload(id model.ProposalID) []byte {
	return []byte(fmt.Sprintf(`{"method":"execute_proposal","id":%d}`, id))
}

// UpdateDelayPayload builds the call body for the self-targeted delay
// change.
func UpdateDelayPayload(d time.Duration) []byte {
	return []byte(fmt.Sprintf(`{"method":"update_delay","delay":%d}`, int64(d/time.Second)))
}
