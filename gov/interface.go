// Copyright (c) 2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package gov

import (
	"context"

	"github.com/Preciousbas/polichain-governance/gov/model"
	"github.com/Preciousbas/polichain-governance/ledger"
)

// TokenBridge is the voting-power oracle and token collaborator the
// engine consumes. Checkpoint queries must refer to heights strictly
// below the current execution step and implementations must keep
// finalized checkpoints immutable. The engine never inspects token
// internals beyond this surface.
type TokenBridge interface {
	// current state
	BalanceOf(ctx context.Context, addr ledger.Address) (int64, error)
	TotalSupply(ctx context.Context) (int64, error)

	// proposer gate only, never used for tallying
	VotingPower(ctx context.Context, addr ledger.Address) (int64, error)

	// historical checkpoint queries
	VotingPowerAt(ctx context.Context, addr ledger.Address, height int64) (int64, error)
	TotalSupplyAt(ctx context.Context, height int64) (int64, error)

	// mutations driven by executed proposals
	Mint(ctx context.Context, to ledger.Address, amount int64) error
	Transfer(ctx context.Context, from, to ledger.Address, amount int64) error
}

// Publisher receives every committed event at least once. Publish must
// not block the engine; implementations queue internally.
type Publisher interface {
	Publish(e *model.Event)
	Close() error
}

// Call is a dispatched target invocation from the delayed execution
// queue.
type Call struct {
	Sender  ledger.Address
	Target  ledger.Address
	Value   int64
	Payload []byte
}

// CallFunc handles calls against one registered target address. A
// returned error aborts the caller's transition.
type CallFunc func(ctx context.Context, call Call) error
