// Copyright (c) 2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package model

import (
	"errors"
	"fmt"
)

// Error classes. Every engine error wraps exactly one class so callers
// can match with errors.Is at either granularity.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrNotFound        = errors.New("not found")
	ErrInvalidState    = errors.New("invalid state")
	ErrActionFailed    = errors.New("action failed")
)

// Argument errors.
var (
	ErrEmptyDescription = fmt.Errorf("%w: empty description", ErrInvalidArgument)
	ErrZeroAmount       = fmt.Errorf("%w: zero amount", ErrInvalidArgument)
	ErrZeroAddress      = fmt.Errorf("%w: zero address", ErrInvalidArgument)
	ErrQuorumRange      = fmt.Errorf("%w: quorum percentage out of range", ErrInvalidArgument)
	ErrDelayTooShort    = fmt.Errorf("%w: delay below minimum", ErrInvalidArgument)
	ErrDelayTooLong     = fmt.Errorf("%w: delay above maximum", ErrInvalidArgument)
	ErrInvalidRole      = fmt.Errorf("%w: unknown role", ErrInvalidArgument)
	ErrInvalidAction    = fmt.Errorf("%w: unknown action kind", ErrInvalidArgument)
)

// Authorization errors.
var (
	ErrBelowThreshold = fmt.Errorf("%w: voting power below proposal threshold", ErrUnauthorized)
	ErrMissingRole    = fmt.Errorf("%w: required role not granted", ErrUnauthorized)
	ErrNotExecutor    = fmt.Errorf("%w: caller is not the executing authority", ErrUnauthorized)
	ErrNotAdmin       = fmt.Errorf("%w: admin role required", ErrUnauthorized)
)

// Lookup errors.
var (
	ErrNoProposal  = fmt.Errorf("%w: no such proposal", ErrNotFound)
	ErrNoOp        = fmt.Errorf("%w: no such operation", ErrNotFound)
	ErrNoBallot    = fmt.Errorf("%w: no such ballot", ErrNotFound)
	ErrNoRoleGrant = fmt.Errorf("%w: no such role grant", ErrNotFound)
	ErrNoEvent     = fmt.Errorf("%w: no such event", ErrNotFound)
	ErrNoBalance   = fmt.Errorf("%w: no such account balance", ErrNotFound)
	ErrNoTip       = fmt.Errorf("%w: no engine tip", ErrNotFound)
	ErrNoTable     = fmt.Errorf("%w: no such table", ErrNotFound)
)

// State machine errors.
var (
	ErrNotActive          = fmt.Errorf("%w: proposal is not active", ErrInvalidState)
	ErrVotingClosed       = fmt.Errorf("%w: voting period has ended", ErrInvalidState)
	ErrVotingOpen         = fmt.Errorf("%w: voting period still open", ErrInvalidState)
	ErrAlreadyVoted       = fmt.Errorf("%w: ballot already cast", ErrInvalidState)
	ErrNoVotingPower      = fmt.Errorf("%w: no voting power at snapshot", ErrInvalidState)
	ErrNotPassed          = fmt.Errorf("%w: proposal has not passed", ErrInvalidState)
	ErrAlreadyExecuted    = fmt.Errorf("%w: proposal already executed", ErrInvalidState)
	ErrAlreadyScheduled   = fmt.Errorf("%w: operation already scheduled", ErrInvalidState)
	ErrNotReady           = fmt.Errorf("%w: operation delay has not elapsed", ErrInvalidState)
	ErrPredecessorNotDone = fmt.Errorf("%w: predecessor operation not done", ErrInvalidState)
	ErrAlreadyDone        = fmt.Errorf("%w: operation already done", ErrInvalidState)
	ErrExecutorBound      = fmt.Errorf("%w: executing authority already bound", ErrInvalidState)
	ErrNotGenesis         = fmt.Errorf("%w: database already bootstrapped", ErrInvalidState)
)

// External action errors.
var (
	ErrSupplyCap           = fmt.Errorf("%w: mint exceeds max supply", ErrActionFailed)
	ErrInsufficientFund    = fmt.Errorf("%w: insufficient treasury balance", ErrActionFailed)
	ErrInsufficientBalance = fmt.Errorf("%w: insufficient balance", ErrActionFailed)
)
