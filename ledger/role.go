// Copyright (c) 2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package ledger

import (
	"fmt"
)

// Role is a timelock permission class. Proposer, Executor and Canceller
// gate the queue entry points; Admin manages grants and is meant to be
// renounced once setup is complete.
type Role byte

const (
	RoleInvalid Role = iota
	RoleProposer
	RoleExecutor
	RoleCanceller
	RoleAdmin
)

var Roles = []Role{
	RoleProposer,
	RoleExecutor,
	RoleCanceller,
	RoleAdmin,
}

func (r Role) IsValid() bool {
	return r != RoleInvalid
}

func (r Role) String() string {
	switch r {
	case RoleProposer:
		return "proposer"
	case RoleExecutor:
		return "executor"
	case RoleCanceller:
		return "canceller"
	case RoleAdmin:
		return "admin"
	default:
		return "invalid"
	}
}

func ParseRole(s string) Role {
	switch s {
	case "proposer":
		return RoleProposer
	case "executor":
		return RoleExecutor
	case "canceller":
		return RoleCanceller
	case "admin":
		return RoleAdmin
	default:
		return RoleInvalid
	}
}

func (r *Role) UnmarshalText(data []byte) error {
	rr := ParseRole(string(data))
	if !rr.IsValid() {
		return fmt.Errorf("invalid role '%s'", string(data))
	}
	*r = rr
	return nil
}

func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}
