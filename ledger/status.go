// Copyright (c) 2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package ledger

import (
	"fmt"
)

type ProposalStatus byte

const (
	ProposalStatusInvalid ProposalStatus = iota
	ProposalStatusActive
	ProposalStatusPassed
	ProposalStatusFailed
	ProposalStatusExecuted
)

var ProposalStatuses = []ProposalStatus{
	ProposalStatusActive,
	ProposalStatusPassed,
	ProposalStatusFailed,
	ProposalStatusExecuted,
}

func (s ProposalStatus) IsValid() bool {
	return s != ProposalStatusInvalid
}

// IsFinal is true once the proposal can never change status again.
func (s ProposalStatus) IsFinal() bool {
	return s == ProposalStatusFailed || s == ProposalStatusExecuted
}

func (s ProposalStatus) String() string {
	switch s {
	case ProposalStatusActive:
		return "active"
	case ProposalStatusPassed:
		return "passed"
	case ProposalStatusFailed:
		return "failed"
	case ProposalStatusExecuted:
		return "executed"
	default:
		return "invalid"
	}
}

func ParseProposalStatus(s string) ProposalStatus {
	switch s {
	case "active":
		return ProposalStatusActive
	case "passed":
		return ProposalStatusPassed
	case "failed":
		return ProposalStatusFailed
	case "executed":
		return ProposalStatusExecuted
	default:
		return ProposalStatusInvalid
	}
}

func (s *ProposalStatus) UnmarshalText(data []byte) error {
	ss := ParseProposalStatus(string(data))
	if !ss.IsValid() {
		return fmt.Errorf("invalid proposal status '%s'", string(data))
	}
	*s = ss
	return nil
}

func (s ProposalStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// OpStatus is the externally visible state of a scheduled operation.
// Cancelled operations leave the table, so rows only ever carry Pending
// or Done; Ready is derived from the clock at read time.
type OpStatus byte

const (
	OpStatusInvalid OpStatus = iota
	OpStatusPending
	OpStatusReady
	OpStatusDone
)

func (s OpStatus) IsValid() bool {
	return s != OpStatusInvalid
}

func (s OpStatus) String() string {
	switch s {
	case OpStatusPending:
		return "pending"
	case OpStatusReady:
		return "ready"
	case OpStatusDone:
		return "done"
	default:
		return "invalid"
	}
}

func ParseOpStatus(s string) OpStatus {
	switch s {
	case "pending":
		return OpStatusPending
	case "ready":
		return OpStatusReady
	case "done":
		return OpStatusDone
	default:
		return OpStatusInvalid
	}
}

func (s *OpStatus) UnmarshalText(data []byte) error {
	ss := ParseOpStatus(string(data))
	if !ss.IsValid() {
		return fmt.Errorf("invalid operation status '%s'", string(data))
	}
	*s = ss
	return nil
}

func (s OpStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
