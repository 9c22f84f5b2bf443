// Copyright (c) 2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package ledger

import (
	"fmt"
)

// ActionKind discriminates the payload a passed proposal executes. The
// set is closed; Execute dispatches with an exhaustive switch.
type ActionKind byte

const (
	ActionInvalid ActionKind = iota
	ActionGeneral
	ActionMintTokens
	ActionTransferFunds
	ActionUpdateQuorum
)

var ActionKinds = []ActionKind{
	ActionGeneral,
	ActionMintTokens,
	ActionTransferFunds,
	ActionUpdateQuorum,
}

func (k ActionKind) IsValid() bool {
	return k != ActionInvalid
}

func (k ActionKind) String() string {
	switch k {
	case ActionGeneral:
		return "general"
	case ActionMintTokens:
		return "mint_tokens"
	case ActionTransferFunds:
		return "transfer_funds"
	case ActionUpdateQuorum:
		return "update_quorum"
	default:
		return "invalid"
	}
}

func ParseActionKind(s string) ActionKind {
	switch s {
	case "general":
		return ActionGeneral
	case "mint_tokens":
		return ActionMintTokens
	case "transfer_funds":
		return ActionTransferFunds
	case "update_quorum":
		return ActionUpdateQuorum
	default:
		return ActionInvalid
	}
}

func (k *ActionKind) UnmarshalText(data []byte) error {
	kk := ParseActionKind(string(data))
	if !kk.IsValid() {
		return fmt.Errorf("invalid action kind '%s'", string(data))
	}
	*k = kk
	return nil
}

func (k ActionKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}
