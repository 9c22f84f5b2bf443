// Copyright (c) 2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package model

import (
	"blockwatch.cc/packdb/pack"
)

// Model is the interface all data models must implement.
type Model interface {
	TableKey() string
	TableOpts() pack.Options
	IndexOpts(string) pack.Options
}

// GovTables lists the engine row models in table creation order.
var GovTables = []Model{
	Proposal{},
	Ballot{},
	TimelockOp{},
	RoleGrant{},
	Event{},
}

// TokenTables lists the row models of the embedded token ledger.
var TokenTables = []Model{
	Balance{},
	Checkpoint{},
	SupplyCheckpoint{},
}
