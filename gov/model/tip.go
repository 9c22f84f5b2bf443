// Copyright (c) 2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package model

import (
	"time"

	"github.com/Preciousbas/polichain-governance/ledger"
)

// Tip reflects the engine state at the current execution step. Every
// mutating entry point advances height and time by exactly one step, so
// snapshots taken at proposal creation always point strictly into the
// past. Persisted as JSON in the state db.
type Tip struct {
	Name         string         `json:"name"`
	Symbol       string         `json:"symbol"`
	Network      string         `json:"network"`
	Height       int64          `json:"height"`
	Time         time.Time      `json:"time"`
	NumProposals int64          `json:"num_proposals"`
	NumOps       int64          `json:"num_ops"`
	NumEvents    int64          `json:"num_events"`
	QuorumPct    int64          `json:"quorum_pct"`
	MinDelay     time.Duration  `json:"min_delay"`
	Executor     ledger.Address `json:"executor"`
	Treasury     ledger.Address `json:"treasury"`
	GenesisTime  time.Time      `json:"genesis_time"`
	GenesisHash  uint64         `json:"genesis_hash"`
	Version      int            `json:"version"`
}

func (t Tip) Clone() *Tip {
	tip := t
	return &tip
}
