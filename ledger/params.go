// Copyright (c) 2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package ledger

import (
	"fmt"
	"math"
	"time"
)

// Params collects the network-dependent governance constants. Values are
// fixed at genesis except for the quorum percentage and the timelock
// minimum delay which are proposal-mutable at runtime (the params copy
// only carries their genesis defaults).
type Params struct {
	// network identity
	Name    string `json:"name"`
	Network string `json:"network"`
	Symbol  string `json:"symbol"`
	Version int    `json:"version"`

	// token economics
	Decimals  int   `json:"decimals"`
	Token     int64 `json:"units"`      // atomic units per token
	MaxSupply int64 `json:"max_supply"` // mint ceiling, atomic units

	// proposal registry
	VotingPeriod      time.Duration `json:"voting_period"`
	ProposalThreshold int64         `json:"proposal_threshold"` // min proposer weight
	QuorumPct         int64         `json:"quorum_pct"`         // genesis default, 1..100

	// delayed execution queue
	MinDelay time.Duration `json:"min_delay"` // genesis default floor
	MaxDelay time.Duration `json:"max_delay"` // absolute cap, immutable
}

func NewParams() *Params {
	return &Params{
		Name:              "Polichain",
		Network:           "",
		Symbol:            "POLI",
		Version:           1,
		Decimals:          6,
		Token:             1000000,
		MaxSupply:         10000000 * 1000000,
		VotingPeriod:      3 * 24 * time.Hour,
		ProposalThreshold: 1000,
		QuorumPct:         4,
		MinDelay:          48 * time.Hour,
		MaxDelay:          30 * 24 * time.Hour,
	}
}

func (p *Params) ForNetwork(net string) *Params {
	pp := &Params{}
	*pp = *p
	pp.Network = net
	switch net {
	case "Mainnet", "mainnet", "":
		pp.Network = "Mainnet"
	case "Testnet", "testnet":
		// relaxed floor so integration setups need not wait two days
		pp.Network = "Testnet"
		pp.MinDelay = time.Hour
	case "Sandbox", "sandbox":
		pp.Network = "Sandbox"
		pp.MinDelay = time.Minute
		pp.VotingPeriod = time.Hour
	}
	return pp
}

func (p *Params) IsMainnet() bool {
	return p.Network == "Mainnet"
}

func (p *Params) Check() error {
	switch {
	case p.VotingPeriod <= 0:
		return fmt.Errorf("params: zero voting period")
	case p.ProposalThreshold < 0:
		return fmt.Errorf("params: negative proposal threshold")
	case p.QuorumPct < 1 || p.QuorumPct > 100:
		return fmt.Errorf("params: quorum percentage %d out of range", p.QuorumPct)
	case p.MinDelay < 0 || p.MaxDelay < p.MinDelay:
		return fmt.Errorf("params: invalid delay window [%s, %s]", p.MinDelay, p.MaxDelay)
	case p.MaxSupply <= 0:
		return fmt.Errorf("params: zero max supply")
	case p.MaxSupply > math.MaxInt64/100:
		// quorum math multiplies supply by a percentage
		return fmt.Errorf("params: max supply too large")
	}
	return nil
}

func (p *Params) ConvertValue(amount int64) float64 {
	return float64(amount) / float64(p.Token)
}
