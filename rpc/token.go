// Copyright (c) 2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package rpc

import (
	"context"
	"fmt"

	"github.com/Preciousbas/polichain-governance/gov"
	"github.com/Preciousbas/polichain-governance/ledger"
)

// Client implements the voting power oracle used by the governance engine.
// Balance, power and supply reads hit the checkpointed token ledger of a
// remote token service, mutations are forwarded to its mint and transfer
// endpoints.
var _ gov.TokenBridge = (*Client)(nil)

// Balance is the reply of the token service balance endpoint.
type Balance struct {
	Address ledger.Address `json:"address"`
	Balance int64          `json:"balance"`
	Height  int64          `json:"height"`
}

// Power is the reply of the token service voting power endpoint.
type Power struct {
	Address ledger.Address `json:"address"`
	Power   int64          `json:"power"`
	Height  int64          `json:"height"`
}

// Supply is the reply of the token service supply endpoint.
type Supply struct {
	Total  int64 `json:"total"`
	Height int64 `json:"height"`
}

// BalanceOf returns the current token balance of addr in atomic units.
func (c *Client) BalanceOf(ctx context.Context, addr ledger.Address) (int64, error) {
	var b Balance
	err := c.Get(ctx, fmt.Sprintf("balance/%s", addr), &b)
	return b.Balance, err
}

// TotalSupply returns the current total token supply in atomic units.
func (c *Client) TotalSupply(ctx context.Context) (int64, error) {
	var s Supply
	err := c.Get(ctx, "supply", &s)
	return s.Total, err
}

// VotingPower returns the current voting power of addr.
func (c *Client) VotingPower(ctx context.Context, addr ledger.Address) (int64, error) {
	var p Power
	err := c.Get(ctx, fmt.Sprintf("power/%s", addr), &p)
	return p.Power, err
}

// VotingPowerAt returns the voting power of addr at a historical height.
// The token service replays its checkpoint history, so the result is
// stable no matter how many transfers happened since.
func (c *Client) VotingPowerAt(ctx context.Context, addr ledger.Address, height int64) (int64, error) {
	var p Power
	err := c.Get(ctx, fmt.Sprintf("power/%s?height=%d", addr, height), &p)
	return p.Power, err
}

// TotalSupplyAt returns the total token supply at a historical height.
func (c *Client) TotalSupplyAt(ctx context.Context, height int64) (int64, error) {
	var s Supply
	err := c.Get(ctx, fmt.Sprintf("supply?height=%d", height), &s)
	return s.Total, err
}

// MintRequest is the token service mint call body.
type MintRequest struct {
	To     ledger.Address `json:"to"`
	Amount int64          `json:"amount"`
}

// TransferRequest is the token service transfer call body.
type TransferRequest struct {
	From   ledger.Address `json:"from"`
	To     ledger.Address `json:"to"`
	Amount int64          `json:"amount"`
}

// Mint creates amount new tokens on the balance of to.
func (c *Client) Mint(ctx context.Context, to ledger.Address, amount int64) error {
	return c.Post(ctx, "mint", MintRequest{To: to, Amount: amount}, nil)
}

// Transfer moves amount tokens between accounts.
func (c *Client) Transfer(ctx context.Context, from, to ledger.Address, amount int64) error {
	return c.Post(ctx, "transfer", TransferRequest{From: from, To: to, Amount: amount}, nil)
}
