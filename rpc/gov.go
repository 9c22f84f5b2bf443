// Copyright (c) 2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package rpc

import (
	"context"
	"encoding/json"
	"fmt"
)

// Typed write calls against the governance API. Read paths are composed by
// callers and fetched with Get, replies pass through as raw JSON so tools
// can render server output without re-encoding.

// ProposeRequest mirrors the submit proposal call body.
type ProposeRequest struct {
	Sender      string `json:"sender"`
	Kind        string `json:"kind,omitempty"`
	Description string `json:"description"`
	Target      string `json:"target,omitempty"`
	Amount      int64  `json:"amount,omitempty"`
	QuorumPct   int64  `json:"quorum_pct,omitempty"`
}

// VoteRequest mirrors the ballot call body.
type VoteRequest struct {
	Sender  string `json:"sender"`
	Support bool   `json:"support"`
}

// SenderRequest is the body of calls that only authenticate a sender.
type SenderRequest struct {
	Sender string `json:"sender"`
}

// ScheduleRequest mirrors the timelock schedule call body.
type ScheduleRequest struct {
	Sender      string          `json:"sender"`
	Target      string          `json:"target"`
	Value       int64           `json:"value,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Predecessor string          `json:"predecessor,omitempty"`
	Salt        string          `json:"salt"`
	Delay       int64           `json:"delay"`
	Description string          `json:"description,omitempty"`
	Category    string          `json:"category,omitempty"`
}

// ExecuteRequest mirrors the timelock execute call body.
type ExecuteRequest struct {
	Sender      string          `json:"sender"`
	Target      string          `json:"target"`
	Value       int64           `json:"value,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Predecessor string          `json:"predecessor,omitempty"`
	Salt        string          `json:"salt"`
}

// RoleRequest mirrors the role grant, revoke and renounce call bodies.
type RoleRequest struct {
	Sender  string `json:"sender"`
	Role    string `json:"role"`
	Grantee string `json:"grantee,omitempty"`
}

// ExecutorRequest mirrors the bind executor call body.
type ExecutorRequest struct {
	Sender   string `json:"sender"`
	Executor string `json:"executor"`
}

// GetTip returns the current governance chain tip.
func (c *Client) GetTip(ctx context.Context) (json.RawMessage, error) {
	var raw json.RawMessage
	err := c.Get(ctx, "explorer/tip", &raw)
	return raw, err
}

// GetStatus returns the API server status.
func (c *Client) GetStatus(ctx context.Context) (json.RawMessage, error) {
	var raw json.RawMessage
	err := c.Get(ctx, "explorer/status", &raw)
	return raw, err
}

// SubmitProposal opens a new proposal and returns the stored row.
func (c *Client) SubmitProposal(ctx context.Context, req ProposeRequest) (json.RawMessage, error) {
	var raw json.RawMessage
	err := c.Post(ctx, "explorer/proposal", req, &raw)
	return raw, err
}

// SubmitBallot casts a vote on an open proposal.
func (c *Client) SubmitBallot(ctx context.Context, id uint64, sender string, support bool) (json.RawMessage, error) {
	var raw json.RawMessage
	err := c.Post(ctx, fmt.Sprintf("explorer/proposal/%d/ballot", id), VoteRequest{Sender: sender, Support: support}, &raw)
	return raw, err
}

// FinalizeProposal tallies a proposal after its voting window closed.
func (c *Client) FinalizeProposal(ctx context.Context, id uint64, sender string) (json.RawMessage, error) {
	var raw json.RawMessage
	err := c.Post(ctx, fmt.Sprintf("explorer/proposal/%d/finalize", id), SenderRequest{Sender: sender}, &raw)
	return raw, err
}

// ExecuteProposal runs the action of a passed proposal.
func (c *Client) ExecuteProposal(ctx context.Context, id uint64, sender string) (json.RawMessage, error) {
	var raw json.RawMessage
	err := c.Post(ctx, fmt.Sprintf("explorer/proposal/%d/execute", id), SenderRequest{Sender: sender}, &raw)
	return raw, err
}

// ScheduleOp queues a delayed operation.
func (c *Client) ScheduleOp(ctx context.Context, req ScheduleRequest) (json.RawMessage, error) {
	var raw json.RawMessage
	err := c.Post(ctx, "explorer/op", req, &raw)
	return raw, err
}

// ExecuteOp executes a queued operation after its delay elapsed.
func (c *Client) ExecuteOp(ctx context.Context, req ExecuteRequest) (json.RawMessage, error) {
	var raw json.RawMessage
	err := c.Post(ctx, "explorer/op/execute", req, &raw)
	return raw, err
}

// CancelOp removes a queued operation before execution.
func (c *Client) CancelOp(ctx context.Context, hash, sender string) error {
	return c.Post(ctx, fmt.Sprintf("explorer/op/%s/cancel", hash), SenderRequest{Sender: sender}, nil)
}

// GrantRole adds a role grant, an empty grantee binds the wildcard.
func (c *Client) GrantRole(ctx context.Context, sender, role, grantee string) (json.RawMessage, error) {
	var raw json.RawMessage
	err := c.Post(ctx, "explorer/role/grant", RoleRequest{Sender: sender, Role: role, Grantee: grantee}, &raw)
	return raw, err
}

// RevokeRole removes a role grant.
func (c *Client) RevokeRole(ctx context.Context, sender, role, grantee string) error {
	return c.Post(ctx, "explorer/role/revoke", RoleRequest{Sender: sender, Role: role, Grantee: grantee}, nil)
}

// RenounceRole removes the sender's own role grant.
func (c *Client) RenounceRole(ctx context.Context, sender, role string) error {
	return c.Post(ctx, "explorer/role/renounce", RoleRequest{Sender: sender, Role: role}, nil)
}

// BindExecutor binds the proposal executing authority, once. Passed
// proposals cannot execute until an authority is bound.
func (c *Client) BindExecutor(ctx context.Context, sender, executor string) (json.RawMessage, error) {
	var raw json.RawMessage
	err := c.Post(ctx, "explorer/role/executor", ExecutorRequest{Sender: sender, Executor: executor}, &raw)
	return raw, err
}
