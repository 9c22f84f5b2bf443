// Copyright (c) 2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package gov

import (
	"context"
	"errors"

	"blockwatch.cc/packdb/pack"

	"github.com/Preciousbas/polichain-governance/gov/cache"
	"github.com/Preciousbas/polichain-governance/gov/model"
	"github.com/Preciousbas/polichain-governance/ledger"
)

// Authority is the role registry consulted by every privileged entry
// point. Membership lives in the role table; the cache carries the
// complete set and is updated in lockstep with table writes.
type Authority struct {
	engine *Engine
	cache  *cache.RoleCache
}

func NewAuthority(e *Engine) *Authority {
	return &Authority{
		engine: e,
		cache:  cache.NewRoleCache(),
	}
}

func (a *Authority) Cache() *cache.RoleCache {
	return a.cache
}

// HasRole reports direct membership.
func (a *Authority) HasRole(role ledger.Role, addr ledger.Address) bool {
	return a.cache.Has(role, addr)
}

// AllowExecutor reports whether addr may execute queued operations,
// either by direct grant or through the open-executor wildcard.
func (a *Authority) AllowExecutor(addr ledger.Address) bool {
	return a.cache.Has(ledger.RoleExecutor, addr) ||
		a.cache.Has(ledger.RoleExecutor, ledger.ZeroAddress)
}

// GrantRole adds grantee to a role. Admin only. Granting an existing
// membership is a no-op.
func (e *Engine) GrantRole(ctx context.Context, sender ledger.Address, role ledger.Role, grantee ledger.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.begin()
	defer e.abort()

	if !role.IsValid() {
		return model.ErrInvalidRole
	}
	// the zero grantee is only meaningful as the open-executor wildcard
	if grantee.IsZero() && role != ledger.RoleExecutor {
		return model.ErrZeroAddress
	}
	if !e.auth.HasRole(ledger.RoleAdmin, sender) {
		return model.ErrNotAdmin
	}
	changed, err := e.grantRole(ctx, sender, role, grantee)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	return e.commit(ctx)
}

// RevokeRole removes grantee from a role. Admin only. Revoking a
// missing membership is a no-op.
func (e *Engine) RevokeRole(ctx context.Context, sender ledger.Address, role ledger.Role, grantee ledger.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.begin()
	defer e.abort()

	if !role.IsValid() {
		return model.ErrInvalidRole
	}
	if !e.auth.HasRole(ledger.RoleAdmin, sender) {
		return model.ErrNotAdmin
	}
	changed, err := e.revokeRole(ctx, sender, role, grantee)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	return e.commit(ctx)
}

// RenounceRole removes the sender's own membership, no admin required.
// This is how the setup admin retires itself once roles are wired.
func (e *Engine) RenounceRole(ctx context.Context, sender ledger.Address, role ledger.Role) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.begin()
	defer e.abort()

	if !role.IsValid() {
		return model.ErrInvalidRole
	}
	changed, err := e.revokeRole(ctx, sender, role, sender)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	return e.commit(ctx)
}

// grantRole writes the membership row, cache entry and event. Requires
// an open step.
func (e *Engine) grantRole(ctx context.Context, by ledger.Address, role ledger.Role, grantee ledger.Address) (bool, error) {
	if e.auth.cache.Has(role, grantee) {
		return false, nil
	}
	table, err := e.store.Table(model.RoleTableKey)
	if err != nil {
		return false, err
	}
	grant := &model.RoleGrant{
		Role:      role,
		Grantee:   grantee,
		GrantedBy: by,
		Height:    e.cur.height,
		Time:      e.cur.now,
	}
	if err := grant.Store(ctx, table); err != nil {
		return false, err
	}
	e.auth.cache.Add(role, grantee)
	e.emit(model.EventTypeRoleGranted, by, 0, ledger.ZeroOpHash, map[string]interface{}{
		"role":    role,
		"grantee": grantee,
	})
	return true, nil
}

func (e *Engine) revokeRole(ctx context.Context, by ledger.Address, role ledger.Role, grantee ledger.Address) (bool, error) {
	if !e.auth.cache.Has(role, grantee) {
		return false, nil
	}
	table, err := e.store.Table(model.RoleTableKey)
	if err != nil {
		return false, err
	}
	_, err = pack.NewQuery("gov.revoke_role").
		WithTable(table).
		AndEqual("role", role).
		AndEqual("grantee", grantee).
		Delete(ctx)
	if err != nil && !errors.Is(err, model.ErrNoRoleGrant) {
		return false, err
	}
	e.auth.cache.Drop(role, grantee)
	e.emit(model.EventTypeRoleRevoked, by, 0, ledger.ZeroOpHash, map[string]interface{}{
		"role":    role,
		"grantee": grantee,
	})
	return true, nil
}
