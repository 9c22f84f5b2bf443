// Copyright (c) 2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package cache

import (
	"context"
	"sync"

	"blockwatch.cc/packdb/pack"

	"github.com/Preciousbas/polichain-governance/gov/model"
	"github.com/Preciousbas/polichain-governance/ledger"
)

type roleKey struct {
	role ledger.Role
	addr ledger.Address
}

// RoleCache keeps the full role membership set in memory. The set is
// small and consulted on every privileged entry point, so a complete
// map beats repeated table scans. Writers must call Add/Drop alongside
// their table mutations.
type RoleCache struct {
	mu    sync.RWMutex
	roles map[roleKey]struct{}
	stats Stats
}

func NewRoleCache() *RoleCache {
	return &RoleCache{
		roles: make(map[roleKey]struct{}),
	}
}

func (c *RoleCache) Stats() Stats {
	s := c.stats.Get()
	s.Size = c.Len()
	s.Bytes = int64(c.Len() * (1 + ledger.AddressLen))
	return s
}

func (c *RoleCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.roles)
}

func (c *RoleCache) Has(role ledger.Role, addr ledger.Address) bool {
	c.mu.RLock()
	_, ok := c.roles[roleKey{role, addr}]
	c.mu.RUnlock()
	if ok {
		c.stats.CountHits(1)
	} else {
		c.stats.CountMisses(1)
	}
	return ok
}

func (c *RoleCache) Add(role ledger.Role, addr ledger.Address) {
	c.mu.Lock()
	c.roles[roleKey{role, addr}] = struct{}{}
	c.mu.Unlock()
	c.stats.CountInserts(1)
}

func (c *RoleCache) Drop(role ledger.Role, addr ledger.Address) {
	c.mu.Lock()
	delete(c.roles, roleKey{role, addr})
	c.mu.Unlock()
	c.stats.CountEvictions(1)
}

func (c *RoleCache) Purge() {
	c.mu.Lock()
	c.roles = make(map[roleKey]struct{})
	c.mu.Unlock()
}

// Build loads all grants from the role table.
func (c *RoleCache) Build(ctx context.Context, table *pack.Table) error {
	c.stats.CountUpdates(1)
	grants, err := model.ListRoleGrants(ctx, table, ledger.RoleInvalid)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roles = make(map[roleKey]struct{}, len(grants))
	for _, g := range grants {
		c.roles[roleKey{g.Role, g.Grantee}] = struct{}{}
	}
	return nil
}
