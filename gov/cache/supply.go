// Copyright (c) 2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package cache

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

var SupplyMaxCacheSize = 1024 // entries

// SupplyCache remembers total supply per historical height. Snapshot
// heights lie strictly behind the tip, so a cached value never goes
// stale. With a remote oracle this saves one round-trip per quorum
// check.
type SupplyCache struct {
	cache *lru.TwoQueueCache[int64, int64] // key := height
	stats Stats
}

func NewSupplyCache(sz int) *SupplyCache {
	if sz <= 0 {
		sz = SupplyMaxCacheSize
	}
	c := &SupplyCache{}
	c.cache, _ = lru.New2Q[int64, int64](sz)
	return c
}

func (c *SupplyCache) Get(height int64) (int64, bool) {
	supply, ok := c.cache.Get(height)
	if ok {
		atomic.AddInt64(&c.stats.Hits, 1)
		return supply, true
	}
	atomic.AddInt64(&c.stats.Misses, 1)
	return 0, false
}

func (c *SupplyCache) Add(height, supply int64) {
	c.cache.Add(height, supply)
	atomic.AddInt64(&c.stats.Inserts, 1)
}

func (c *SupplyCache) Purge() {
	c.cache.Purge()
}

func (c *SupplyCache) Stats() Stats {
	s := c.stats.Get()
	s.Size = c.cache.Len()
	s.Bytes = int64(c.cache.Len()) * 16
	return s
}
