// Copyright (c) 2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package cache

import (
	"encoding/binary"
	"sync"
	"sync/atomic"

	"blockwatch.cc/packdb/cache/lru"
	"github.com/cespare/xxhash"

	"github.com/Preciousbas/polichain-governance/gov/model"
	"github.com/Preciousbas/polichain-governance/ledger"
)

var BallotCacheSizeLog2 = 15 // 32k

// BallotCache remembers which (proposal, voter) pairs have already cast
// a ballot so the double-vote check avoids a table query in the common
// case. A miss is not authoritative; callers fall back to the table.
type BallotCache struct {
	cache *lru.TwoQueueCache // key := xxhash64(proposal:voter)
	size  int64
	stats Stats
}

func NewBallotCache(sz int) *BallotCache {
	c := &BallotCache{}
	c.cache, _ = lru.New2QWithEvict(1<<uint(sz), func(_, _ interface{}) {
		c.size -= 8
		atomic.AddInt64(&c.stats.Evictions, 1)
	})
	return c
}

var ballotKeyPool = &sync.Pool{
	// proposal id plus address hash
	New: func() interface{} { return make([]byte, 0, 8+ledger.AddressLen) },
}

func (c *BallotCache) BallotKey(id model.ProposalID, voter ledger.Address) uint64 {
	bufIf := ballotKeyPool.Get()
	buf := bufIf.([]byte)[:8+ledger.AddressLen]
	binary.BigEndian.PutUint64(buf, id.U64())
	copy(buf[8:], voter[:])
	sum := xxhash.Sum64(buf)
	buf = buf[:0]
	ballotKeyPool.Put(bufIf)
	return sum
}

func (c *BallotCache) Has(id model.ProposalID, voter ledger.Address) bool {
	_, ok := c.cache.Get(c.BallotKey(id, voter))
	if ok {
		c.stats.CountHits(1)
	} else {
		c.stats.CountMisses(1)
	}
	return ok
}

func (c *BallotCache) Add(id model.ProposalID, voter ledger.Address) {
	updated, _ := c.cache.Add(c.BallotKey(id, voter), struct{}{})
	if updated {
		atomic.AddInt64(&c.stats.Updates, 1)
	} else {
		c.size += 8
		atomic.AddInt64(&c.stats.Inserts, 1)
	}
}

func (c *BallotCache) Purge() {
	c.cache.Purge()
	c.size = 0
}

func (c *BallotCache) Stats() Stats {
	s := c.stats.Get()
	s.Size = c.cache.Len()
	s.Bytes = atomic.LoadInt64(&c.size)
	return s
}
