// Copyright (c) 2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package model

import (
	"strings"

	"blockwatch.cc/packdb/pack"
	"github.com/echa/config"
)

func ReadConfigOpts(keys ...string) pack.Options {
	key := strings.Join(append([]string{"db"}, keys...), ".")
	return pack.Options{
		PackSizeLog2:    config.GetInt(key + ".pack_size_log2"),
		JournalSizeLog2: config.GetInt(key + ".journal_size_log2"),
		CacheSize:       config.GetInt(key + ".cache_size"),
		FillLevel:       config.GetInt(key + ".fill_level"),
	}
}

func init() {
	// database cache defaults
	config.SetDefault("db.proposal.cache_size", 8)
	config.SetDefault("db.ballot.cache_size", 64)
	config.SetDefault("db.timelock_op.cache_size", 8)
	config.SetDefault("db.role.cache_size", 2)
	config.SetDefault("db.event.cache_size", 16)
	config.SetDefault("db.balance.cache_size", 128)
	config.SetDefault("db.checkpoint.cache_size", 128)
	config.SetDefault("db.supply.cache_size", 16)
}
