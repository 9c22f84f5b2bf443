// Copyright (c) 2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package tables

import (
	logpkg "github.com/echa/log"
)

var log logpkg.Logger = logpkg.Log

func DisableLog() {
	log = logpkg.Disabled
}

func UseLogger(logger logpkg.Logger) {
	log = logger
}
