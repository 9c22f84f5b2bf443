// Copyright (c) 2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package main

import (
	"github.com/Preciousbas/polichain-governance/cmd"
)

func main() {
	cmd.Run()
}
