// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2026 the botgate authors
//
// Botgate - DotBot gateway controller
//
// Bridges the framed serial link of a radio gateway board to an HTTP and
// websocket API for fleet monitoring and control.

package main

import (
	"os"

	"github.com/dotbot-org/botgate/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
