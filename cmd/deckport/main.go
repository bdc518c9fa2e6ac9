// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckport Contributors

package main

import (
	"fmt"
	"os"

	"github.com/deckport/deckport/internal/plugin"
)

func main() {
	err := NewRootCmd().Execute()
	plugin.CleanupClients()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
