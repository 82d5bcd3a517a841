package main

import (
	"os"

	"github.com/alphastack/discovery/cmd/discovery/commands"
)

// main is the entry point for the discovery CLI
// ⭐ Unified CLI entry point: go run ./cmd/discovery [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
