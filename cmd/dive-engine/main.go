// Package main provides the entry point for the dive-engine CLI.
package main

import (
	"os"

	"github.com/duclm1x1/dive-engine/cmd/dive-engine/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
