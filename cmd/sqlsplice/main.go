// Package main is the entry point for the sqlsplice CLI.
package main

import (
	"os"

	"github.com/leapstack-labs/sqlsplice/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
