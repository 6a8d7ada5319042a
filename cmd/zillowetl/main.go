// Package main provides the zillowetl command.
package main

import (
	"os"

	"github.com/leapstack-labs/zillowetl/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
