// Package main implements the trade-workload command: it creates the trading schema and runs
// many concurrent workers that submit and drain orders against a multi-region cluster.
package main

import (
	"context"
	"os"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
