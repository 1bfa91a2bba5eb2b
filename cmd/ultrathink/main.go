// Command ultrathink is the CLI: local scoring and evolution runs plus the
// server and migration entry points.
package main

import (
	"fmt"
	"os"

	"github.com/nickita-khylkouski/ultrathink/internal/interfaces/cli"
)

// Build-time variables injected via ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func init() {
	cli.Version = version
	cli.GitCommit = commit
	cli.BuildDate = buildDate
}

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
