// Command autoschematic is a thin, illustrative CLI wiring
// internal/workflow end to end. It exists to exercise the engine the
// way a real collaborator would; a full flag surface, RON config
// parsing, and git plumbing belong to a separate server/CLI
// distribution built on top of this module.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"

	"github.com/autoschematic-sh/autoschematic/internal/taxonomy"
)

func main() {
	logger := hclog.New(&hclog.LoggerOptions{
		Name:  "autoschematic",
		Level: hclog.Info,
	})

	if err := newRootCommand(context.Background(), logger).Execute(); err != nil {
		if kind, ok := taxonomy.Of(err); ok {
			fmt.Fprintf(os.Stderr, "%s\n", taxonomy.CLILine(err))
			os.Exit(exitCodeFor(kind))
		}
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}

func exitCodeFor(kind taxonomy.Kind) int {
	switch kind {
	case taxonomy.Configuration, taxonomy.InvalidAddress, taxonomy.InvalidConnectorSpec:
		return 2
	default:
		return 1
	}
}
