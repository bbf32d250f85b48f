package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/autoschematic-sh/autoschematic/internal/workflow"
)

func newValidateCommand(ctx context.Context, buildEngine func() (*workflow.Engine, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load and validate the configured prefixes without contacting any connector",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := buildEngine()
			if err != nil {
				return err
			}
			fmt.Printf("ok: %d prefix(es) configured\n", len(e.Config.Prefixes))
			return nil
		},
	}
}
