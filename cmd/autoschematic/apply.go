package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/autoschematic-sh/autoschematic/internal/taxonomy"
	"github.com/autoschematic-sh/autoschematic/internal/workflow"
)

func newApplyCommand(ctx context.Context, buildEngine func() (*workflow.Engine, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "apply [path]",
		Short: "Plan then apply a single resource address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := buildEngine()
			if err != nil {
				return err
			}

			plan, err := e.Plan(ctx, args[0])
			if err != nil {
				return err
			}
			if plan == nil {
				return taxonomy.New(taxonomy.InvalidAddress, "no connector claims %s", args[0])
			}
			if plan.Deferred() {
				fmt.Printf("%s: deferred, nothing to apply\n", plan.VirtAddr)
				return nil
			}
			if plan.Error != nil {
				return plan.Error
			}

			report, err := e.Apply(ctx, plan)
			if err != nil {
				return err
			}
			if report.Error != nil {
				return fmt.Errorf("applying %s: %w", report.VirtAddr, report.Error)
			}
			for _, out := range report.Outputs {
				fmt.Printf("%s: %s\n", report.VirtAddr, out.FriendlyMessage)
			}
			return nil
		},
	}
}
