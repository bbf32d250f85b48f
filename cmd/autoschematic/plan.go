package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/autoschematic-sh/autoschematic/internal/taxonomy"
	"github.com/autoschematic-sh/autoschematic/internal/workflow"
)

func newPlanCommand(ctx context.Context, buildEngine func() (*workflow.Engine, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "plan [path]",
		Short: "Plan changes for a single resource address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := buildEngine()
			if err != nil {
				return err
			}

			report, err := e.Plan(ctx, args[0])
			if err != nil {
				return err
			}
			if report == nil {
				return taxonomy.New(taxonomy.InvalidAddress, "no connector claims %s", args[0])
			}
			if report.Deferred() {
				fmt.Printf("%s: deferred, waiting on %d output(s)\n", report.VirtAddr, len(report.MissingOutputs)+len(report.MissingForAddrResolution))
				return nil
			}
			if report.Error != nil {
				return report.Error
			}
			if len(report.Ops) == 0 {
				fmt.Printf("%s: no changes\n", report.VirtAddr)
				return nil
			}
			for _, op := range report.Ops {
				fmt.Printf("%s: %s — %s\n", report.VirtAddr, op.Op, op.FriendlyMessage)
			}
			return nil
		},
	}
}
