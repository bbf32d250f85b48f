package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/autoschematic-sh/autoschematic/internal/workflow"
)

func newImportCommand(ctx context.Context, buildEngine func() (*workflow.Engine, error)) *cobra.Command {
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "import [prefix]",
		Short: "Import every resource a prefix's connectors currently know about",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := buildEngine()
			if err != nil {
				return err
			}

			messages := make(chan workflow.ImportMessage, 16)
			errCh := make(chan error, 1)
			go func() {
				errCh <- e.ImportAll(ctx, args[0], overwrite, messages)
			}()

			for m := range messages {
				switch m.Kind {
				case workflow.ImportSkipExisting:
					fmt.Printf("%s: skipped, already exists\n", m.VirtAddr)
				case workflow.ImportStartGet:
					fmt.Printf("%s: fetching current state...\n", m.VirtAddr)
				case workflow.ImportGetSuccess:
					fmt.Printf("%s: imported\n", m.VirtAddr)
				}
			}
			return <-errCh
		},
	}
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "overwrite existing resource files")
	return cmd
}
