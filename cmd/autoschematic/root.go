package main

import (
	"context"
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/autoschematic-sh/autoschematic/internal/config"
	"github.com/autoschematic-sh/autoschematic/internal/connector/cache"
	"github.com/autoschematic-sh/autoschematic/internal/connector/transport"
	"github.com/autoschematic-sh/autoschematic/internal/keystore"
	"github.com/autoschematic-sh/autoschematic/internal/outputs"
	"github.com/autoschematic-sh/autoschematic/internal/workflow"
)

func newRootCommand(ctx context.Context, logger hclog.Logger) *cobra.Command {
	var configPath string
	var keyDir string

	root := &cobra.Command{
		Use:           "autoschematic",
		Short:         "Reconcile declared configuration against live infrastructure",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "autoschematic.json", "path to the parsed autoschematic configuration")
	root.PersistentFlags().StringVar(&keyDir, "key-dir", ".autoschematic/keys", "directory holding sealed-secret signing keys")

	buildEngine := func() (*workflow.Engine, error) {
		fs := afero.NewOsFs()
		f, err := os.Open(configPath)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", configPath, err)
		}
		defer f.Close()

		cfg, err := config.LoadJSON(f)
		if err != nil {
			return nil, err
		}

		if err := fs.MkdirAll(keyDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating key directory %s: %w", keyDir, err)
		}
		ks, err := keystore.NewOndisk(ctx, fs, keyDir)
		if err != nil {
			return nil, err
		}

		c := cache.New(transport.Spawn, ks, logger)
		out := outputs.New(fs)
		return workflow.New(cfg, c, out, fs, logger), nil
	}

	root.AddCommand(
		newPlanCommand(ctx, buildEngine),
		newApplyCommand(ctx, buildEngine),
		newImportCommand(ctx, buildEngine),
		newValidateCommand(ctx, buildEngine),
	)
	return root
}
