// Package cli implements the ficore command line.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ficoreafrica/ficore/internal/app"
	"github.com/ficoreafrica/ficore/internal/config"
	"github.com/ficoreafrica/ficore/internal/logging"
	"github.com/ficoreafrica/ficore/reconcile"
)

// Version is set at build time with -ldflags "-X ...cli.Version=...".
var Version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:           "ficore",
	Short:         "Ficore personal-finance data service",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Path to the TOML config file")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// load reads the configuration and installs the logger it names.
func load() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logging.Setup(cfg.Log.Level, cfg.Log.Format), nil
}

// start loads the configuration, builds the application and reconciles the
// schema.
func start(ctx context.Context) (*app.App, reconcile.Report, error) {
	cfg, logger, err := load()
	if err != nil {
		return nil, reconcile.Report{}, err
	}
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, reconcile.Report{}, err
	}
	report, err := a.Init(ctx)
	if err != nil {
		_ = a.Close(context.Background())
		return nil, report, err
	}
	logger.InfoContext(ctx, "schema reconciled",
		"collections_created", len(report.CollectionsCreated),
		"collections_modified", len(report.CollectionsModified),
		"indexes_created", len(report.IndexesCreated),
		"indexes_dropped", len(report.IndexesDropped),
	)
	return a, report, nil
}
