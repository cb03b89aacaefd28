package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/robbyt/go-supervisor/supervisor"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"

	"github.com/sqlpulse/sqlpulse/internal/config"
	"github.com/sqlpulse/sqlpulse/internal/control"
	"github.com/sqlpulse/sqlpulse/internal/harness"
	"github.com/sqlpulse/sqlpulse/internal/peerdata"
)

var serveCmd = &cli.Command{
	Name:  "serve",
	Usage: "Start the harness and its control endpoint",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "config",
			Usage:    "Path to TOML configuration file",
			Aliases:  []string{"c"},
			Required: true,
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level (trace, debug, info, warn, error); overrides the config file",
		},
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Log as JSON",
		},
	},
	Action: func(ctx context.Context, cmd *cli.Command) error {
		configPath := cmd.String("config")

		cfg, err := config.NewConfig(configPath)
		if err != nil {
			return cli.Exit(fmt.Errorf("failed to load config: %w", err), 1)
		}

		logLevel := cmd.String("log-level")
		if logLevel == "" {
			logLevel = cfg.LogLevel
		}
		SetupLogger(logLevel, cmd.Bool("json"))
		logger := slog.Default()

		store := peerdata.NewFileStore(afero.NewOsFs(), filepath.Join(cfg.DataDir, "peerdata.json"))

		h, err := harness.New(cfg,
			harness.WithLogger(logger.With("component", "harness")),
			harness.WithStore(store),
			harness.WithConfigPath(configPath),
		)
		if err != nil {
			return cli.Exit(fmt.Errorf("failed to create harness: %w", err), 1)
		}

		ctrl, err := control.New(cfg.Listen, h,
			control.WithLogger(logger.With("component", "control")),
		)
		if err != nil {
			return cli.Exit(fmt.Errorf("failed to create control endpoint: %w", err), 1)
		}

		// Order is important: the harness comes up before the control
		// endpoint starts answering actions.
		runnables := []supervisor.Runnable{
			h,
			ctrl,
		}

		super, err := supervisor.New(
			supervisor.WithRunnables(runnables...),
			supervisor.WithLogHandler(slog.Default().Handler()),
			supervisor.WithContext(ctx),
		)
		if err != nil {
			return cli.Exit(fmt.Errorf("failed to create supervisor: %w", err), 1)
		}
		if err := super.Run(); err != nil {
			return cli.Exit(fmt.Errorf("failed to run harness: %w", err), 1)
		}

		logger.Info("Harness shutdown complete")
		return nil
	},
}
