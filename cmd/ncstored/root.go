package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"ncboard/internal/candidates"
	"ncboard/internal/config"
	"ncboard/internal/logging"
	"ncboard/internal/storeserver"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var bindFlag string

	cmd := &cobra.Command{
		Use:           "ncstored",
		Short:         "Candidate store service",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, _, err := config.Load(strings.TrimSpace(configFlag))
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if bind := strings.TrimSpace(bindFlag); bind != "" {
				cfg.Server.Bind = bind
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}
			logger, err := logging.NewFromConfig(cfg, "ncstored")
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			return run(cmd.Context(), cfg, logger)
		},
	}

	cmd.Flags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	cmd.Flags().StringVar(&bindFlag, "bind", "", "Override server.bind")
	return cmd
}

// run holds the instance lock, opens the database and serves until ctx ends.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	lockPath := cfg.LockPath()
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another ncstored instance holds %s", lockPath)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("failed to release instance lock", logging.Error(err))
		}
	}()

	store, err := candidates.Open(cfg)
	if err != nil {
		logging.ErrorWithContext(logger, "open candidate database failed", "database_open_failed",
			logging.Error(err),
			logging.String("driver", cfg.Server.DBDriver),
			logging.String(logging.FieldErrorHint, "check server.db_driver and server.db_dsn"),
			logging.String(logging.FieldImpact, "service not started"))
		return fmt.Errorf("open candidates: %w", err)
	}
	defer store.Close()

	logger.Info("candidate store started",
		logging.String("bind", cfg.Server.Bind),
		logging.String("driver", string(store.Dialect())),
		logging.String("lock", lockPath),
		logging.Bool("auth", cfg.Server.APIToken != ""))

	err = storeserver.New(cfg, store, logger).Run(ctx)
	logger.Info("candidate store stopped")
	return err
}
