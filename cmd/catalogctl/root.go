package main

import (
	"context"
	"fmt"

	"category-import-backend/internal/app"
	"category-import-backend/internal/config"
	"category-import-backend/internal/logger"
	"category-import-backend/internal/services/ingest"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type rootOptions struct {
	envFiles []string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:          "catalogctl",
		Short:        "Category catalog maintenance tools",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringSliceVar(&opts.envFiles, "env-file", nil, "Env files to load (default .env, .env.local)")

	cmd.AddCommand(newImportCmd(opts))
	cmd.AddCommand(newRebuildTreeCmd(opts))
	return cmd
}

// setup loads configuration and connects the import pipeline.
func (o *rootOptions) setup(ctx context.Context) (*app.App, func(), error) {
	cfg, err := config.Load(o.envFiles...)
	if err != nil {
		return nil, nil, err
	}
	zl, err := logger.Initialize(cfg.Env)
	if err != nil {
		return nil, nil, fmt.Errorf("initialize logger: %w", err)
	}
	cleanup := func() { _ = zl.Sync() }

	db, err := config.InitDB(cfg.Database)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	application, err := app.New(ctx, cfg, db)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	if cfg.RedisURL != "" {
		rdb, err := ingest.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		application.UseRedis(rdb)
		syncLogger := cleanup
		cleanup = func() {
			_ = rdb.Close()
			syncLogger()
		}
	}
	zap.L().Debug("catalogctl ready", zap.String("env", cfg.Env))
	return application, cleanup, nil
}
