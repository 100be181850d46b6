package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"oracleScope/internal/config"
	"oracleScope/internal/pipeline"
	"oracleScope/internal/registry"
	"oracleScope/internal/storage"
	"oracleScope/internal/storage/postgres"
)

func runReconcile(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadReconcile(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Network == "" || cfg.Feed == "" {
		return fmt.Errorf("network and feed are required")
	}

	feedKey := config.FeedKey(cfg.Network, cfg.Feed)
	feed, err := registry.LoadFeed(cfg.DataDir, feedKey)
	if err != nil {
		return err
	}
	operators, err := registry.LoadOperators(cfg.DataDir, feed.Path)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("reconcile start",
		zap.String("feed", feedKey),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
	)

	reconciler := pipeline.NewReconcile(operators, storage.NewArtifacts(cfg.DataDir, feed.Path), logger)
	totals, head, err := reconciler.Run()
	if err != nil {
		return err
	}

	if cfg.PGDSN == "" {
		return nil
	}
	store, err := postgres.NewStore(ctx, cfg.PGDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer store.Close()

	mirrored, ok, err := store.LoadState(ctx, feed.Path, "reconcile")
	if err != nil {
		return fmt.Errorf("load mirror state: %w", err)
	}
	if ok && mirrored >= head {
		logger.Info("postgres mirror already current", zap.Uint64("block", mirrored))
		return nil
	}

	if err := store.UpsertEpochTotals(ctx, feed.Path, operators, totals); err != nil {
		return fmt.Errorf("mirror totals: %w", err)
	}
	if err := store.SaveState(ctx, feed.Path, "reconcile", head); err != nil {
		return fmt.Errorf("save mirror state: %w", err)
	}
	logger.Info("totals mirrored to postgres",
		zap.Int("epochs", len(totals.Totals)),
		zap.Uint64("block", head),
	)
	return nil
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
