package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"oracleScope/internal/chain"
	"oracleScope/internal/config"
	"oracleScope/internal/ingest"
	"oracleScope/internal/ocr"
	"oracleScope/internal/pipeline"
	"oracleScope/internal/registry"
	"oracleScope/internal/storage"
)

func runFetch(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadFetch(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if cfg.Network == "" || cfg.Feed == "" {
		return fmt.Errorf("network and feed are required")
	}
	if cfg.StartDate == "" {
		return fmt.Errorf("start-date is required")
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

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	fetch, err := pipeline.NewFetch(
		chainClient,
		ingest.FetchConfig{
			Chunked:      cfg.Network != "ethereum",
			ChunkSize:    cfg.ChunkSize,
			MaxRetries:   cfg.MaxRetries,
			RetryBackoff: cfg.RetryBackoff,
		},
		ocr.FamilyForNetwork(cfg.Network),
		feed,
		operators,
		storage.NewArtifacts(cfg.DataDir, feed.Path),
		logger,
	)
	if err != nil {
		return err
	}

	logger.Info("fetch start",
		zap.String("feed", feedKey),
		zap.String("address", feed.Address),
		zap.String("start_date", cfg.StartDate),
		zap.Uint64("chunk_size", cfg.ChunkSize),
		zap.Int("operators", len(operators.Transmitters)),
	)

	return fetch.Run(ctx, cfg.StartDate)
}
