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
	"oracleScope/internal/pipeline"
	"oracleScope/internal/registry"
	"oracleScope/internal/storage"
)

func runPrices(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadPrices(cfgFile, cmd.Flags())
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
	if len(cfg.Assets) == 0 {
		return fmt.Errorf("at least one price asset is required")
	}

	feedKey := config.FeedKey(cfg.Network, cfg.Feed)
	feed, err := registry.LoadFeed(cfg.DataDir, feedKey)
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

	prices := pipeline.NewPrices(chainClient, cfg.Network, cfg.DataDir, storage.NewArtifacts(cfg.DataDir, feed.Path), logger)

	logger.Info("prices start",
		zap.String("feed", feedKey),
		zap.Strings("assets", cfg.Assets),
	)

	return prices.Run(ctx, cfg.Assets)
}
