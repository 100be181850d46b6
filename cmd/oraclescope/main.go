package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "oraclescope",
		Short:        "OCR feed history and earnings reconciliation",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	fetchCmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch transmission, payment, and billing history",
		RunE:  runFetch,
	}

	fetchCmd.Flags().String("network", "", "network name (ethereum, polygon, ...)")
	fetchCmd.Flags().String("feed", "", "feed name (e.g. eth-usd)")
	fetchCmd.Flags().String("start-date", "", "history start date (YYYY-MM-DD, UTC)")
	fetchCmd.Flags().String("rpc", "", "archive RPC URL")
	fetchCmd.Flags().String("data-dir", "./data", "artifact root directory")
	fetchCmd.Flags().Uint64("chunk-size", 100_000, "blocks per getLogs window")
	fetchCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	fetchCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	fetchCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(fetchCmd)

	answersCmd := &cobra.Command{
		Use:   "answers",
		Short: "Capture the feed's aggregated-answer timeline",
		RunE:  runAnswers,
	}

	answersCmd.Flags().String("network", "", "network name (ethereum, polygon, ...)")
	answersCmd.Flags().String("feed", "", "feed name (e.g. eth-usd)")
	answersCmd.Flags().String("start-date", "", "history start date (YYYY-MM-DD, UTC)")
	answersCmd.Flags().String("rpc", "", "archive RPC URL")
	answersCmd.Flags().String("data-dir", "./data", "artifact root directory")
	answersCmd.Flags().Uint64("chunk-size", 100_000, "blocks per getLogs window")
	answersCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	answersCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	answersCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(answersCmd)

	pricesCmd := &cobra.Command{
		Use:   "prices",
		Short: "Capture quote-asset prices at settlement blocks",
		RunE:  runPrices,
	}

	pricesCmd.Flags().String("network", "", "network name (ethereum, polygon, ...)")
	pricesCmd.Flags().String("feed", "", "feed name (e.g. eth-usd)")
	pricesCmd.Flags().String("rpc", "", "archive RPC URL")
	pricesCmd.Flags().String("data-dir", "./data", "artifact root directory")
	pricesCmd.Flags().StringSlice("assets", []string{"link-usd", "eth-usd"}, "price feeds to capture")
	pricesCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(pricesCmd)

	reconcileCmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Reconcile estimated earnings against payouts",
		RunE:  runReconcile,
	}

	reconcileCmd.Flags().String("network", "", "network name (ethereum, polygon, ...)")
	reconcileCmd.Flags().String("feed", "", "feed name (e.g. eth-usd)")
	reconcileCmd.Flags().String("data-dir", "./data", "artifact root directory")
	reconcileCmd.Flags().String("pg-dsn", "", "optional Postgres DSN for mirroring totals")
	reconcileCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(reconcileCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
