package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"oracleScope/internal/model"
)

// LogSource is the log-query boundary consumed by the fetcher.
type LogSource interface {
	LatestBlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, fromBlock, toBlock uint64, address common.Address, topic0 common.Hash) ([]types.Log, error)
}

// FetchConfig holds runtime settings for log retrieval.
type FetchConfig struct {
	// Chunked partitions the range into fixed windows for providers that
	// reject full-range queries.
	Chunked      bool
	ChunkSize    uint64
	MaxRetries   int
	RetryBackoff time.Duration
}

// Fetcher retrieves raw event logs for a contract/topic over a block range.
// Results preserve ascending block/log-index order: windows are requested
// and concatenated in increasing order.
type Fetcher struct {
	cfg    FetchConfig
	source LogSource
	logger *zap.Logger
}

// NewFetcher builds a Fetcher with its dependencies.
func NewFetcher(cfg FetchConfig, source LogSource, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	return &Fetcher{cfg: cfg, source: source, logger: logger}
}

// Fetch returns all logs for address/topic0 in [fromBlock, toBlock].
// A toBlock of 0 means the latest block.
func (f *Fetcher) Fetch(ctx context.Context, address common.Address, topic0 common.Hash, fromBlock, toBlock uint64) ([]model.LogRecord, error) {
	if f.source == nil {
		return nil, fmt.Errorf("log source is nil")
	}

	if toBlock == 0 {
		latest, err := f.latestWithRetry(ctx)
		if err != nil {
			return nil, fmt.Errorf("get latest block: %w", err)
		}
		toBlock = latest
	}

	if !f.cfg.Chunked {
		logs, err := f.filterWithRetry(ctx, fromBlock, toBlock, address, topic0)
		if err != nil {
			return nil, fmt.Errorf("filter logs: %w", err)
		}
		return buildLogRecords(logs), nil
	}

	ranges, err := SplitRange(fromBlock, toBlock, f.cfg.ChunkSize)
	if err != nil {
		return nil, err
	}

	records := make([]model.LogRecord, 0)
	for i, blockRange := range ranges {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		f.logger.Info("fetch logs",
			zap.Int("window", i+1),
			zap.Int("windows", len(ranges)),
			zap.Uint64("from", blockRange.From),
			zap.Uint64("to", blockRange.To),
		)

		logs, err := f.filterWithRetry(ctx, blockRange.From, blockRange.To, address, topic0)
		if err != nil {
			return nil, fmt.Errorf("filter logs %d-%d: %w", blockRange.From, blockRange.To, err)
		}
		records = append(records, buildLogRecords(logs)...)
	}

	return records, nil
}

func (f *Fetcher) latestWithRetry(ctx context.Context) (uint64, error) {
	var latest uint64
	err := withRetry(ctx, f.cfg.MaxRetries, f.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		latest, err = f.source.LatestBlockNumber(ctx)
		return err
	})
	return latest, err
}

func (f *Fetcher) filterWithRetry(ctx context.Context, fromBlock, toBlock uint64, address common.Address, topic0 common.Hash) ([]types.Log, error) {
	var logs []types.Log
	err := withRetry(ctx, f.cfg.MaxRetries, f.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		logs, err = f.source.FilterLogs(ctx, fromBlock, toBlock, address, topic0)
		if err != nil {
			f.logger.Warn("filter logs failed", zap.Error(err), zap.Uint64("from", fromBlock), zap.Uint64("to", toBlock))
		}
		return err
	})
	return logs, err
}

func buildLogRecords(logs []types.Log) []model.LogRecord {
	records := make([]model.LogRecord, 0, len(logs))
	for _, log := range logs {
		records = append(records, buildLogRecord(log))
	}
	return records
}

func buildLogRecord(log types.Log) model.LogRecord {
	topics := make([]string, 0, len(log.Topics))
	for _, topic := range log.Topics {
		topics = append(topics, topic.Hex())
	}

	return model.LogRecord{
		BlockNumber: log.BlockNumber,
		BlockHash:   log.BlockHash.Hex(),
		TxHash:      log.TxHash.Hex(),
		TxIndex:     uint64(log.TxIndex),
		LogIndex:    uint64(log.Index),
		Address:     log.Address.Hex(),
		Topics:      topics,
		Data:        hexutil.Encode(log.Data),
		Removed:     log.Removed,
	}
}
