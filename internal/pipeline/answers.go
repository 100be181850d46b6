package pipeline

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"oracleScope/internal/chain"
	"oracleScope/internal/ingest"
	"oracleScope/internal/model"
	"oracleScope/internal/ocr"
	"oracleScope/internal/registry"
	"oracleScope/internal/storage"
)

// Answers captures the feed's aggregated-answer timeline: every
// AnswerUpdated event from the start date, scaled by the contract's
// decimals.
type Answers struct {
	client     ChainClient
	fetcher    *ingest.Fetcher
	decoder    *ocr.Decoder
	aggregator *ocr.Aggregator
	feed       registry.Feed
	artifacts  storage.Artifacts
	journal    *storage.DecodeErrorJournal
	logger     *zap.Logger
}

// NewAnswers wires an answers run for one feed.
func NewAnswers(client ChainClient, cfg ingest.FetchConfig, family ocr.Family, feed registry.Feed, artifacts storage.Artifacts, logger *zap.Logger) (*Answers, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	decoder, err := ocr.NewDecoder(family)
	if err != nil {
		return nil, err
	}
	aggregator, err := ocr.NewAggregator(common.HexToAddress(feed.Address), family, client)
	if err != nil {
		return nil, err
	}
	return &Answers{
		client:     client,
		fetcher:    ingest.NewFetcher(cfg, client, logger),
		decoder:    decoder,
		aggregator: aggregator,
		feed:       feed,
		artifacts:  artifacts,
		journal:    storage.NewDecodeErrorJournal(artifacts.DecodeErrorsPath()),
		logger:     logger,
	}, nil
}

// Run fetches the answer timeline from the block at startDate to the current
// head. An existing snapshot is reused instead of refetched.
func (a *Answers) Run(ctx context.Context, startDate string) ([]model.AnswerRecord, error) {
	path := a.artifacts.AnswersPath()
	if storage.Exists(path) {
		a.logger.Info("answers snapshot exists, skipping fetch", zap.String("path", path))
		return storage.ReadAnswersCSV(path)
	}

	startBlock, err := chain.FindBlockByDate(ctx, a.client, startDate)
	if err != nil {
		return nil, fmt.Errorf("resolve start block for %s: %w", startDate, err)
	}
	headBlock, err := a.client.LatestBlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve head block: %w", err)
	}

	topic0, err := a.decoder.Topic0("AnswerUpdated")
	if err != nil {
		return nil, err
	}
	logs, err := a.fetcher.Fetch(ctx, common.HexToAddress(a.feed.Address), topic0, startBlock, headBlock)
	if err != nil {
		return nil, err
	}

	events := make([]model.DecodedEvent, 0, len(logs))
	var failures []model.DecodeError
	for _, record := range logs {
		event, err := a.decoder.Decode(record)
		if err != nil {
			a.logger.Warn("skip undecodable log",
				zap.Uint64("block", record.BlockNumber),
				zap.String("tx", record.TxHash),
				zap.Error(err),
			)
			failures = append(failures, model.DecodeError{
				BlockNumber: record.BlockNumber,
				TxHash:      record.TxHash,
				LogIndex:    record.LogIndex,
				Address:     record.Address,
				Topic0:      firstTopic(record),
				EventName:   "AnswerUpdated",
				Error:       err.Error(),
			})
			continue
		}
		events = append(events, event)
	}

	decimals, err := a.aggregator.Decimals(ctx)
	if err != nil {
		return nil, fmt.Errorf("decimals: %w", err)
	}

	answers, buildFailures := ingest.BuildAnswers(events, decimals, a.logger)
	failures = append(failures, buildFailures...)
	if err := a.journal.Append(failures); err != nil {
		return nil, err
	}
	if err := storage.WriteAnswersCSV(path, answers); err != nil {
		return nil, err
	}
	a.logger.Info("answers written", zap.String("path", path), zap.Int("rows", len(answers)))
	return answers, nil
}
