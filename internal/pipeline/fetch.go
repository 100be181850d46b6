// Package pipeline orchestrates the stages: fetch raw history into CSV/JSON
// artifacts, capture settlement prices, and reconcile earnings. Each stage
// short-circuits when its artifact already exists, so a run is resumable at
// every stage boundary.
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

// ChainClient is the node boundary the fetch stage needs. *chain.Client
// satisfies it.
type ChainClient interface {
	chain.BlockReader
	ingest.LogSource
	ingest.ReceiptSource
	ocr.ContractCaller
}

// Fetch pulls the feed's transmission, payment, and billing history from the
// chain and persists the reconstructed tables.
type Fetch struct {
	client     ChainClient
	fetcher    *ingest.Fetcher
	decoder    *ocr.Decoder
	aggregator *ocr.Aggregator
	enricher   *ingest.Enricher
	operators  registry.Operators
	feed       registry.Feed
	artifacts  storage.Artifacts
	journal    *storage.DecodeErrorJournal
	logger     *zap.Logger
}

// NewFetch wires a fetch run for one feed.
func NewFetch(client ChainClient, cfg ingest.FetchConfig, family ocr.Family, feed registry.Feed, operators registry.Operators, artifacts storage.Artifacts, logger *zap.Logger) (*Fetch, error) {
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
	return &Fetch{
		client:     client,
		fetcher:    ingest.NewFetcher(cfg, client, logger),
		decoder:    decoder,
		aggregator: aggregator,
		enricher:   ingest.NewEnricher(client),
		operators:  operators,
		feed:       feed,
		artifacts:  artifacts,
		journal:    storage.NewDecodeErrorJournal(artifacts.DecodeErrorsPath()),
		logger:     logger,
	}, nil
}

// Run fetches everything from the block at startDate forward. The head block
// is resolved once so all artifacts of one run cover the same window.
// Existing artifacts are reused instead of refetched.
func (f *Fetch) Run(ctx context.Context, startDate string) error {
	startBlock, err := chain.FindBlockByDate(ctx, f.client, startDate)
	if err != nil {
		return fmt.Errorf("resolve start block for %s: %w", startDate, err)
	}
	headBlock, err := f.client.LatestBlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("resolve head block: %w", err)
	}
	f.logger.Info("resolved fetch window",
		zap.String("date", startDate),
		zap.Uint64("startBlock", startBlock),
		zap.Uint64("headBlock", headBlock),
	)

	payments, err := f.payments(ctx, startBlock, headBlock)
	if err != nil {
		return fmt.Errorf("payments: %w", err)
	}
	records, err := f.transmissions(ctx, startBlock, headBlock)
	if err != nil {
		return fmt.Errorf("transmissions: %w", err)
	}
	if err := f.billing(ctx, headBlock); err != nil {
		return fmt.Errorf("billing params: %w", err)
	}

	if err := storage.WriteOperatorSlices(f.artifacts, f.operators, records, payments); err != nil {
		return fmt.Errorf("operator slices: %w", err)
	}
	return nil
}

func (f *Fetch) payments(ctx context.Context, startBlock, headBlock uint64) ([]model.PaymentRecord, error) {
	path := f.artifacts.PaymentsPath()
	if storage.Exists(path) {
		f.logger.Info("payments snapshot exists, skipping fetch", zap.String("path", path))
		return storage.ReadPaymentsCSV(path)
	}

	events, err := f.fetchDecoded(ctx, "OraclePaid", startBlock, headBlock)
	if err != nil {
		return nil, err
	}
	payments, failures := ingest.BuildPayments(ctx, f.enricher, f.operators, events, f.logger)
	if err := f.journal.Append(failures); err != nil {
		return nil, err
	}
	if err := storage.WritePaymentsCSV(path, payments); err != nil {
		return nil, err
	}
	f.logger.Info("payments written", zap.String("path", path), zap.Int("rows", len(payments)))
	return payments, nil
}

func (f *Fetch) transmissions(ctx context.Context, startBlock, headBlock uint64) ([]model.SubmissionRecord, error) {
	path := f.artifacts.TransmissionsPath()
	if storage.Exists(path) {
		f.logger.Info("transmissions snapshot exists, skipping fetch", zap.String("path", path))
		return storage.ReadTransmissionsCSV(path, f.operators)
	}

	events, err := f.fetchDecoded(ctx, "NewTransmission", startBlock, headBlock)
	if err != nil {
		return nil, err
	}
	reconstructor := ingest.NewReconstructor(f.enricher, f.aggregator, f.operators, f.logger)
	records, failures := reconstructor.Build(ctx, events)
	if err := f.journal.Append(failures); err != nil {
		return nil, err
	}
	if err := storage.WriteTransmissionsCSV(path, f.operators, records); err != nil {
		return nil, err
	}
	f.logger.Info("transmissions written", zap.String("path", path), zap.Int("rows", len(records)))
	return records, nil
}

func (f *Fetch) billing(ctx context.Context, headBlock uint64) error {
	path := f.artifacts.BillingParamsPath()
	if storage.Exists(path) {
		f.logger.Info("billing snapshot exists, skipping fetch", zap.String("path", path))
		return nil
	}

	// BillingSet history is fetched from genesis: parameters set before the
	// start date still govern the first epochs.
	events, err := f.fetchDecoded(ctx, "BillingSet", 0, headBlock)
	if err != nil {
		return err
	}
	history, failures := ingest.BuildBillingHistory(events, f.logger)
	if err := f.journal.Append(failures); err != nil {
		return err
	}
	if err := storage.WriteJSON(path, history); err != nil {
		return err
	}
	f.logger.Info("billing params written", zap.String("path", path), zap.Int("entries", len(history)))
	return nil
}

// fetchDecoded pulls raw logs for one event and decodes them, recording and
// skipping malformed logs.
func (f *Fetch) fetchDecoded(ctx context.Context, eventName string, fromBlock, toBlock uint64) ([]model.DecodedEvent, error) {
	topic0, err := f.decoder.Topic0(eventName)
	if err != nil {
		return nil, err
	}
	logs, err := f.fetcher.Fetch(ctx, common.HexToAddress(f.feed.Address), topic0, fromBlock, toBlock)
	if err != nil {
		return nil, err
	}

	events := make([]model.DecodedEvent, 0, len(logs))
	var failures []model.DecodeError
	for _, record := range logs {
		event, err := f.decoder.Decode(record)
		if err != nil {
			f.logger.Warn("skip undecodable log",
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
				EventName:   eventName,
				Error:       err.Error(),
			})
			continue
		}
		events = append(events, event)
	}
	if err := f.journal.Append(failures); err != nil {
		return nil, err
	}
	f.logger.Info("decoded logs",
		zap.String("event", eventName),
		zap.Int("decoded", len(events)),
		zap.Int("skipped", len(failures)),
	)
	return events, nil
}

func firstTopic(record model.LogRecord) string {
	if len(record.Topics) == 0 {
		return ""
	}
	return record.Topics[0]
}
