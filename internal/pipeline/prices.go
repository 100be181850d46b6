package pipeline

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"oracleScope/internal/chain"
	"oracleScope/internal/model"
	"oracleScope/internal/ocr"
	"oracleScope/internal/registry"
	"oracleScope/internal/storage"
)

// Prices captures quote-asset prices at every settlement block by reading
// each asset's own price-feed aggregator at those historical blocks. The
// client must point at an archive node.
type Prices struct {
	client    *chain.Client
	network   string
	dataDir   string
	artifacts storage.Artifacts
	logger    *zap.Logger
}

func NewPrices(client *chain.Client, network, dataDir string, artifacts storage.Artifacts, logger *zap.Logger) *Prices {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Prices{
		client:    client,
		network:   network,
		dataDir:   dataDir,
		artifacts: artifacts,
		logger:    logger,
	}
}

// Run writes one prices/<asset>.json table per asset, keyed by settlement
// block. Existing tables are kept as-is.
func (p *Prices) Run(ctx context.Context, assets []string) error {
	payments, err := storage.ReadPaymentsCSV(p.artifacts.PaymentsPath())
	if err != nil {
		return fmt.Errorf("payments snapshot is required before prices: %w", err)
	}
	blocks := settlementBlocks(payments)
	if len(blocks) == 0 {
		return fmt.Errorf("payment history is empty, nothing to price")
	}

	for _, asset := range assets {
		path := p.artifacts.PricesPath(asset)
		if storage.Exists(path) {
			p.logger.Info("price table exists, skipping", zap.String("asset", asset), zap.String("path", path))
			continue
		}
		prices, err := p.assetPrices(ctx, asset, blocks)
		if err != nil {
			return fmt.Errorf("asset %s: %w", asset, err)
		}
		if err := storage.WriteJSON(path, prices); err != nil {
			return fmt.Errorf("asset %s: %w", asset, err)
		}
		p.logger.Info("price table written",
			zap.String("asset", asset),
			zap.String("path", path),
			zap.Int("blocks", len(prices)),
		)
	}
	return nil
}

func (p *Prices) assetPrices(ctx context.Context, asset string, blocks []uint64) (map[uint64]float64, error) {
	feed, err := registry.LoadFeed(p.dataDir, p.network+"/mainnet/"+asset)
	if err != nil {
		return nil, err
	}
	aggregator, err := ocr.NewAggregator(common.HexToAddress(feed.Address), ocr.FamilyForNetwork(p.network), p.client)
	if err != nil {
		return nil, err
	}
	decimals, err := aggregator.Decimals(ctx)
	if err != nil {
		return nil, fmt.Errorf("decimals: %w", err)
	}
	divisor := math.Pow10(int(decimals))

	prices := make(map[uint64]float64, len(blocks))
	for _, block := range blocks {
		answer, err := aggregator.LatestAnswerAt(ctx, block)
		if err != nil {
			// A pruned or pre-deploy block has no answer; reconciliation
			// will fail loudly on the missing entry if it needs it.
			p.logger.Warn("no price at block",
				zap.String("asset", asset),
				zap.Uint64("block", block),
				zap.Error(err),
			)
			continue
		}
		value, _ := new(big.Float).SetInt(answer).Float64()
		prices[block] = value / divisor
	}
	return prices, nil
}

func settlementBlocks(payments []model.PaymentRecord) []uint64 {
	seen := make(map[uint64]struct{}, len(payments))
	blocks := make([]uint64, 0, len(payments))
	for _, payment := range payments {
		if _, ok := seen[payment.BlockNumber]; ok {
			continue
		}
		seen[payment.BlockNumber] = struct{}{}
		blocks = append(blocks, payment.BlockNumber)
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i] < blocks[j] })
	return blocks
}
