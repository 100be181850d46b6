package ingest

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"oracleScope/internal/chain"
	"oracleScope/internal/model"
)

// ReceiptSource is the transaction metadata boundary.
type ReceiptSource interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*chain.Receipt, error)
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
}

// Enricher resolves per-transaction metadata, memoized by hash for the run.
// A transaction may emit multiple logs; enrichment costs exactly one remote
// round trip per unique hash. The lock is held across the fetch so
// concurrent callers for the same hash coalesce on one request.
type Enricher struct {
	source ReceiptSource

	mu    sync.Mutex
	cache map[string]model.TransactionInfo
}

// NewEnricher builds an Enricher over a receipt source.
func NewEnricher(source ReceiptSource) *Enricher {
	return &Enricher{
		source: source,
		cache:  make(map[string]model.TransactionInfo),
	}
}

// Info returns enriched metadata for a transaction hash.
func (e *Enricher) Info(ctx context.Context, txHash string) (model.TransactionInfo, error) {
	key := strings.ToLower(txHash)

	e.mu.Lock()
	defer e.mu.Unlock()

	if info, ok := e.cache[key]; ok {
		return info, nil
	}

	receipt, err := e.source.TransactionReceipt(ctx, common.HexToHash(key))
	if err != nil {
		return model.TransactionInfo{}, fmt.Errorf("receipt %s: %w", key, err)
	}

	blockNumber := uint64(receipt.BlockNumber)
	timestamp, err := e.source.BlockTimestamp(ctx, blockNumber)
	if err != nil {
		return model.TransactionInfo{}, fmt.Errorf("block %d timestamp: %w", blockNumber, err)
	}

	effective := big.NewInt(0)
	if receipt.EffectiveGasPrice != nil {
		effective = receipt.EffectiveGasPrice.ToInt()
	}
	effectiveFloat, _ := new(big.Float).SetInt(effective).Float64()

	to := ""
	if receipt.To != nil {
		to = strings.ToLower(receipt.To.Hex())
	}

	info := model.TransactionInfo{
		Hash:         key,
		BlockNumber:  blockNumber,
		Timestamp:    timestamp,
		From:         strings.ToLower(receipt.From.Hex()),
		To:           to,
		GasPriceGwei: effectiveFloat / 1e9,
		FeeNative:    float64(receipt.GasUsed) * effectiveFloat / 1e18,
	}

	e.cache[key] = info
	return info, nil
}

// Cached reports how many unique transactions have been enriched.
func (e *Enricher) Cached() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.cache)
}
