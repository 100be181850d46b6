package ingest

import (
	"context"
	"math"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"oracleScope/internal/chain"
)

type fakeReceiptSource struct {
	receipts map[common.Hash]*chain.Receipt
	fetches  int
}

func (f *fakeReceiptSource) TransactionReceipt(ctx context.Context, txHash common.Hash) (*chain.Receipt, error) {
	f.fetches++
	return f.receipts[txHash], nil
}

func (f *fakeReceiptSource) BlockTimestamp(ctx context.Context, number uint64) (uint64, error) {
	return 1_700_000_000 + number, nil
}

func TestEnricherDerivesGasFields(t *testing.T) {
	hash := common.HexToHash("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	sender := common.HexToAddress("0x2222222222222222222222222222222222222222")
	// 30 gwei effective price, 100000 gas used.
	source := &fakeReceiptSource{receipts: map[common.Hash]*chain.Receipt{
		hash: {
			BlockNumber:       hexutil.Uint64(1234),
			From:              sender,
			GasUsed:           hexutil.Uint64(100_000),
			EffectiveGasPrice: (*hexutil.Big)(big.NewInt(30_000_000_000)),
		},
	}}

	enricher := NewEnricher(source)
	info, err := enricher.Info(context.Background(), hash.Hex())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if info.BlockNumber != 1234 {
		t.Fatalf("block mismatch: %d", info.BlockNumber)
	}
	if info.Timestamp != 1_700_000_000+1234 {
		t.Fatalf("timestamp mismatch: %d", info.Timestamp)
	}
	if math.Abs(info.GasPriceGwei-30) > 1e-9 {
		t.Fatalf("gas price mismatch: %f", info.GasPriceGwei)
	}
	// 100000 * 30 gwei = 0.003 native units.
	if math.Abs(info.FeeNative-0.003) > 1e-12 {
		t.Fatalf("fee mismatch: %f", info.FeeNative)
	}
	if info.From != "0x2222222222222222222222222222222222222222" {
		t.Fatalf("sender mismatch: %s", info.From)
	}
}

func TestEnricherMemoizesByHash(t *testing.T) {
	hash := common.HexToHash("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	source := &fakeReceiptSource{receipts: map[common.Hash]*chain.Receipt{
		hash: {
			BlockNumber:       hexutil.Uint64(9),
			GasUsed:           hexutil.Uint64(21_000),
			EffectiveGasPrice: (*hexutil.Big)(big.NewInt(1_000_000_000)),
		},
	}}

	enricher := NewEnricher(source)
	for i := 0; i < 5; i++ {
		// Mixed-case hashes must share one cache entry.
		key := hash.Hex()
		if i%2 == 1 {
			key = "0x" + "BBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB"
		}
		if _, err := enricher.Info(context.Background(), key); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if source.fetches != 1 {
		t.Fatalf("expected exactly one remote fetch, got %d", source.fetches)
	}
	if enricher.Cached() != 1 {
		t.Fatalf("expected one cache entry, got %d", enricher.Cached())
	}
}
