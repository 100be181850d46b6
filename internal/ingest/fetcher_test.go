package ingest

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// fakeLogSource serves logs stored per block and counts requests.
type fakeLogSource struct {
	latest   uint64
	logs     []types.Log
	requests int
	failures int
}

func (f *fakeLogSource) LatestBlockNumber(ctx context.Context) (uint64, error) {
	return f.latest, nil
}

func (f *fakeLogSource) FilterLogs(ctx context.Context, fromBlock, toBlock uint64, address common.Address, topic0 common.Hash) ([]types.Log, error) {
	f.requests++
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("rate limited")
	}

	out := make([]types.Log, 0)
	for _, log := range f.logs {
		if log.BlockNumber >= fromBlock && log.BlockNumber <= toBlock {
			out = append(out, log)
		}
	}
	return out, nil
}

func testLogs(blocks ...uint64) []types.Log {
	logs := make([]types.Log, 0, len(blocks))
	for i, block := range blocks {
		logs = append(logs, types.Log{
			BlockNumber: block,
			Index:       uint(i),
			TxHash:      common.BigToHash(common.Big1),
		})
	}
	return logs
}

func TestFetchChunkedMatchesFullRange(t *testing.T) {
	address := common.HexToAddress("0x1111111111111111111111111111111111111111")
	topic := common.BigToHash(common.Big2)
	logs := testLogs(5, 17, 17, 42, 99, 100, 101, 250)

	full := &fakeLogSource{latest: 300, logs: logs}
	wantRecords, err := NewFetcher(FetchConfig{}, full, nil).Fetch(context.Background(), address, topic, 0, 300)
	if err != nil {
		t.Fatalf("full-range fetch: %v", err)
	}

	for _, chunk := range []uint64{1, 7, 50, 100, 1000} {
		chunked := &fakeLogSource{latest: 300, logs: logs}
		fetcher := NewFetcher(FetchConfig{Chunked: true, ChunkSize: chunk}, chunked, nil)

		got, err := fetcher.Fetch(context.Background(), address, topic, 0, 300)
		if err != nil {
			t.Fatalf("chunk %d: %v", chunk, err)
		}
		if !reflect.DeepEqual(got, wantRecords) {
			t.Fatalf("chunk %d: results differ from full range", chunk)
		}
	}
}

func TestFetchOrdersAscending(t *testing.T) {
	source := &fakeLogSource{latest: 400, logs: testLogs(10, 20, 150, 260, 399)}
	fetcher := NewFetcher(FetchConfig{Chunked: true, ChunkSize: 100}, source, nil)

	records, err := fetcher.Fetch(context.Background(), common.Address{}, common.Hash{}, 0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 5 {
		t.Fatalf("expected 5 records, got %d", len(records))
	}
	for i := 1; i < len(records); i++ {
		if records[i].BlockNumber < records[i-1].BlockNumber {
			t.Fatalf("records out of order at %d", i)
		}
	}
}

func TestFetchRetriesTransientFailures(t *testing.T) {
	source := &fakeLogSource{latest: 50, logs: testLogs(12), failures: 2}
	fetcher := NewFetcher(FetchConfig{MaxRetries: 3, RetryBackoff: 1}, source, nil)

	records, err := fetcher.Fetch(context.Background(), common.Address{}, common.Hash{}, 0, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if source.requests != 3 {
		t.Fatalf("expected 3 attempts, got %d", source.requests)
	}
}

func TestFetchExhaustedRetriesFails(t *testing.T) {
	source := &fakeLogSource{latest: 50, failures: 10}
	fetcher := NewFetcher(FetchConfig{MaxRetries: 2, RetryBackoff: 1}, source, nil)

	if _, err := fetcher.Fetch(context.Background(), common.Address{}, common.Hash{}, 0, 50); err == nil {
		t.Fatalf("expected error after exhausted retries")
	}
}
