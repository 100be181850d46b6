package chain

import (
	"context"
	"errors"
	"testing"
)

// fakeChain serves timestamps from a dense slice: block i has timestamp ts[i].
type fakeChain struct {
	ts      []uint64
	lookups int
}

func (f *fakeChain) LatestBlockNumber(ctx context.Context) (uint64, error) {
	return uint64(len(f.ts) - 1), nil
}

func (f *fakeChain) BlockTimestamp(ctx context.Context, number uint64) (uint64, error) {
	if number >= uint64(len(f.ts)) {
		return 0, errors.New("unknown block")
	}
	f.lookups++
	return f.ts[number], nil
}

func TestFindBlockByTimestamp(t *testing.T) {
	// Uneven gaps between blocks.
	fake := &fakeChain{ts: []uint64{100, 112, 125, 125, 140, 200, 203}}

	cases := []struct {
		target uint64
		want   uint64
	}{
		{100, 0},
		{111, 0},
		{112, 1},
		{125, 3},
		{139, 3},
		{140, 4},
		{199, 4},
		{200, 5},
		{203, 6},
	}

	for _, tc := range cases {
		got, err := FindBlockByTimestamp(context.Background(), fake, tc.target)
		if err != nil {
			t.Fatalf("target %d: unexpected error: %v", tc.target, err)
		}
		if got != tc.want {
			t.Fatalf("target %d: got block %d, want %d", tc.target, got, tc.want)
		}
		if fake.ts[got] > tc.target {
			t.Fatalf("target %d: block %d timestamp exceeds target", tc.target, got)
		}
		if got+1 < uint64(len(fake.ts)) && fake.ts[got+1] <= tc.target {
			t.Fatalf("target %d: block %d is not the highest match", tc.target, got)
		}
	}
}

func TestFindBlockByTimestampMonotonic(t *testing.T) {
	fake := &fakeChain{ts: []uint64{10, 20, 30, 40, 50, 60, 70, 80}}

	var prev uint64
	for target := uint64(10); target <= 79; target++ {
		got, err := FindBlockByTimestamp(context.Background(), fake, target)
		if err != nil {
			t.Fatalf("target %d: unexpected error: %v", target, err)
		}
		if got < prev {
			t.Fatalf("target %d: result %d not monotonic (prev %d)", target, got, prev)
		}
		prev = got
	}
}

func TestFindBlockByTimestampBounds(t *testing.T) {
	fake := &fakeChain{ts: []uint64{100, 110, 120}}

	if _, err := FindBlockByTimestamp(context.Background(), fake, 99); !errors.Is(err, ErrBeforeGenesis) {
		t.Fatalf("expected ErrBeforeGenesis, got %v", err)
	}
	if _, err := FindBlockByTimestamp(context.Background(), fake, 121); !errors.Is(err, ErrInFuture) {
		t.Fatalf("expected ErrInFuture, got %v", err)
	}

	got, err := FindBlockByTimestamp(context.Background(), fake, 120)
	if err != nil {
		t.Fatalf("unexpected error at latest timestamp: %v", err)
	}
	if got != 2 {
		t.Fatalf("latest timestamp should resolve to latest block, got %d", got)
	}
}

func TestFindBlockByDate(t *testing.T) {
	// 2023-01-01 UTC is 1672531200.
	fake := &fakeChain{ts: []uint64{1672531100, 1672531199, 1672531200, 1672531260}}

	got, err := FindBlockByDate(context.Background(), fake, "2023-01-01")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 2 {
		t.Fatalf("got block %d, want 2", got)
	}

	if _, err := FindBlockByDate(context.Background(), fake, "not-a-date"); err == nil {
		t.Fatalf("expected error for malformed date")
	}
}
