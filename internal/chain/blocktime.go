package chain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrBeforeGenesis is returned when the requested date precedes the chain's
// first block.
var ErrBeforeGenesis = errors.New("date precedes chain genesis")

// ErrInFuture is returned when the requested date is past the latest block.
var ErrInFuture = errors.New("date is in the future")

// BlockReader is the subset of Client used by the block-by-time search.
type BlockReader interface {
	LatestBlockNumber(ctx context.Context) (uint64, error)
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
}

// FindBlockByDate resolves a YYYY-MM-DD date (UTC midnight) to the highest
// block whose timestamp does not exceed it.
func FindBlockByDate(ctx context.Context, reader BlockReader, date string) (uint64, error) {
	parsed, err := time.Parse("2006-01-02", date)
	if err != nil {
		return 0, fmt.Errorf("parse date %q: %w", date, err)
	}
	return FindBlockByTimestamp(ctx, reader, uint64(parsed.UTC().Unix()))
}

// FindBlockByTimestamp returns the highest block b with
// timestamp(b) <= target < timestamp(b+1), via binary search over
// [0, latest]. One remote timestamp lookup per probed block.
func FindBlockByTimestamp(ctx context.Context, reader BlockReader, target uint64) (uint64, error) {
	latest, err := reader.LatestBlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("get latest block: %w", err)
	}

	genesisTs, err := reader.BlockTimestamp(ctx, 0)
	if err != nil {
		return 0, fmt.Errorf("block 0 timestamp: %w", err)
	}
	if target < genesisTs {
		return 0, fmt.Errorf("target %d: %w", target, ErrBeforeGenesis)
	}

	latestTs, err := reader.BlockTimestamp(ctx, latest)
	if err != nil {
		return 0, fmt.Errorf("block %d timestamp: %w", latest, err)
	}
	if target >= latestTs {
		if target == latestTs {
			return latest, nil
		}
		return 0, fmt.Errorf("target %d: %w", target, ErrInFuture)
	}

	low, high := uint64(0), latest
	for low <= high {
		mid := (low + high) / 2
		midTs, err := reader.BlockTimestamp(ctx, mid)
		if err != nil {
			return 0, fmt.Errorf("block %d timestamp: %w", mid, err)
		}

		if midTs <= target {
			nextTs, err := reader.BlockTimestamp(ctx, mid+1)
			if err != nil {
				return 0, fmt.Errorf("block %d timestamp: %w", mid+1, err)
			}
			if nextTs > target {
				return mid, nil
			}
			low = mid + 1
		} else {
			if mid == 0 {
				break
			}
			high = mid - 1
		}
	}

	return 0, fmt.Errorf("target %d: no block found", target)
}
