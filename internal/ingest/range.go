package ingest

import "fmt"

// DefaultChunkSize is the block window used for chunked log queries. It is a
// tunable constant honoring provider limits, not a protocol limit discovered
// dynamically.
const DefaultChunkSize uint64 = 100_000

// BlockRange represents an inclusive block range.
type BlockRange struct {
	From uint64
	To   uint64
}

// SplitRange splits a block range into windows of size chunkSize.
func SplitRange(from, to, chunkSize uint64) ([]BlockRange, error) {
	if chunkSize == 0 {
		return nil, fmt.Errorf("chunk size must be greater than zero")
	}
	if to < from {
		return nil, fmt.Errorf("to block must be >= from block")
	}

	ranges := make([]BlockRange, 0)
	start := from
	for start <= to {
		remaining := to - start + 1
		var end uint64
		if remaining <= chunkSize {
			end = to
		} else {
			end = start + chunkSize - 1
		}
		ranges = append(ranges, BlockRange{From: start, To: end})
		if end == to {
			break
		}
		start = end + 1
	}

	return ranges, nil
}
