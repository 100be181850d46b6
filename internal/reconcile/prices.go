package reconcile

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// PriceTable maps settlement block numbers to a quote-asset USD price. The
// tables are produced by the prices stage, one per asset per feed.
type PriceTable struct {
	prices map[uint64]decimal.Decimal
}

// NewPriceTable builds a table from raw block-to-price pairs.
func NewPriceTable(prices map[uint64]float64) PriceTable {
	table := make(map[uint64]decimal.Decimal, len(prices))
	for block, price := range prices {
		table[block] = decimal.NewFromFloat(price)
	}
	return PriceTable{prices: table}
}

// At returns the price recorded for a settlement block. Missing entries are
// an error: reconciliation must not silently value an epoch at zero.
func (t PriceTable) At(blockNumber uint64) (decimal.Decimal, error) {
	price, ok := t.prices[blockNumber]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("no price recorded for block %d", blockNumber)
	}
	return price, nil
}

// Len reports how many settlement blocks the table covers.
func (t PriceTable) Len() int {
	return len(t.prices)
}
