package reconcile

import (
	"errors"
	"sort"

	"oracleScope/internal/model"
)

// ErrNoBillingHistory is returned when no BillingSet event has been observed
// for the feed, so no parameter set can govern any block.
var ErrNoBillingHistory = errors.New("billing history is empty")

// BillingHistory resolves the billing-parameter set active at a block from
// the sparse activation history keyed by BillingSet block number.
type BillingHistory struct {
	activations []uint64
	params      map[uint64]model.BillingParams
}

// NewBillingHistory indexes the activation map for lookups.
func NewBillingHistory(params map[uint64]model.BillingParams) BillingHistory {
	activations := make([]uint64, 0, len(params))
	for block := range params {
		activations = append(activations, block)
	}
	sort.Slice(activations, func(i, j int) bool { return activations[i] < activations[j] })
	return BillingHistory{activations: activations, params: params}
}

// Resolve returns the parameter set governing blockNumber: the entry with the
// greatest activation block not exceeding it. Blocks before the first
// activation fall back to the first entry, and the last entry applies
// indefinitely forward.
func (h BillingHistory) Resolve(blockNumber uint64) (model.BillingParams, error) {
	if len(h.activations) == 0 {
		return model.BillingParams{}, ErrNoBillingHistory
	}
	active := h.activations[0]
	for _, activation := range h.activations {
		if activation > blockNumber {
			break
		}
		active = activation
	}
	return h.params[active], nil
}

// Len reports how many activation entries the history holds.
func (h BillingHistory) Len() int {
	return len(h.activations)
}
