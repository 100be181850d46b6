package model

import (
	"sort"

	"github.com/shopspring/decimal"
)

// NameValue is one operator's entry in a ranked metric collection.
type NameValue struct {
	Name  string          `json:"name"`
	Value decimal.Decimal `json:"value"`
}

// RankedValues is a metric collection sorted descending by value. Ties break
// on name so repeated runs produce byte-identical output.
type RankedValues []NameValue

// Rank builds a RankedValues from an operator metric map.
func Rank(values map[string]decimal.Decimal) RankedValues {
	out := make(RankedValues, 0, len(values))
	for name, value := range values {
		out = append(out, NameValue{Name: name, Value: value})
	}
	sort.Slice(out, func(i, j int) bool {
		cmp := out[i].Value.Cmp(out[j].Value)
		if cmp != 0 {
			return cmp > 0
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Get returns the value for an operator name, zero when absent.
func (r RankedValues) Get(name string) decimal.Decimal {
	for _, entry := range r {
		if entry.Name == name {
			return entry.Value
		}
	}
	return decimal.Zero
}

// EpochRange is the date span of one withdrawal epoch, delimited by
// consecutive payment timestamps.
type EpochRange struct {
	From uint64 `json:"from"`
	To   uint64 `json:"to"`
}

// EpochTotals holds the per-operator reconciliation results for one
// withdrawal epoch. Field names follow the exported totals schema.
type EpochTotals struct {
	Deviations                                     RankedValues `json:"deviations"`
	MaxDeviation                                   RankedValues `json:"maxDeviation"`
	Fees                                           RankedValues `json:"fees"`
	Payments                                       RankedValues `json:"payments"`
	Profits                                        RankedValues `json:"profits"`
	ObservationsCounts                             RankedValues `json:"observationsCounts"`
	MissedObservations                             RankedValues `json:"missedObservations"`
	ConsecutiveMissedObservations                  RankedValues `json:"consecutiveMissedObservations"`
	MaxConsecutiveMissedObservations               RankedValues `json:"maxConsecutiveMissedObservations"`
	SeparateMissedObservationsInstances            RankedValues `json:"separateMissedObservationsInstances"`
	SeparateConsecutiveMissedObservationsInstances RankedValues `json:"separateConsecutiveMissedObservationsInstances"`
	TransmissionsCounts                            RankedValues `json:"transmissionsCounts"`
	EstimatedObservationsEarnings                  RankedValues `json:"estimatedObservationsEarnings"`
	EstimatedTransmissionsEarnings                 RankedValues `json:"estimatedTransmissionsEarnings"`
	EstimatedTransmissionsRepayments               RankedValues `json:"estimatedTransmissionsRepayments"`
	EstimatedTotalEarnings                         RankedValues `json:"estimatedTotalEarnings"`
	DiffFromCalc                                   RankedValues `json:"diffFromCalc"`
	DiffFromCalcPerTransmission                    RankedValues `json:"diffFromCalcPerTransmission"`
	DiffFromCalcPerObs                             RankedValues `json:"diffFromCalcPerObs"`
}

// Totals is the full reconciliation output: one range and one totals entry
// per withdrawal epoch, in epoch order.
type Totals struct {
	Ranges []EpochRange  `json:"ranges"`
	Totals []EpochTotals `json:"totals"`
}
