package model

import "math/big"

// SubmissionStatus separates an operator who was active but silent from one
// that was not part of the round's transmitter set. The exported CSV schema
// keeps the distinction: a miss is the 0 sentinel, an inactive operator an
// empty cell, so snapshots reload without conflating the two.
type SubmissionStatus int

const (
	StatusInactive SubmissionStatus = iota
	StatusMissed
	StatusSubmitted
)

// OperatorAnswer is one operator's submission within a round.
type OperatorAnswer struct {
	Status SubmissionStatus
	// Answer is the raw on-chain observation (unscaled int192 value).
	Answer *big.Int
	// Deviation is |(answer - aggregated) / aggregated| * 100. Only
	// meaningful when DeviationValid is true; a zero aggregated answer
	// leaves the deviation undefined rather than dividing by zero.
	Deviation      float64
	DeviationValid bool
}

// SubmissionRecord is one row of the wide per-operator submission table,
// one per NewTransmission event.
type SubmissionRecord struct {
	BlockNumber      uint64
	Timestamp        uint64
	GasPriceGwei     float64
	Fee              float64
	TxHash           string
	Submitter        string
	AggregatedAnswer *big.Int
	MinAnswer        *big.Int
	MaxAnswer        *big.Int
	// Answers is keyed by operator display name; absent keys mean the
	// operator was not in the round's transmitter set.
	Answers map[string]OperatorAnswer
}

// AnswerFor returns the raw answer for the named operator with the exported
// 0 sentinel applied for missed and inactive operators.
func (r SubmissionRecord) AnswerFor(name string) *big.Int {
	answer, ok := r.Answers[name]
	if !ok || answer.Status != StatusSubmitted || answer.Answer == nil {
		return big.NewInt(0)
	}
	return answer.Answer
}

// DeviationFor returns the exported deviation for the named operator,
// 0 for missed, inactive, or deviation-undefined rounds.
func (r SubmissionRecord) DeviationFor(name string) float64 {
	answer, ok := r.Answers[name]
	if !ok || answer.Status != StatusSubmitted || !answer.DeviationValid {
		return 0
	}
	return answer.Deviation
}
