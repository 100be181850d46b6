package model

// AnswerRecord is one AnswerUpdated event: the feed's aggregated answer,
// scaled by the contract's decimals, at the update timestamp.
type AnswerRecord struct {
	Timestamp uint64
	Answer    float64
}
