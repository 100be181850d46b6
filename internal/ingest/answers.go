package ingest

import (
	"math"
	"math/big"

	"go.uber.org/zap"

	"oracleScope/internal/model"
	"oracleScope/internal/ocr"
)

// BuildAnswers converts decoded AnswerUpdated events into the feed's answer
// timeline, scaled by the contract's decimals.
func BuildAnswers(events []model.DecodedEvent, decimals uint8, logger *zap.Logger) ([]model.AnswerRecord, []model.DecodeError) {
	if logger == nil {
		logger = zap.NewNop()
	}
	SortEvents(events)

	divisor := math.Pow10(int(decimals))
	answers := make([]model.AnswerRecord, 0, len(events))
	var failures []model.DecodeError

	for _, event := range events {
		record, err := answerFromArgs(event.Args, divisor)
		if err != nil {
			logger.Warn("skip answer event",
				zap.Uint64("block", event.BlockNumber),
				zap.String("tx", event.TxHash),
				zap.Error(err),
			)
			failures = append(failures, model.DecodeError{
				BlockNumber: event.BlockNumber,
				TxHash:      event.TxHash,
				LogIndex:    event.LogIndex,
				Address:     event.Address,
				EventName:   event.Name,
				Error:       err.Error(),
			})
			continue
		}
		answers = append(answers, record)
	}

	return answers, failures
}

func answerFromArgs(args map[string]interface{}, divisor float64) (model.AnswerRecord, error) {
	current, err := ocr.ArgBigInt(args, "current")
	if err != nil {
		return model.AnswerRecord{}, err
	}
	updatedAt, err := ocr.ArgUint64(args, "updatedAt")
	if err != nil {
		return model.AnswerRecord{}, err
	}
	value, _ := new(big.Float).SetInt(current).Float64()
	return model.AnswerRecord{
		Timestamp: updatedAt,
		Answer:    value / divisor,
	}, nil
}
