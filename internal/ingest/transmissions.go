package ingest

import (
	"context"
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"oracleScope/internal/model"
	"oracleScope/internal/ocr"
	"oracleScope/internal/registry"
)

// TransmitterSource resolves the operator set active at a block.
type TransmitterSource interface {
	TransmittersAt(ctx context.Context, blockNumber uint64) ([]common.Address, error)
}

// Reconstructor joins decoded NewTransmission events with transaction and
// operator context into the wide per-operator submission table.
type Reconstructor struct {
	enricher   *Enricher
	aggregator TransmitterSource
	operators  registry.Operators
	logger     *zap.Logger
}

// NewReconstructor builds a Reconstructor with its dependencies.
func NewReconstructor(enricher *Enricher, aggregator TransmitterSource, operators registry.Operators, logger *zap.Logger) *Reconstructor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconstructor{
		enricher:   enricher,
		aggregator: aggregator,
		operators:  operators,
		logger:     logger,
	}
}

// Build converts decoded transmission events into submission records, in
// ascending block order. Malformed events are recorded and skipped; they
// never abort the run.
func (r *Reconstructor) Build(ctx context.Context, events []model.DecodedEvent) ([]model.SubmissionRecord, []model.DecodeError) {
	SortEvents(events)

	records := make([]model.SubmissionRecord, 0, len(events))
	var failures []model.DecodeError

	for _, event := range events {
		record, err := r.buildOne(ctx, event)
		if err != nil {
			r.logger.Warn("skip transmission",
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
		records = append(records, record)
	}

	return records, failures
}

func (r *Reconstructor) buildOne(ctx context.Context, event model.DecodedEvent) (model.SubmissionRecord, error) {
	tx, err := r.enricher.Info(ctx, event.TxHash)
	if err != nil {
		return model.SubmissionRecord{}, err
	}

	answer, err := ocr.ArgBigInt(event.Args, "answer")
	if err != nil {
		return model.SubmissionRecord{}, err
	}
	observations, err := ocr.ArgBigIntSlice(event.Args, "observations")
	if err != nil {
		return model.SubmissionRecord{}, err
	}
	observers, err := ocr.ArgBytes(event.Args, "observers")
	if err != nil {
		return model.SubmissionRecord{}, err
	}
	if len(observers) < len(observations) {
		return model.SubmissionRecord{}, fmt.Errorf("observer bitfield shorter than observations: %d < %d", len(observers), len(observations))
	}

	transmitters, err := r.aggregator.TransmittersAt(ctx, event.BlockNumber)
	if err != nil {
		return model.SubmissionRecord{}, err
	}

	record := model.SubmissionRecord{
		BlockNumber:      tx.BlockNumber,
		Timestamp:        tx.Timestamp,
		GasPriceGwei:     tx.GasPriceGwei,
		Fee:              tx.FeeNative,
		TxHash:           tx.Hash,
		Submitter:        tx.From,
		AggregatedAnswer: answer,
		Answers:          make(map[string]model.OperatorAnswer, len(transmitters)),
	}
	if len(observations) > 0 {
		record.MinAnswer = observations[0]
		record.MaxAnswer = observations[len(observations)-1]
	} else {
		record.MinAnswer = big.NewInt(0)
		record.MaxAnswer = big.NewInt(0)
	}

	// Every operator active at this block starts as a miss; operators
	// outside the set keep no entry at all.
	for _, transmitter := range transmitters {
		name := r.operators.Name(transmitter.Hex())
		record.Answers[name] = model.OperatorAnswer{Status: model.StatusMissed, Answer: big.NewInt(0)}
	}

	for i, observation := range observations {
		index := int(observers[i])
		if index >= len(transmitters) {
			return model.SubmissionRecord{}, fmt.Errorf("observer index %d outside transmitter set of %d", index, len(transmitters))
		}
		name := r.operators.Name(transmitters[index].Hex())
		record.Answers[name] = operatorAnswer(observation, answer)
	}

	return record, nil
}

func operatorAnswer(observation, aggregated *big.Int) model.OperatorAnswer {
	entry := model.OperatorAnswer{
		Status: model.StatusSubmitted,
		Answer: observation,
	}
	// A zero aggregated answer leaves the deviation undefined.
	if aggregated == nil || aggregated.Sign() == 0 {
		return entry
	}

	diff := new(big.Float).Sub(new(big.Float).SetInt(observation), new(big.Float).SetInt(aggregated))
	diff.Quo(diff, new(big.Float).SetInt(aggregated))
	deviation, _ := diff.Float64()
	if deviation < 0 {
		deviation = -deviation
	}

	entry.Deviation = deviation * 100
	entry.DeviationValid = true
	return entry
}

// SortEvents orders decoded events by block number, then log index.
func SortEvents(events []model.DecodedEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].BlockNumber != events[j].BlockNumber {
			return events[i].BlockNumber < events[j].BlockNumber
		}
		return events[i].LogIndex < events[j].LogIndex
	})
}

// SubmittedCount returns how many operators have a submitted answer in the
// record; it equals the round's observation count by construction.
func SubmittedCount(record model.SubmissionRecord) int {
	count := 0
	for _, answer := range record.Answers {
		if answer.Status == model.StatusSubmitted {
			count++
		}
	}
	return count
}
