package ingest

import (
	"strings"

	"go.uber.org/zap"

	"oracleScope/internal/model"
	"oracleScope/internal/ocr"
)

func lowerHex(s string) string { return strings.ToLower(s) }

// BuildBillingHistory converts decoded BillingSet events into the sparse
// activation-block → parameters mapping. A parameter set is valid from its
// activation block up to the next-higher activation block.
func BuildBillingHistory(events []model.DecodedEvent, logger *zap.Logger) (map[uint64]model.BillingParams, []model.DecodeError) {
	if logger == nil {
		logger = zap.NewNop()
	}
	SortEvents(events)

	history := make(map[uint64]model.BillingParams, len(events))
	var failures []model.DecodeError

	for _, event := range events {
		params, err := billingFromArgs(event.Args)
		if err != nil {
			logger.Warn("skip billing event",
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
		history[event.BlockNumber] = params
	}

	return history, failures
}

func billingFromArgs(args map[string]interface{}) (model.BillingParams, error) {
	maximumGasPrice, err := ocr.ArgUint64(args, "maximumGasPrice")
	if err != nil {
		return model.BillingParams{}, err
	}
	reasonableGasPrice, err := ocr.ArgUint64(args, "reasonableGasPrice")
	if err != nil {
		return model.BillingParams{}, err
	}
	microLinkPerEth, err := ocr.ArgUint64(args, "microLinkPerEth")
	if err != nil {
		return model.BillingParams{}, err
	}
	linkGweiPerObservation, err := ocr.ArgUint64(args, "linkGweiPerObservation")
	if err != nil {
		return model.BillingParams{}, err
	}
	linkGweiPerTransmission, err := ocr.ArgUint64(args, "linkGweiPerTransmission")
	if err != nil {
		return model.BillingParams{}, err
	}

	return model.BillingParams{
		MaximumGasPrice:         maximumGasPrice,
		ReasonableGasPrice:      reasonableGasPrice,
		MicroLinkPerEth:         microLinkPerEth,
		LinkGweiPerObservation:  linkGweiPerObservation,
		LinkGweiPerTransmission: linkGweiPerTransmission,
	}, nil
}
