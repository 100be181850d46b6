package ingest

import (
	"context"
	"math/big"

	"go.uber.org/zap"

	"oracleScope/internal/model"
	"oracleScope/internal/ocr"
	"oracleScope/internal/registry"
)

const juelsPerLink = 1e18

// BuildPayments converts decoded OraclePaid events into payment records in
// ascending block order, enriching each transaction once per unique hash.
func BuildPayments(ctx context.Context, enricher *Enricher, operators registry.Operators, events []model.DecodedEvent, logger *zap.Logger) ([]model.PaymentRecord, []model.DecodeError) {
	if logger == nil {
		logger = zap.NewNop()
	}
	SortEvents(events)

	records := make([]model.PaymentRecord, 0, len(events))
	var failures []model.DecodeError

	for _, event := range events {
		record, err := buildPayment(ctx, enricher, operators, event)
		if err != nil {
			logger.Warn("skip payment",
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

func buildPayment(ctx context.Context, enricher *Enricher, operators registry.Operators, event model.DecodedEvent) (model.PaymentRecord, error) {
	transmitter, err := ocr.ArgAddress(event.Args, "transmitter")
	if err != nil {
		return model.PaymentRecord{}, err
	}
	payee, err := ocr.ArgAddress(event.Args, "payee")
	if err != nil {
		return model.PaymentRecord{}, err
	}
	amount, err := ocr.ArgBigInt(event.Args, "amount")
	if err != nil {
		return model.PaymentRecord{}, err
	}

	tx, err := enricher.Info(ctx, event.TxHash)
	if err != nil {
		return model.PaymentRecord{}, err
	}

	amountFloat, _ := new(big.Float).SetInt(amount).Float64()

	return model.PaymentRecord{
		BlockNumber:  tx.BlockNumber,
		TxHash:       tx.Hash,
		TxTimestamp:  tx.Timestamp,
		GasPriceGwei: tx.GasPriceGwei,
		Fee:          tx.FeeNative,
		Submitter:    tx.From,
		PayeeAddress: lowerHex(payee.Hex()),
		OracleName:   operators.Name(transmitter.Hex()),
		AmountLink:   amountFloat / juelsPerLink,
	}, nil
}
