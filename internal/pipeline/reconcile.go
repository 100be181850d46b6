package pipeline

import (
	"fmt"

	"go.uber.org/zap"

	"oracleScope/internal/model"
	"oracleScope/internal/reconcile"
	"oracleScope/internal/registry"
	"oracleScope/internal/storage"
)

// Reconcile loads the fetch and prices artifacts and produces totals.json.
type Reconcile struct {
	operators registry.Operators
	artifacts storage.Artifacts
	logger    *zap.Logger
}

func NewReconcile(operators registry.Operators, artifacts storage.Artifacts, logger *zap.Logger) *Reconcile {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconcile{operators: operators, artifacts: artifacts, logger: logger}
}

// Run reconciles earnings across the whole payment history and writes the
// totals artifact. It returns the computed totals for further sinks along
// with the highest block the input snapshots cover, so a sink can track how
// far its copy has progressed.
func (r *Reconcile) Run() (model.Totals, uint64, error) {
	records, err := storage.ReadTransmissionsCSV(r.artifacts.TransmissionsPath(), r.operators)
	if err != nil {
		return model.Totals{}, 0, fmt.Errorf("transmissions snapshot: %w", err)
	}
	payments, err := storage.ReadPaymentsCSV(r.artifacts.PaymentsPath())
	if err != nil {
		return model.Totals{}, 0, fmt.Errorf("payments snapshot: %w", err)
	}
	billing, err := storage.ReadBillingParams(r.artifacts.BillingParamsPath())
	if err != nil {
		return model.Totals{}, 0, fmt.Errorf("billing snapshot: %w", err)
	}
	linkPrices, err := storage.ReadPrices(r.artifacts.PricesPath("link-usd"))
	if err != nil {
		return model.Totals{}, 0, fmt.Errorf("link price table: %w", err)
	}
	ethPrices, err := storage.ReadPrices(r.artifacts.PricesPath("eth-usd"))
	if err != nil {
		return model.Totals{}, 0, fmt.Errorf("eth price table: %w", err)
	}

	engine := reconcile.NewEngine(
		r.operators,
		reconcile.NewBillingHistory(billing),
		reconcile.NewPriceTable(linkPrices),
		reconcile.NewPriceTable(ethPrices),
		r.logger,
	)
	totals, err := engine.Totals(records, payments)
	if err != nil {
		return model.Totals{}, 0, err
	}

	if err := storage.WriteJSON(r.artifacts.TotalsPath(), totals); err != nil {
		return model.Totals{}, 0, fmt.Errorf("write totals: %w", err)
	}
	r.logger.Info("totals written",
		zap.String("path", r.artifacts.TotalsPath()),
		zap.Int("epochs", len(totals.Totals)),
	)
	return totals, lastBlock(records, payments), nil
}

// lastBlock is the highest block number across the input snapshots.
func lastBlock(records []model.SubmissionRecord, payments []model.PaymentRecord) uint64 {
	var last uint64
	for _, record := range records {
		if record.BlockNumber > last {
			last = record.BlockNumber
		}
	}
	for _, payment := range payments {
		if payment.BlockNumber > last {
			last = payment.BlockNumber
		}
	}
	return last
}
