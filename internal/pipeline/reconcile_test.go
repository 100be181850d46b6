package pipeline

import (
	"math/big"
	"testing"

	"oracleScope/internal/model"
	"oracleScope/internal/registry"
	"oracleScope/internal/storage"
)

func reconcileFixture(t *testing.T) (registry.Operators, storage.Artifacts) {
	t.Helper()
	operators := registry.Operators{
		Profiles: map[string]registry.Operator{
			"0x00000000000000000000000000000000000000a1": {Name: "alpha"},
		},
		Transmitters: []string{"0x00000000000000000000000000000000000000a1"},
	}
	artifacts := storage.NewArtifacts(t.TempDir(), "ethereum/mainnet/eth-usd")

	records := []model.SubmissionRecord{
		{
			BlockNumber:      10,
			Timestamp:        100,
			GasPriceGwei:     40,
			Fee:              0.01,
			TxHash:           "0xaaa1",
			Submitter:        "0x00000000000000000000000000000000000000a1",
			AggregatedAnswer: big.NewInt(1000),
			MinAnswer:        big.NewInt(1000),
			MaxAnswer:        big.NewInt(1000),
			Answers: map[string]model.OperatorAnswer{
				"alpha": {Status: model.StatusSubmitted, Answer: big.NewInt(1000), DeviationValid: true},
			},
		},
	}
	payments := []model.PaymentRecord{
		{BlockNumber: 35, TxTimestamp: 350, OracleName: "alpha", AmountLink: 1},
	}

	if err := storage.WriteTransmissionsCSV(artifacts.TransmissionsPath(), operators, records); err != nil {
		t.Fatalf("write transmissions: %v", err)
	}
	if err := storage.WritePaymentsCSV(artifacts.PaymentsPath(), payments); err != nil {
		t.Fatalf("write payments: %v", err)
	}
	billing := map[uint64]model.BillingParams{
		5: {MaximumGasPrice: 100, ReasonableGasPrice: 50, MicroLinkPerEth: 250_000, LinkGweiPerObservation: 4_000_000, LinkGweiPerTransmission: 20_000_000},
	}
	if err := storage.WriteJSON(artifacts.BillingParamsPath(), billing); err != nil {
		t.Fatalf("write billing: %v", err)
	}
	if err := storage.WriteJSON(artifacts.PricesPath("link-usd"), map[uint64]float64{35: 10}); err != nil {
		t.Fatalf("write link prices: %v", err)
	}
	if err := storage.WriteJSON(artifacts.PricesPath("eth-usd"), map[uint64]float64{35: 2000}); err != nil {
		t.Fatalf("write eth prices: %v", err)
	}
	return operators, artifacts
}

func TestReconcileRunReportsSnapshotHead(t *testing.T) {
	operators, artifacts := reconcileFixture(t)

	totals, head, err := NewReconcile(operators, artifacts, nil).Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// The payment at block 35 is the highest block either snapshot covers.
	if head != 35 {
		t.Fatalf("snapshot head = %d, want 35", head)
	}
	if len(totals.Totals) != 1 {
		t.Fatalf("expected 1 epoch, got %d", len(totals.Totals))
	}
	if !storage.Exists(artifacts.TotalsPath()) {
		t.Fatalf("totals artifact not written")
	}
}
