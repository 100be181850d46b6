package storage

import (
	"math/big"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"oracleScope/internal/model"
	"oracleScope/internal/reconcile"
	"oracleScope/internal/registry"
)

func testOperators() registry.Operators {
	return registry.Operators{
		Profiles: map[string]registry.Operator{
			"0x00000000000000000000000000000000000000a1": {Name: "alpha"},
			"0x00000000000000000000000000000000000000b2": {Name: "bravo"},
		},
		Transmitters: []string{
			"0x00000000000000000000000000000000000000a1",
			"0x00000000000000000000000000000000000000b2",
		},
	}
}

func sampleRecords() []model.SubmissionRecord {
	return []model.SubmissionRecord{
		{
			BlockNumber:      100,
			Timestamp:        1_700_000_000,
			GasPriceGwei:     31.5,
			Fee:              0.00125,
			TxHash:           "0xaaa1",
			Submitter:        "0x00000000000000000000000000000000000000a1",
			AggregatedAnswer: big.NewInt(1000),
			MinAnswer:        big.NewInt(995),
			MaxAnswer:        big.NewInt(1007),
			Answers: map[string]model.OperatorAnswer{
				"alpha": {Status: model.StatusSubmitted, Answer: big.NewInt(995), Deviation: 0.5, DeviationValid: true},
				"bravo": {Status: model.StatusMissed, Answer: big.NewInt(0)},
			},
		},
		{
			BlockNumber:      140,
			Timestamp:        1_700_000_600,
			GasPriceGwei:     28,
			Fee:              0.0011,
			TxHash:           "0xaaa2",
			Submitter:        "0x00000000000000000000000000000000000000b2",
			AggregatedAnswer: big.NewInt(1010),
			MinAnswer:        big.NewInt(1010),
			MaxAnswer:        big.NewInt(1012),
			Answers: map[string]model.OperatorAnswer{
				"alpha": {Status: model.StatusSubmitted, Answer: big.NewInt(1012), Deviation: 0.19801980198019803, DeviationValid: true},
				"bravo": {Status: model.StatusSubmitted, Answer: big.NewInt(1010), Deviation: 0, DeviationValid: true},
			},
		},
	}
}

func TestTransmissionsCSVRoundTrip(t *testing.T) {
	operators := testOperators()
	path := filepath.Join(t.TempDir(), "transmissions.csv")
	records := sampleRecords()

	if err := WriteTransmissionsCSV(path, operators, records); err != nil {
		t.Fatalf("write: %v", err)
	}
	loaded, err := ReadTransmissionsCSV(path, operators)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(loaded) != len(records) {
		t.Fatalf("row count %d != %d", len(loaded), len(records))
	}

	for i, record := range records {
		got := loaded[i]
		if got.BlockNumber != record.BlockNumber || got.Timestamp != record.Timestamp {
			t.Fatalf("row %d identity mismatch: %+v", i, got)
		}
		if got.AggregatedAnswer.Cmp(record.AggregatedAnswer) != 0 {
			t.Fatalf("row %d aggregated answer mismatch", i)
		}
		for _, name := range operators.Names() {
			if got.AnswerFor(name).Cmp(record.AnswerFor(name)) != 0 {
				t.Fatalf("row %d %s answer mismatch", i, name)
			}
			if got.DeviationFor(name) != record.DeviationFor(name) {
				t.Fatalf("row %d %s deviation mismatch", i, name)
			}
		}
	}

	// A miss reads back as a miss, not as a zero-valued submission.
	if loaded[0].Answers["bravo"].Status != model.StatusMissed {
		t.Fatalf("zero answer must read back as missed")
	}
}

func TestTransmissionsCSVRoundTripKeepsInactive(t *testing.T) {
	operators := testOperators()
	path := filepath.Join(t.TempDir(), "transmissions.csv")

	// bravo is outside this round's transmitter set: no Answers entry.
	records := []model.SubmissionRecord{
		{
			BlockNumber:      100,
			Timestamp:        1_700_000_000,
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

	if err := WriteTransmissionsCSV(path, operators, records); err != nil {
		t.Fatalf("write: %v", err)
	}
	loaded, err := ReadTransmissionsCSV(path, operators)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if _, ok := loaded[0].Answers["bravo"]; ok {
		t.Fatalf("inactive operator read back as %+v", loaded[0].Answers["bravo"])
	}

	timeline := reconcile.StatusTimeline(loaded, "bravo")
	summary := reconcile.SummarizeMisses(reconcile.AnalyzeMisses(timeline))
	if summary.Missed != 0 {
		t.Fatalf("inactive round counted as missed: %+v", summary)
	}
}

func TestTransmissionsCSVWriteIsDeterministic(t *testing.T) {
	operators := testOperators()
	dir := t.TempDir()
	pathA := filepath.Join(dir, "a.csv")
	pathB := filepath.Join(dir, "b.csv")

	if err := WriteTransmissionsCSV(pathA, operators, sampleRecords()); err != nil {
		t.Fatalf("write a: %v", err)
	}
	if err := WriteTransmissionsCSV(pathB, operators, sampleRecords()); err != nil {
		t.Fatalf("write b: %v", err)
	}

	a, err := os.ReadFile(pathA)
	if err != nil {
		t.Fatalf("read a: %v", err)
	}
	b, err := os.ReadFile(pathB)
	if err != nil {
		t.Fatalf("read b: %v", err)
	}
	if string(a) != string(b) {
		t.Fatalf("repeated writes are not byte-identical")
	}
}

func TestAnswersCSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "answers.csv")
	answers := []model.AnswerRecord{
		{Timestamp: 1_700_000_000, Answer: 2005.12},
		{Timestamp: 1_700_000_600, Answer: 2010},
	}

	if err := WriteAnswersCSV(path, answers); err != nil {
		t.Fatalf("write: %v", err)
	}
	loaded, err := ReadAnswersCSV(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !reflect.DeepEqual(loaded, answers) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", loaded, answers)
	}
}

func TestPaymentsCSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payments.csv")
	payments := []model.PaymentRecord{
		{
			BlockNumber:  200,
			TxHash:       "0xbbb1",
			TxTimestamp:  1_700_001_000,
			GasPriceGwei: 25,
			Fee:          0.0009,
			Submitter:    "0x00000000000000000000000000000000000000a1",
			PayeeAddress: "0x00000000000000000000000000000000000000c3",
			OracleName:   "alpha",
			AmountLink:   12.75,
		},
	}

	if err := WritePaymentsCSV(path, payments); err != nil {
		t.Fatalf("write: %v", err)
	}
	loaded, err := ReadPaymentsCSV(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !reflect.DeepEqual(loaded, payments) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", loaded, payments)
	}
}

func TestWriteOperatorSlices(t *testing.T) {
	operators := testOperators()
	artifacts := NewArtifacts(t.TempDir(), "ethereum/mainnet/eth-usd")
	records := sampleRecords()
	payments := []model.PaymentRecord{
		{BlockNumber: 200, TxTimestamp: 1_700_001_000, OracleName: "alpha", AmountLink: 1},
		{BlockNumber: 210, TxTimestamp: 1_700_002_000, OracleName: "bravo", AmountLink: 2},
	}

	if err := WriteOperatorSlices(artifacts, operators, records, payments); err != nil {
		t.Fatalf("write slices: %v", err)
	}

	// bravo missed round one, so their slice holds only the second round.
	bravoRecords, err := ReadTransmissionsCSV(artifacts.OperatorSubmissionsPath("bravo"), operators)
	if err != nil {
		t.Fatalf("read bravo submissions: %v", err)
	}
	if len(bravoRecords) != 1 || bravoRecords[0].BlockNumber != 140 {
		t.Fatalf("bravo slice = %+v", bravoRecords)
	}

	alphaPayments, err := ReadPaymentsCSV(artifacts.OperatorPaymentsPath("alpha"))
	if err != nil {
		t.Fatalf("read alpha payments: %v", err)
	}
	if len(alphaPayments) != 1 || alphaPayments[0].OracleName != "alpha" {
		t.Fatalf("alpha payments = %+v", alphaPayments)
	}
}

func TestArtifactJSONAtomicRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "billing_params.json")
	history := map[uint64]model.BillingParams{
		1200: {MaximumGasPrice: 200, ReasonableGasPrice: 50, MicroLinkPerEth: 250_000, LinkGweiPerObservation: 4_000_000, LinkGweiPerTransmission: 20_000_000},
	}

	if err := WriteJSON(path, history); err != nil {
		t.Fatalf("write: %v", err)
	}
	if Exists(path + ".tmp") {
		t.Fatalf("tmp file left behind")
	}

	loaded, err := ReadBillingParams(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !reflect.DeepEqual(loaded, history) {
		t.Fatalf("round trip mismatch: %+v", loaded)
	}
}
