package ocr

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"oracleScope/internal/model"
)

func packedLog(t *testing.T, family Family, eventName string, topics []common.Hash, data []byte) model.LogRecord {
	t.Helper()

	contractABI, err := AggregatorABI(family)
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	event := contractABI.Events[eventName]

	raw := []string{event.ID.Hex()}
	for _, topic := range topics {
		raw = append(raw, topic.Hex())
	}

	return model.LogRecord{
		BlockNumber: 1000,
		TxHash:      "0xABCDEF0000000000000000000000000000000000000000000000000000000001",
		LogIndex:    3,
		Address:     "0x1111111111111111111111111111111111111111",
		Topics:      raw,
		Data:        hexutil.Encode(data),
	}
}

func TestDecodeNewTransmission(t *testing.T) {
	contractABI, err := AggregatorABI(FamilyPrimary)
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	event := contractABI.Events["NewTransmission"]

	transmitter := common.HexToAddress("0x2222222222222222222222222222222222222222")
	observations := []*big.Int{big.NewInt(995), big.NewInt(1000), big.NewInt(1007)}
	observers := []byte{2, 0, 1}
	var reportContext [32]byte

	data, err := event.Inputs.NonIndexed().Pack(
		big.NewInt(1000),
		transmitter,
		observations,
		observers,
		reportContext,
	)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}

	decoder, err := NewDecoder(FamilyPrimary)
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}

	log := packedLog(t, FamilyPrimary, "NewTransmission", []common.Hash{common.BigToHash(big.NewInt(42))}, data)
	decoded, err := decoder.Decode(log)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if decoded.Name != "NewTransmission" {
		t.Fatalf("event name mismatch: %s", decoded.Name)
	}

	roundID, err := ArgUint64(decoded.Args, "aggregatorRoundId")
	if err != nil || roundID != 42 {
		t.Fatalf("aggregatorRoundId mismatch: %d %v", roundID, err)
	}

	answer, err := ArgBigInt(decoded.Args, "answer")
	if err != nil || answer.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("answer mismatch: %v %v", answer, err)
	}

	gotObservations, err := ArgBigIntSlice(decoded.Args, "observations")
	if err != nil || len(gotObservations) != 3 {
		t.Fatalf("observations mismatch: %v %v", gotObservations, err)
	}
	for i, want := range observations {
		if gotObservations[i].Cmp(want) != 0 {
			t.Fatalf("observation %d mismatch: %v != %v", i, gotObservations[i], want)
		}
	}

	gotObservers, err := ArgBytes(decoded.Args, "observers")
	if err != nil || len(gotObservers) != 3 {
		t.Fatalf("observers mismatch: %v %v", gotObservers, err)
	}
	if gotObservers[0] != 2 || gotObservers[1] != 0 || gotObservers[2] != 1 {
		t.Fatalf("observer indices mismatch: %v", gotObservers)
	}
}

func TestDecodeOraclePaidBothFamilies(t *testing.T) {
	transmitter := common.HexToAddress("0x3333333333333333333333333333333333333333")
	payee := common.HexToAddress("0x4444444444444444444444444444444444444444")
	amount := new(big.Int).Mul(big.NewInt(5), big.NewInt(1e18))

	// Primary family: all parameters in the data section.
	primaryABI, err := AggregatorABI(FamilyPrimary)
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	data, err := primaryABI.Events["OraclePaid"].Inputs.NonIndexed().Pack(transmitter, payee, amount)
	if err != nil {
		t.Fatalf("pack primary: %v", err)
	}

	primaryDecoder, err := NewDecoder(FamilyPrimary)
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}
	decoded, err := primaryDecoder.Decode(packedLog(t, FamilyPrimary, "OraclePaid", nil, data))
	if err != nil {
		t.Fatalf("decode primary: %v", err)
	}
	assertOraclePaid(t, decoded, transmitter, payee, amount)

	// POA family: transmitter and payee indexed, amount in data.
	poaABI, err := AggregatorABI(FamilyPOA)
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	data, err = poaABI.Events["OraclePaid"].Inputs.NonIndexed().Pack(amount)
	if err != nil {
		t.Fatalf("pack poa: %v", err)
	}

	poaDecoder, err := NewDecoder(FamilyPOA)
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}
	topics := []common.Hash{
		common.BytesToHash(transmitter.Bytes()),
		common.BytesToHash(payee.Bytes()),
	}
	decoded, err = poaDecoder.Decode(packedLog(t, FamilyPOA, "OraclePaid", topics, data))
	if err != nil {
		t.Fatalf("decode poa: %v", err)
	}
	assertOraclePaid(t, decoded, transmitter, payee, amount)
}

func assertOraclePaid(t *testing.T, decoded model.DecodedEvent, transmitter, payee common.Address, amount *big.Int) {
	t.Helper()

	gotTransmitter, err := ArgAddress(decoded.Args, "transmitter")
	if err != nil || gotTransmitter != transmitter {
		t.Fatalf("transmitter mismatch: %v %v", gotTransmitter, err)
	}
	gotPayee, err := ArgAddress(decoded.Args, "payee")
	if err != nil || gotPayee != payee {
		t.Fatalf("payee mismatch: %v %v", gotPayee, err)
	}
	gotAmount, err := ArgBigInt(decoded.Args, "amount")
	if err != nil || gotAmount.Cmp(amount) != 0 {
		t.Fatalf("amount mismatch: %v %v", gotAmount, err)
	}
}

func TestDecodeBillingSet(t *testing.T) {
	contractABI, err := AggregatorABI(FamilyPrimary)
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	data, err := contractABI.Events["BillingSet"].Inputs.NonIndexed().Pack(
		uint32(200), uint32(50), uint32(250000), uint32(4000000), uint32(20000000),
	)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}

	decoder, err := NewDecoder(FamilyPrimary)
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}
	decoded, err := decoder.Decode(packedLog(t, FamilyPrimary, "BillingSet", nil, data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	want := map[string]uint64{
		"maximumGasPrice":         200,
		"reasonableGasPrice":      50,
		"microLinkPerEth":         250000,
		"linkGweiPerObservation":  4000000,
		"linkGweiPerTransmission": 20000000,
	}
	for name, wantValue := range want {
		got, err := ArgUint64(decoded.Args, name)
		if err != nil || got != wantValue {
			t.Fatalf("%s mismatch: %d %v", name, got, err)
		}
	}
}

func TestDecodeRejectsMalformedLog(t *testing.T) {
	decoder, err := NewDecoder(FamilyPrimary)
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}

	if _, err := decoder.Decode(model.LogRecord{}); err == nil {
		t.Fatalf("expected error for missing topics")
	}

	contractABI, _ := AggregatorABI(FamilyPrimary)
	badLog := model.LogRecord{
		Topics: []string{contractABI.Events["BillingSet"].ID.Hex()},
		Data:   "0x01",
	}
	if _, err := decoder.Decode(badLog); err == nil {
		t.Fatalf("expected error for truncated data")
	}

	if _, ok := decoder.EventName("0xdeadbeef"); ok {
		t.Fatalf("unknown topic0 should not resolve")
	}
}
