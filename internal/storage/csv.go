package storage

import (
	"encoding/csv"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"oracleScope/internal/model"
	"oracleScope/internal/registry"
)

var transmissionBaseColumns = []string{
	"blockNumber", "txDate", "gasPriceGwei", "fee", "timestamp",
	"txHash", "submitter", "aggregatedAnswer", "minAnswer", "maxAnswer",
}

var answerColumns = []string{"timestamp", "txDate", "answer"}

var paymentColumns = []string{
	"blockNumber", "txHash", "txTimestamp", "txDate", "gasPriceGwei",
	"fee", "submitter", "payeeAddress", "oracleName", "amount",
}

// TransmissionColumns returns the wide-table header: the fixed columns plus
// an answer and a deviation column per operator, in transmitter order.
func TransmissionColumns(operators registry.Operators) []string {
	columns := append([]string{}, transmissionBaseColumns...)
	for _, name := range operators.Names() {
		columns = append(columns, name+"_answer", name+"_deviation")
	}
	return columns
}

// WriteTransmissionsCSV persists the submission table. A missed observation
// exports as the 0 sentinel; an operator outside the round's transmitter set
// exports as empty cells, so the activity distinction survives the snapshot
// round trip.
func WriteTransmissionsCSV(path string, operators registry.Operators, records []model.SubmissionRecord) error {
	rows := make([][]string, 0, len(records))
	names := operators.Names()
	for _, record := range records {
		row := []string{
			strconv.FormatUint(record.BlockNumber, 10),
			formatDate(record.Timestamp),
			formatFloat(record.GasPriceGwei),
			formatFloat(record.Fee),
			strconv.FormatUint(record.Timestamp, 10),
			record.TxHash,
			record.Submitter,
			record.AggregatedAnswer.String(),
			record.MinAnswer.String(),
			record.MaxAnswer.String(),
		}
		for _, name := range names {
			if _, ok := record.Answers[name]; !ok {
				row = append(row, "", "")
				continue
			}
			row = append(row,
				record.AnswerFor(name).String(),
				formatFloat(record.DeviationFor(name)),
			)
		}
		rows = append(rows, row)
	}
	return writeCSV(path, TransmissionColumns(operators), rows)
}

// ReadTransmissionsCSV rebuilds submission records from a snapshot. An empty
// operator cell reads back as inactive (no Answers entry), a zero answer as
// a miss, anything else as a submission; the reconstructed tri-state matches
// what WriteTransmissionsCSV was given.
func ReadTransmissionsCSV(path string, operators registry.Operators) ([]model.SubmissionRecord, error) {
	header, rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	index, err := columnIndex(header, transmissionBaseColumns)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	names := operators.Names()
	records := make([]model.SubmissionRecord, 0, len(rows))
	for i, row := range rows {
		record, err := transmissionFromRow(row, index, names)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i+1, err)
		}
		records = append(records, record)
	}
	return records, nil
}

func transmissionFromRow(row []string, index map[string]int, names []string) (model.SubmissionRecord, error) {
	blockNumber, err := strconv.ParseUint(row[index["blockNumber"]], 10, 64)
	if err != nil {
		return model.SubmissionRecord{}, fmt.Errorf("blockNumber: %w", err)
	}
	timestamp, err := strconv.ParseUint(row[index["timestamp"]], 10, 64)
	if err != nil {
		return model.SubmissionRecord{}, fmt.Errorf("timestamp: %w", err)
	}
	gasPrice, err := strconv.ParseFloat(row[index["gasPriceGwei"]], 64)
	if err != nil {
		return model.SubmissionRecord{}, fmt.Errorf("gasPriceGwei: %w", err)
	}
	fee, err := strconv.ParseFloat(row[index["fee"]], 64)
	if err != nil {
		return model.SubmissionRecord{}, fmt.Errorf("fee: %w", err)
	}

	record := model.SubmissionRecord{
		BlockNumber:  blockNumber,
		Timestamp:    timestamp,
		GasPriceGwei: gasPrice,
		Fee:          fee,
		TxHash:       row[index["txHash"]],
		Submitter:    row[index["submitter"]],
		Answers:      make(map[string]model.OperatorAnswer, len(names)),
	}
	if record.AggregatedAnswer, err = parseBigInt(row[index["aggregatedAnswer"]]); err != nil {
		return model.SubmissionRecord{}, fmt.Errorf("aggregatedAnswer: %w", err)
	}
	if record.MinAnswer, err = parseBigInt(row[index["minAnswer"]]); err != nil {
		return model.SubmissionRecord{}, fmt.Errorf("minAnswer: %w", err)
	}
	if record.MaxAnswer, err = parseBigInt(row[index["maxAnswer"]]); err != nil {
		return model.SubmissionRecord{}, fmt.Errorf("maxAnswer: %w", err)
	}

	for _, name := range names {
		answerCol, ok := index[name+"_answer"]
		if !ok {
			continue
		}
		deviationCol, ok := index[name+"_deviation"]
		if !ok {
			continue
		}
		if row[answerCol] == "" {
			// Not in the round's transmitter set; no Answers entry.
			continue
		}
		answer, err := parseBigInt(row[answerCol])
		if err != nil {
			return model.SubmissionRecord{}, fmt.Errorf("%s_answer: %w", name, err)
		}
		deviation, err := strconv.ParseFloat(row[deviationCol], 64)
		if err != nil {
			return model.SubmissionRecord{}, fmt.Errorf("%s_deviation: %w", name, err)
		}
		entry := model.OperatorAnswer{Status: model.StatusMissed, Answer: answer}
		if answer.Sign() != 0 {
			entry.Status = model.StatusSubmitted
			entry.Deviation = deviation
			entry.DeviationValid = true
		}
		record.Answers[name] = entry
	}
	return record, nil
}

// WriteAnswersCSV persists the feed's answer timeline.
func WriteAnswersCSV(path string, answers []model.AnswerRecord) error {
	rows := make([][]string, 0, len(answers))
	for _, answer := range answers {
		rows = append(rows, []string{
			strconv.FormatUint(answer.Timestamp, 10),
			formatDate(answer.Timestamp),
			formatFloat(answer.Answer),
		})
	}
	return writeCSV(path, answerColumns, rows)
}

// ReadAnswersCSV rebuilds the answer timeline from a snapshot.
func ReadAnswersCSV(path string) ([]model.AnswerRecord, error) {
	header, rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	index, err := columnIndex(header, answerColumns)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	answers := make([]model.AnswerRecord, 0, len(rows))
	for i, row := range rows {
		timestamp, err := strconv.ParseUint(row[index["timestamp"]], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: timestamp: %w", path, i+1, err)
		}
		value, err := strconv.ParseFloat(row[index["answer"]], 64)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: answer: %w", path, i+1, err)
		}
		answers = append(answers, model.AnswerRecord{Timestamp: timestamp, Answer: value})
	}
	return answers, nil
}

// WritePaymentsCSV persists the payment table.
func WritePaymentsCSV(path string, payments []model.PaymentRecord) error {
	rows := make([][]string, 0, len(payments))
	for _, payment := range payments {
		rows = append(rows, []string{
			strconv.FormatUint(payment.BlockNumber, 10),
			payment.TxHash,
			strconv.FormatUint(payment.TxTimestamp, 10),
			formatDate(payment.TxTimestamp),
			formatFloat(payment.GasPriceGwei),
			formatFloat(payment.Fee),
			payment.Submitter,
			payment.PayeeAddress,
			payment.OracleName,
			formatFloat(payment.AmountLink),
		})
	}
	return writeCSV(path, paymentColumns, rows)
}

// ReadPaymentsCSV rebuilds payment records from a snapshot.
func ReadPaymentsCSV(path string) ([]model.PaymentRecord, error) {
	header, rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	index, err := columnIndex(header, paymentColumns)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	payments := make([]model.PaymentRecord, 0, len(rows))
	for i, row := range rows {
		payment, err := paymentFromRow(row, index)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i+1, err)
		}
		payments = append(payments, payment)
	}
	return payments, nil
}

func paymentFromRow(row []string, index map[string]int) (model.PaymentRecord, error) {
	blockNumber, err := strconv.ParseUint(row[index["blockNumber"]], 10, 64)
	if err != nil {
		return model.PaymentRecord{}, fmt.Errorf("blockNumber: %w", err)
	}
	timestamp, err := strconv.ParseUint(row[index["txTimestamp"]], 10, 64)
	if err != nil {
		return model.PaymentRecord{}, fmt.Errorf("txTimestamp: %w", err)
	}
	gasPrice, err := strconv.ParseFloat(row[index["gasPriceGwei"]], 64)
	if err != nil {
		return model.PaymentRecord{}, fmt.Errorf("gasPriceGwei: %w", err)
	}
	fee, err := strconv.ParseFloat(row[index["fee"]], 64)
	if err != nil {
		return model.PaymentRecord{}, fmt.Errorf("fee: %w", err)
	}
	amount, err := strconv.ParseFloat(row[index["amount"]], 64)
	if err != nil {
		return model.PaymentRecord{}, fmt.Errorf("amount: %w", err)
	}
	return model.PaymentRecord{
		BlockNumber:  blockNumber,
		TxHash:       row[index["txHash"]],
		TxTimestamp:  timestamp,
		GasPriceGwei: gasPrice,
		Fee:          fee,
		Submitter:    row[index["submitter"]],
		PayeeAddress: row[index["payeeAddress"]],
		OracleName:   row[index["oracleName"]],
		AmountLink:   amount,
	}, nil
}

// WriteOperatorSlices writes each operator's submission and payment slice
// under per_op/<name>/. An operator's submission slice keeps only rounds
// where they submitted.
func WriteOperatorSlices(artifacts Artifacts, operators registry.Operators, records []model.SubmissionRecord, payments []model.PaymentRecord) error {
	for _, name := range operators.Names() {
		ownRecords := make([]model.SubmissionRecord, 0, len(records))
		for _, record := range records {
			if answer, ok := record.Answers[name]; ok && answer.Status == model.StatusSubmitted {
				ownRecords = append(ownRecords, record)
			}
		}
		ownPayments := make([]model.PaymentRecord, 0)
		for _, payment := range payments {
			if payment.OracleName == name {
				ownPayments = append(ownPayments, payment)
			}
		}

		if err := WriteTransmissionsCSV(artifacts.OperatorSubmissionsPath(name), operators, ownRecords); err != nil {
			return fmt.Errorf("operator %s submissions: %w", name, err)
		}
		if err := WritePaymentsCSV(artifacts.OperatorPaymentsPath(name), ownPayments); err != nil {
			return fmt.Errorf("operator %s payments: %w", name, err)
		}
	}
	return nil
}

func writeCSV(path string, header []string, rows [][]string) error {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create csv tmp: %w", err)
	}

	writer := csv.NewWriter(file)
	if err := writer.Write(header); err != nil {
		file.Close()
		return fmt.Errorf("write csv header: %w", err)
	}
	if err := writer.WriteAll(rows); err != nil {
		file.Close()
		return fmt.Errorf("write csv rows: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close csv tmp: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename csv: %w", err)
	}
	return nil
}

func readCSV(path string) ([]string, [][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open csv: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	all, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read csv %s: %w", path, err)
	}
	if len(all) == 0 {
		return nil, nil, fmt.Errorf("csv %s has no header", path)
	}
	return all[0], all[1:], nil
}

func columnIndex(header []string, required []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, column := range header {
		index[column] = i
	}
	for _, column := range required {
		if _, ok := index[column]; !ok {
			return nil, fmt.Errorf("missing column %q", column)
		}
	}
	return index, nil
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'g', -1, 64)
}

func formatDate(timestamp uint64) string {
	return time.Unix(int64(timestamp), 0).UTC().Format(time.RFC3339)
}

func parseBigInt(value string) (*big.Int, error) {
	parsed, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", value)
	}
	return parsed, nil
}
