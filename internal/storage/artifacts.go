// Package storage persists the pipeline's derived tables: CSV snapshots,
// JSON artifacts, and the decode-error journal. Every artifact is
// re-derivable; presence of a file short-circuits the stage that produces it.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"oracleScope/internal/model"
)

// Artifacts resolves the on-disk layout for one feed under the data
// directory.
type Artifacts struct {
	root string
}

// NewArtifacts roots the layout at <dataDir>/<feedPath>.
func NewArtifacts(dataDir, feedPath string) Artifacts {
	return Artifacts{root: filepath.Join(dataDir, feedPath)}
}

func (a Artifacts) Root() string              { return a.root }
func (a Artifacts) TransmissionsPath() string { return filepath.Join(a.root, "transmissions.csv") }
func (a Artifacts) AnswersPath() string       { return filepath.Join(a.root, "answers.csv") }
func (a Artifacts) PaymentsPath() string      { return filepath.Join(a.root, "payments.csv") }
func (a Artifacts) BillingParamsPath() string { return filepath.Join(a.root, "billing_params.json") }
func (a Artifacts) TotalsPath() string        { return filepath.Join(a.root, "totals.json") }
func (a Artifacts) DecodeErrorsPath() string  { return filepath.Join(a.root, "decode_errors.jsonl") }
func (a Artifacts) PricesPath(asset string) string {
	return filepath.Join(a.root, "prices", asset+".json")
}

// OperatorDir is the per-operator slice directory.
func (a Artifacts) OperatorDir(name string) string {
	return filepath.Join(a.root, "per_op", name)
}

func (a Artifacts) OperatorSubmissionsPath(name string) string {
	return filepath.Join(a.OperatorDir(name), "submissions.csv")
}

func (a Artifacts) OperatorPaymentsPath(name string) string {
	return filepath.Join(a.OperatorDir(name), "payments.csv")
}

// Exists reports whether an artifact file is already present.
func Exists(path string) bool {
	stat, err := os.Stat(path)
	return err == nil && !stat.IsDir()
}

// WriteJSON marshals v indented and renames it into place, so a fatal abort
// mid-stage never leaves a partial artifact behind.
func WriteJSON(path string, v interface{}) error {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create artifact dir: %w", err)
		}
	}

	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal artifact: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write artifact tmp: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename artifact: %w", err)
	}
	return nil
}

// ReadJSON unmarshals an artifact into v.
func ReadJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read artifact: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse artifact %s: %w", path, err)
	}
	return nil
}

// ReadPrices loads a price table keyed by block number. JSON object keys
// are strings, so block numbers are parsed back out.
func ReadPrices(path string) (map[uint64]float64, error) {
	raw := make(map[string]float64)
	if err := ReadJSON(path, &raw); err != nil {
		return nil, err
	}
	out := make(map[uint64]float64, len(raw))
	for key, value := range raw {
		block, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse block key %q in %s: %w", key, path, err)
		}
		out[block] = value
	}
	return out, nil
}

// ReadBillingParams loads the billing-parameter history keyed by activation
// block.
func ReadBillingParams(path string) (map[uint64]model.BillingParams, error) {
	raw := make(map[string]model.BillingParams)
	if err := ReadJSON(path, &raw); err != nil {
		return nil, err
	}
	out := make(map[uint64]model.BillingParams, len(raw))
	for key, value := range raw {
		block, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse block key %q in %s: %w", key, path, err)
		}
		out[block] = value
	}
	return out, nil
}
