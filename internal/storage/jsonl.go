package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"oracleScope/internal/model"
)

// DecodeErrorJournal appends skipped-log reports to a JSONL file, one line
// per offending log.
type DecodeErrorJournal struct {
	path string
	mu   sync.Mutex
}

func NewDecodeErrorJournal(path string) *DecodeErrorJournal {
	return &DecodeErrorJournal{path: path}
}

// Append writes a batch of decode errors as JSON lines.
func (j *DecodeErrorJournal) Append(failures []model.DecodeError) error {
	if len(failures) == 0 {
		return nil
	}

	dir := filepath.Dir(j.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create journal dir: %w", err)
		}
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	file, err := os.OpenFile(j.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, failure := range failures {
		line, err := json.Marshal(failure)
		if err != nil {
			return fmt.Errorf("marshal decode error: %w", err)
		}
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write decode error: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush journal: %w", err)
	}

	return nil
}
