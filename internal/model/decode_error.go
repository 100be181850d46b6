package model

// DecodeError records a decode failure for a single log. One bad log is
// skipped and recorded, never allowed to abort the run.
type DecodeError struct {
	BlockNumber uint64 `json:"block_number"`
	TxHash      string `json:"tx_hash"`
	LogIndex    uint64 `json:"log_index"`
	Address     string `json:"address"`
	Topic0      string `json:"topic0"`
	EventName   string `json:"event_name,omitempty"`
	Error       string `json:"error"`
}
