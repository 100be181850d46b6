package model

// DecodedEvent is a log decoded against the aggregator ABI.
// Args holds both topic-indexed and data-encoded parameters by name.
type DecodedEvent struct {
	Name        string                 `json:"event_name"`
	Address     string                 `json:"address"`
	BlockNumber uint64                 `json:"block_number"`
	TxHash      string                 `json:"tx_hash"`
	LogIndex    uint64                 `json:"log_index"`
	Args        map[string]interface{} `json:"args"`
}
