package model

// TransactionInfo is per-transaction metadata shared by every event emitted
// from the same receipt. Enriched once per unique hash.
type TransactionInfo struct {
	Hash         string  `json:"hash"`
	BlockNumber  uint64  `json:"block_number"`
	Timestamp    uint64  `json:"timestamp"`
	From         string  `json:"from"`
	To           string  `json:"to"`
	GasPriceGwei float64 `json:"gas_price_gwei"`
	FeeNative    float64 `json:"fee_native"`
}
