package model

// PaymentRecord is one row of the payments table, one per OraclePaid event.
// AmountLink is the on-chain juels amount scaled to whole LINK.
type PaymentRecord struct {
	BlockNumber  uint64  `json:"block_number"`
	TxHash       string  `json:"tx_hash"`
	TxTimestamp  uint64  `json:"tx_timestamp"`
	GasPriceGwei float64 `json:"gas_price_gwei"`
	Fee          float64 `json:"fee"`
	Submitter    string  `json:"submitter"`
	PayeeAddress string  `json:"payee_address"`
	OracleName   string  `json:"oracle_name"`
	AmountLink   float64 `json:"amount_link"`
}
