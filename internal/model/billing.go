package model

// BillingParams is one BillingSet parameter set. Gas prices are denominated
// in gwei, per the aggregator contract.
type BillingParams struct {
	MaximumGasPrice         uint64 `json:"maximumGasPrice"`
	ReasonableGasPrice      uint64 `json:"reasonableGasPrice"`
	MicroLinkPerEth         uint64 `json:"microLinkPerEth"`
	LinkGweiPerObservation  uint64 `json:"linkGweiPerObservation"`
	LinkGweiPerTransmission uint64 `json:"linkGweiPerTransmission"`
}
