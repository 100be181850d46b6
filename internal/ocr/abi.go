package ocr

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Two aggregator schemas exist in the wild: the primary chain emits
// OraclePaid with every parameter in the data section, while the POA family
// indexes the transmitter and payee. Everything else is shared.
const aggregatorABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "uint32", "name": "aggregatorRoundId", "type": "uint32"},
      {"indexed": false, "internalType": "int192", "name": "answer", "type": "int192"},
      {"indexed": false, "internalType": "address", "name": "transmitter", "type": "address"},
      {"indexed": false, "internalType": "int192[]", "name": "observations", "type": "int192[]"},
      {"indexed": false, "internalType": "bytes", "name": "observers", "type": "bytes"},
      {"indexed": false, "internalType": "bytes32", "name": "rawReportContext", "type": "bytes32"}
    ],
    "name": "NewTransmission",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": false, "internalType": "address", "name": "transmitter", "type": "address"},
      {"indexed": false, "internalType": "address", "name": "payee", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "amount", "type": "uint256"}
    ],
    "name": "OraclePaid",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": false, "internalType": "uint32", "name": "maximumGasPrice", "type": "uint32"},
      {"indexed": false, "internalType": "uint32", "name": "reasonableGasPrice", "type": "uint32"},
      {"indexed": false, "internalType": "uint32", "name": "microLinkPerEth", "type": "uint32"},
      {"indexed": false, "internalType": "uint32", "name": "linkGweiPerObservation", "type": "uint32"},
      {"indexed": false, "internalType": "uint32", "name": "linkGweiPerTransmission", "type": "uint32"}
    ],
    "name": "BillingSet",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "int256", "name": "current", "type": "int256"},
      {"indexed": true, "internalType": "uint256", "name": "roundId", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "updatedAt", "type": "uint256"}
    ],
    "name": "AnswerUpdated",
    "type": "event"
  },
  {
    "inputs": [],
    "name": "transmitters",
    "outputs": [{"internalType": "address[]", "name": "", "type": "address[]"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "decimals",
    "outputs": [{"internalType": "uint8", "name": "", "type": "uint8"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "latestAnswer",
    "outputs": [{"internalType": "int256", "name": "", "type": "int256"}],
    "stateMutability": "view",
    "type": "function"
  }
]`

const aggregatorPOAABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "uint32", "name": "aggregatorRoundId", "type": "uint32"},
      {"indexed": false, "internalType": "int192", "name": "answer", "type": "int192"},
      {"indexed": false, "internalType": "address", "name": "transmitter", "type": "address"},
      {"indexed": false, "internalType": "int192[]", "name": "observations", "type": "int192[]"},
      {"indexed": false, "internalType": "bytes", "name": "observers", "type": "bytes"},
      {"indexed": false, "internalType": "bytes32", "name": "rawReportContext", "type": "bytes32"}
    ],
    "name": "NewTransmission",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "transmitter", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "payee", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "amount", "type": "uint256"}
    ],
    "name": "OraclePaid",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": false, "internalType": "uint32", "name": "maximumGasPrice", "type": "uint32"},
      {"indexed": false, "internalType": "uint32", "name": "reasonableGasPrice", "type": "uint32"},
      {"indexed": false, "internalType": "uint32", "name": "microLinkPerEth", "type": "uint32"},
      {"indexed": false, "internalType": "uint32", "name": "linkGweiPerObservation", "type": "uint32"},
      {"indexed": false, "internalType": "uint32", "name": "linkGweiPerTransmission", "type": "uint32"}
    ],
    "name": "BillingSet",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "int256", "name": "current", "type": "int256"},
      {"indexed": true, "internalType": "uint256", "name": "roundId", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "updatedAt", "type": "uint256"}
    ],
    "name": "AnswerUpdated",
    "type": "event"
  },
  {
    "inputs": [],
    "name": "transmitters",
    "outputs": [{"internalType": "address[]", "name": "", "type": "address[]"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "decimals",
    "outputs": [{"internalType": "uint8", "name": "", "type": "uint8"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "latestAnswer",
    "outputs": [{"internalType": "int256", "name": "", "type": "int256"}],
    "stateMutability": "view",
    "type": "function"
  }
]`

// Family selects which aggregator schema a network uses.
type Family string

const (
	FamilyPrimary Family = "primary"
	FamilyPOA     Family = "poa"
)

// FamilyForNetwork maps a network name to its schema family.
func FamilyForNetwork(network string) Family {
	if strings.EqualFold(network, "ethereum") {
		return FamilyPrimary
	}
	return FamilyPOA
}

var (
	abiOnce  sync.Once
	abiByFam map[Family]abi.ABI
	abiErr   error
)

// AggregatorABI returns the parsed aggregator ABI for a schema family.
func AggregatorABI(family Family) (abi.ABI, error) {
	abiOnce.Do(func() {
		primary, err := abi.JSON(strings.NewReader(aggregatorABIJSON))
		if err != nil {
			abiErr = err
			return
		}
		poa, err := abi.JSON(strings.NewReader(aggregatorPOAABIJSON))
		if err != nil {
			abiErr = err
			return
		}
		abiByFam = map[Family]abi.ABI{
			FamilyPrimary: primary,
			FamilyPOA:     poa,
		}
	})
	if abiErr != nil {
		return abi.ABI{}, abiErr
	}
	parsed, ok := abiByFam[family]
	if !ok {
		return abi.ABI{}, fmt.Errorf("unknown schema family: %s", family)
	}
	return parsed, nil
}
