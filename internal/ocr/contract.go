package ocr

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// ContractCaller is the eth_call boundary used for historical state reads.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Aggregator reads aggregator contract state. The transmitter set changes
// over time, so it is resolved per block and cached: a round's observer
// bitfield indices are only meaningful relative to the set at that block.
type Aggregator struct {
	address     common.Address
	contractABI abi.ABI
	caller      ContractCaller

	mu           sync.RWMutex
	transmitters map[uint64][]common.Address
}

// NewAggregator builds an aggregator reader for one feed contract.
func NewAggregator(address common.Address, family Family, caller ContractCaller) (*Aggregator, error) {
	contractABI, err := AggregatorABI(family)
	if err != nil {
		return nil, err
	}
	return &Aggregator{
		address:      address,
		contractABI:  contractABI,
		caller:       caller,
		transmitters: make(map[uint64][]common.Address),
	}, nil
}

// TransmittersAt returns the ordered operator set active at a block.
func (a *Aggregator) TransmittersAt(ctx context.Context, blockNumber uint64) ([]common.Address, error) {
	a.mu.RLock()
	cached, ok := a.transmitters[blockNumber]
	a.mu.RUnlock()
	if ok {
		return cached, nil
	}

	values, err := a.call(ctx, "transmitters", new(big.Int).SetUint64(blockNumber))
	if err != nil {
		return nil, fmt.Errorf("transmitters at %d: %w", blockNumber, err)
	}
	set, ok := values[0].([]common.Address)
	if !ok {
		return nil, fmt.Errorf("transmitters at %d: unexpected type %T", blockNumber, values[0])
	}

	a.mu.Lock()
	a.transmitters[blockNumber] = set
	a.mu.Unlock()

	return set, nil
}

// Decimals returns the feed's answer scaling.
func (a *Aggregator) Decimals(ctx context.Context) (uint8, error) {
	values, err := a.call(ctx, "decimals", nil)
	if err != nil {
		return 0, fmt.Errorf("decimals: %w", err)
	}
	decimals, ok := values[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("decimals: unexpected type %T", values[0])
	}
	return decimals, nil
}

// LatestAnswerAt returns the aggregated answer as of a historical block.
func (a *Aggregator) LatestAnswerAt(ctx context.Context, blockNumber uint64) (*big.Int, error) {
	values, err := a.call(ctx, "latestAnswer", new(big.Int).SetUint64(blockNumber))
	if err != nil {
		return nil, fmt.Errorf("latestAnswer at %d: %w", blockNumber, err)
	}
	answer, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("latestAnswer at %d: unexpected type %T", blockNumber, values[0])
	}
	return answer, nil
}

func (a *Aggregator) call(ctx context.Context, method string, blockNumber *big.Int) ([]interface{}, error) {
	data, err := a.contractABI.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	msg := ethereum.CallMsg{To: &a.address, Data: data}
	resp, err := a.caller.CallContract(ctx, msg, blockNumber)
	if err != nil {
		return nil, err
	}

	values, err := a.contractABI.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%s: empty result", method)
	}
	return values, nil
}
