package ocr

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Typed accessors for decoded argument maps. A shape mismatch is a
// DecodeError-class failure for that log only.

func ArgBigInt(args map[string]interface{}, name string) (*big.Int, error) {
	value, ok := args[name]
	if !ok {
		return nil, fmt.Errorf("missing arg %s", name)
	}
	switch typed := value.(type) {
	case *big.Int:
		return typed, nil
	case uint32:
		return new(big.Int).SetUint64(uint64(typed)), nil
	case uint64:
		return new(big.Int).SetUint64(typed), nil
	default:
		return nil, fmt.Errorf("arg %s: unexpected type %T", name, value)
	}
}

func ArgBigIntSlice(args map[string]interface{}, name string) ([]*big.Int, error) {
	value, ok := args[name]
	if !ok {
		return nil, fmt.Errorf("missing arg %s", name)
	}
	typed, ok := value.([]*big.Int)
	if !ok {
		return nil, fmt.Errorf("arg %s: unexpected type %T", name, value)
	}
	return typed, nil
}

func ArgBytes(args map[string]interface{}, name string) ([]byte, error) {
	value, ok := args[name]
	if !ok {
		return nil, fmt.Errorf("missing arg %s", name)
	}
	typed, ok := value.([]byte)
	if !ok {
		return nil, fmt.Errorf("arg %s: unexpected type %T", name, value)
	}
	return typed, nil
}

func ArgAddress(args map[string]interface{}, name string) (common.Address, error) {
	value, ok := args[name]
	if !ok {
		return common.Address{}, fmt.Errorf("missing arg %s", name)
	}
	typed, ok := value.(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("arg %s: unexpected type %T", name, value)
	}
	return typed, nil
}

func ArgUint64(args map[string]interface{}, name string) (uint64, error) {
	parsed, err := ArgBigInt(args, name)
	if err != nil {
		return 0, err
	}
	if !parsed.IsUint64() {
		return 0, fmt.Errorf("arg %s does not fit in uint64: %s", name, parsed)
	}
	return parsed.Uint64(), nil
}
