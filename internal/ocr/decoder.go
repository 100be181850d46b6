package ocr

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"oracleScope/internal/model"
)

// Decoder decodes raw aggregator logs into named argument maps using the
// fixed per-event schema. Decoding is a pure function of (schema, raw bytes).
type Decoder struct {
	contractABI abi.ABI
	topicToName map[string]string
}

// NewDecoder builds a decoder for one schema family.
func NewDecoder(family Family) (*Decoder, error) {
	contractABI, err := AggregatorABI(family)
	if err != nil {
		return nil, err
	}

	topicToName := make(map[string]string, len(contractABI.Events))
	for name, event := range contractABI.Events {
		topicToName[strings.ToLower(event.ID.Hex())] = name
	}

	return &Decoder{
		contractABI: contractABI,
		topicToName: topicToName,
	}, nil
}

// Topic0 returns the topic hash for an event name.
func (d *Decoder) Topic0(eventName string) (common.Hash, error) {
	event, ok := d.contractABI.Events[eventName]
	if !ok {
		return common.Hash{}, fmt.Errorf("unknown event: %s", eventName)
	}
	return event.ID, nil
}

// EventName resolves a topic0 to its event name.
func (d *Decoder) EventName(topic0 string) (string, bool) {
	name, ok := d.topicToName[strings.ToLower(topic0)]
	return name, ok
}

// Decode converts a raw log into a DecodedEvent. Indexed parameters come from
// the topics, the rest from the ABI-encoded data section.
func (d *Decoder) Decode(log model.LogRecord) (model.DecodedEvent, error) {
	if len(log.Topics) == 0 {
		return model.DecodedEvent{}, fmt.Errorf("missing topics")
	}
	name, ok := d.EventName(log.Topics[0])
	if !ok {
		return model.DecodedEvent{}, fmt.Errorf("unsupported topic0: %s", log.Topics[0])
	}
	event := d.contractABI.Events[name]

	indexed := indexedArguments(event.Inputs)
	if len(log.Topics) != len(indexed)+1 {
		return model.DecodedEvent{}, fmt.Errorf("%s: expected %d topics, got %d", name, len(indexed)+1, len(log.Topics))
	}

	args := make(map[string]interface{}, len(event.Inputs))

	topics, err := parseTopicHashes(log.Topics[1:])
	if err != nil {
		return model.DecodedEvent{}, fmt.Errorf("%s: %w", name, err)
	}
	if len(indexed) > 0 {
		if err := abi.ParseTopicsIntoMap(args, indexed, topics); err != nil {
			return model.DecodedEvent{}, fmt.Errorf("parse %s topics: %w", name, err)
		}
	}

	data, err := hexutil.Decode(log.Data)
	if err != nil {
		return model.DecodedEvent{}, fmt.Errorf("%s: invalid data: %w", name, err)
	}
	if len(event.Inputs.NonIndexed()) > 0 {
		values, err := event.Inputs.NonIndexed().Unpack(data)
		if err != nil {
			return model.DecodedEvent{}, fmt.Errorf("unpack %s: %w", name, err)
		}
		for i, arg := range event.Inputs.NonIndexed() {
			args[arg.Name] = values[i]
		}
	}

	return model.DecodedEvent{
		Name:        name,
		Address:     log.Address,
		BlockNumber: log.BlockNumber,
		TxHash:      strings.ToLower(log.TxHash),
		LogIndex:    log.LogIndex,
		Args:        args,
	}, nil
}

func parseTopicHashes(topics []string) ([]common.Hash, error) {
	out := make([]common.Hash, 0, len(topics))
	for _, topic := range topics {
		data, err := hexutil.Decode(topic)
		if err != nil {
			return nil, fmt.Errorf("invalid topic: %w", err)
		}
		if len(data) > 32 {
			return nil, fmt.Errorf("topic length %d", len(data))
		}
		out = append(out, common.BytesToHash(data))
	}
	return out, nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}
