package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotConfigured marks fatal configuration errors: a feed missing from the
// feed registry or an absent operator registry file. These abort the run
// before any network call.
var ErrNotConfigured = errors.New("not configured")

// Feed is one entry of the feed registry.
type Feed struct {
	// Address is the aggregator contract address.
	Address string `json:"address"`
	// Path is the feed's artifact directory relative to the data dir,
	// e.g. "ethereum/mainnet/eth-usd".
	Path string `json:"path"`
}

// Operator is one node operator profile. Addresses are lowercase-normalized
// keys; every per-operator output column is keyed by Name.
type Operator struct {
	Name string `json:"name"`
}

// Operators is the per-feed operator registry: profiles keyed by lowercase
// transmitter address plus the ordered list of known transmitters.
type Operators struct {
	Profiles     map[string]Operator `json:"nops_details"`
	Transmitters []string            `json:"transmitters"`
}

// Name resolves a transmitter address to its operator display name. Unknown
// addresses fall back to the lowercase address itself so a mid-history
// operator change never drops data on the floor.
func (o Operators) Name(address string) string {
	key := strings.ToLower(address)
	if profile, ok := o.Profiles[key]; ok && profile.Name != "" {
		return profile.Name
	}
	return key
}

// Names returns operator display names in transmitter registry order. The
// order fixes the wide CSV column layout, so it must be deterministic.
func (o Operators) Names() []string {
	names := make([]string, 0, len(o.Transmitters))
	for _, transmitter := range o.Transmitters {
		names = append(names, o.Name(transmitter))
	}
	return names
}

// LoadFeed reads the feed registry and resolves one feed key.
func LoadFeed(dataDir, feedKey string) (Feed, error) {
	path := filepath.Join(dataDir, "feeds.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return Feed{}, fmt.Errorf("read feed registry %s: %w", path, errored(err))
	}

	feeds := make(map[string]Feed)
	if err := json.Unmarshal(data, &feeds); err != nil {
		return Feed{}, fmt.Errorf("parse feed registry %s: %w", path, err)
	}

	feed, ok := feeds[feedKey]
	if !ok {
		return Feed{}, fmt.Errorf("feed %s: %w", feedKey, ErrNotConfigured)
	}
	if feed.Address == "" {
		return Feed{}, fmt.Errorf("feed %s has no address: %w", feedKey, ErrNotConfigured)
	}
	if feed.Path == "" {
		feed.Path = feedKey
	}
	return feed, nil
}

// LoadOperators reads the per-feed operator registry.
func LoadOperators(dataDir, feedPath string) (Operators, error) {
	path := filepath.Join(dataDir, feedPath, "nops.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return Operators{}, fmt.Errorf("read operator registry %s: %w", path, errored(err))
	}

	var ops Operators
	if err := json.Unmarshal(data, &ops); err != nil {
		return Operators{}, fmt.Errorf("parse operator registry %s: %w", path, err)
	}
	if len(ops.Transmitters) == 0 {
		return Operators{}, fmt.Errorf("operator registry %s has no transmitters: %w", path, ErrNotConfigured)
	}

	normalized := make(map[string]Operator, len(ops.Profiles))
	for address, profile := range ops.Profiles {
		normalized[strings.ToLower(address)] = profile
	}
	ops.Profiles = normalized
	for i, transmitter := range ops.Transmitters {
		ops.Transmitters[i] = strings.ToLower(transmitter)
	}

	return ops, nil
}

func errored(err error) error {
	if os.IsNotExist(err) {
		return fmt.Errorf("%w: %v", ErrNotConfigured, err)
	}
	return err
}
