package config

import (
	"time"

	"github.com/spf13/pflag"
)

// FetchConfig holds configuration for the fetch command.
type FetchConfig struct {
	Network      string
	Feed         string
	StartDate    string
	RPCURL       string
	DataDir      string
	ChunkSize    uint64
	MaxRetries   int
	RetryBackoff time.Duration
	LogLevel     string
}

// LoadFetch merges config file, environment variables, and flags into
// FetchConfig.
func LoadFetch(cfgFile string, flags *pflag.FlagSet) (FetchConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return FetchConfig{}, err
	}

	v.SetDefault("data-dir", "./data")
	v.SetDefault("chunk-size", uint64(100_000))
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("log-level", "info")

	cfg := FetchConfig{
		Network:      v.GetString("network"),
		Feed:         v.GetString("feed"),
		StartDate:    v.GetString("start-date"),
		RPCURL:       v.GetString("rpc"),
		DataDir:      v.GetString("data-dir"),
		ChunkSize:    v.GetUint64("chunk-size"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
		LogLevel:     v.GetString("log-level"),
	}

	return cfg, nil
}
