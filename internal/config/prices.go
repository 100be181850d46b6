package config

import (
	"github.com/spf13/pflag"
)

// PricesConfig holds configuration for the prices command.
type PricesConfig struct {
	Network  string
	Feed     string
	RPCURL   string
	DataDir  string
	Assets   []string
	LogLevel string
}

// LoadPrices merges config file, environment variables, and flags into
// PricesConfig.
func LoadPrices(cfgFile string, flags *pflag.FlagSet) (PricesConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return PricesConfig{}, err
	}

	v.SetDefault("data-dir", "./data")
	v.SetDefault("assets", []string{"link-usd", "eth-usd"})
	v.SetDefault("log-level", "info")

	cfg := PricesConfig{
		Network:  v.GetString("network"),
		Feed:     v.GetString("feed"),
		RPCURL:   v.GetString("rpc"),
		DataDir:  v.GetString("data-dir"),
		Assets:   v.GetStringSlice("assets"),
		LogLevel: v.GetString("log-level"),
	}

	return cfg, nil
}
