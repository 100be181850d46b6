package config

import (
	"github.com/spf13/pflag"
)

// ReconcileConfig holds configuration for the reconcile command.
type ReconcileConfig struct {
	Network  string
	Feed     string
	DataDir  string
	PGDSN    string
	LogLevel string
}

// LoadReconcile merges config file, environment variables, and flags into
// ReconcileConfig.
func LoadReconcile(cfgFile string, flags *pflag.FlagSet) (ReconcileConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return ReconcileConfig{}, err
	}

	v.SetDefault("data-dir", "./data")
	v.SetDefault("log-level", "info")

	cfg := ReconcileConfig{
		Network:  v.GetString("network"),
		Feed:     v.GetString("feed"),
		DataDir:  v.GetString("data-dir"),
		PGDSN:    v.GetString("pg-dsn"),
		LogLevel: v.GetString("log-level"),
	}

	return cfg, nil
}
