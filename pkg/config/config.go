// Package config binds the run_dcsc command line to a typed configuration.
// Every flag is also settable through the environment with a DCSC_ prefix
// (e.g. DCSC_RANKS=8, DCSC_LOG_LEVEL=debug).
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds everything outside the edge-list path itself.
type Config struct {
	Ranks     int    `mapstructure:"ranks"`
	LogLevel  string `mapstructure:"log-level"`
	LogFormat string `mapstructure:"log-format"`
	LogFile   string `mapstructure:"log-file"`
}

// Define registers the flags on fs with their defaults.
func Define(fs *pflag.FlagSet) {
	fs.Int("ranks", 0, "number of ranks to shard the graph over (0 = one per CPU)")
	fs.String("log-level", "info", "log level (debug, info, warn, error)")
	fs.String("log-format", "console", "log format (console or json)")
	fs.String("log-file", "", "also write logs to this file")
}

// Load resolves the configuration from flags and environment.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("dcsc")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}

	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return c, nil
}
