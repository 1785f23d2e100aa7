package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every configurable value for the logger.
type Config struct {
	// Remote server
	Endpoint string // OPC UA endpoint URL, e.g. "opc.tcp://10.0.5.76:4840"
	NodeID   string // data point to poll, e.g. "ns=1;s=G1_pressure"
	Unit     string // engineering unit recorded with each value

	// Acquisition
	PollIntervalSeconds   int // seconds between reads, > 0
	ConnectTimeoutSeconds int // per network operation, > 0

	// Browsing
	MaxBrowseDepth int // levels below the root before a browse aborts

	// Persistence
	LogFile string // append-only record store, e.g. "./readings.log"
	DBPath  string // optional SQLite mirror; empty disables it

	// Diagnostics
	LogLevel string // debug|info|warn|error
}

// PollInterval returns the polling period as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// ConnectTimeout returns the network operation timeout as a duration.
func (c *Config) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutSeconds) * time.Second
}

// Load reads configuration from (in decreasing priority):
//  1. environment variables (e.g. UALOGGER_ENDPOINT)
//  2. a yaml file (./configs/config.yaml) if it exists.
//
// Command-line flags are layered on top by the CLI after Load returns.
// It returns a fully populated *Config or an error.
func Load() (*Config, error) {
	v := viper.New()

	// Defaults mirror the acquisition setup this tool grew out of.
	v.SetDefault("Endpoint", "opc.tcp://localhost:4840")
	v.SetDefault("NodeID", "")
	v.SetDefault("Unit", "mbar")
	v.SetDefault("PollIntervalSeconds", 10)
	v.SetDefault("ConnectTimeoutSeconds", 10)
	v.SetDefault("MaxBrowseDepth", 8)
	v.SetDefault("LogFile", "./readings.log")
	v.SetDefault("DBPath", "")
	v.SetDefault("LogLevel", "info")

	v.SetEnvPrefix("ualogger")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Optional yaml file - useful for lab hosts that run several
	// gauges with different node ids.
	v.SetConfigName("config")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // ignore error - file is optional

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("cannot decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the invariants every mode depends on. NodeID is only
// required for acquisition and is checked by the run command instead.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("Endpoint must not be empty")
	}
	if c.PollIntervalSeconds <= 0 {
		return fmt.Errorf("PollIntervalSeconds must be > 0, got %d", c.PollIntervalSeconds)
	}
	if c.ConnectTimeoutSeconds <= 0 {
		return fmt.Errorf("ConnectTimeoutSeconds must be > 0, got %d", c.ConnectTimeoutSeconds)
	}
	if c.MaxBrowseDepth <= 0 {
		return fmt.Errorf("MaxBrowseDepth must be > 0, got %d", c.MaxBrowseDepth)
	}
	if c.LogFile == "" {
		return fmt.Errorf("LogFile must not be empty")
	}
	return nil
}
