package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"ualogger/config"
)

// RootOptions holds global flags shared by all commands.
type RootOptions struct {
	Endpoint string
	LogLevel string
}

// NewRootCommand creates the root command for the ualogger CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "ualogger",
		Short: "ualogger - OPC UA data point logger",
		Long: "Polls one data point on an OPC UA server on a fixed interval and\n" +
			"appends timestamped readings to an append-only log file.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags. Empty defaults mean "keep the configured value".
	cmd.PersistentFlags().StringVar(&opts.Endpoint, "endpoint", "", "OPC UA endpoint URL (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level: debug|info|warn|error (overrides config)")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewBrowseCommand(opts))

	return cmd
}

// loadConfig loads configuration and layers the global flags on top.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if opts.Endpoint != "" {
		cfg.Endpoint = opts.Endpoint
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
