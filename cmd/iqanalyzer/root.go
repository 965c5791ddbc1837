package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"iqtoolkit/analyzer/pkg/cli"
	"iqtoolkit/analyzer/pkg/config"
	"iqtoolkit/analyzer/pkg/telemetry/logging"
)

// defaultConfigFile is read when present; without it the built-in defaults
// and environment overrides apply.
const defaultConfigFile = "config.yaml"

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "iqanalyzer",
	Short: "LLM-backed SQL query performance analyzer",
	Long: `iqanalyzer sends SQL queries to a local or hosted LLM and turns the
answer into structured findings: issues, index suggestions, query rewrites
and anti-patterns.

The primary provider is retried on transient failures and a fallback
provider answers when the primary is exhausted.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with a code derived from the
// returned error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", defaultConfigFile, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// configPath returns the file to load, or "" when the default file is
// absent and --config was not given.
func configPath(cmd *cobra.Command) string {
	if cmd.Flags().Changed("config") {
		return cfgFile
	}
	if _, err := os.Stat(cfgFile); errors.Is(err, fs.ErrNotExist) {
		return ""
	}
	return cfgFile
}

// loadConfig initializes the global configuration for cmd.
func loadConfig(cmd *cobra.Command) (*config.Config, string, error) {
	path := configPath(cmd)
	if err := config.Initialize(path); err != nil {
		return nil, path, cli.NewConfigError("config", err.Error())
	}
	return config.GetConfig(), path, nil
}

// setupLogging installs the default logger. One-shot commands log warnings
// and above unless --verbose is set, so their stdout stays parseable.
func setupLogging(cfg *config.Config, w io.Writer, quiet bool) (*slog.Logger, error) {
	logCfg := logging.FromConfig(cfg.Telemetry.Logging, w)
	switch {
	case verbose:
		logCfg.Level = "debug"
	case quiet:
		logCfg.Level = "warn"
	}

	logger, err := logging.SetDefault(logCfg)
	if err != nil {
		return nil, cli.NewConfigError("telemetry.logging", err.Error())
	}
	return logger, nil
}
