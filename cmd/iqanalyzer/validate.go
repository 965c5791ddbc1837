package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"iqtoolkit/analyzer/pkg/cli"
	"iqtoolkit/analyzer/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Load the configuration file with .env files and environment overrides
applied and report every validation error.

Examples:
  iqanalyzer validate
  iqanalyzer validate --config /etc/iqtoolkit/config.yaml`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateConfig(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	path := configPath(cmd)

	cfg, err := config.LoadConfigWithEnvOverrides(path)
	if err != nil {
		var verr config.ValidationError
		if errors.As(err, &verr) {
			fmt.Fprintf(out, "✗ %d configuration error(s):\n", len(verr.Errors))
			for _, fe := range verr.Errors {
				fmt.Fprintf(out, "  - %s\n", fe.Error())
			}
		}
		return cli.NewConfigError("config", err.Error())
	}

	source := path
	if source == "" {
		source = "defaults"
	}
	fmt.Fprintf(out, "✓ Configuration valid (%s)\n", source)

	enabled := 0
	for _, p := range cfg.Providers {
		if p.IsEnabled() {
			enabled++
		}
	}
	fmt.Fprintf(out, "  primary:   %s\n", cfg.LLM.Primary)
	if cfg.LLM.IsFallbackEnabled() {
		fmt.Fprintf(out, "  fallback:  %s\n", cfg.LLM.Fallback)
	} else {
		fmt.Fprintln(out, "  fallback:  disabled")
	}
	fmt.Fprintf(out, "  providers: %d enabled of %d\n", enabled, len(cfg.Providers))
	fmt.Fprintf(out, "  history:   %t\n", cfg.History.Enabled)
	return nil
}
