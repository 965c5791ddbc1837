package main

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"iqtoolkit/analyzer/pkg/analyzer"
	"iqtoolkit/analyzer/pkg/cli"
	"iqtoolkit/analyzer/pkg/config"
	"iqtoolkit/analyzer/pkg/telemetry/metrics"
)

var healthFlags struct {
	format string
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Probe every configured provider",
	Long: `Probe every enabled provider concurrently and print the results.

Exits non-zero when no provider is reachable.`,
	RunE: checkHealth,
}

func init() {
	rootCmd.AddCommand(healthCmd)

	healthCmd.Flags().StringVarP(&healthFlags.format, "format", "o", "text", "output format: text, json")
}

func checkHealth(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(healthFlags.format)
	if err != nil {
		return err
	}

	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if _, err := setupLogging(cfg, cmd.ErrOrStderr(), true); err != nil {
		return err
	}

	collector := metrics.NewCollector(&config.MetricsConfig{Enabled: config.Bool(false)}, nil)
	engine, err := analyzer.NewEngine(cmd.Context(), cfg, collector)
	if err != nil {
		return cli.NewCommandError("health", err)
	}
	defer engine.Close()

	details := engine.Health().Details(cmd.Context())

	out := cmd.OutOrStdout()
	if format == cli.FormatJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(map[string]any{"providers": details}); err != nil {
			return err
		}
	} else {
		names := make([]string, 0, len(details))
		for name := range details {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			r := details[name]
			if r.Healthy {
				fmt.Fprintf(out, "✓ %-12s %6.0fms\n", name, r.LatencyMS)
			} else {
				fmt.Fprintf(out, "✗ %-12s %6.0fms  %s\n", name, r.LatencyMS, r.Error)
			}
		}
	}

	for _, r := range details {
		if r.Healthy {
			return nil
		}
	}
	if len(details) == 0 {
		return nil
	}
	return cli.NewCommandError("health", fmt.Errorf("no provider is reachable"))
}
