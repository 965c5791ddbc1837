package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"iqtoolkit/analyzer/pkg/analysis"
	"iqtoolkit/analyzer/pkg/analyzer"
	"iqtoolkit/analyzer/pkg/cli"
	"iqtoolkit/analyzer/pkg/config"
	"iqtoolkit/analyzer/pkg/history"
	"iqtoolkit/analyzer/pkg/telemetry/metrics"
)

var analyzeFlags struct {
	query   string
	file    string
	context string
	dsn     string
	format  string
	record  bool
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [query]",
	Short: "Analyze one SQL query",
	Long: `Analyze one SQL query with the configured providers and print the result.

The query is taken from the first argument, --query, --file, or standard
input, in that order. With --dsn (or schema.dsn in the config) the
columns and indexes of the referenced tables are sent as context when
--context is not given.

Exit status is 2 for an invalid query and 3 when every provider failed.

Examples:
  iqanalyzer analyze "SELECT * FROM orders WHERE customer_id = 42"
  iqanalyzer analyze --file slow.sql --format json
  cat slow.sql | iqanalyzer analyze --dsn postgres://localhost/app`,
	Args: cobra.MaximumNArgs(1),
	RunE: analyzeQuery,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVarP(&analyzeFlags.query, "query", "q", "", "SQL query to analyze")
	analyzeCmd.Flags().StringVarP(&analyzeFlags.file, "file", "f", "", "read the query from a file")
	analyzeCmd.Flags().StringVar(&analyzeFlags.context, "context", "", "extra context sent with the query")
	analyzeCmd.Flags().StringVar(&analyzeFlags.dsn, "dsn", "", "Postgres DSN used to describe referenced tables")
	analyzeCmd.Flags().StringVarP(&analyzeFlags.format, "format", "o", "text", "output format: text, json")
	analyzeCmd.Flags().BoolVar(&analyzeFlags.record, "record", false, "save the analysis to the history store")
}

// readQuery resolves the query text from args, flags or stdin.
func readQuery(args []string, query, file string, stdin io.Reader) (string, error) {
	switch {
	case len(args) > 0:
		return args[0], nil
	case query != "":
		return query, nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", cli.NewConfigError("file", err.Error())
		}
		return string(data), nil
	}

	if f, ok := stdin.(*os.File); ok {
		if info, err := f.Stat(); err == nil && info.Mode()&os.ModeCharDevice != 0 {
			return "", cli.NewConfigError("query", "no query given (use an argument, --query, --file or stdin)")
		}
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", cli.NewConfigError("stdin", err.Error())
	}
	return string(data), nil
}

func analyzeQuery(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(analyzeFlags.format)
	if err != nil {
		return err
	}

	query, err := readQuery(args, analyzeFlags.query, analyzeFlags.file, cmd.InOrStdin())
	if err != nil {
		return err
	}

	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if analyzeFlags.dsn != "" {
		cfg.Schema.DSN = analyzeFlags.dsn
	}
	if _, err := setupLogging(cfg, cmd.ErrOrStderr(), true); err != nil {
		return err
	}

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	collector := metrics.NewCollector(&config.MetricsConfig{Enabled: config.Bool(false)}, nil)
	engine, err := analyzer.NewEngine(ctx, cfg, collector)
	if err != nil {
		return cli.NewCommandError("analyze", err)
	}

	var opts []analyzer.Option
	if analyzeFlags.record {
		store, err := history.Open(cfg.History)
		if err != nil {
			engine.Close()
			return cli.NewCommandError("analyze", err)
		}
		defer store.Close()
		opts = append(opts, analyzer.WithHistory(store))
	}

	service := analyzer.New(engine, opts...)
	defer service.Close()

	result, err := service.Analyze(ctx, analysis.AnalysisRequest{
		Query:   strings.TrimSpace(query),
		Context: analyzeFlags.context,
	})
	if err != nil {
		return cli.NewCommandError("analyze", err)
	}

	if err := cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), result); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}
	return nil
}
