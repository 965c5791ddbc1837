package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"iqtoolkit/analyzer/pkg/cli"
	"iqtoolkit/analyzer/pkg/config"
	"iqtoolkit/analyzer/pkg/history"
)

var historyFlags struct {
	limit    int
	offset   int
	provider string
	status   string
	since    string
	format   string
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect stored analyses",
	Long: `Inspect and maintain the analysis history store configured under
history: in the configuration file.`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored analyses, newest first",
	Long: `List stored analyses, newest first.

Examples:
  iqanalyzer history list
  iqanalyzer history list --provider openai --status failed
  iqanalyzer history list --since 24h --format json`,
	RunE: listHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one stored analysis",
	Args:  cobra.ExactArgs(1),
	RunE:  showHistory,
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Apply the retention policy once",
	Long: `Delete analyses older than history.retention_days and trim the store
to history.max_records, as the scheduled pruner does.`,
	RunE: pruneHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyPruneCmd)

	historyCmd.PersistentFlags().StringVarP(&historyFlags.format, "format", "o", "text", "output format: text, json")

	historyListCmd.Flags().IntVar(&historyFlags.limit, "limit", history.DefaultLimit, "maximum number of analyses")
	historyListCmd.Flags().IntVar(&historyFlags.offset, "offset", 0, "number of analyses to skip")
	historyListCmd.Flags().StringVar(&historyFlags.provider, "provider", "", "only analyses answered by this provider")
	historyListCmd.Flags().StringVar(&historyFlags.status, "status", "", "only analyses with this status (success, failed)")
	historyListCmd.Flags().StringVar(&historyFlags.since, "since", "", "only analyses after this time (RFC3339 or a duration such as 24h)")
}

// parseSince accepts an RFC3339 timestamp or a duration back from now.
func parseSince(s string, now time.Time) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return nil, cli.NewConfigError("since", fmt.Sprintf("%q is neither an RFC3339 time nor a positive duration", s))
	}
	t := now.Add(-d)
	return &t, nil
}

// buildFilter turns the list flags into a store filter.
func buildFilter(now time.Time) (history.Filter, error) {
	filter := history.Filter{
		Provider: historyFlags.provider,
		Status:   historyFlags.status,
		Limit:    historyFlags.limit,
		Offset:   historyFlags.offset,
	}

	switch filter.Status {
	case "", history.StatusSuccess, history.StatusFailed:
	default:
		return filter, cli.NewConfigError("status", fmt.Sprintf("unknown status %q", filter.Status))
	}
	if filter.Limit < 0 || filter.Offset < 0 {
		return filter, cli.NewConfigError("limit", "limit and offset must not be negative")
	}

	since, err := parseSince(historyFlags.since, now)
	if err != nil {
		return filter, err
	}
	filter.Since = since
	return filter, nil
}

// openHistoryStore opens the configured store for a one-shot command.
func openHistoryStore(cmd *cobra.Command) (history.Store, *config.Config, error) {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	if _, err := setupLogging(cfg, cmd.ErrOrStderr(), true); err != nil {
		return nil, nil, err
	}
	if !cfg.History.Enabled {
		return nil, nil, cli.NewConfigError("history.enabled", "history is disabled in the configuration")
	}

	store, err := history.Open(cfg.History)
	if err != nil {
		return nil, nil, cli.NewCommandError("history", err)
	}
	return store, cfg, nil
}

func listHistory(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(historyFlags.format)
	if err != nil {
		return err
	}
	filter, err := buildFilter(time.Now().UTC())
	if err != nil {
		return err
	}

	store, _, err := openHistoryStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.List(cmd.Context(), filter)
	if err != nil {
		return cli.NewCommandError("history", err)
	}
	total, err := store.Count(cmd.Context(), filter)
	if err != nil {
		return cli.NewCommandError("history", err)
	}

	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), cli.HistoryPage{Analyses: records, Total: total})
}

func showHistory(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(historyFlags.format)
	if err != nil {
		return err
	}

	store, _, err := openHistoryStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	record, err := store.Get(cmd.Context(), args[0])
	if errors.Is(err, history.ErrNotFound) {
		return cli.NewCommandError("history", fmt.Errorf("analysis %s not found", args[0]))
	}
	if err != nil {
		return cli.NewCommandError("history", err)
	}

	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), record)
}

func pruneHistory(cmd *cobra.Command, args []string) error {
	store, cfg, err := openHistoryStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	pruner := history.NewPruner(store, history.RetentionConfig{
		RetentionDays: cfg.History.RetentionDays,
		MaxRecords:    cfg.History.MaxRecords,
	})
	deleted, err := pruner.Prune(cmd.Context())
	if err != nil {
		return cli.NewCommandError("history", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Pruned %d analyses\n", deleted)
	return nil
}
