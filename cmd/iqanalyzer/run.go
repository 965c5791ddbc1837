package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"iqtoolkit/analyzer/pkg/analyzer"
	"iqtoolkit/analyzer/pkg/cli"
	"iqtoolkit/analyzer/pkg/config"
	"iqtoolkit/analyzer/pkg/history"
	"iqtoolkit/analyzer/pkg/server"
	"iqtoolkit/analyzer/pkg/telemetry/logging"
	"iqtoolkit/analyzer/pkg/telemetry/metrics"
	"iqtoolkit/analyzer/pkg/telemetry/tracing"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
	noWatch       bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the analyzer HTTP service",
	Long: `Start the analyzer HTTP service with the specified configuration.

The service exposes POST /analyze/query, health and readiness probes,
Prometheus metrics and, when history is enabled, the stored analyses.
Editing the configuration file or sending SIGHUP rebuilds the provider
engine without dropping in-flight requests.

Examples:
  # Start with default config
  iqanalyzer run

  # Start with custom config
  iqanalyzer run --config /etc/iqtoolkit/config.yaml

  # Override listen address
  iqanalyzer run --listen 127.0.0.1:9000

  # Validate config without starting server
  iqanalyzer run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
	runCmd.Flags().BoolVar(&runFlags.noWatch, "no-watch", false, "do not reload when the config file changes")
}

// applyRunOverrides applies flag overrides to a freshly loaded config. It
// runs again on every reload so the flags keep winning.
func applyRunOverrides(cfg *config.Config) error {
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		if _, err := logging.ParseLevel(runFlags.logLevel); err != nil {
			return cli.NewConfigError("log-level", err.Error())
		}
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	return nil
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, path, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := applyRunOverrides(cfg); err != nil {
		return err
	}

	logger, err := setupLogging(cfg, os.Stderr, false)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if runFlags.dryRun {
		fmt.Fprintln(out, "✓ Configuration valid")
		return nil
	}

	printBanner(out, cfg, path)

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	tracer, err := tracing.New(ctx, &cfg.Telemetry.Tracing, Version)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("failed to flush traces", "error", err)
		}
	}()
	if tracer.Enabled() {
		fmt.Fprintf(out, "✓ Tracing to %s\n", cfg.Telemetry.Tracing.Endpoint)
	}

	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)

	engine, err := analyzer.NewEngine(ctx, cfg, collector)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	fmt.Fprintf(out, "✓ Providers initialized (%d providers, primary %s)\n",
		len(engine.Registry().Names()), cfg.LLM.Primary)

	opts := []analyzer.Option{analyzer.WithMetrics(collector)}
	if cfg.History.Enabled {
		store, scheduler, err := openHistory(ctx, cfg.History)
		if err != nil {
			engine.Close()
			return cli.NewCommandError("run", err)
		}
		defer store.Close()
		defer scheduler.Stop()
		opts = append(opts, analyzer.WithHistory(store))
		fmt.Fprintf(out, "✓ History store initialized (%s)\n", cfg.History.Path)
	}

	service := analyzer.New(engine, opts...)
	defer service.Close()

	reload := func(newCfg *config.Config) error {
		if err := applyRunOverrides(newCfg); err != nil {
			return err
		}
		return service.Reload(ctx, newCfg)
	}
	if path != "" && !runFlags.noWatch {
		watchConfig(ctx, path, logger, reload)
	}
	go reloadOnSignal(ctx, path, logger, reload)

	srv := server.New(cfg, service, collector, server.VersionInfo{
		Version:   Version,
		Commit:    GitCommit,
		BuildTime: BuildDate,
	})

	fmt.Fprintf(out, "✓ Listening on %s\n", cfg.Server.ListenAddress)
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")

	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}

	fmt.Fprintln(out, "✓ Server stopped")
	return nil
}

// openHistory opens the store and starts its retention scheduler.
func openHistory(ctx context.Context, cfg config.HistoryConfig) (history.Store, *history.Scheduler, error) {
	store, err := history.Open(cfg)
	if err != nil {
		return nil, nil, err
	}

	pruner := history.NewPruner(store, history.RetentionConfig{
		RetentionDays: cfg.RetentionDays,
		MaxRecords:    cfg.MaxRecords,
		PruneSchedule: cfg.PruneSchedule,
	})
	scheduler := history.NewScheduler(pruner)
	if err := scheduler.Start(ctx); err != nil {
		store.Close()
		return nil, nil, err
	}
	if next := scheduler.NextRun(); next != nil {
		slog.Debug("history retention scheduler started", "next_run", next)
	}
	return store, scheduler, nil
}

func watchConfig(ctx context.Context, path string, logger *slog.Logger, reload config.ReloadFunc) {
	watcher, err := config.NewWatcher(path, 0, logger)
	if err != nil {
		logger.Warn("config hot reload disabled", "error", err)
		return
	}
	go func() {
		if err := watcher.Watch(ctx, reload); err != nil {
			logger.Error("config watcher stopped", "error", err)
		}
	}()
}

func reloadOnSignal(ctx context.Context, path string, logger *slog.Logger, reload config.ReloadFunc) {
	hup, stop := cli.ReloadSignal()
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			cfg, err := config.ReloadConfig(path)
			if err != nil {
				logger.Error("config reload failed, keeping previous configuration", "error", err)
				continue
			}
			if err := reload(cfg); err != nil {
				logger.Error("engine reload failed", "error", err)
				continue
			}
			logger.Info("configuration reloaded on SIGHUP")
		}
	}
}

func printBanner(w io.Writer, cfg *config.Config, path string) {
	fmt.Fprintf(w, "iqanalyzer v%s\n", Version)
	if path == "" {
		fmt.Fprintln(w, "No config file found, using defaults and environment")
	} else {
		fmt.Fprintf(w, "Loading configuration from: %s\n", path)
	}
	fmt.Fprintln(w, "✓ Configuration loaded")

	slog.Debug("routing configured",
		"primary", cfg.LLM.Primary,
		"fallback", cfg.LLM.Fallback,
		"fallback_enabled", cfg.LLM.IsFallbackEnabled(),
	)
	if cfg.Schema.DSN != "" {
		slog.Debug("schema context enabled", "max_tables", cfg.Schema.MaxTables)
	}
}
