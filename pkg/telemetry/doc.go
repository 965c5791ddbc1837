// Package telemetry groups the observability packages of the analyzer.
//
// # Components
//
//   - logging: slog construction, secret redaction, request-scoped loggers
//   - metrics: Prometheus collectors for provider attempts, fallbacks and analyses
//   - health: concurrent provider probes behind /health, /ready and /health/providers
//   - tracing: OpenTelemetry spans for requests, analyses and provider attempts
//
// # Usage
//
//	logger, err := logging.SetDefault(logging.FromConfig(cfg.Telemetry.Logging, os.Stderr))
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	router.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
//
// Each component reads its section of config.TelemetryConfig and can be
// used on its own.
package telemetry
