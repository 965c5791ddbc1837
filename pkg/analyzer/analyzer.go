package analyzer

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"iqtoolkit/analyzer/pkg/analysis"
	"iqtoolkit/analyzer/pkg/config"
	"iqtoolkit/analyzer/pkg/extract"
	"iqtoolkit/analyzer/pkg/history"
	"iqtoolkit/analyzer/pkg/prompt"
	"iqtoolkit/analyzer/pkg/telemetry/health"
	"iqtoolkit/analyzer/pkg/telemetry/logging"
	"iqtoolkit/analyzer/pkg/telemetry/metrics"
)

// Service runs analyses against the current Engine. The engine pointer is
// swapped atomically on reload; a request keeps the engine it started with.
type Service struct {
	engine  atomic.Pointer[Engine]
	history history.Store
	metrics *metrics.Collector
	logger  *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithHistory records every provider-backed analysis in store.
func WithHistory(store history.Store) Option {
	return func(s *Service) { s.history = store }
}

// WithMetrics records analysis outcomes in collector.
func WithMetrics(collector *metrics.Collector) Option {
	return func(s *Service) { s.metrics = collector }
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger.With("component", "analyzer") }
}

// New creates a service around engine.
func New(engine *Engine, opts ...Option) *Service {
	s := &Service{logger: slog.Default().With("component", "analyzer")}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.NewCollector(&config.MetricsConfig{Enabled: config.Bool(false)}, nil)
	}
	s.engine.Store(engine)
	return s
}

// Engine returns the current engine.
func (s *Service) Engine() *Engine {
	return s.engine.Load()
}

// Health returns the current engine's health aggregator.
func (s *Service) Health() *health.Aggregator {
	return s.engine.Load().Health()
}

// History returns the history store, or nil when history is disabled.
func (s *Service) History() history.Store {
	return s.history
}

// Swap installs engine and returns the previous one. The caller closes the
// previous engine once it no longer needs it.
func (s *Service) Swap(engine *Engine) *Engine {
	return s.engine.Swap(engine)
}

// Reload builds an engine from cfg and swaps it in. The previous engine is
// closed in the background so in-flight requests can finish on it. On
// error the current engine stays in place.
func (s *Service) Reload(ctx context.Context, cfg *config.Config) error {
	engine, err := NewEngine(ctx, cfg, s.metrics)
	if err != nil {
		return err
	}

	previous := s.Swap(engine)
	s.logger.Info("analyzer engine reloaded",
		"primary", cfg.LLM.Primary,
		"fallback", engine.Orchestrator().FallbackTarget(),
		"providers", engine.Registry().Names(),
	)

	if previous != nil {
		go func() {
			if err := s.retire(previous); err != nil {
				s.logger.Warn("failed to close previous engine", "error", err)
			}
		}()
	}
	return nil
}

// retire logs what an engine handled over its lifetime and closes it.
func (s *Service) retire(engine *Engine) error {
	stats := engine.Orchestrator().Stats()
	s.logger.Info("analyzer engine retired",
		"requests", stats.TotalRequests,
		"failures", stats.Failures,
		"fallbacks_used", stats.FallbacksUsed,
		"attempts", stats.AttemptsPerProvider,
		"failed_attempts", stats.FailuresPerProvider,
		"uptime", time.Since(stats.Since).Round(time.Second),
	)
	return engine.Close()
}

// Analyze validates req, runs the prompt through the orchestrator and
// extracts a structured result. Validation failures return
// *analysis.ValidationError without touching any provider. Provider
// failures return the orchestrator's error.
func (s *Service) Analyze(ctx context.Context, req analysis.AnalysisRequest) (*analysis.AnalysisResult, error) {
	start := time.Now()
	engine := s.engine.Load()
	logger := logging.FromContext(ctx).With("component", "analyzer")

	if err := req.ValidateWith(engine.Limits()); err != nil {
		s.metrics.ObserveAnalysis(metrics.StatusInvalid, time.Since(start))
		return nil, err
	}

	queryContext := req.Context
	if queryContext == "" && engine.schema != nil {
		queryContext = engine.schema.Build(ctx, req.Query)
		if queryContext != "" {
			logger.Debug("schema context attached", "context_length", len(queryContext))
		}
	}

	completion, err := engine.Orchestrator().Complete(ctx, prompt.Build(req.Query, queryContext))
	duration := time.Since(start)
	requestID := logging.GetRequestID(ctx)

	if err != nil {
		status := metrics.StatusProviderFailure
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			status = metrics.StatusTimeout
		}
		s.metrics.ObserveAnalysis(status, duration)

		logger.Error("analysis failed", "error", err, "duration_ms", duration.Milliseconds())

		record := history.NewRecord(requestID, req.Query, queryContext)
		record.Status = history.StatusFailed
		record.Error = logging.NewRedactor().RedactString(err.Error())
		record.Duration = duration
		s.record(record)
		return nil, err
	}

	result := extract.Extract(req.Query, completion.Text)
	result.Provider = completion.Provider
	result.FallbackUsed = completion.FallbackUsed
	result.RequestID = requestID

	s.metrics.ObserveAnalysis(metrics.StatusSuccess, duration)
	logger.Info("analysis completed",
		"provider", completion.Provider,
		"fallback_used", completion.FallbackUsed,
		"attempts", completion.Attempts,
		"issues", len(result.Issues),
		"index_suggestions", len(result.IndexSuggestions),
		"duration_ms", duration.Milliseconds(),
	)

	record := history.NewRecord(requestID, req.Query, queryContext)
	record.Status = history.StatusSuccess
	record.Provider = completion.Provider
	record.FallbackUsed = completion.FallbackUsed
	record.Result = result
	record.Duration = duration
	s.record(record)

	return result, nil
}

// record saves to history detached from the request context so a client
// disconnect does not lose the record. Failures are logged only.
func (s *Service) record(record *history.Record) {
	if s.history == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.history.Save(ctx, record); err != nil {
		s.logger.Warn("failed to record analysis history", "id", record.ID, "error", err)
	}
}

// Close closes the current engine.
func (s *Service) Close() error {
	return s.retire(s.engine.Load())
}
