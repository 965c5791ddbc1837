package analyzer

import (
	"context"
	"fmt"
	"log/slog"

	"iqtoolkit/analyzer/pkg/analysis"
	"iqtoolkit/analyzer/pkg/config"
	"iqtoolkit/analyzer/pkg/providerfactory"
	"iqtoolkit/analyzer/pkg/routing"
	"iqtoolkit/analyzer/pkg/schemactx"
	"iqtoolkit/analyzer/pkg/telemetry/health"
	"iqtoolkit/analyzer/pkg/telemetry/logging"
	"iqtoolkit/analyzer/pkg/telemetry/metrics"
)

// Engine is the immutable per-configuration state of the analyzer: the
// provider registry, the orchestrator over it, the health aggregator
// probing it, and the request limits. A reload builds a new Engine.
type Engine struct {
	registry     *providerfactory.Registry
	orchestrator *routing.Orchestrator
	health       *health.Aggregator
	limits       analysis.Limits
	schema       *schemactx.Fetcher
}

// NewEngine builds an engine from cfg. The schema fetcher is optional: a
// database that cannot be reached is logged and the engine runs without it.
func NewEngine(ctx context.Context, cfg *config.Config, collector *metrics.Collector) (*Engine, error) {
	registry, err := providerfactory.NewRegistry(cfg.ToProviderConfigs())
	if err != nil {
		return nil, fmt.Errorf("failed to build provider registry: %w", err)
	}

	var fetcher *schemactx.Fetcher
	if cfg.Schema.DSN != "" {
		source, err := schemactx.Connect(ctx, cfg.Schema.DSN)
		if err != nil {
			slog.Warn("schema context disabled, database unreachable", "component", "analyzer", "error", err)
		} else {
			fetcher = schemactx.NewFetcher(source, schemactx.Options{
				MaxTables: cfg.Schema.MaxTables,
				MaxLength: cfg.Analysis.MaxContextLength,
				Timeout:   cfg.Schema.Timeout,
			})
		}
	}

	engine, err := newEngine(registry, routing.Options{
		Primary:         cfg.LLM.Primary,
		Fallback:        cfg.LLM.Fallback,
		FallbackEnabled: cfg.LLM.IsFallbackEnabled(),
		RetryDelay:      cfg.LLM.RetryDelay,
	}, cfg.Limits(), health.New(cfg.Health.ProbeTimeout), fetcher, collector)
	if err != nil {
		registry.Close()
		if fetcher != nil {
			fetcher.Close()
		}
		return nil, err
	}
	return engine, nil
}

// NewEngineFromRegistry builds an engine over an existing registry.
func NewEngineFromRegistry(registry *providerfactory.Registry, opts routing.Options, limits analysis.Limits, collector *metrics.Collector) (*Engine, error) {
	return newEngine(registry, opts, limits, health.New(0), nil, collector)
}

func newEngine(registry *providerfactory.Registry, opts routing.Options, limits analysis.Limits, aggregator *health.Aggregator, fetcher *schemactx.Fetcher, collector *metrics.Collector) (*Engine, error) {
	if collector != nil {
		opts.Observer = collector
		aggregator.SetObserver(collector.SetProviderUp)
	}

	orchestrator, err := routing.NewOrchestrator(registry, opts)
	if err != nil {
		return nil, err
	}

	for name, provider := range registry.Providers() {
		aggregator.Register(name, provider.Probe)
	}
	aggregator.SetActivity(registryActivity(registry))

	return &Engine{
		registry:     registry,
		orchestrator: orchestrator,
		health:       aggregator,
		limits:       limits,
		schema:       fetcher,
	}, nil
}

// registryActivity reports each provider's invocation history to the
// health aggregator. Error text is redacted before it leaves the process.
func registryActivity(registry *providerfactory.Registry) health.ActivityFunc {
	redactor := logging.NewRedactor()
	return func() map[string]health.Activity {
		details := registry.HealthDetails()
		out := make(map[string]health.Activity, len(details))
		for name, h := range details {
			act := health.Activity{
				Degraded:            !h.IsHealthy,
				ConsecutiveFailures: h.ConsecutiveFailures,
				TotalRequests:       h.TotalRequests,
				FailedRequests:      h.FailedRequests,
			}
			if !h.LastSuccessfulRequest.IsZero() {
				last := h.LastSuccessfulRequest
				act.LastSuccess = &last
			}
			if h.LastError != nil {
				act.LastError = redactor.RedactString(h.LastError.Error())
			}
			out[name] = act
		}
		return out
	}
}

// WithSchema returns a copy of e that enriches empty contexts with f.
func (e *Engine) WithSchema(f *schemactx.Fetcher) *Engine {
	copied := *e
	copied.schema = f
	return &copied
}

// Registry returns the provider registry.
func (e *Engine) Registry() *providerfactory.Registry {
	return e.registry
}

// Orchestrator returns the fallback orchestrator.
func (e *Engine) Orchestrator() *routing.Orchestrator {
	return e.orchestrator
}

// Health returns the health aggregator.
func (e *Engine) Health() *health.Aggregator {
	return e.health
}

// Limits returns the request limits.
func (e *Engine) Limits() analysis.Limits {
	return e.limits
}

// Close releases provider connections and the schema pool.
func (e *Engine) Close() error {
	if e.schema != nil {
		e.schema.Close()
	}
	return e.registry.Close()
}
