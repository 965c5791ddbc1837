package metrics

import (
	"context"
	"errors"
	"time"

	"iqtoolkit/analyzer/pkg/config"
	"iqtoolkit/analyzer/pkg/providers"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Analysis status label values.
const (
	StatusSuccess         = "success"
	StatusInvalid         = "invalid"
	StatusProviderFailure = "provider_failure"
	StatusTimeout         = "timeout"
)

// Collector owns every Prometheus metric the analyzer exports. It
// implements the routing attempt observer, so wiring it into the
// orchestrator is enough to get per-attempt counters and latencies.
//
// All methods are no-ops when metrics are disabled.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry
	enabled  bool

	providerMetrics *ProviderMetrics
	analysisMetrics *AnalysisMetrics
}

// NewCollector creates a new metrics collector with the specified configuration
// and Prometheus registry. If registry is nil, a fresh registry is created so
// that tests and reloads never collide on the global default registry.
//
// Example:
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	router.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if cfg == nil {
		cfg = &config.MetricsConfig{}
	}
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if len(cfg.LatencyBuckets) == 0 {
		cfg.LatencyBuckets = append([]float64(nil), config.DefaultLatencyBuckets...)
	}

	c := &Collector{
		config:   cfg,
		registry: registry,
		enabled:  cfg.IsEnabled(),
	}

	c.providerMetrics = NewProviderMetrics(cfg, registry)
	c.analysisMetrics = NewAnalysisMetrics(cfg, registry)

	return c
}

// Enabled reports whether the collector records anything.
func (c *Collector) Enabled() bool {
	return c.enabled
}

// ObserveAttempt records one provider invocation.
func (c *Collector) ObserveAttempt(provider string, err error, latency time.Duration) {
	if !c.enabled {
		return
	}

	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	c.providerMetrics.RecordAttempt(provider, outcome, errorKind(err), latency)
}

// ObserveFallback records that the fallback provider was tried.
func (c *Collector) ObserveFallback(primary, fallback string, succeeded bool) {
	if !c.enabled {
		return
	}

	outcome := OutcomeSuccess
	if !succeeded {
		outcome = OutcomeFailure
	}
	c.analysisMetrics.RecordFallback(primary, fallback, outcome)
}

// SetProviderUp updates the liveness gauge for a provider. Its signature
// matches the health aggregator's observer hook.
func (c *Collector) SetProviderUp(provider string, healthy bool) {
	if !c.enabled {
		return
	}

	c.providerMetrics.UpdateHealth(provider, healthy)
}

// ObserveAnalysis records a finished analysis request.
func (c *Collector) ObserveAnalysis(status string, duration time.Duration) {
	if !c.enabled {
		return
	}

	c.analysisMetrics.RecordAnalysis(status, duration)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// errorKind maps an attempt error onto the kind label.
func errorKind(err error) string {
	if err == nil {
		return "none"
	}
	if kind, ok := providers.KindOf(err); ok {
		return kind.String()
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return "unknown"
}
