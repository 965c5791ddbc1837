package metrics

import (
	"time"

	"iqtoolkit/analyzer/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// ProviderMetrics tracks per-provider attempts, latency and liveness.
//
// Metrics:
//   - <ns>_provider_attempts_total{provider,outcome,kind}
//   - <ns>_provider_latency_seconds{provider}
//   - <ns>_provider_up{provider}: 1=healthy, 0=unhealthy
type ProviderMetrics struct {
	attempts *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	up       *prometheus.GaugeVec
}

// NewProviderMetrics creates and registers provider metrics with the provided registry.
func NewProviderMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ProviderMetrics {
	pm := &ProviderMetrics{
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "provider_attempts_total",
				Help:      "Total number of provider invocations by outcome and error kind",
			},
			[]string{"provider", "outcome", "kind"},
		),

		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "provider_latency_seconds",
				Help:      "Latency of a single provider invocation in seconds",
				Buckets:   cfg.LatencyBuckets,
			},
			[]string{"provider"},
		),

		up: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Name:      "provider_up",
				Help:      "Provider liveness from the last health probe (1=healthy, 0=unhealthy)",
			},
			[]string{"provider"},
		),
	}

	registry.MustRegister(pm.attempts, pm.latency, pm.up)

	return pm
}

// RecordAttempt records one invocation.
func (pm *ProviderMetrics) RecordAttempt(provider, outcome, kind string, latency time.Duration) {
	pm.attempts.WithLabelValues(provider, outcome, kind).Inc()
	pm.latency.WithLabelValues(provider).Observe(latency.Seconds())
}

// UpdateHealth sets the liveness gauge.
func (pm *ProviderMetrics) UpdateHealth(provider string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	pm.up.WithLabelValues(provider).Set(value)
}
