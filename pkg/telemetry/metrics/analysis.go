package metrics

import (
	"time"

	"iqtoolkit/analyzer/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// AnalysisMetrics tracks end-to-end analysis requests and fallback use.
//
// Metrics:
//   - <ns>_analyses_total{status}
//   - <ns>_analysis_duration_seconds{status}
//   - <ns>_fallback_total{primary,fallback,outcome}
type AnalysisMetrics struct {
	analyses *prometheus.CounterVec
	duration *prometheus.HistogramVec
	fallback *prometheus.CounterVec
}

// NewAnalysisMetrics creates and registers analysis metrics with the provided registry.
func NewAnalysisMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *AnalysisMetrics {
	am := &AnalysisMetrics{
		analyses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "analyses_total",
				Help:      "Total number of analysis requests by final status",
			},
			[]string{"status"},
		),

		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "analysis_duration_seconds",
				Help:      "End-to-end analysis duration in seconds, including retries and fallback",
				Buckets:   cfg.LatencyBuckets,
			},
			[]string{"status"},
		),

		fallback: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "fallback_total",
				Help:      "Total number of fallback attempts by outcome",
			},
			[]string{"primary", "fallback", "outcome"},
		),
	}

	registry.MustRegister(am.analyses, am.duration, am.fallback)

	return am
}

// RecordAnalysis records a finished request.
func (am *AnalysisMetrics) RecordAnalysis(status string, duration time.Duration) {
	am.analyses.WithLabelValues(status).Inc()
	am.duration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordFallback records one fallback attempt.
func (am *AnalysisMetrics) RecordFallback(primary, fallback, outcome string) {
	am.fallback.WithLabelValues(primary, fallback, outcome).Inc()
}
