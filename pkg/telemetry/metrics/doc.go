// Package metrics provides Prometheus metrics for the analyzer.
//
// # Metrics
//
//	iqtoolkit_provider_attempts_total{provider,outcome,kind}   counter
//	iqtoolkit_provider_latency_seconds{provider}               histogram
//	iqtoolkit_provider_up{provider}                            gauge
//	iqtoolkit_fallback_total{primary,fallback,outcome}         counter
//	iqtoolkit_analyses_total{status}                           counter
//	iqtoolkit_analysis_duration_seconds{status}                histogram
//
// The namespace is configurable through telemetry.metrics.namespace.
// The kind label carries the provider error kind (unavailable, timeout,
// protocol_error, auth_error), "none" for successful attempts and "canceled" when the
// caller gave up.
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//
//	orchestrator, _ := routing.NewOrchestrator(registry, routing.Options{
//		Primary:  "ollama",
//		Observer: collector,
//	})
//	aggregator.SetObserver(collector.SetProviderUp)
//
//	router.Handle("/metrics", collector.Handler())
//
// Every Collector owns its registry, so a configuration reload can build a
// new engine without duplicate-registration panics.
package metrics
