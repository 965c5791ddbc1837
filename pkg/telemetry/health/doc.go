// Package health aggregates provider liveness probes and serves the health
// endpoints of the analyzer.
//
// # Aggregator
//
// An Aggregator holds one ProbeFunc per provider. CheckProviders runs all
// probes concurrently, each under its own timeout (5s by default), and
// always returns a complete name to bool map:
//
//	agg := health.New(5 * time.Second)
//	for name, p := range registry.Providers() {
//	    agg.Register(name, p.Probe)
//	}
//	alive := agg.CheckProviders(ctx) // {"ollama": true, "openai": false}
//
// A probe that errors, times out or panics is recorded as false. Total wall
// time is bounded by the probe timeout, not by the number of providers.
//
// # Endpoints
//
//   - /health: liveness, always 200 while the process runs
//   - /ready: readiness, 200 when at least one provider is alive, else 503
//   - /health/providers: per-provider map and details, always 200
//   - /version: build information
package health
