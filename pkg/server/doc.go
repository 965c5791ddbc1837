// Package server wires the analyzer HTTP routes onto a chi router and
// manages the listener lifecycle.
//
// # Routes
//
//	POST /analyze/query      analyze one query
//	GET  /analyses           list stored analyses (history enabled)
//	GET  /analyses/{id}      one stored analysis (history enabled)
//	GET  /health             liveness
//	GET  /ready              readiness, 503 when every provider is down
//	GET  /health/providers   per-provider probe results
//	GET  /version            build information
//	GET  /metrics            Prometheus exposition (metrics enabled)
//
// The analyze and history routes sit behind the optional API key check and
// the request timeout. Probes, version and metrics do not.
//
// # Basic Usage
//
//	srv := server.New(cfg, service, collector, server.VersionInfo{Version: "1.0.0"})
//	if err := srv.Start(ctx); err != nil {
//	    return err
//	}
//
// Start blocks until ctx is cancelled and then drains in-flight requests
// for up to server.shutdown_timeout.
package server
