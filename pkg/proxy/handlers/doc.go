// Package handlers implements the HTTP endpoints of the analyzer.
//
//   - POST /analyze/query: AnalyzeHandler
//   - GET /analyses: HistoryHandler.List
//   - GET /analyses/{id}: HistoryHandler.Get
//
// Health, readiness and version endpoints live in pkg/telemetry/health.
// Every error reply has the shape {"detail": "..."}.
package handlers
