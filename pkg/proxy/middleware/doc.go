// Package middleware provides the HTTP middleware of the analyzer server.
//
// # Middleware Chain
//
// The server installs them outermost first:
//
//	Recovery -> RequestID -> Logging -> APIKey -> Timeout -> handler
//
// RequestID runs before Logging so every log line, including the access
// log, carries the request_id attribute.
//
//   - RecoveryMiddleware: turns panics into 500 {"detail"} replies
//   - RequestIDMiddleware: X-Request-ID in, UUID generated when absent
//   - LoggingMiddleware: one slog line per request with status and latency
//   - APIKeyMiddleware: X-API-Key (or Bearer) check when api_key_enabled
//   - TimeoutMiddleware: request deadline; handlers answer 504 on expiry
package middleware
