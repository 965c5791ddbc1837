package middleware

import (
	"log/slog"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"iqtoolkit/analyzer/pkg/telemetry/logging"
	"iqtoolkit/analyzer/pkg/telemetry/tracing"
)

// LoggingMiddleware logs one line per request. 5xx responses log at error
// level, 4xx at warn and everything else at info. It must run after
// RequestIDMiddleware so the line carries the request ID, and after the
// tracing middleware so it carries the trace ID.
//
//	{
//	  "level": "INFO",
//	  "msg": "request completed",
//	  "method": "POST",
//	  "path": "/analyze/query",
//	  "status": 200,
//	  "bytes": 512,
//	  "latency_ms": 1250,
//	  "request_id": "5f0c..."
//	}
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		logger := logging.FromContext(r.Context())

		logger.Debug("request started",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"user_agent", r.UserAgent(),
		)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			// Nothing was written; net/http replies 200.
			status = http.StatusOK
		}

		level := slog.LevelInfo
		switch {
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		}

		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"latency_ms", time.Since(start).Milliseconds(),
			"remote_addr", r.RemoteAddr,
		}
		if traceID := tracing.TraceID(r.Context()); traceID != "" {
			attrs = append(attrs, "trace_id", traceID)
		}
		logger.Log(r.Context(), level, "request completed", attrs...)
	})
}
