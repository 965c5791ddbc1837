package middleware

import (
	"net/http"
	"runtime/debug"

	"iqtoolkit/analyzer/pkg/proxy"
	"iqtoolkit/analyzer/pkg/telemetry/logging"
)

// RecoveryMiddleware turns a handler panic into a 500 {"detail"} reply and
// logs the stack. Panic values are never sent to the client.
//
// Example usage:
//
//	handler = RecoveryMiddleware(handler)
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				if err == http.ErrAbortHandler {
					panic(err)
				}

				logging.FromContext(r.Context()).Error("panic in handler",
					"error", err,
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(debug.Stack()),
				)

				proxy.WriteError(w, http.StatusInternalServerError,
					"An internal error occurred. Please try again later.")
			}
		}()

		next.ServeHTTP(w, r)
	})
}
