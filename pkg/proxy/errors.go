package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"iqtoolkit/analyzer/pkg/analysis"
	"iqtoolkit/analyzer/pkg/routing"
	"iqtoolkit/analyzer/pkg/telemetry/logging"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

var redactor = logging.NewRedactor()

// WriteError writes {"detail": detail} with code.
func WriteError(w http.ResponseWriter, code int, detail string) {
	WriteJSON(w, code, ErrorResponse{Detail: detail})
}

// WriteJSON encodes body as JSON with code.
func WriteJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "component", "proxy", "error", err)
	}
}

// StatusFor maps an analysis error onto an HTTP status and a client-safe
// detail message. Secrets that providers echo back are redacted.
func StatusFor(err error) (int, string) {
	var verr *analysis.ValidationError
	if errors.As(err, &verr) {
		return http.StatusUnprocessableEntity, verr.Error()
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, "Analysis timed out"
	}

	var cfgErr *routing.ConfigurationError
	if errors.As(err, &cfgErr) {
		return http.StatusInternalServerError, "Analysis failed: provider configuration error"
	}

	return http.StatusInternalServerError, "Analysis failed: " + redactor.RedactString(err.Error())
}
