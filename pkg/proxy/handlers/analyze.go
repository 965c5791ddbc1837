package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"iqtoolkit/analyzer/pkg/analysis"
	"iqtoolkit/analyzer/pkg/proxy"
	"iqtoolkit/analyzer/pkg/telemetry/logging"
	"iqtoolkit/analyzer/pkg/telemetry/tracing"
)

// DefaultMaxBodyBytes caps the request body when none is configured.
const DefaultMaxBodyBytes int64 = 1 << 20

// Analyzer runs one analysis. *analyzer.Service implements it.
type Analyzer interface {
	Analyze(ctx context.Context, req analysis.AnalysisRequest) (*analysis.AnalysisResult, error)
}

// AnalyzeHandler serves POST /analyze/query.
type AnalyzeHandler struct {
	analyzer     Analyzer
	maxBodyBytes int64
}

// NewAnalyzeHandler creates the handler. A non-positive maxBodyBytes means
// DefaultMaxBodyBytes.
func NewAnalyzeHandler(a Analyzer, maxBodyBytes int64) *AnalyzeHandler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	return &AnalyzeHandler{analyzer: a, maxBodyBytes: maxBodyBytes}
}

// ServeHTTP decodes the request, runs the analysis and writes the result.
//
// Status codes:
//   - 200: AnalysisResult
//   - 400: body is not a single valid JSON object
//   - 413: body exceeds the size limit
//   - 422: a field is unknown or invalid
//   - 500: every provider failed
//   - 504: the request deadline passed
func (h *AnalyzeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context()).With("component", "handlers.analyze")

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req analysis.AnalysisRequest
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.As(err, &tooLarge):
			proxy.WriteError(w, http.StatusRequestEntityTooLarge, "Request body too large")
		case errors.As(err, &typeErr):
			field := typeErr.Field
			if field == "" {
				field = "body"
			}
			proxy.WriteError(w, http.StatusUnprocessableEntity, "invalid "+field+": expected "+typeErr.Type.String())
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			proxy.WriteError(w, http.StatusUnprocessableEntity, strings.TrimPrefix(err.Error(), "json: "))
		case errors.Is(err, io.EOF):
			proxy.WriteError(w, http.StatusBadRequest, "Request body is required")
		default:
			proxy.WriteError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		}
		return
	}
	if dec.More() {
		proxy.WriteError(w, http.StatusBadRequest, "Invalid JSON: unexpected data after request object")
		return
	}

	ctx, span := tracing.Start(r.Context(), "analyze.query", trace.WithAttributes(
		attribute.String("request.id", logging.GetRequestID(r.Context())),
		attribute.Int("query.length", len(req.Query)),
		attribute.Bool("query.has_context", req.Context != ""),
	))
	defer span.End()

	result, err := h.analyzer.Analyze(ctx, req)
	if err != nil {
		tracing.Fail(span, err)
		code, detail := proxy.StatusFor(err)
		if code >= http.StatusInternalServerError {
			logger.Error("query analysis failed", "status", code, "error", err)
		}
		proxy.WriteError(w, code, detail)
		return
	}

	span.SetAttributes(
		attribute.String("llm.provider", result.Provider),
		attribute.Bool("llm.fallback_used", result.FallbackUsed),
		attribute.Int("analysis.issues", len(result.Issues)),
		attribute.Int("analysis.index_suggestions", len(result.IndexSuggestions)),
	)
	proxy.WriteJSON(w, http.StatusOK, result)
}
