package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	testtracing "iqtoolkit/analyzer/internal/tracing"
	"iqtoolkit/analyzer/pkg/analysis"
	"iqtoolkit/analyzer/pkg/history"
	"iqtoolkit/analyzer/pkg/providers"
	"iqtoolkit/analyzer/pkg/routing"
	"iqtoolkit/analyzer/pkg/telemetry/tracing"
)

type stubAnalyzer struct {
	result *analysis.AnalysisResult
	err    error
	calls  int
	last   analysis.AnalysisRequest
	ctx    context.Context
}

func (s *stubAnalyzer) Analyze(ctx context.Context, req analysis.AnalysisRequest) (*analysis.AnalysisResult, error) {
	s.calls++
	s.last = req
	s.ctx = ctx
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.result, s.err
}

func postAnalyze(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/analyze/query", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func detail(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("error body is not JSON: %v (%q)", err, w.Body.String())
	}
	return body.Detail
}

func TestAnalyzeHandler_Success(t *testing.T) {
	result := analysis.NewResult("SELECT 1", time.Now())
	result.Summary = "fine"
	result.Provider = "ollama"
	stub := &stubAnalyzer{result: result}

	w := postAnalyze(t, NewAnalyzeHandler(stub, 0), `{"query": "SELECT 1", "context": "tiny table"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if stub.last.Context != "tiny table" {
		t.Errorf("context = %q, want tiny table", stub.last.Context)
	}

	var got analysis.AnalysisResult
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got.Summary != "fine" || got.Provider != "ollama" {
		t.Errorf("result = %+v", got)
	}
	if got.Issues == nil || got.IndexSuggestions == nil {
		t.Error("empty lists should encode as [] not null")
	}
}

func TestAnalyzeHandler_Traced(t *testing.T) {
	exporter := testtracing.Record(t)

	result := analysis.NewResult("SELECT 1", time.Now())
	result.Provider = "openai"
	result.FallbackUsed = true
	stub := &stubAnalyzer{result: result}

	if w := postAnalyze(t, NewAnalyzeHandler(stub, 0), `{"query": "SELECT 1"}`); w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	spans := testtracing.Named(exporter, "analyze.query")
	if len(spans) != 1 {
		t.Fatalf("expected 1 analyze span, got %d", len(spans))
	}
	if got := tracing.TraceID(stub.ctx); got != spans[0].SpanContext.TraceID().String() {
		t.Errorf("analyzer ran outside the analyze span: trace %q", got)
	}
	attrs := map[string]string{}
	for _, kv := range spans[0].Attributes {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	if attrs["llm.provider"] != "openai" || attrs["llm.fallback_used"] != "true" || attrs["query.length"] != "8" {
		t.Errorf("unexpected attributes %v", attrs)
	}
}

func TestAnalyzeHandler_Errors(t *testing.T) {
	exhausted := &routing.ExhaustedError{
		Provider: "openai",
		Attempts: 1,
		LastErr:  providers.NewAuthError("openai", http.StatusUnauthorized, "bad key sk-abcdefghijklmnopqrstuvwx"),
	}

	tests := []struct {
		name       string
		body       string
		maxBody    int64
		err        error
		wantCode   int
		wantDetail string
		wantCalls  int
	}{
		{
			name:       "undecodable json",
			body:       `{"query": `,
			wantCode:   http.StatusBadRequest,
			wantDetail: "Invalid JSON",
		},
		{
			name:       "empty body",
			body:       ``,
			wantCode:   http.StatusBadRequest,
			wantDetail: "Request body is required",
		},
		{
			name:       "trailing data",
			body:       `{"query": "SELECT 1"} junk`,
			wantCode:   http.StatusBadRequest,
			wantDetail: "unexpected data after request object",
		},
		{
			name:       "second object",
			body:       `{"query": "SELECT 1"}{"query": "SELECT 2"}`,
			wantCode:   http.StatusBadRequest,
			wantDetail: "unexpected data",
		},
		{
			name:       "unknown field",
			body:       `{"query": "SELECT 1", "dialect": "postgres"}`,
			wantCode:   http.StatusUnprocessableEntity,
			wantDetail: `unknown field "dialect"`,
		},
		{
			name:       "wrong field type",
			body:       `{"query": 42}`,
			wantCode:   http.StatusUnprocessableEntity,
			wantDetail: "invalid query",
		},
		{
			name:       "empty query",
			body:       `{"query": "  "}`,
			wantCode:   http.StatusUnprocessableEntity,
			wantDetail: "query is required",
			wantCalls:  1,
		},
		{
			name:       "oversized body",
			body:       `{"query": "` + strings.Repeat("x", 200) + `"}`,
			maxBody:    64,
			wantCode:   http.StatusRequestEntityTooLarge,
			wantDetail: "too large",
		},
		{
			name:       "all providers failed",
			body:       `{"query": "SELECT 1"}`,
			err:        &routing.AllProvidersFailedError{Primary: exhausted},
			wantCode:   http.StatusInternalServerError,
			wantDetail: "Analysis failed: all providers failed",
			wantCalls:  1,
		},
		{
			name:       "timeout",
			body:       `{"query": "SELECT 1"}`,
			err:        fmt.Errorf("provider %q: attempt 1 cancelled: %w", "ollama", context.DeadlineExceeded),
			wantCode:   http.StatusGatewayTimeout,
			wantDetail: "timed out",
			wantCalls:  1,
		},
		{
			name:       "configuration",
			body:       `{"query": "SELECT 1"}`,
			err:        &routing.ConfigurationError{Provider: "ollama", Message: "primary provider is not configured"},
			wantCode:   http.StatusInternalServerError,
			wantDetail: "configuration",
			wantCalls:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubAnalyzer{err: tt.err}
			w := postAnalyze(t, NewAnalyzeHandler(stub, tt.maxBody), tt.body)

			if w.Code != tt.wantCode {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.wantCode, w.Body.String())
			}
			if got := detail(t, w); !strings.Contains(got, tt.wantDetail) {
				t.Errorf("detail = %q, want to contain %q", got, tt.wantDetail)
			}
			if stub.calls != tt.wantCalls {
				t.Errorf("analyzer calls = %d, want %d", stub.calls, tt.wantCalls)
			}
		})
	}
}

func TestAnalyzeHandler_RedactsSecrets(t *testing.T) {
	exhausted := &routing.ExhaustedError{
		Provider: "openai",
		Attempts: 1,
		LastErr:  errors.New("upstream rejected key sk-abcdefghijklmnopqrstuvwx"),
	}
	stub := &stubAnalyzer{err: &routing.AllProvidersFailedError{Primary: exhausted}}

	w := postAnalyze(t, NewAnalyzeHandler(stub, 0), `{"query": "SELECT 1"}`)

	if got := detail(t, w); strings.Contains(got, "sk-abcdefghijklmnopqrstuvwx") {
		t.Errorf("detail leaks api key: %q", got)
	}
}

func newHistoryRouter(store history.Store) http.Handler {
	h := NewHistoryHandler(store)
	r := chi.NewRouter()
	r.Get("/analyses", h.List)
	r.Get("/analyses/{id}", h.Get)
	return r
}

func seedHistory(t *testing.T, store history.Store) []*history.Record {
	t.Helper()

	base := time.Now().UTC().Add(-time.Hour)
	var records []*history.Record
	for i, provider := range []string{"ollama", "openai", "ollama"} {
		r := history.NewRecord(fmt.Sprintf("req-%d", i), fmt.Sprintf("SELECT %d", i), "")
		r.Provider = provider
		r.Status = history.StatusSuccess
		r.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if err := store.Save(context.Background(), r); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		records = append(records, r)
	}
	return records
}

func TestHistoryHandler_List(t *testing.T) {
	store := history.NewMemoryStore()
	seedHistory(t, store)
	router := newHistoryRouter(store)

	tests := []struct {
		name      string
		query     string
		wantCode  int
		wantCount int
		wantTotal int64
	}{
		{name: "all", query: "", wantCode: http.StatusOK, wantCount: 3, wantTotal: 3},
		{name: "by provider", query: "?provider=ollama", wantCode: http.StatusOK, wantCount: 2, wantTotal: 2},
		{name: "paged", query: "?limit=1&offset=1", wantCode: http.StatusOK, wantCount: 1, wantTotal: 3},
		{name: "bad limit", query: "?limit=abc", wantCode: http.StatusBadRequest},
		{name: "bad status", query: "?status=pending", wantCode: http.StatusBadRequest},
		{name: "bad since", query: "?since=yesterday", wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/analyses"+tt.query, nil))

			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.wantCode, w.Body.String())
			}
			if tt.wantCode != http.StatusOK {
				return
			}

			var resp ListResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if len(resp.Analyses) != tt.wantCount || resp.Total != tt.wantTotal {
				t.Errorf("got %d analyses, total %d; want %d, %d", len(resp.Analyses), resp.Total, tt.wantCount, tt.wantTotal)
			}
		})
	}
}

func TestHistoryHandler_Get(t *testing.T) {
	store := history.NewMemoryStore()
	records := seedHistory(t, store)
	router := newHistoryRouter(store)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/analyses/"+records[1].ID, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var got history.Record
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got.ID != records[1].ID || got.Provider != "openai" {
		t.Errorf("record = %+v", got)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/analyses/unknown", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	if d := detail(t, w); d != "Analysis not found" {
		t.Errorf("detail = %q", d)
	}
}
