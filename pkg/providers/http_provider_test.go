package providers

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func newTestProvider(baseURL string, timeout time.Duration) *HTTPProvider {
	return NewHTTPProvider(ProviderConfig{
		Name:     "test-provider",
		Protocol: ProtocolChat,
		BaseURL:  baseURL,
		Model:    "m",
		Timeout:  timeout,
	}.WithDefaults())
}

func TestHTTPProvider_SingleAttemptOn5xx(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error": {"message": "upstream down"}}`))
	}))
	defer server.Close()

	p := newTestProvider(server.URL, 5*time.Second)
	_, err := p.Do(context.Background(), http.MethodPost, "/test", []byte(`{}`), nil)

	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ProviderError, got %T: %v", err, err)
	}
	if pe.Kind != KindProtocol || !pe.Transient {
		t.Errorf("expected transient protocol error, got kind=%s transient=%v", pe.Kind, pe.Transient)
	}
	if pe.StatusCode != http.StatusBadGateway {
		t.Errorf("expected status 502, got %d", pe.StatusCode)
	}
	if pe.Message != "upstream down" {
		t.Errorf("expected message from error body, got %q", pe.Message)
	}
	if got := atomic.LoadInt32(&attempts); got != 1 {
		t.Errorf("expected exactly 1 network call, got %d", got)
	}
}

func TestHTTPProvider_StatusClassification(t *testing.T) {
	tests := []struct {
		status    int
		kind      ErrorKind
		transient bool
		retryable bool
	}{
		{http.StatusUnauthorized, KindAuth, false, false},
		{http.StatusForbidden, KindAuth, false, false},
		{http.StatusBadRequest, KindProtocol, false, false},
		{http.StatusNotFound, KindProtocol, false, false},
		{http.StatusUnprocessableEntity, KindProtocol, false, false},
		{http.StatusTooManyRequests, KindProtocol, true, true},
		{http.StatusRequestTimeout, KindProtocol, true, true},
		{http.StatusInternalServerError, KindProtocol, true, true},
		{http.StatusServiceUnavailable, KindProtocol, true, true},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			p := newTestProvider(server.URL, 5*time.Second)
			_, err := p.Do(context.Background(), http.MethodGet, "/x", nil, nil)

			var pe *ProviderError
			if !errors.As(err, &pe) {
				t.Fatalf("expected ProviderError, got %T: %v", err, err)
			}
			if pe.Kind != tt.kind {
				t.Errorf("kind = %s, want %s", pe.Kind, tt.kind)
			}
			if pe.Transient != tt.transient {
				t.Errorf("transient = %v, want %v", pe.Transient, tt.transient)
			}
			if IsRetryable(err) != tt.retryable {
				t.Errorf("IsRetryable = %v, want %v", IsRetryable(err), tt.retryable)
			}
		})
	}
}

func TestHTTPProvider_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	p := newTestProvider(server.URL, 50*time.Millisecond)
	start := time.Now()
	_, err := p.Do(context.Background(), http.MethodGet, "/slow", nil, nil)

	if kind, ok := KindOf(err); !ok || kind != KindTimeout {
		t.Fatalf("expected timeout error, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("timeout took too long: %s", elapsed)
	}
}

func TestHTTPProvider_Unavailable(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := l.Addr().String()
	l.Close()

	p := newTestProvider("http://"+addr, time.Second)
	_, err = p.Do(context.Background(), http.MethodGet, "/x", nil, nil)

	if kind, ok := KindOf(err); !ok || kind != KindUnavailable {
		t.Fatalf("expected unavailable error, got %v", err)
	}
	if !IsRetryable(err) {
		t.Error("unavailable errors should be retryable")
	}
}

func TestHTTPProvider_CallerCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	p := newTestProvider(server.URL, 5*time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := p.Do(ctx, http.MethodGet, "/x", nil, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled in chain, got %v", err)
	}
	if _, ok := KindOf(err); ok {
		t.Error("caller cancellation must not be classified as a provider failure")
	}
}

func TestHTTPProvider_DoJSONDecodeFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	}))
	defer server.Close()

	p := newTestProvider(server.URL, time.Second)
	var out map[string]interface{}
	err := p.DoJSON(context.Background(), http.MethodPost, "/x", map[string]string{"a": "b"}, &out, nil)

	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if pe.Kind != KindProtocol || pe.Transient {
		t.Errorf("expected non-transient protocol error, got %s transient=%v", pe.Kind, pe.Transient)
	}
}

func TestHTTPProvider_ErrorDoesNotLeakCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	cfg := ProviderConfig{
		Name:     "secret-test",
		Protocol: ProtocolChat,
		BaseURL:  strings.Replace(server.URL, "http://", "http://user:hunter2@", 1),
		Model:    "m",
		APIKey:   "sk-very-secret",
		Timeout:  time.Second,
	}.WithDefaults()
	p := NewHTTPProvider(cfg)

	_, err := p.Do(context.Background(), http.MethodGet, "/models",
		nil, map[string]string{"Authorization": "Bearer " + cfg.APIKey})
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	if strings.Contains(msg, "sk-very-secret") || strings.Contains(msg, "hunter2") {
		t.Errorf("error message leaks credentials: %s", msg)
	}
}

func TestHTTPProvider_HealthTracking(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	p := newTestProvider(server.URL, time.Second)
	for i := 0; i < unhealthyThreshold; i++ {
		_, _ = p.Do(context.Background(), http.MethodGet, "/x", nil, nil)
	}
	if p.GetHealth().IsHealthy {
		t.Error("expected provider to be unhealthy after consecutive failures")
	}

	fail.Store(false)
	if _, err := p.Do(context.Background(), http.MethodGet, "/x", nil, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	health := p.GetHealth()
	if !health.IsHealthy || health.ConsecutiveFailures != 0 {
		t.Errorf("expected recovery, got %+v", health)
	}
	if health.TotalRequests != int64(unhealthyThreshold+1) || health.FailedRequests != int64(unhealthyThreshold) {
		t.Errorf("unexpected counters: total=%d failed=%d", health.TotalRequests, health.FailedRequests)
	}
}

func TestRedactURL(t *testing.T) {
	got := RedactURL("http://admin:pw@localhost:11434/api")
	if strings.Contains(got, "pw") {
		t.Errorf("RedactURL did not mask password: %s", got)
	}
	if !strings.Contains(got, "localhost:11434") {
		t.Errorf("RedactURL dropped host: %s", got)
	}
}

func TestHTTPProvider_PropagatesTraceContext(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator()) })

	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("traceparent")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{0x4b, 0xf9, 0x2f, 0x35},
		SpanID:     trace.SpanID{0x00, 0xf0, 0x67},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	p := newTestProvider(server.URL, time.Second)
	if _, err := p.Do(ctx, http.MethodGet, "/x", nil, nil); err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	want := "00-" + sc.TraceID().String() + "-" + sc.SpanID().String() + "-01"
	if got != want {
		t.Errorf("traceparent = %q, want %q", got, want)
	}
}
