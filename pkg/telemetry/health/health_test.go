package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"
	"time"

	internalproviders "iqtoolkit/analyzer/internal/providers"
	"iqtoolkit/analyzer/pkg/providers"
	"iqtoolkit/analyzer/pkg/providers/chat"
	"iqtoolkit/analyzer/pkg/providers/generate"
)

func alive(ctx context.Context) error { return nil }

func hang(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestNew_DefaultTimeout(t *testing.T) {
	if got := New(0).ProbeTimeout(); got != DefaultProbeTimeout {
		t.Errorf("default timeout = %v, want %v", got, DefaultProbeTimeout)
	}
	if got := New(time.Second).ProbeTimeout(); got != time.Second {
		t.Errorf("custom timeout = %v", got)
	}
}

func TestRegisterAndUnregister(t *testing.T) {
	a := New(time.Second)
	a.Register("b", alive)
	a.Register("a", alive)
	a.Register("a", alive)

	if !reflect.DeepEqual(a.Names(), []string{"a", "b"}) || a.Len() != 2 {
		t.Errorf("names = %v", a.Names())
	}

	a.Unregister("a")
	if a.Len() != 1 {
		t.Errorf("expected 1 probe after unregister, got %d", a.Len())
	}
}

func TestCheckProviders_OneHangingProbe(t *testing.T) {
	timeout := 100 * time.Millisecond
	a := New(timeout)
	a.Register("a", alive)
	a.Register("b", hang)
	a.Register("c", alive)

	start := time.Now()
	got := a.CheckProviders(context.Background())
	elapsed := time.Since(start)

	want := map[string]bool{"a": true, "b": false, "c": true}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CheckProviders = %v, want %v", got, want)
	}
	if elapsed > 2*timeout {
		t.Errorf("aggregate took %v, expected about one probe timeout (%v)", elapsed, timeout)
	}
}

func TestCheckProviders_ConcurrentNotSequential(t *testing.T) {
	timeout := 150 * time.Millisecond
	a := New(timeout)
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		a.Register(name, hang)
	}

	start := time.Now()
	got := a.CheckProviders(context.Background())
	elapsed := time.Since(start)

	if len(got) != 5 {
		t.Fatalf("expected 5 results, got %d", len(got))
	}
	for name, ok := range got {
		if ok {
			t.Errorf("hanging probe %s reported healthy", name)
		}
	}
	if elapsed > 3*timeout {
		t.Errorf("five hanging probes took %v; they should run concurrently", elapsed)
	}
}

func TestCheckProviders_ProbeIgnoringContext(t *testing.T) {
	a := New(50 * time.Millisecond)
	release := make(chan struct{})
	defer close(release)
	a.Register("stuck", func(context.Context) error {
		<-release
		return nil
	})

	start := time.Now()
	got := a.CheckProviders(context.Background())
	if got["stuck"] {
		t.Error("stuck probe must be unhealthy")
	}
	if time.Since(start) > time.Second {
		t.Error("a probe that ignores its context stalled the aggregate")
	}
}

func TestCheckProviders_ErrorsAndPanicsAreFalse(t *testing.T) {
	a := New(time.Second)
	a.Register("err", func(context.Context) error { return errors.New("connection refused") })
	a.Register("panic", func(context.Context) error { panic("boom") })
	a.Register("ok", alive)

	details := a.Details(context.Background())
	if details["err"].Healthy || details["err"].Error != "connection refused" {
		t.Errorf("err result = %+v", details["err"])
	}
	if details["panic"].Healthy || details["panic"].Error == "" {
		t.Errorf("panic result = %+v", details["panic"])
	}
	if !details["ok"].Healthy {
		t.Errorf("ok result = %+v", details["ok"])
	}
}

func TestCheckProviders_Empty(t *testing.T) {
	got := New(time.Second).CheckProviders(context.Background())
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil map, got %v", got)
	}
}

func TestSetObserver(t *testing.T) {
	a := New(time.Second)
	a.Register("a", alive)
	a.Register("b", func(context.Context) error { return errors.New("down") })

	var mu sync.Mutex
	seen := map[string]bool{}
	a.SetObserver(func(name string, healthy bool) {
		mu.Lock()
		defer mu.Unlock()
		seen[name] = healthy
	})

	a.CheckProviders(context.Background())

	mu.Lock()
	defer mu.Unlock()
	if !reflect.DeepEqual(seen, map[string]bool{"a": true, "b": false}) {
		t.Errorf("observer saw %v", seen)
	}
}

func TestDetails_MergesActivity(t *testing.T) {
	a := New(time.Second)
	a.Register("a", alive)
	a.Register("b", alive)

	last := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	a.SetActivity(func() map[string]Activity {
		return map[string]Activity{
			"a":       {ConsecutiveFailures: 3, Degraded: true, LastSuccess: &last, TotalRequests: 10, FailedRequests: 4},
			"removed": {TotalRequests: 1},
		}
	})

	details := a.Details(context.Background())
	if len(details) != 2 {
		t.Fatalf("expected 2 results, got %v", details)
	}
	act := details["a"].Activity
	if act == nil || !act.Degraded || act.ConsecutiveFailures != 3 || !act.LastSuccess.Equal(last) {
		t.Errorf("unexpected activity for a: %+v", act)
	}
	if details["b"].Activity != nil {
		t.Errorf("b has no activity, got %+v", details["b"].Activity)
	}
	if !details["a"].Healthy {
		t.Error("activity must not override the probe outcome")
	}
}

// Three real adapters, one pointing at a closed port.
func TestCheckProviders_RealAdapters(t *testing.T) {
	chatServer := internalproviders.NewMockServer()
	defer chatServer.Close()
	chatServer.SetResponse("/models", internalproviders.MockResponse{Body: internalproviders.MockModelsResponse("gpt-4o-mini")})

	generateServer := internalproviders.NewMockServer()
	defer generateServer.Close()
	generateServer.SetResponse("/api/tags", internalproviders.MockResponse{Body: internalproviders.MockTagsResponse("llama2:13b")})

	a1, err := chat.NewProvider(internalproviders.TestConfigWithURL("a", providers.ProtocolChat, chatServer.URL()))
	if err != nil {
		t.Fatal(err)
	}
	b, err := generate.NewProvider(internalproviders.TestConfigWithURL("b", providers.ProtocolGenerate, internalproviders.UnreachableURL(t)))
	if err != nil {
		t.Fatal(err)
	}
	c, err := generate.NewProvider(internalproviders.TestConfigWithURL("c", providers.ProtocolGenerate, generateServer.URL()))
	if err != nil {
		t.Fatal(err)
	}

	timeout := 2 * time.Second
	agg := New(timeout)
	agg.Register("a", a1.Probe)
	agg.Register("b", b.Probe)
	agg.Register("c", c.Probe)

	start := time.Now()
	got := agg.CheckProviders(context.Background())
	if time.Since(start) > timeout {
		t.Errorf("aggregate exceeded one probe timeout window")
	}

	want := map[string]bool{"a": true, "b": false, "c": true}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CheckProviders = %v, want %v", got, want)
	}
}

func TestLivenessHandler(t *testing.T) {
	a := New(time.Second)
	a.Register("down", func(context.Context) error { return errors.New("down") })

	rec := httptest.NewRecorder()
	a.LivenessHandler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("liveness status = %d", rec.Code)
	}
	var body HealthStatus
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil || body.Status != StatusOK {
		t.Errorf("body = %+v, err = %v", body, err)
	}
}

func TestReadinessHandler(t *testing.T) {
	tests := []struct {
		name   string
		probes map[string]ProbeFunc
		code   int
		status string
	}{
		{"no providers", nil, http.StatusOK, StatusReady},
		{"one alive", map[string]ProbeFunc{"a": alive, "b": func(context.Context) error { return errors.New("x") }}, http.StatusOK, StatusReady},
		{"all down", map[string]ProbeFunc{"a": func(context.Context) error { return errors.New("x") }}, http.StatusServiceUnavailable, StatusUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New(time.Second)
			for name, probe := range tt.probes {
				a.Register(name, probe)
			}

			rec := httptest.NewRecorder()
			a.ReadinessHandler()(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

			if rec.Code != tt.code {
				t.Errorf("status code = %d, want %d", rec.Code, tt.code)
			}
			var body HealthStatus
			_ = json.NewDecoder(rec.Body).Decode(&body)
			if body.Status != tt.status {
				t.Errorf("status = %q, want %q", body.Status, tt.status)
			}
		})
	}
}

func TestProvidersHandler(t *testing.T) {
	a := New(time.Second)
	a.Register("ollama", alive)
	a.Register("openai", func(context.Context) error { return errors.New("401") })

	rec := httptest.NewRecorder()
	a.ProvidersHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/providers", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body ProvidersStatus
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !reflect.DeepEqual(body.Providers, map[string]bool{"ollama": true, "openai": false}) {
		t.Errorf("providers = %v", body.Providers)
	}
	if body.Details["openai"].Error != "401" {
		t.Errorf("details = %+v", body.Details)
	}
}

func TestHandlers_MethodNotAllowed(t *testing.T) {
	rec := httptest.NewRecorder()
	New(time.Second).LivenessHandler()(rec, httptest.NewRequest(http.MethodPost, "/health", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestVersionHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	VersionHandler("1.2.3", "abc123", "2025-01-01")(rec, httptest.NewRequest(http.MethodGet, "/version", nil))

	var info VersionInfo
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if info.Version != "1.2.3" || info.Commit != "abc123" || info.GoVersion == "" {
		t.Errorf("info = %+v", info)
	}
}
