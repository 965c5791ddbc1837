package tracing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"iqtoolkit/analyzer/pkg/config"
)

func record(t *testing.T, ratio float64) *tracetest.InMemoryExporter {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tracer := NewWithExporter(&config.TracingConfig{
		Enabled:     true,
		ServiceName: "iqanalyzer-test",
		SampleRatio: &ratio,
	}, "1.2.3", exporter)
	if !tracer.Enabled() {
		t.Fatal("expected tracer to be enabled")
	}
	t.Cleanup(func() {
		_ = tracer.Shutdown(context.Background())
		otel.SetTracerProvider(noop.NewTracerProvider())
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator())
	})
	return exporter
}

func TestNew_Disabled(t *testing.T) {
	tracer, err := New(context.Background(), &config.TracingConfig{}, "dev")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if tracer.Enabled() {
		t.Error("disabled config produced an enabled tracer")
	}
	if err := tracer.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}

	_, span := Start(context.Background(), "noop")
	defer span.End()
	if span.IsRecording() {
		t.Error("span recorded without a tracer installed")
	}
}

func TestStart_RecordsSpanWithResource(t *testing.T) {
	exporter := record(t, 1)

	ctx, span := Start(context.Background(), "analyze")
	if TraceID(ctx) == "" {
		t.Error("expected a trace id in context")
	}
	Fail(span, errors.New("boom"))
	Fail(span, nil)
	span.End()

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	got := spans[0]
	if got.Status.Code != codes.Error || got.Status.Description != "boom" {
		t.Errorf("status = %+v", got.Status)
	}
	if len(got.Events) != 1 || got.Events[0].Name != "exception" {
		t.Errorf("expected one exception event, got %+v", got.Events)
	}
	if got.InstrumentationScope.Name != ScopeName {
		t.Errorf("scope = %q", got.InstrumentationScope.Name)
	}

	var service, version string
	for _, kv := range got.Resource.Attributes() {
		switch kv.Key {
		case "service.name":
			service = kv.Value.AsString()
		case "service.version":
			version = kv.Value.AsString()
		}
	}
	if service != "iqanalyzer-test" || version != "1.2.3" {
		t.Errorf("resource service=%q version=%q", service, version)
	}
}

func TestTraceID_Empty(t *testing.T) {
	if id := TraceID(context.Background()); id != "" {
		t.Errorf("TraceID() = %q, want empty", id)
	}
}

func TestNewSampler(t *testing.T) {
	tests := []struct {
		ratio float64
		want  sdktrace.SamplingDecision
	}{
		{1, sdktrace.RecordAndSample},
		{0, sdktrace.Drop},
		{-1, sdktrace.Drop},
	}
	for _, tt := range tests {
		s := newSampler(tt.ratio)
		res := s.ShouldSample(sdktrace.SamplingParameters{
			ParentContext: context.Background(),
			TraceID:       trace.TraceID{1},
			Name:          "x",
		})
		if res.Decision != tt.want {
			t.Errorf("ratio %v: decision = %v, want %v", tt.ratio, res.Decision, tt.want)
		}
	}
}

func TestNewSampler_FollowsSampledParent(t *testing.T) {
	parent := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{2},
		SpanID:     trace.SpanID{3},
		TraceFlags: trace.FlagsSampled,
		Remote:     true,
	})
	res := newSampler(0).ShouldSample(sdktrace.SamplingParameters{
		ParentContext: trace.ContextWithRemoteSpanContext(context.Background(), parent),
		TraceID:       parent.TraceID(),
		Name:          "child",
	})
	if res.Decision != sdktrace.RecordAndSample {
		t.Errorf("decision = %v, want the sampled parent's decision", res.Decision)
	}
}

func TestMiddleware_ContinuesIncomingTrace(t *testing.T) {
	exporter := record(t, 1)

	var innerTrace string
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		innerTrace = TraceID(r.Context())
		w.WriteHeader(http.StatusBadGateway)
	}))

	req := httptest.NewRequest(http.MethodPost, "/analyze/query", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if innerTrace != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Errorf("handler saw trace %q", innerTrace)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	got := spans[0]
	if got.Name != "POST /analyze/query" || got.SpanKind != trace.SpanKindServer {
		t.Errorf("span %q kind %v", got.Name, got.SpanKind)
	}
	if got.Parent.SpanID().String() != "00f067aa0ba902b7" {
		t.Errorf("parent = %s", got.Parent.SpanID())
	}
	if got.Status.Code != codes.Error {
		t.Errorf("expected error status for 502, got %+v", got.Status)
	}
}

func TestInject(t *testing.T) {
	record(t, 1)

	ctx, span := Start(context.Background(), "outbound")
	defer span.End()

	headers := http.Header{}
	Inject(ctx, headers)
	if tp := headers.Get("traceparent"); tp == "" || tp[3:35] != TraceID(ctx) {
		t.Errorf("traceparent = %q, trace id %s", tp, TraceID(ctx))
	}
}
