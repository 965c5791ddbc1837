// Package tracing provides an in-memory span recorder for tests.
package tracing

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"

	"iqtoolkit/analyzer/pkg/config"
	"iqtoolkit/analyzer/pkg/telemetry/tracing"
)

// Record installs a tracer that keeps every span in memory and restores a
// no-op provider when t finishes. Tests using it must not run in parallel.
func Record(t testing.TB) *tracetest.InMemoryExporter {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tracer := tracing.NewWithExporter(&config.TracingConfig{
		Enabled:     true,
		ServiceName: "iqanalyzer-test",
	}, "test", exporter)

	t.Cleanup(func() {
		_ = tracer.Shutdown(context.Background())
		otel.SetTracerProvider(noop.NewTracerProvider())
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator())
	})
	return exporter
}

// Named returns the recorded spans called name.
func Named(exporter *tracetest.InMemoryExporter, name string) tracetest.SpanStubs {
	var out tracetest.SpanStubs
	for _, span := range exporter.GetSpans() {
		if span.Name == name {
			out = append(out, span)
		}
	}
	return out
}
