// Package tracing exports OpenTelemetry spans over OTLP gRPC.
//
// Spans cover the HTTP request, the analysis, the fallback state machine
// (one event per state) and every provider attempt. Outbound provider
// requests carry a traceparent header so a collector can join the
// backend's own spans.
//
// Tracing is off by default:
//
//	telemetry:
//	  tracing:
//	    enabled: true
//	    endpoint: localhost:4317
//	    insecure: true
//	    sample_ratio: 0.1
package tracing
