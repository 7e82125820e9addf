package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for lifecycle spans.
const (
	AttrBackend     = "backend.name"
	AttrCriticality = "backend.criticality"
	AttrState       = "backend.state"
	AttrErrorKind   = "backend.error_kind"
	AttrStatus      = "lifecycle.status"
	AttrCount       = "lifecycle.backends"
)

// Span names.
const (
	SpanStart      = "lifecycle.start"
	SpanShutdown   = "lifecycle.shutdown"
	SpanInitialize = "backend.initialize"
	SpanConnect    = "backend.connect"
	SpanDisconnect = "backend.disconnect"
)

// Backend returns an attribute for the backend name
func Backend(name string) attribute.KeyValue {
	return attribute.String(AttrBackend, name)
}

// Criticality returns an attribute for the backend criticality
func Criticality(c string) attribute.KeyValue {
	return attribute.String(AttrCriticality, c)
}

// State returns an attribute for the backend connection state
func State(s string) attribute.KeyValue {
	return attribute.String(AttrState, s)
}

// ErrorKind returns an attribute for a backend error classification
func ErrorKind(kind string) attribute.KeyValue {
	return attribute.String(AttrErrorKind, kind)
}

// Status returns an attribute for the orchestrator status
func Status(s string) attribute.KeyValue {
	return attribute.String(AttrStatus, s)
}

// Count returns an attribute for the number of registered backends
func Count(n int) attribute.KeyValue {
	return attribute.Int(AttrCount, n)
}

// StartBackendSpan starts a span for one lifecycle phase of a backend.
func StartBackendSpan(ctx context.Context, phase, backend string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	all := append([]attribute.KeyValue{Backend(backend)}, attrs...)
	return StartSpan(ctx, phase, trace.WithAttributes(all...))
}

// EndSpan finishes span, recording err when non-nil.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
