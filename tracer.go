package oidcrp

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Tracer is a generic tracing interface for the verification path.
type Tracer interface {
	StartSpan(ctx context.Context, operationName string) (context.Context, Span)
}

// Span is one traced operation.
type Span interface {
	SetTag(key string, value any)
	Finish()
}

// NoopTracer is the default tracer; it records nothing.
type NoopTracer struct{}

func (NoopTracer) StartSpan(ctx context.Context, string) (context.Context, Span) {
	return ctx, NoopSpan{}
}

// NoopSpan is the span produced by NoopTracer.
type NoopSpan struct{}

func (NoopSpan) SetTag(string, any) {}
func (NoopSpan) Finish()            {}

// OpenTelemetryTracer implements Tracer on an OpenTelemetry tracer.
type OpenTelemetryTracer struct {
	tracer oteltrace.Tracer
}

// NewOpenTelemetryTracer wraps the given OpenTelemetry tracer.
func NewOpenTelemetryTracer(tracer oteltrace.Tracer) Tracer {
	return &OpenTelemetryTracer{tracer: tracer}
}

func (t *OpenTelemetryTracer) StartSpan(ctx context.Context, operationName string) (context.Context, Span) {
	ctx, span := t.tracer.Start(ctx, operationName)
	return ctx, &openTelemetrySpan{span: span}
}

type openTelemetrySpan struct {
	span oteltrace.Span
}

func (s *openTelemetrySpan) SetTag(key string, value any) {
	s.span.SetAttributes(attribute.String(key, fmt.Sprint(value)))
}

func (s *openTelemetrySpan) Finish() {
	s.span.End()
}
