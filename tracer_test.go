package oidcrp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/trace/noop"
)

func Test_NoopTracer(t *testing.T) {
	ctx, span := NoopTracer{}.StartSpan(context.Background(), "verify")

	assert.Equal(t, context.Background(), ctx)
	assert.NotPanics(t, func() {
		span.SetTag("outcome", "success")
		span.Finish()
	})
}

func Test_OpenTelemetryTracer(t *testing.T) {
	tracer := NewOpenTelemetryTracer(noop.NewTracerProvider().Tracer("test"))

	_, span := tracer.StartSpan(context.Background(), "verify")
	assert.NotPanics(t, func() {
		span.SetTag("provider", "default")
		span.SetTag("count", 2)
		span.Finish()
	})
}
