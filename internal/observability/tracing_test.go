package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := Tracer
	Tracer = tp.Tracer("test")
	t.Cleanup(func() {
		Tracer = prev
		_ = tp.Shutdown(context.Background())
	})
	return rec
}

func TestSpan_RecordsErrorAndAttributes(t *testing.T) {
	rec := recordSpans(t)

	span, _ := NewSpan(context.Background(), "post.create", attribute.Int("user.id", 3))
	span.AddAttributes(attribute.Int("post.id", 9))
	span.SetError(nil)
	span.SetError(errors.New("boom"))
	span.End()

	ended := rec.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "post.create", ended[0].Name())
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Contains(t, ended[0].Attributes(), attribute.Int("post.id", 9))
	assert.Len(t, ended[0].Events(), 1)
}

func TestSpan_NilSafe(t *testing.T) {
	var s *Span
	s.AddAttributes(attribute.String("k", "v"))
	s.SetError(errors.New("ignored"))
	s.End()

	(&Span{}).End()
}

func TestInitTracing_Disabled(t *testing.T) {
	shutdown, err := InitTracing(TracingConfig{Enabled: false})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitTracing_UnknownExporter(t *testing.T) {
	shutdown, err := InitTracing(TracingConfig{Enabled: true, Exporter: "zipkin"})
	assert.ErrorContains(t, err, "zipkin")
	assert.NoError(t, shutdown(context.Background()))
}

func TestSamplerFor(t *testing.T) {
	assert.Contains(t, samplerFor(1).Description(), "AlwaysOnSampler")
	assert.Contains(t, samplerFor(0).Description(), "AlwaysOffSampler")
	assert.Contains(t, samplerFor(0.25).Description(), "TraceIDRatioBased{0.25}")
}
