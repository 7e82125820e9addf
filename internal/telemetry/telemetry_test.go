package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/grafana/pyroscope-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	UseTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		setTracer(nil, false)
	})
	return rec
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.False(t, cfg.Enabled)
	assert.Equal(t, "backplane", cfg.ServiceName)
	assert.Equal(t, "localhost:4317", cfg.Endpoint)
	assert.True(t, cfg.Insecure)
	assert.Equal(t, 1.0, cfg.SampleRate)
}

func TestInitDisabled(t *testing.T) {
	ctx := context.Background()

	shutdown, err := Init(ctx, DefaultConfig())
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	assert.NoError(t, shutdown(ctx))
	assert.False(t, IsEnabled())
}

func TestTracerBeforeInit(t *testing.T) {
	setTracer(nil, false)

	require.NotNil(t, Tracer())

	ctx, span := StartSpan(context.Background(), "test.operation")
	require.NotNil(t, ctx)
	span.End()

	assert.Empty(t, TraceID(ctx), "no-op spans carry no trace id")
	assert.Empty(t, SpanID(ctx))
}

func TestRecordError(t *testing.T) {
	require.NotPanics(t, func() {
		RecordError(context.Background(), nil)
		RecordError(context.Background(), errors.New("boom"))
	})
}

func TestStartBackendSpan(t *testing.T) {
	rec := recordSpans(t)

	ctx, span := StartBackendSpan(context.Background(), SpanConnect, "redis", Criticality("optional"))
	assert.NotEmpty(t, TraceID(ctx))
	assert.NotEmpty(t, SpanID(ctx))
	EndSpan(span, nil)

	_, span = StartBackendSpan(context.Background(), SpanInitialize, "postgres")
	EndSpan(span, errors.New("bad url"))

	ended := rec.Ended()
	require.Len(t, ended, 2)

	ok := ended[0]
	assert.Equal(t, SpanConnect, ok.Name())
	assert.Equal(t, codes.Ok, ok.Status().Code)
	attrs := map[string]string{}
	for _, kv := range ok.Attributes() {
		attrs[string(kv.Key)] = kv.Value.AsString()
	}
	assert.Equal(t, "redis", attrs[AttrBackend])
	assert.Equal(t, "optional", attrs[AttrCriticality])

	failed := ended[1]
	assert.Equal(t, SpanInitialize, failed.Name())
	assert.Equal(t, codes.Error, failed.Status().Code)
	assert.Equal(t, "bad url", failed.Status().Description)
	require.Len(t, failed.Events(), 1, "error recorded as span event")
}

func TestAttributeHelpers(t *testing.T) {
	assert.Equal(t, AttrBackend, string(Backend("neo4j").Key))
	assert.Equal(t, "ready", State("ready").Value.AsString())
	assert.Equal(t, "unreachable", ErrorKind("unreachable").Value.AsString())
	assert.Equal(t, "degraded", Status("degraded").Value.AsString())
	assert.Equal(t, int64(4), Count(4).Value.AsInt64())
}

func TestSampler(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), sampler(1).Description())
	assert.Equal(t, sdktrace.NeverSample().Description(), sampler(0).Description())
	assert.Contains(t, sampler(0.5).Description(), "TraceIDRatioBased")
}

func TestProfiling(t *testing.T) {
	t.Run("Disabled", func(t *testing.T) {
		shutdown, err := InitProfiling(ProfilingConfig{})
		require.NoError(t, err)
		assert.NoError(t, shutdown())
	})

	t.Run("ParseTypes", func(t *testing.T) {
		types, err := parseProfileTypes([]string{"cpu", "inuse_space"})
		require.NoError(t, err)
		assert.Equal(t, []pyroscope.ProfileType{pyroscope.ProfileCPU, pyroscope.ProfileInuseSpace}, types)

		_, err = parseProfileTypes([]string{"heapdump"})
		assert.ErrorContains(t, err, "unknown profile type")
	})

	t.Run("InvalidTypeFailsInit", func(t *testing.T) {
		_, err := InitProfiling(ProfilingConfig{Enabled: true, ProfileTypes: []string{"nope"}})
		assert.Error(t, err)
	})
}
