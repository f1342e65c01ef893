package telemetry

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

// recorder routes spans into memory for the duration of the test.
func recorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	UseTracerProvider(tp)
	t.Cleanup(func() {
		_, _ = Init(context.Background(), Config{})
		_ = tp.Shutdown(context.Background())
	})
	return rec
}

func attrMap(kvs []attribute.KeyValue) map[string]attribute.Value {
	m := make(map[string]attribute.Value, len(kvs))
	for _, kv := range kvs {
		m[string(kv.Key)] = kv.Value
	}
	return m
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.False(t, cfg.Enabled)
	assert.Equal(t, "oceancache", cfg.ServiceName)
	assert.Equal(t, "localhost:4317", cfg.Endpoint)
	assert.True(t, cfg.Insecure)
	assert.Equal(t, 1.0, cfg.SampleRate)
}

func TestSampleRateClamped(t *testing.T) {
	assert.Equal(t, 0.0, Config{SampleRate: -2}.sampleRate())
	assert.Equal(t, 1.0, Config{SampleRate: 7}.sampleRate())
	assert.Equal(t, 0.25, Config{SampleRate: 0.25}.sampleRate())
}

func TestInitDisabled(t *testing.T) {
	ctx := context.Background()
	shutdown, err := Init(ctx, DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, shutdown(ctx))
	assert.False(t, IsEnabled())

	// no-op spans carry no ids
	ctx, span := StartSpan(ctx, "noop")
	defer span.End()
	assert.Empty(t, TraceID(ctx))
	assert.Empty(t, SpanID(ctx))
}

func TestHelpersWithoutSpan(t *testing.T) {
	ctx := context.Background()
	require.NotPanics(t, func() {
		AddEvent(ctx, "event")
		RecordError(ctx, errors.New("boom"))
		RecordError(ctx, nil)
		SetAttributes(ctx, Attribute("theta"))
	})
}

func TestStartLoadSpan(t *testing.T) {
	rec := recorder(t)
	assert.True(t, IsEnabled())

	ctx, span := StartLoadSpan(context.Background(), "salt", "2020-01-20-0", 12.5, LevelIndex(3))
	assert.NotEmpty(t, TraceID(ctx))
	assert.NotEmpty(t, SpanID(ctx))
	SetAttributes(ctx, CacheHit(false), Bytes(1024))
	AddEvent(ctx, "fetched")
	RecordError(ctx, errors.New("decode failed"))
	span.End()

	ended := rec.Ended()
	require.Len(t, ended, 1)
	s := ended[0]
	assert.Equal(t, SpanLoad, s.Name())
	assert.Equal(t, codes.Error, s.Status().Code)
	require.Len(t, s.Events(), 2) // fetched + exception

	attrs := attrMap(s.Attributes())
	assert.Equal(t, "salt", attrs[AttrAttribute].AsString())
	assert.Equal(t, "2020-01-20-0", attrs[AttrTimestamp].AsString())
	assert.Equal(t, 12.5, attrs[AttrLevel].AsFloat64())
	assert.Equal(t, int64(3), attrs[AttrLevelIndex].AsInt64())
	assert.Equal(t, int64(1024), attrs[AttrBytes].AsInt64())
	assert.False(t, attrs[AttrCacheHit].AsBool())
}

func TestStartFetchAndRoundSpans(t *testing.T) {
	rec := recorder(t)

	ctx, round := StartRoundSpan(context.Background(), SpanBlockRound, "r-1", "block", Mode("space"), Block(4))
	_, fetch := StartFetchSpan(ctx, "s3", "theta_2020_1_20_0_0.bin", Bucket("ocean"))
	fetch.End()
	round.End()

	ended := rec.Ended()
	require.Len(t, ended, 2)

	f, r := ended[0], ended[1]
	assert.Equal(t, SpanFetch, f.Name())
	assert.Equal(t, r.SpanContext().SpanID(), f.Parent().SpanID())
	assert.Equal(t, "ocean", attrMap(f.Attributes())[AttrBucket].AsString())

	assert.Equal(t, SpanBlockRound, r.Name())
	ra := attrMap(r.Attributes())
	assert.Equal(t, "r-1", ra[AttrRoundID].AsString())
	assert.Equal(t, "block", ra[AttrRoundKind].AsString())
	assert.Equal(t, int64(4), ra[AttrBlock].AsInt64())
}

func TestParseProfileTypes(t *testing.T) {
	types, err := ParseProfileTypes(nil)
	require.NoError(t, err)
	assert.Len(t, types, len(DefaultProfileTypes))

	types, err = ParseProfileTypes([]string{"CPU", " mutex_count "})
	require.NoError(t, err)
	assert.Len(t, types, 2)

	_, err = ParseProfileTypes([]string{"heap"})
	assert.ErrorContains(t, err, "heap")
}

func TestInitProfilingDisabled(t *testing.T) {
	stop, err := InitProfiling(ProfilingConfig{})
	require.NoError(t, err)
	assert.NoError(t, stop())
}
