package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys.
const (
	AttrAttribute  = "layer.attribute"
	AttrTimestamp  = "layer.timestamp"
	AttrLevel      = "layer.level"
	AttrLevelIndex = "layer.level_index"
	AttrPath       = "layer.path"
	AttrBytes      = "layer.bytes"
	AttrCacheHit   = "layer.cache_hit"
	AttrCoalesced  = "layer.coalesced"
	AttrOutcome    = "layer.outcome"

	AttrRoundID   = "round.id"
	AttrRoundKind = "round.kind"
	AttrMode      = "round.mode"
	AttrBlock     = "round.block"
	AttrJobs      = "round.jobs"

	AttrSourceType = "source.type"
	AttrBucket     = "storage.bucket"
	AttrKey        = "storage.key"
)

// Span names.
const (
	SpanLoad        = "loader.load"
	SpanFetch       = "source.fetch"
	SpanBlockRound  = "scheduler.block_round"
	SpanSliceRound  = "scheduler.slice_round"
	SpanManualRound = "scheduler.manual_round"
	SpanPreload     = "scheduler.preload"
)

func Attribute(name string) attribute.KeyValue { return attribute.String(AttrAttribute, name) }
func Timestamp(ts string) attribute.KeyValue   { return attribute.String(AttrTimestamp, ts) }
func Level(depth float64) attribute.KeyValue   { return attribute.Float64(AttrLevel, depth) }
func LevelIndex(i int) attribute.KeyValue      { return attribute.Int(AttrLevelIndex, i) }
func Path(p string) attribute.KeyValue         { return attribute.String(AttrPath, p) }
func Bytes(n int) attribute.KeyValue           { return attribute.Int(AttrBytes, n) }
func CacheHit(hit bool) attribute.KeyValue     { return attribute.Bool(AttrCacheHit, hit) }
func Coalesced(c bool) attribute.KeyValue      { return attribute.Bool(AttrCoalesced, c) }
func Outcome(o string) attribute.KeyValue      { return attribute.String(AttrOutcome, o) }
func RoundID(id string) attribute.KeyValue     { return attribute.String(AttrRoundID, id) }
func RoundKind(k string) attribute.KeyValue    { return attribute.String(AttrRoundKind, k) }
func Mode(m string) attribute.KeyValue         { return attribute.String(AttrMode, m) }
func Block(b int) attribute.KeyValue           { return attribute.Int(AttrBlock, b) }
func Jobs(n int) attribute.KeyValue            { return attribute.Int(AttrJobs, n) }
func SourceType(t string) attribute.KeyValue   { return attribute.String(AttrSourceType, t) }
func Bucket(name string) attribute.KeyValue    { return attribute.String(AttrBucket, name) }
func StorageKey(key string) attribute.KeyValue { return attribute.String(AttrKey, key) }

// StartLoadSpan starts the span covering one layer load.
func StartLoadSpan(ctx context.Context, attr, ts string, depth float64, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	all := append([]attribute.KeyValue{Attribute(attr), Timestamp(ts), Level(depth)}, attrs...)
	return StartSpan(ctx, SpanLoad, trace.WithAttributes(all...))
}

// StartFetchSpan starts a client span for a source backend read.
func StartFetchSpan(ctx context.Context, sourceType, path string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	all := append([]attribute.KeyValue{SourceType(sourceType), Path(path)}, attrs...)
	return StartSpan(ctx, SpanFetch, trace.WithSpanKind(trace.SpanKindClient), trace.WithAttributes(all...))
}

// StartRoundSpan starts the span covering a caching round.
func StartRoundSpan(ctx context.Context, name, roundID, kind string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	all := append([]attribute.KeyValue{RoundID(roundID), RoundKind(kind)}, attrs...)
	return StartSpan(ctx, name, trace.WithAttributes(all...))
}
