package logger

import (
	"fmt"
	"log/slog"
)

// Standard field keys. Use them consistently so logs can be aggregated and
// queried by layer coordinate or caching round.
const (
	// Distributed tracing
	KeyTraceID = "trace_id"
	KeySpanID  = "span_id"

	// Request correlation
	KeyRequestID = "request_id"
	KeyClientIP  = "client_ip"
	KeyMethod    = "method"
	KeyRoute     = "route"
	KeyStatus    = "status"

	// Layer coordinates
	KeyAttribute  = "attribute"
	KeyTimestamp  = "timestamp"
	KeyLevel      = "level"
	KeyLevelIndex = "level_index"
	KeyPath       = "path"
	KeyBytes      = "bytes"

	// Scheduling
	KeyRoundID   = "round_id"
	KeyRoundKind = "round_kind"
	KeyMode      = "mode"
	KeyBlock     = "block"
	KeySlices    = "slices"
	KeyJobs      = "jobs"
	KeyQueued    = "queued"
	KeyRunning   = "running"
	KeyCleared   = "cleared"
	KeyProcessed = "processed"
	KeyTotal     = "total"

	// Source backend
	KeySourceType = "source_type"
	KeyBucket     = "bucket"
	KeyEndpoint   = "endpoint"

	// Outcome
	KeyDurationMs = "duration_ms"
	KeyError      = "error"
	KeyOutcome    = "outcome"
)

// Attribute returns a slog.Attr for a dataset attribute name.
func Attribute(name string) slog.Attr {
	return slog.String(KeyAttribute, name)
}

// Timestamp returns a slog.Attr for a dataset timestamp.
func Timestamp(ts fmt.Stringer) slog.Attr {
	return slog.String(KeyTimestamp, ts.String())
}

// LevelValue returns a slog.Attr for a depth level.
func LevelValue(depth float64) slog.Attr {
	return slog.Float64(KeyLevel, depth)
}

// Path returns a slog.Attr for a layer path.
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

// RoundID returns a slog.Attr for a caching round identifier.
func RoundID(id string) slog.Attr {
	return slog.String(KeyRoundID, id)
}

// Err returns a slog.Attr for an error. A nil error yields an empty attr,
// which handlers skip.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// DurationMs returns a slog.Attr for a duration in milliseconds.
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}
