package logger

import (
	"context"
	"time"
)

type contextKey struct{}

// LogContext carries correlation fields for everything logged on behalf of
// one API request or caching round.
type LogContext struct {
	TraceID   string
	SpanID    string
	RequestID string
	RoundID   string
	RoundKind string // block, slice, manual, preload
	Attribute string
	Mode      string
	StartTime time.Time
}

// WithContext returns a context carrying lc.
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, contextKey{}, lc)
}

// FromContext returns the LogContext of ctx, or nil.
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(contextKey{}).(*LogContext)
	return lc
}

// NewRoundContext creates a LogContext for a caching round.
func NewRoundContext(roundID, kind, attribute, mode string) *LogContext {
	return &LogContext{
		RoundID:   roundID,
		RoundKind: kind,
		Attribute: attribute,
		Mode:      mode,
		StartTime: time.Now(),
	}
}

// Clone returns a copy of lc.
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	c := *lc
	return &c
}

// WithTrace returns a copy with trace info set.
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	c := lc.Clone()
	if c != nil {
		c.TraceID = traceID
		c.SpanID = spanID
	}
	return c
}

// WithRequestID returns a copy with the request id set.
func (lc *LogContext) WithRequestID(id string) *LogContext {
	c := lc.Clone()
	if c != nil {
		c.RequestID = id
	}
	return c
}

// DurationMs returns the time since StartTime in milliseconds.
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return Duration(lc.StartTime)
}
