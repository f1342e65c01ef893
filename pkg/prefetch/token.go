package prefetch

import (
	"context"

	"github.com/google/uuid"
	"github.com/marmos91/oceancache/internal/logger"
	"github.com/marmos91/oceancache/pkg/axis"
)

// Token is the cancellation handle of one caching operation. It can be
// aborted once; later calls are no-ops. Tokens are compared by pointer.
type Token struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
}

// NewToken returns a token whose context is derived from parent. Cancelling
// parent aborts the token.
func NewToken(parent context.Context) *Token {
	ctx, cancel := context.WithCancel(parent)
	return &Token{id: uuid.NewString(), ctx: ctx, cancel: cancel}
}

// newRoundToken returns a token whose context carries log correlation
// fields for a caching round.
func newRoundToken(parent context.Context, kind string, attr axis.Attribute, mode axis.Mode) *Token {
	t := NewToken(parent)
	t.ctx = logger.WithContext(t.ctx, logger.NewRoundContext(t.id, kind, string(attr), string(mode)))
	return t
}

// ID returns the round id used in logs.
func (t *Token) ID() string {
	if t == nil {
		return ""
	}
	return t.id
}

// Context is cancelled when the token is aborted.
func (t *Token) Context() context.Context { return t.ctx }

// Abort signals the token. Safe on a nil token.
func (t *Token) Abort() {
	if t != nil {
		t.cancel()
	}
}

// Aborted reports whether the token was signalled.
func (t *Token) Aborted() bool {
	return t != nil && t.ctx.Err() != nil
}
