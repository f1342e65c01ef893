// Package source defines where raw layer files come from.
//
// A Source resolves a relative layer path (see layer.Path) to the raw bytes
// of the file. Implementations live in subpackages: http, fs, s3, badger and
// memory.
package source

import (
	"context"
	"errors"
)

var (
	// ErrLayerNotFound is returned when the requested layer file does not exist.
	ErrLayerNotFound = errors.New("layer not found")

	// ErrSourceClosed is returned when operating on a closed source.
	ErrSourceClosed = errors.New("source closed")
)

// Source fetches raw layer files.
//
// Fetch must honor ctx: when ctx is cancelled the in-flight transfer is
// abandoned and the context error is returned (possibly wrapped).
// Implementations must be safe for concurrent use.
type Source interface {
	// Fetch returns the full content of the file at path.
	Fetch(ctx context.Context, path string) ([]byte, error)

	// HealthCheck verifies the source is reachable.
	HealthCheck(ctx context.Context) error

	// Close releases resources held by the source.
	Close() error
}

// Writer is implemented by sources that can also store layer files. It is
// used to populate local mirrors.
type Writer interface {
	Put(ctx context.Context, path string, data []byte) error
}

// IsCancelled reports whether err stems from a cancelled or expired context.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
