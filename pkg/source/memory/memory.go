// Package memory provides an in-memory layer source, mainly for tests.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/marmos91/oceancache/pkg/source"
)

// FetchHook runs before every fetch. Returning an error fails the fetch.
// Hooks may block on ctx to simulate slow transfers.
type FetchHook func(ctx context.Context, path string) error

// Source is an in-memory implementation of source.Source.
type Source struct {
	mu     sync.RWMutex
	files  map[string][]byte
	hook   FetchHook
	closed bool

	fetchMu sync.Mutex
	fetches []string
}

// New creates an empty in-memory source.
func New() *Source {
	return &Source{files: make(map[string][]byte)}
}

// SetHook installs a hook that runs before each fetch.
func (s *Source) SetHook(h FetchHook) {
	s.mu.Lock()
	s.hook = h
	s.mu.Unlock()
}

// Put stores a file.
func (s *Source) Put(_ context.Context, path string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return source.ErrSourceClosed
	}
	s.files[path] = slices.Clone(data)
	return nil
}

// Fetch implements source.Source.
func (s *Source) Fetch(ctx context.Context, path string) ([]byte, error) {
	s.fetchMu.Lock()
	s.fetches = append(s.fetches, path)
	s.fetchMu.Unlock()

	s.mu.RLock()
	hook := s.hook
	closed := s.closed
	s.mu.RUnlock()

	if closed {
		return nil, source.ErrSourceClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if hook != nil {
		if err := hook(ctx, path); err != nil {
			return nil, err
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.files[path]
	if !ok {
		return nil, source.ErrLayerNotFound
	}
	return slices.Clone(data), nil
}

// Fetches returns every path passed to Fetch, in call order.
func (s *Source) Fetches() []string {
	s.fetchMu.Lock()
	defer s.fetchMu.Unlock()
	return slices.Clone(s.fetches)
}

// FetchCount returns how many times path was fetched.
func (s *Source) FetchCount(path string) int {
	s.fetchMu.Lock()
	defer s.fetchMu.Unlock()

	n := 0
	for _, p := range s.fetches {
		if p == path {
			n++
		}
	}
	return n
}

// HealthCheck implements source.Source.
func (s *Source) HealthCheck(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return source.ErrSourceClosed
	}
	return nil
}

// Close implements source.Source.
func (s *Source) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
