// Package badger provides a layer source backed by a local BadgerDB mirror.
//
// The mirror is filled with `oceancache import` (or any source.Writer user)
// and then serves layers without network access.
package badger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/marmos91/oceancache/pkg/source"
)

const keyPrefix = "layer:"

// Config holds configuration for the BadgerDB source.
type Config struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string

	// InMemory runs the database without touching disk.
	InMemory bool

	// ReadOnly opens the database without write access.
	ReadOnly bool
}

// Source reads layer files from a BadgerDB database.
type Source struct {
	db *badgerdb.DB
}

// Open opens (or creates) the database described by cfg.
func Open(cfg Config) (*Source, error) {
	if cfg.Path == "" && !cfg.InMemory {
		return nil, errors.New("path is required")
	}

	opts := badgerdb.DefaultOptions(cfg.Path).
		WithInMemory(cfg.InMemory).
		WithReadOnly(cfg.ReadOnly).
		WithLogger(nil)
	if cfg.InMemory {
		opts = opts.WithDir("").WithValueDir("")
	}

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}
	return &Source{db: db}, nil
}

func key(path string) []byte {
	return []byte(keyPrefix + strings.TrimPrefix(path, "/"))
}

// Fetch implements source.Source.
func (s *Source) Fetch(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var data []byte
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(key(path))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	switch {
	case errors.Is(err, badgerdb.ErrKeyNotFound):
		return nil, source.ErrLayerNotFound
	case errors.Is(err, badgerdb.ErrDBClosed):
		return nil, source.ErrSourceClosed
	case err != nil:
		return nil, fmt.Errorf("badger get: %w", err)
	}
	return data, nil
}

// Put stores a layer file.
func (s *Source) Put(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set(key(path), data)
	})
	if errors.Is(err, badgerdb.ErrDBClosed) {
		return source.ErrSourceClosed
	}
	if err != nil {
		return fmt.Errorf("badger set: %w", err)
	}
	return nil
}

// Count returns how many layer files the mirror holds.
func (s *Source) Count(ctx context.Context) (int, error) {
	n := 0
	err := s.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPrefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	return n, err
}

// HealthCheck verifies the database can serve reads.
func (s *Source) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.db.IsClosed() {
		return source.ErrSourceClosed
	}
	if err := s.db.View(func(*badgerdb.Txn) error { return nil }); err != nil {
		return fmt.Errorf("healthcheck failed: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Source) Close() error {
	if s.db.IsClosed() {
		return nil
	}
	return s.db.Close()
}
