// Package fs provides a filesystem-backed layer source.
package fs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/marmos91/oceancache/pkg/source"
)

// Config holds configuration for the filesystem source.
type Config struct {
	// BasePath is the directory holding layer files.
	BasePath string

	// CreateDir creates the base directory if it doesn't exist.
	CreateDir bool

	// DirMode is the permission mode for created directories.
	// Default: 0755
	DirMode os.FileMode

	// FileMode is the permission mode for written files.
	// Default: 0644
	FileMode os.FileMode
}

// Source reads layer files from a local directory.
type Source struct {
	mu       sync.RWMutex
	basePath string
	dirMode  os.FileMode
	fileMode os.FileMode
	closed   bool
}

// New creates a filesystem source.
func New(cfg Config) (*Source, error) {
	if cfg.BasePath == "" {
		return nil, errors.New("base path is required")
	}
	if cfg.DirMode == 0 {
		cfg.DirMode = 0755
	}
	if cfg.FileMode == 0 {
		cfg.FileMode = 0644
	}

	if cfg.CreateDir {
		if err := os.MkdirAll(cfg.BasePath, cfg.DirMode); err != nil {
			return nil, fmt.Errorf("create base path: %w", err)
		}
	}

	info, err := os.Stat(cfg.BasePath)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, errors.New("base path is not a directory")
	}

	return &Source{basePath: cfg.BasePath, dirMode: cfg.DirMode, fileMode: cfg.FileMode}, nil
}

// resolve maps a layer path to a file inside the base directory. Paths that
// would escape the base directory are rejected.
func (s *Source) resolve(path string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(path))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid layer path %q", path)
	}
	return filepath.Join(s.basePath, clean), nil
}

// Fetch implements source.Source.
func (s *Source) Fetch(ctx context.Context, path string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, source.ErrSourceClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	full, err := s.resolve(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, source.ErrLayerNotFound
		}
		return nil, err
	}
	return data, nil
}

// Put writes a layer file atomically.
func (s *Source) Put(ctx context.Context, path string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return source.ErrSourceClosed
	}

	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), s.dirMode); err != nil {
		return err
	}

	tmp := full + ".tmp"
	if err := os.WriteFile(tmp, data, s.fileMode); err != nil {
		return err
	}
	if err := os.Rename(tmp, full); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// HealthCheck implements source.Source.
func (s *Source) HealthCheck(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return source.ErrSourceClosed
	}
	_, err := os.Stat(s.basePath)
	return err
}

// Close implements source.Source.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
