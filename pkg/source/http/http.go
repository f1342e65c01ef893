// Package http provides a layer source that downloads files from a static
// HTTP server.
package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/marmos91/oceancache/pkg/source"
)

// StatusError is returned for non-2xx responses other than 404.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d fetching %s", e.StatusCode, e.URL)
}

// Config holds configuration for the HTTP source.
type Config struct {
	// BaseURL is prepended to every layer path, e.g.
	// "https://example.org/Data/downloads/data/".
	BaseURL string

	// Timeout bounds a single request. Zero means no timeout beyond the
	// caller's context.
	Timeout time.Duration

	// MaxIdleConns controls connection reuse.
	// Default: 16
	MaxIdleConns int

	// UserAgent is sent with every request.
	UserAgent string
}

// Source fetches layer files over HTTP.
type Source struct {
	base      *url.URL
	client    *http.Client
	userAgent string
}

// New creates an HTTP source.
func New(cfg Config) (*Source, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("base URL is required")
	}
	if !strings.HasSuffix(cfg.BaseURL, "/") {
		cfg.BaseURL += "/"
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme %q", base.Scheme)
	}

	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = 16
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = cfg.MaxIdleConns
	transport.MaxIdleConnsPerHost = cfg.MaxIdleConns

	return &Source{
		base: base,
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		userAgent: cfg.UserAgent,
	}, nil
}

// NewWithClient creates an HTTP source using a caller supplied client.
func NewWithClient(baseURL string, client *http.Client) (*Source, error) {
	s, err := New(Config{BaseURL: baseURL})
	if err != nil {
		return nil, err
	}
	s.client = client
	return s, nil
}

// URL returns the absolute URL for a layer path.
func (s *Source) URL(path string) string {
	return s.base.ResolveReference(&url.URL{Path: strings.TrimPrefix(path, "/")}).String()
}

// Fetch implements source.Source.
func (s *Source) Fetch(ctx context.Context, path string) ([]byte, error) {
	target := s.URL(path)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/octet-stream")
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, source.ErrLayerNotFound
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: target}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return data, nil
}

// HealthCheck issues a HEAD request against the base URL. Any HTTP response
// counts as reachable.
func (s *Source) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, s.base.String(), nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("source unreachable: %w", err)
	}
	_ = resp.Body.Close()
	return nil
}

// Close releases idle connections.
func (s *Source) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
