package apiclient

import (
	"context"

	"github.com/marmos91/oceancache/pkg/axis"
	"github.com/marmos91/oceancache/pkg/prefetch"
)

// Abort scopes.
const (
	AbortAll    = "all"
	AbortBlock  = "block"
	AbortSlices = "slices"
)

// PreloadResult describes a started attribute preload.
type PreloadResult struct {
	Attribute axis.Attribute `json:"attribute"`
	Layers    int            `json:"layers"`
}

type abortRequest struct {
	Scope string `json:"scope"`
}

type preloadRequest struct {
	Attribute   axis.Attribute `json:"attribute"`
	Concurrency int            `json:"concurrency,omitempty"`
}

type slicesResult struct {
	Jobs int `json:"jobs"`
}

// Abort cancels caching work in scope: AbortAll, AbortBlock or AbortSlices.
func (c *Client) Abort(ctx context.Context, scope string) error {
	if scope == "" {
		scope = AbortAll
	}
	return c.post(ctx, "/api/v1/cache/abort", abortRequest{Scope: scope}, nil)
}

// CacheBlock caches the whole selected block. It returns the selection the
// round was started for.
func (c *Client) CacheBlock(ctx context.Context) (*prefetch.Selection, error) {
	return postResource[prefetch.Selection](ctx, c, "/api/v1/cache/block", nil)
}

// CacheSlices caches the pinned slices and returns the number of jobs
// started.
func (c *Client) CacheSlices(ctx context.Context) (int, error) {
	res, err := postResource[slicesResult](ctx, c, "/api/v1/cache/slices", nil)
	if err != nil {
		return 0, err
	}
	return res.Jobs, nil
}

// CacheAttribute starts preloading every layer of attr.
func (c *Client) CacheAttribute(ctx context.Context, attr axis.Attribute, concurrency int) (*PreloadResult, error) {
	return postResource[PreloadResult](ctx, c, "/api/v1/cache/attribute", preloadRequest{
		Attribute:   attr,
		Concurrency: concurrency,
	})
}
