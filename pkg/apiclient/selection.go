package apiclient

import (
	"context"

	"github.com/marmos91/oceancache/pkg/axis"
	"github.com/marmos91/oceancache/pkg/prefetch"
)

// SelectRequest moves the selection to a timestamp and level index.
type SelectRequest struct {
	TimestampIndex int `json:"timestamp_index"`
	LevelIndex     int `json:"level_index"`
}

type modeRequest struct {
	Mode axis.Mode `json:"mode"`
}

type attributeRequest struct {
	Attribute axis.Attribute `json:"attribute"`
}

type slicesRequest struct {
	Slices []int `json:"slices"`
}

type autoCacheRequest struct {
	Enabled bool `json:"enabled"`
}

// Select changes the selected timestamp and level.
func (c *Client) Select(ctx context.Context, req SelectRequest) (*prefetch.State, error) {
	return updateResource[prefetch.State](ctx, c, "/api/v1/selection", req)
}

// SetRange changes the cached range of the point axis.
func (c *Client) SetRange(ctx context.Context, r prefetch.Range) (*prefetch.State, error) {
	return updateResource[prefetch.State](ctx, c, "/api/v1/range", r)
}

// SetMode switches between space and time mode.
func (c *Client) SetMode(ctx context.Context, mode axis.Mode) (*prefetch.State, error) {
	return updateResource[prefetch.State](ctx, c, "/api/v1/mode", modeRequest{Mode: mode})
}

// SetAttribute changes the selected attribute.
func (c *Client) SetAttribute(ctx context.Context, attr axis.Attribute) (*prefetch.State, error) {
	return updateResource[prefetch.State](ctx, c, "/api/v1/attribute", attributeRequest{Attribute: attr})
}

// SetSlices replaces the pinned slices. Nil clears them.
func (c *Client) SetSlices(ctx context.Context, pts []int) (*prefetch.State, error) {
	if pts == nil {
		pts = []int{}
	}
	return updateResource[prefetch.State](ctx, c, "/api/v1/slices", slicesRequest{Slices: pts})
}

// SetAutoCache turns automatic caching on or off.
func (c *Client) SetAutoCache(ctx context.Context, enabled bool) (*prefetch.State, error) {
	return updateResource[prefetch.State](ctx, c, "/api/v1/autocache", autoCacheRequest{Enabled: enabled})
}

// Dragging tells the server the point slider is being dragged.
func (c *Client) Dragging(ctx context.Context) error {
	return c.post(ctx, "/api/v1/dragging", nil, nil)
}
