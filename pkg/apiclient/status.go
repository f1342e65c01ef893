package apiclient

import (
	"context"
	"net/url"
	"time"

	"github.com/marmos91/oceancache/pkg/axis"
	"github.com/marmos91/oceancache/pkg/prefetch"
)

// LayerStatus is the cache status of one layer.
type LayerStatus struct {
	Attribute axis.Attribute       `json:"attribute"`
	Timestamp axis.Timestamp       `json:"timestamp"`
	Level     axis.Level           `json:"level"`
	Status    prefetch.CacheStatus `json:"status"`
}

// Ready reports whether the server and its layer source are ready. A 503
// comes back as an *APIError.
func (c *Client) Ready(ctx context.Context) error {
	return c.get(ctx, "/health/ready", nil)
}

// HealthInfo is the liveness payload of the server.
type HealthInfo struct {
	Service   string    `json:"service"`
	StartedAt time.Time `json:"started_at"`
	Uptime    string    `json:"uptime"`
	UptimeSec int64     `json:"uptime_sec"`
}

// Health checks server liveness.
func (c *Client) Health(ctx context.Context) (*HealthInfo, error) {
	return getResource[HealthInfo](ctx, c, "/health")
}

// Status returns the scheduler state.
func (c *Client) Status(ctx context.Context) (*prefetch.State, error) {
	return getResource[prefetch.State](ctx, c, "/api/v1/status")
}

// Grid returns the cache status of every layer of attr. An empty attr
// means the selected attribute.
func (c *Client) Grid(ctx context.Context, attr axis.Attribute) (*prefetch.Grid, error) {
	path := "/api/v1/status/grid"
	if attr != "" {
		path += "?attribute=" + url.QueryEscape(string(attr))
	}
	return getResource[prefetch.Grid](ctx, c, path)
}

// LayerStatus returns the cache status of one layer.
func (c *Client) LayerStatus(ctx context.Context, attr axis.Attribute, ts axis.Timestamp, level axis.Level) (*LayerStatus, error) {
	return getResource[LayerStatus](ctx, c, layerPath("/api/v1/status/layer", attr, ts, level))
}
