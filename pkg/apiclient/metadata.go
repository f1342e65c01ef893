package apiclient

import (
	"context"
	"net/url"

	"github.com/marmos91/oceancache/pkg/axis"
	"github.com/marmos91/oceancache/pkg/metadata"
)

// Metadata returns the dataset summary.
func (c *Client) Metadata(ctx context.Context) (*metadata.Summary, error) {
	return getResource[metadata.Summary](ctx, c, "/api/v1/metadata")
}

// Extrema returns the color scale bounds of one layer. With global set the
// attribute-wide bounds are returned.
func (c *Client) Extrema(ctx context.Context, attr axis.Attribute, ts axis.Timestamp, level axis.Level, global bool) (*metadata.Extrema, error) {
	path := layerPath("/api/v1/metadata/extrema", attr, ts, level)
	if global {
		path += "?global=true"
	}
	return getResource[metadata.Extrema](ctx, c, path)
}

// SetOverride pins the color scale of attr to e.
func (c *Client) SetOverride(ctx context.Context, attr axis.Attribute, e metadata.Extrema) (*metadata.Extrema, error) {
	return updateResource[metadata.Extrema](ctx, c, overridePath(attr), e)
}

// ClearOverride removes the color scale override of attr.
func (c *Client) ClearOverride(ctx context.Context, attr axis.Attribute) error {
	return c.delete(ctx, overridePath(attr))
}

func overridePath(attr axis.Attribute) string {
	return "/api/v1/metadata/overrides/" + url.PathEscape(string(attr))
}
