package apiclient

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/marmos91/oceancache/pkg/axis"
	"github.com/marmos91/oceancache/pkg/layer"
)

// GetLayer downloads one layer through the server cache.
func (c *Client) GetLayer(ctx context.Context, attr axis.Attribute, ts axis.Timestamp, level axis.Level) (*layer.Layer, error) {
	data, err := c.GetLayerBytes(ctx, attr, ts, level)
	if err != nil {
		return nil, err
	}
	return layer.Decode(data)
}

// GetLayerBytes downloads one layer as its raw little-endian float32 body.
func (c *Client) GetLayerBytes(ctx context.Context, attr axis.Attribute, ts axis.Timestamp, level axis.Level) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, layerPath("/api/v1/layers", attr, ts, level), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/octet-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, newAPIError(resp.StatusCode, body)
	}
	return body, nil
}
