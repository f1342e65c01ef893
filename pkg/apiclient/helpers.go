package apiclient

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/marmos91/oceancache/pkg/axis"
)

// getResource performs a GET request and decodes the response data into a
// value of type T.
//
// Example:
//
//	state, err := getResource[prefetch.State](ctx, c, "/api/v1/status")
func getResource[T any](ctx context.Context, c *Client, path string) (*T, error) {
	var result T
	if err := c.get(ctx, path, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// postResource performs a POST request with body and decodes the response
// data into a value of type T.
func postResource[T any](ctx context.Context, c *Client, path string, body any) (*T, error) {
	var result T
	if err := c.post(ctx, path, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// updateResource performs a PUT request with body and decodes the response
// data into a value of type T.
func updateResource[T any](ctx context.Context, c *Client, path string, body any) (*T, error) {
	var result T
	if err := c.put(ctx, path, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// layerPath builds a {attribute}/{timestamp}/{level} path below prefix.
//
// Example:
//
//	path := layerPath("/api/v1/layers", "theta", ts, 5.8)
func layerPath(prefix string, attr axis.Attribute, ts axis.Timestamp, level axis.Level) string {
	return fmt.Sprintf("%s/%s/%s/%s", prefix,
		url.PathEscape(string(attr)),
		url.PathEscape(ts.String()),
		strconv.FormatFloat(float64(level), 'g', -1, 64))
}
