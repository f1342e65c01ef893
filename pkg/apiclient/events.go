package apiclient

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/marmos91/oceancache/pkg/axis"
)

// EventLayer is the name of the event sent for every store write.
const EventLayer = "layer"

// LayerEvent reports one layer written to the server store.
type LayerEvent struct {
	ID        string         `json:"-"`
	Attribute axis.Attribute `json:"attribute"`
	Timestamp axis.Timestamp `json:"timestamp"`
	Level     axis.Level     `json:"level"`
	Values    int            `json:"values"`
	Bytes     int            `json:"bytes"`
}

// Watch streams layer events to fn until ctx is cancelled, the server
// closes the stream, or fn returns an error. Cancellation returns nil.
func (c *Client) Watch(ctx context.Context, fn func(LayerEvent) error) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/v1/events", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.streamClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return newAPIError(resp.StatusCode, body)
	}

	err = readEvents(resp.Body, func(name, id string, data []byte) error {
		if name != EventLayer {
			return nil
		}
		var ev LayerEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return fmt.Errorf("failed to decode event %s: %w", id, err)
		}
		ev.ID = id
		return fn(ev)
	})
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// readEvents parses a text/event-stream body, calling fn once per
// dispatched event. Comment lines are skipped.
func readEvents(r io.Reader, fn func(name, id string, data []byte) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		name, id string
		data     strings.Builder
	)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if data.Len() > 0 {
				if err := fn(name, id, []byte(data.String())); err != nil {
					return err
				}
			}
			name, id = "", ""
			data.Reset()
		case strings.HasPrefix(line, ":"):
		default:
			field, value, _ := strings.Cut(line, ":")
			value = strings.TrimPrefix(value, " ")
			switch field {
			case "event":
				name = value
			case "id":
				id = value
			case "data":
				if data.Len() > 0 {
					data.WriteByte('\n')
				}
				data.WriteString(value)
			}
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("event stream: %w", err)
	}
	return nil
}
