package apiclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/oceancache/pkg/axis"
)

func TestNew(t *testing.T) {
	client := New("http://localhost:8180/")
	assert.NotNil(t, client)
	assert.Equal(t, "http://localhost:8180", client.BaseURL())
}

func TestDoUnwrapsEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/test", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok","timestamp":"2026-01-01T00:00:00Z","data":{"name":"theta"}}`))
	}))
	defer server.Close()

	var result struct {
		Name string `json:"name"`
	}
	err := New(server.URL).get(context.Background(), "/api/v1/test", &result)
	require.NoError(t, err)
	assert.Equal(t, "theta", result.Name)
}

func TestDoWithAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"status":"error","error":"a preload is already running"}`))
	}))
	defer server.Close()

	err := New(server.URL).get(context.Background(), "/api/v1/test", nil)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsConflict())
	assert.False(t, apiErr.IsNotFound())
	assert.Equal(t, "a preload is already running", apiErr.Message)
	assert.Contains(t, apiErr.Error(), "409")
}

func TestDoWithPlainTextError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream broke", http.StatusBadGateway)
	}))
	defer server.Close()

	err := New(server.URL).get(context.Background(), "/api/v1/test", nil)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "upstream broke", apiErr.Message)
}

func TestDoWithPut(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "time", body["mode"])

		_, _ = w.Write([]byte(`{"status":"ok","data":{"selection":{"mode":"time","attribute":"theta"}}}`))
	}))
	defer server.Close()

	state, err := New(server.URL).SetMode(context.Background(), axis.ModeTime)
	require.NoError(t, err)
	assert.Equal(t, axis.ModeTime, state.Selection.Mode)
}

func TestSetSlicesSendsEmptyList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"slices":[]}`, string(body))
		_, _ = w.Write([]byte(`{"status":"ok","data":{}}`))
	}))
	defer server.Close()

	_, err := New(server.URL).SetSlices(context.Background(), nil)
	require.NoError(t, err)
}

func TestLayerPath(t *testing.T) {
	ts := axis.MustParseTimestamp("2011-09-13-0")

	assert.Equal(t, "/api/v1/layers/theta/2011-09-13-0/5.8", layerPath("/api/v1/layers", "theta", ts, 5.8))
	assert.Equal(t, "/api/v1/layers/salt/2011-09-13-0/15", layerPath("/api/v1/layers", "salt", ts, 15))
}

func TestReadEvents(t *testing.T) {
	stream := strings.Join([]string{
		": connected",
		"",
		"id: 1",
		"event: layer",
		`data: {"attribute":"theta"}`,
		"",
		": keepalive",
		"",
		"event: other",
		"data: first",
		"data: second",
		"",
		"",
	}, "\n")

	type event struct{ name, id, data string }
	var got []event
	err := readEvents(strings.NewReader(stream), func(name, id string, data []byte) error {
		got = append(got, event{name, id, string(data)})
		return nil
	})
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, event{"layer", "1", `{"attribute":"theta"}`}, got[0])
	assert.Equal(t, event{"other", "", "first\nsecond"}, got[1])
}

func TestReadEventsDropsUnterminatedEvent(t *testing.T) {
	stream := "event: layer\ndata: 1\n\nevent: layer\ndata: 2\n"

	var got []string
	err := readEvents(strings.NewReader(stream), func(_, _ string, data []byte) error {
		got = append(got, string(data))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, got)
}

func TestReadEventsStopsOnCallbackError(t *testing.T) {
	stream := "event: layer\ndata: 1\n\nevent: layer\ndata: 2\n\n"

	calls := 0
	err := readEvents(strings.NewReader(stream), func(string, string, []byte) error {
		calls++
		return io.ErrUnexpectedEOF
	})
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Equal(t, 1, calls)
}
