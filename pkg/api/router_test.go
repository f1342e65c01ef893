package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/oceancache/pkg/api/handlers"
	"github.com/marmos91/oceancache/pkg/axis"
	"github.com/marmos91/oceancache/pkg/layer"
	"github.com/marmos91/oceancache/pkg/layer/store"
	"github.com/marmos91/oceancache/pkg/loader"
	"github.com/marmos91/oceancache/pkg/metadata"
	"github.com/marmos91/oceancache/pkg/prefetch"
	"github.com/marmos91/oceancache/pkg/source/memory"
)

var (
	sep = axis.MustParseTimestamp("2011-09-13-0")
	oct = axis.MustParseTimestamp("2011-10-13-0")
)

type testEnv struct {
	server *httptest.Server
	sched  *prefetch.Scheduler
	store  *store.Store
	src    *memory.Source
}

// newTestEnv serves a scheduler over 3 levels and 2 timestamps. Every theta
// layer exists in the source; salt layers do not. Auto caching is off so
// the store only changes when a test asks for it.
func newTestEnv(t *testing.T, md *metadata.Metadata) *testEnv {
	t.Helper()

	axes, err := axis.New([]axis.Level{5, 15, 25}, []axis.Timestamp{sep, oct}, []axis.Attribute{"theta", "salt"})
	require.NoError(t, err)

	src := memory.New()
	for _, ts := range axes.Timestamps() {
		for i := range axes.NumLevels() {
			data := layer.New([]float32{float32(i), 1.5, -2}).Encode()
			require.NoError(t, src.Put(context.Background(), layer.Path("theta", ts, i), data))
		}
	}

	st := store.New()
	ld := loader.New(axes, st, src, loader.Config{Coalesce: true})
	sched, err := prefetch.New(axes, st, ld,
		prefetch.DefaultSelection(axes, axis.ModeSpace, "theta"),
		prefetch.Config{MaxConcurrency: 1, MaxCachingDistance: 1, AutoCache: false})
	require.NoError(t, err)

	server := httptest.NewServer(NewRouter(sched, src, md))
	t.Cleanup(func() {
		server.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = sched.Close(ctx)
	})

	return &testEnv{server: server, sched: sched, store: st, src: src}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()

	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.server.URL+path, r)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.server.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

// decodeData checks the response envelope and decodes its data into v.
func decodeData(t *testing.T, resp *http.Response, v any) {
	t.Helper()

	var env struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
		Error  string          `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	require.Empty(t, env.Error)
	if v != nil {
		require.NoError(t, json.Unmarshal(env.Data, v))
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var live handlers.LivenessInfo
	decodeData(t, resp, &live)
	assert.Equal(t, "oceancache", live.Service)
	assert.False(t, live.StartedAt.IsZero())
	assert.GreaterOrEqual(t, live.UptimeSec, int64(0))

	resp = env.do(t, http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, env.src.Close())
	resp = env.do(t, http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestReadiness_NoSource(t *testing.T) {
	h := handlers.NewHealthHandler(nil)
	w := httptest.NewRecorder()

	h.Readiness(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestStatus(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(t, http.MethodGet, "/api/v1/status", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var st prefetch.State
	decodeData(t, resp, &st)
	assert.Equal(t, axis.ModeSpace, st.Selection.Mode)
	assert.Equal(t, axis.Attribute("theta"), st.Selection.Attribute)
	assert.False(t, st.AutoCache)
	assert.Equal(t, 1, st.Pool.MaxConcurrency)
}

func TestSelectionEvents(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"selection", http.MethodPut, "/api/v1/selection", handlers.SelectionRequest{TimestampIndex: 1, LevelIndex: 2}, http.StatusOK},
		{"selection off axes", http.MethodPut, "/api/v1/selection", handlers.SelectionRequest{TimestampIndex: 2}, http.StatusBadRequest},
		{"range", http.MethodPut, "/api/v1/range", prefetch.Range{Lo: 0, Hi: 1}, http.StatusOK},
		{"range inverted", http.MethodPut, "/api/v1/range", prefetch.Range{Lo: 2, Hi: 1}, http.StatusBadRequest},
		{"slices", http.MethodPut, "/api/v1/slices", handlers.SlicesRequest{Slices: []int{0, 2}}, http.StatusOK},
		{"slices off axis", http.MethodPut, "/api/v1/slices", handlers.SlicesRequest{Slices: []int{3}}, http.StatusBadRequest},
		{"attribute unknown", http.MethodPut, "/api/v1/attribute", handlers.AttributeRequest{Attribute: "pressure"}, http.StatusBadRequest},
		{"mode unknown", http.MethodPut, "/api/v1/mode", handlers.ModeRequest{Mode: "depth"}, http.StatusBadRequest},
		{"dragging", http.MethodPost, "/api/v1/dragging", nil, http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}

	sel := env.sched.Selection()
	assert.Equal(t, 1, sel.Timestamp)
	assert.Equal(t, 2, sel.Level)
	assert.Equal(t, prefetch.Range{Lo: 0, Hi: 1}, sel.Range)
	assert.Equal(t, []int{0, 2}, sel.Slices)
}

func TestModeAndAttribute(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(t, http.MethodPut, "/api/v1/mode", handlers.ModeRequest{Mode: "TIME"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var st prefetch.State
	decodeData(t, resp, &st)
	assert.Equal(t, axis.ModeTime, st.Selection.Mode)
	// the time-mode point axis is the 2 timestamps
	assert.Equal(t, prefetch.Range{Lo: 0, Hi: 1}, st.Selection.Range)

	resp = env.do(t, http.MethodPut, "/api/v1/attribute", handlers.AttributeRequest{Attribute: "salt"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, axis.Attribute("salt"), env.sched.Selection().Attribute)

	resp = env.do(t, http.MethodPut, "/api/v1/autocache", handlers.AutoCacheRequest{Enabled: true})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, env.sched.AutoCache())
}

func TestLayerDownload(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(t, http.MethodGet, "/api/v1/layers/theta/2011-10-13-0/15", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/octet-stream", resp.Header.Get("Content-Type"))
	assert.Equal(t, "3", resp.Header.Get(handlers.HeaderLayerValues))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, layer.New([]float32{1, 1.5, -2}).Encode(), body)
	assert.True(t, env.store.Has("theta", oct, 15))

	resp = env.do(t, http.MethodGet, "/api/v1/status/layer/theta/2011-10-13-0/15", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var ls handlers.LayerStatusResponse
	decodeData(t, resp, &ls)
	assert.Equal(t, prefetch.StatusCached, ls.Status)
}

func TestLayerDownload_Errors(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name string
		path string
		want int
	}{
		{"missing in source", "/api/v1/layers/salt/2011-09-13-0/5", http.StatusNotFound},
		{"unknown attribute", "/api/v1/layers/pressure/2011-09-13-0/5", http.StatusNotFound},
		{"unknown level", "/api/v1/layers/theta/2011-09-13-0/6", http.StatusNotFound},
		{"unknown timestamp", "/api/v1/layers/theta/2013-09-13-0/5", http.StatusNotFound},
		{"bad timestamp", "/api/v1/layers/theta/yesterday/5", http.StatusBadRequest},
		{"bad level", "/api/v1/layers/theta/2011-09-13-0/deep", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(t, http.MethodGet, tt.path, nil)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestGrid(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(t, http.MethodGet, "/api/v1/layers/theta/2011-09-13-0/5", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/v1/status/grid?attribute=theta", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var grid prefetch.Grid
	decodeData(t, resp, &grid)
	require.Len(t, grid.Cells, 3)
	require.Len(t, grid.Cells[0], 2)
	assert.Equal(t, prefetch.StatusCached, grid.Cells[0][0])
	assert.Equal(t, 1, grid.Count(prefetch.StatusCached))
	assert.Equal(t, 5, grid.Count(prefetch.StatusMissing))

	resp = env.do(t, http.MethodGet, "/api/v1/status/grid?attribute=pressure", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAbort(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, scope := range []string{"", handlers.AbortAll, handlers.AbortBlock, handlers.AbortSlices} {
		resp := env.do(t, http.MethodPost, "/api/v1/cache/abort", handlers.AbortRequest{Scope: scope})
		assert.Equal(t, http.StatusOK, resp.StatusCode, "scope %q", scope)
	}

	resp := env.do(t, http.MethodPost, "/api/v1/cache/abort", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/v1/cache/abort", handlers.AbortRequest{Scope: "everything"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestManualCaching(t *testing.T) {
	env := newTestEnv(t, nil)

	// the whole first block: every level of the first timestamp
	resp := env.do(t, http.MethodPost, "/api/v1/cache/block", nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	require.Eventually(t, func() bool { return len(env.store.Keys("theta")) == 3 }, 5*time.Second, 10*time.Millisecond)
	for _, l := range []axis.Level{5, 15, 25} {
		assert.True(t, env.store.Has("theta", sep, l))
	}

	resp = env.do(t, http.MethodPut, "/api/v1/slices", handlers.SlicesRequest{Slices: []int{1}})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/v1/cache/slices", nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	var cs handlers.CacheSlicesResponse
	decodeData(t, resp, &cs)
	// the selected block and its one neighbor
	assert.Equal(t, 2, cs.Jobs)
	require.Eventually(t, func() bool { return env.store.Has("theta", oct, 15) }, 5*time.Second, 10*time.Millisecond)
}

func TestCacheAttribute(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(t, http.MethodPost, "/api/v1/cache/attribute", handlers.PreloadRequest{Attribute: "theta", Concurrency: 2})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	var pr handlers.PreloadResponse
	decodeData(t, resp, &pr)
	assert.Equal(t, 6, pr.Layers)

	require.Eventually(t, func() bool { return len(env.store.Keys("theta")) == 6 }, 5*time.Second, 10*time.Millisecond)

	resp = env.do(t, http.MethodPost, "/api/v1/cache/attribute", handlers.PreloadRequest{Attribute: "pressure"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/v1/cache/attribute", handlers.PreloadRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMetadata(t *testing.T) {
	env := newTestEnv(t, nil)
	resp := env.do(t, http.MethodGet, "/api/v1/metadata", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	md, err := metadata.Parse([]byte(`{
	  "size_km": 800,
	  "THETA": {
	    "min_global": -2, "max_global": 30,
	    "min_local": {"2011-9-13-0": [1, 2, 3]},
	    "max_local": {"2011-9-13-0": [4, 5, 6]}
	  }
	}`))
	require.NoError(t, err)
	env = newTestEnv(t, md)

	resp = env.do(t, http.MethodGet, "/api/v1/metadata", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var sum metadata.Summary
	decodeData(t, resp, &sum)
	assert.Equal(t, 800.0, sum.SizeKm)
	assert.Equal(t, metadata.Extrema{Min: -2, Max: 30}, sum.Global["theta"])

	resp = env.do(t, http.MethodGet, "/api/v1/metadata/extrema/theta/2011-09-13-0/15", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var e metadata.Extrema
	decodeData(t, resp, &e)
	assert.Equal(t, metadata.Extrema{Min: 2, Max: 5}, e)

	resp = env.do(t, http.MethodPut, "/api/v1/metadata/overrides/theta", metadata.Extrema{Min: 0, Max: 10})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/v1/metadata/extrema/theta/2011-09-13-0/15?global=true", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeData(t, resp, &e)
	assert.Equal(t, metadata.Extrema{Min: 0, Max: 10}, e)

	resp = env.do(t, http.MethodPut, "/api/v1/metadata/overrides/theta", metadata.Extrema{Min: 10, Max: 0})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodDelete, "/api/v1/metadata/overrides/theta", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	_, ok := md.Override("theta")
	assert.False(t, ok)

	resp = env.do(t, http.MethodGet, "/api/v1/metadata/extrema/salt/2011-09-13-0/15", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestEvents(t *testing.T) {
	env := newTestEnv(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, env.server.URL+"/api/v1/events", nil)
	require.NoError(t, err)
	resp, err := env.server.Client().Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	require.True(t, lines.Scan())
	// subscribed once the greeting arrives
	require.Equal(t, ": connected", lines.Text())

	res := env.sched.GetLayer(context.Background(), "theta", sep, 25)
	require.True(t, res.OK())

	var event, data string
	for lines.Scan() {
		line := lines.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
		if line == "" && data != "" {
			break
		}
	}
	require.NoError(t, lines.Err())

	assert.Equal(t, handlers.EventLayer, event)
	var ev handlers.LayerEvent
	require.NoError(t, json.Unmarshal([]byte(data), &ev))
	assert.Equal(t, axis.Attribute("theta"), ev.Attribute)
	assert.Equal(t, sep, ev.Timestamp)
	assert.Equal(t, axis.Level(25), ev.Level)
	assert.Equal(t, 3, ev.Values)
	assert.Equal(t, 12, ev.Bytes)
}
