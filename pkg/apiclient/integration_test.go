package apiclient_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/oceancache/pkg/api"
	"github.com/marmos91/oceancache/pkg/apiclient"
	"github.com/marmos91/oceancache/pkg/axis"
	"github.com/marmos91/oceancache/pkg/layer"
	"github.com/marmos91/oceancache/pkg/layer/store"
	"github.com/marmos91/oceancache/pkg/loader"
	"github.com/marmos91/oceancache/pkg/prefetch"
	"github.com/marmos91/oceancache/pkg/source/memory"
)

var (
	sep = axis.MustParseTimestamp("2011-09-13-0")
	oct = axis.MustParseTimestamp("2011-10-13-0")
)

// newClient serves theta over 2 levels and 2 timestamps with auto caching
// off and returns a client talking to it.
func newClient(t *testing.T) *apiclient.Client {
	t.Helper()

	axes, err := axis.New([]axis.Level{5, 15}, []axis.Timestamp{sep, oct}, []axis.Attribute{"theta"})
	require.NoError(t, err)

	src := memory.New()
	for _, ts := range axes.Timestamps() {
		for i := range axes.NumLevels() {
			data := layer.New([]float32{float32(i), 0.5}).Encode()
			require.NoError(t, src.Put(context.Background(), layer.Path("theta", ts, i), data))
		}
	}

	st := store.New()
	sched, err := prefetch.New(axes, st, loader.New(axes, st, src, loader.Config{Coalesce: true}),
		prefetch.DefaultSelection(axes, axis.ModeSpace, "theta"),
		prefetch.Config{MaxConcurrency: 1, MaxCachingDistance: 1, AutoCache: false})
	require.NoError(t, err)

	server := httptest.NewServer(api.NewRouter(sched, src, nil))
	t.Cleanup(func() {
		server.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = sched.Close(ctx)
	})
	return apiclient.New(server.URL)
}

func TestClient_StatusAndSelection(t *testing.T) {
	client := newClient(t)
	ctx := context.Background()

	info, err := client.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "oceancache", info.Service)
	require.NoError(t, client.Ready(ctx))

	state, err := client.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, axis.Attribute("theta"), state.Selection.Attribute)
	assert.False(t, state.AutoCache)

	state, err = client.Select(ctx, apiclient.SelectRequest{TimestampIndex: 1, LevelIndex: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, state.Selection.Timestamp)
	assert.Equal(t, 1, state.Selection.Level)

	_, err = client.Select(ctx, apiclient.SelectRequest{TimestampIndex: 0, LevelIndex: 9})
	var apiErr *apiclient.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsValidationError())

	_, err = client.SetAttribute(ctx, "pressure")
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsValidationError())
}

func TestClient_GetLayer(t *testing.T) {
	client := newClient(t)
	ctx := context.Background()

	l, err := client.GetLayer(ctx, "theta", oct, 15)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0.5}, l.Values())

	status, err := client.LayerStatus(ctx, "theta", oct, 15)
	require.NoError(t, err)
	assert.Equal(t, prefetch.StatusCached, status.Status)

	grid, err := client.Grid(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 1, grid.Count(prefetch.StatusCached))

	_, err = client.GetLayer(ctx, "theta", oct, 999)
	var apiErr *apiclient.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsNotFound())
}

func TestClient_ManualCaching(t *testing.T) {
	client := newClient(t)
	ctx := context.Background()

	sel, err := client.CacheBlock(ctx)
	require.NoError(t, err)
	assert.Equal(t, axis.Attribute("theta"), sel.Attribute)

	require.Eventually(t, func() bool {
		state, err := client.Status(ctx)
		return err == nil && state.Store.Layers == 2
	}, 5*time.Second, 10*time.Millisecond)

	res, err := client.CacheAttribute(ctx, "theta", 2)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Layers)

	require.Eventually(t, func() bool {
		state, err := client.Status(ctx)
		return err == nil && state.Store.Layers == 4
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, client.Abort(ctx, apiclient.AbortAll))
}

func TestClient_Metadata_NotLoaded(t *testing.T) {
	client := newClient(t)

	_, err := client.Metadata(context.Background())
	var apiErr *apiclient.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsNotFound())
}

func TestClient_Watch(t *testing.T) {
	client := newClient(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	events := make(chan apiclient.LayerEvent, 4)
	done := make(chan error, 1)
	go func() {
		done <- client.Watch(ctx, func(ev apiclient.LayerEvent) error {
			events <- ev
			return nil
		})
	}()

	// Give the stream time to subscribe
	time.Sleep(100 * time.Millisecond)

	_, err := client.GetLayer(context.Background(), "theta", sep, 5)
	require.NoError(t, err)

	select {
	case ev := <-events:
		assert.Equal(t, axis.Attribute("theta"), ev.Attribute)
		assert.Equal(t, sep, ev.Timestamp)
		assert.Equal(t, axis.Level(5), ev.Level)
		assert.Equal(t, 2, ev.Values)
		assert.Equal(t, 8, ev.Bytes)
		assert.NotEmpty(t, ev.ID)
	case <-ctx.Done():
		t.Fatal("no layer event received")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after cancellation")
	}
}
