package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/marmos91/oceancache/pkg/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/data/theta_2011_9_13_0_0.bin", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write([]byte{0, 0, 128, 63})
	})
	mux.HandleFunc("/data/broken.bin", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	})
	mux.HandleFunc("/data/slow.bin", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestSource_Fetch(t *testing.T) {
	srv := newTestServer(t)

	s, err := New(Config{BaseURL: srv.URL + "/data"})
	require.NoError(t, err)
	defer s.Close()

	t.Run("Success", func(t *testing.T) {
		data, err := s.Fetch(context.Background(), "theta_2011_9_13_0_0.bin")
		require.NoError(t, err)
		assert.Equal(t, []byte{0, 0, 128, 63}, data)
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := s.Fetch(context.Background(), "missing.bin")
		assert.ErrorIs(t, err, source.ErrLayerNotFound)
	})

	t.Run("ServerRejects", func(t *testing.T) {
		_, err := s.Fetch(context.Background(), "broken.bin")
		var statusErr *StatusError
		require.True(t, errors.As(err, &statusErr))
		assert.Equal(t, http.StatusForbidden, statusErr.StatusCode)
		assert.False(t, source.IsCancelled(err))
	})

	t.Run("CancelledMidTransfer", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(20 * time.Millisecond)
			cancel()
		}()

		start := time.Now()
		_, err := s.Fetch(ctx, "slow.bin")
		assert.True(t, source.IsCancelled(err))
		assert.Less(t, time.Since(start), 2*time.Second)
	})
}

func TestSource_URL(t *testing.T) {
	s, err := New(Config{BaseURL: "https://example.org/Data/downloads/data"})
	require.NoError(t, err)

	assert.Equal(t, "https://example.org/Data/downloads/data/salt_2012_1_13_0_5.bin", s.URL("salt_2012_1_13_0_5.bin"))
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	_, err = New(Config{BaseURL: "ftp://example.org"})
	assert.Error(t, err)
}

func TestSource_HealthCheck(t *testing.T) {
	srv := newTestServer(t)

	s, err := New(Config{BaseURL: srv.URL})
	require.NoError(t, err)
	assert.NoError(t, s.HealthCheck(context.Background()))

	srv.Close()
	assert.Error(t, s.HealthCheck(context.Background()))
}
