package prefetch

import (
	"context"
	"testing"
	"time"

	"github.com/marmos91/oceancache/pkg/axis"
	"github.com/marmos91/oceancache/pkg/layer/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreloadAttribute_Sequential(t *testing.T) {
	a := testAxes(t)
	ld := newFakeLoader(store.New(), false)
	s := newTestScheduler(t, a, ld, DefaultSelection(a, axis.ModeSpace, "theta"), DefaultConfig())

	res, err := s.PreloadAttribute(context.Background(), "salt", 1)
	require.NoError(t, err)
	assert.Equal(t, 30, res.Total)
	assert.Equal(t, 30, res.Loaded)
	assert.False(t, res.Skipped)

	// axis order: every level of the first timestamp comes first
	calls := ld.Calls()
	require.Len(t, calls, 30)
	assert.Equal(t, keyAt(a, "salt", 0, 0), calls[0])
	assert.Equal(t, keyAt(a, "salt", 0, 4), calls[4])
	assert.Equal(t, keyAt(a, "salt", 1, 0), calls[5])

	again, err := s.PreloadAttribute(context.Background(), "salt", 1)
	require.NoError(t, err)
	assert.True(t, again.Skipped)
	assert.Len(t, ld.Calls(), 30)
}

func TestPreloadAttribute_Parallel(t *testing.T) {
	a := testAxes(t)
	ld := newFakeLoader(store.New(), false)
	s := newTestScheduler(t, a, ld, DefaultSelection(a, axis.ModeSpace, "theta"), DefaultConfig())

	res, err := s.PreloadAttribute(context.Background(), "theta", 4)
	require.NoError(t, err)
	assert.Equal(t, 30, res.Loaded)
	assert.Equal(t, 30, ld.store.Len())
}

func TestPreloadAttribute_FailuresAreCounted(t *testing.T) {
	a := testAxes(t)
	ld := newFakeLoader(store.New(), false)
	ld.fail(keyAt(a, "theta", 3, 3))
	s := newTestScheduler(t, a, ld, DefaultSelection(a, axis.ModeSpace, "theta"), DefaultConfig())

	res, err := s.PreloadAttribute(context.Background(), "theta", 3)
	require.NoError(t, err)
	assert.Equal(t, 29, res.Loaded)
	assert.Equal(t, 1, res.Failed)

	// an incomplete preload may run again
	again, err := s.PreloadAttribute(context.Background(), "theta", 3)
	require.NoError(t, err)
	assert.False(t, again.Skipped)
	assert.Equal(t, 1, again.Failed)
}

func TestPreloadAttribute_Rejects(t *testing.T) {
	a := testAxes(t)
	ld := newFakeLoader(store.New(), true)
	s := newTestScheduler(t, a, ld, DefaultSelection(a, axis.ModeSpace, "theta"), DefaultConfig())

	_, err := s.PreloadAttribute(context.Background(), "uv", 1)
	assert.ErrorIs(t, err, axis.ErrUnknownValue)
	assert.ErrorIs(t, s.StartPreload("uv", 1), axis.ErrUnknownValue)

	require.NoError(t, s.StartPreload("theta", 2))
	waitStarted(t, ld)
	assert.True(t, s.Preloading("theta"))
	assert.Equal(t, []axis.Attribute{"theta"}, s.State().Preloading)

	_, err = s.PreloadAttribute(context.Background(), "theta", 1)
	assert.ErrorIs(t, err, ErrPreloadInProgress)
	assert.ErrorIs(t, s.StartPreload("theta", 1), ErrPreloadInProgress)

	require.NoError(t, s.Close(waitCtx(t)))
	assert.False(t, s.Preloading("theta"))
	assert.ErrorIs(t, s.StartPreload("salt", 1), ErrClosed)
}

func TestPreloadAttribute_Cancelled(t *testing.T) {
	a := testAxes(t)
	ld := newFakeLoader(store.New(), true)
	s := newTestScheduler(t, a, ld, DefaultSelection(a, axis.ModeSpace, "theta"), DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := s.PreloadAttribute(ctx, "theta", 1)
		done <- err
	}()

	waitStarted(t, ld)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("preload did not stop")
	}
	assert.Len(t, ld.Calls(), 1)
	assert.False(t, s.Preloading("theta"))
}

func TestStartPreload_ClaimsBeforeReturning(t *testing.T) {
	a := testAxes(t)
	ld := newFakeLoader(store.New(), true)
	s := newTestScheduler(t, a, ld, DefaultSelection(a, axis.ModeSpace, "theta"), DefaultConfig())

	// no wait between the calls: the second one must see the first
	require.NoError(t, s.StartPreload("salt", 1))
	assert.True(t, s.Preloading("salt"))
	assert.ErrorIs(t, s.StartPreload("salt", 1), ErrPreloadInProgress)

	ld.release()
	require.NoError(t, s.Wait(waitCtx(t)))
	assert.False(t, s.Preloading("salt"))
	assert.Len(t, ld.Calls(), 30, "only one preload ran")

	// fully preloaded attributes are not started again
	require.NoError(t, s.StartPreload("salt", 1))
	assert.False(t, s.Preloading("salt"))
	require.NoError(t, s.Wait(waitCtx(t)))
	assert.Len(t, ld.Calls(), 30)
}
