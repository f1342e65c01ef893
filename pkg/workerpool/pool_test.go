package workerpool

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestPool_ResolvesResult(t *testing.T) {
	p := New[int](2)

	f := p.Submit(func() (int, error) { return 42, nil })
	v, err := f.Wait(waitCtx(t))
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.True(t, f.Settled())
}

func TestPool_RejectsOnError(t *testing.T) {
	p := New[int](1)
	boom := errors.New("boom")

	f := p.Submit(func() (int, error) { return 0, boom })
	_, err := f.Wait(waitCtx(t))
	assert.ErrorIs(t, err, boom)

	assert.Equal(t, 1, p.Stats().Failed)
}

func TestPool_RejectsOnPanic(t *testing.T) {
	p := New[int](1)

	f := p.Submit(func() (int, error) { panic("kaboom") })
	_, err := f.Wait(waitCtx(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPanic)
	assert.Contains(t, err.Error(), "kaboom")

	// the slot is released after a panic
	f2 := p.Submit(func() (int, error) { return 1, nil })
	v, err := f2.Wait(waitCtx(t))
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestPool_ConcurrencyBound(t *testing.T) {
	const (
		limit = 3
		total = 20
	)
	p := New[struct{}](limit)

	var running, peak atomic.Int32
	futures := make([]*Future[struct{}], 0, total)
	for i := 0; i < total; i++ {
		futures = append(futures, p.Submit(func() (struct{}, error) {
			n := running.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			running.Add(-1)
			return struct{}{}, nil
		}))
	}

	for _, f := range futures {
		_, err := f.Wait(waitCtx(t))
		require.NoError(t, err)
	}

	assert.LessOrEqual(t, peak.Load(), int32(limit))
	assert.Equal(t, total, p.Stats().Completed)
}

func TestPool_FIFOOrder(t *testing.T) {
	p := New[int](1)

	var mu sync.Mutex
	var order []int
	var futures []*Future[int]
	for i := 0; i < 10; i++ {
		futures = append(futures, p.Submit(func() (int, error) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return i, nil
		}))
	}
	for _, f := range futures {
		_, err := f.Wait(waitCtx(t))
		require.NoError(t, err)
	}

	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, order)
}

func TestPool_ClearQueue(t *testing.T) {
	p := New[int](2)

	release := make(chan struct{})
	var started atomic.Int32
	futures := make([]*Future[int], 5)
	for i := range futures {
		futures[i] = p.Submit(func() (int, error) {
			started.Add(1)
			<-release
			return i, nil
		})
	}

	assert.Equal(t, 3, p.ClearQueue())
	stats := p.Stats()
	assert.Equal(t, 0, stats.Queued)
	assert.Equal(t, 2, stats.Running)

	close(release)
	for _, f := range futures[:2] {
		_, err := f.Wait(waitCtx(t))
		require.NoError(t, err)
	}
	require.NoError(t, p.Wait(waitCtx(t)))

	assert.Equal(t, int32(2), started.Load())
	for _, f := range futures[2:] {
		assert.False(t, f.Settled(), "cleared tasks never settle")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := futures[4].Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPool_ClearQueueThenSubmit(t *testing.T) {
	p := New[int](1)

	release := make(chan struct{})
	first := p.Submit(func() (int, error) { <-release; return 1, nil })
	p.Submit(func() (int, error) { return 2, nil })
	p.ClearQueue()
	third := p.Submit(func() (int, error) { return 3, nil })

	close(release)
	v, err := third.Wait(waitCtx(t))
	require.NoError(t, err)
	assert.Equal(t, 3, v)

	v, err = first.Wait(waitCtx(t))
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestPool_MinimumConcurrency(t *testing.T) {
	assert.Equal(t, 1, New[int](0).MaxConcurrency())
	assert.Equal(t, 1, New[int](-4).MaxConcurrency())
}

type recordingMetrics struct {
	mu      sync.Mutex
	queued  []int
	running []int
}

func (m *recordingMetrics) SetQueued(n int) {
	m.mu.Lock()
	m.queued = append(m.queued, n)
	m.mu.Unlock()
}

func (m *recordingMetrics) SetRunning(n int) {
	m.mu.Lock()
	m.running = append(m.running, n)
	m.mu.Unlock()
}

func TestPool_Metrics(t *testing.T) {
	m := &recordingMetrics{}
	p := New[int](1, WithMetrics(m))

	release := make(chan struct{})
	f := p.Submit(func() (int, error) { <-release; return 0, nil })
	p.Submit(func() (int, error) { return 0, nil })

	m.mu.Lock()
	assert.Equal(t, 1, m.queued[len(m.queued)-1])
	assert.Equal(t, 1, m.running[len(m.running)-1])
	m.mu.Unlock()

	close(release)
	_, err := f.Wait(waitCtx(t))
	require.NoError(t, err)
	require.NoError(t, p.Wait(waitCtx(t)))

	m.mu.Lock()
	defer m.mu.Unlock()
	assert.Equal(t, 0, m.queued[len(m.queued)-1])
	assert.Equal(t, 0, m.running[len(m.running)-1])
}

func TestPool_WaitReturnsOnContextWithoutLeaking(t *testing.T) {
	p := New[int](1)
	release := make(chan struct{})
	started := make(chan struct{})
	f := p.Submit(func() (int, error) {
		close(started)
		<-release
		return 1, nil
	})
	<-started

	base := runtime.NumGoroutine()
	for range 10 {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
		assert.ErrorIs(t, p.Wait(ctx), context.DeadlineExceeded)
		cancel()
	}
	assert.Eventually(t, func() bool { return runtime.NumGoroutine() <= base },
		time.Second, 10*time.Millisecond, "expired waits must not leave goroutines behind")

	close(release)
	_, err := f.Wait(waitCtx(t))
	require.NoError(t, err)
	require.NoError(t, p.Wait(waitCtx(t)))
}
