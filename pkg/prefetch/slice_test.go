package prefetch

import (
	"context"
	"testing"
	"time"

	"github.com/marmos91/oceancache/pkg/axis"
	"github.com/marmos91/oceancache/pkg/layer/store"
	"github.com/marmos91/oceancache/pkg/workerpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSliceScheduler(t *testing.T, ld *fakeLoader, maxConcurrency, maxDistance int) (*SliceScheduler, *workerpool.Pool[loopResult]) {
	t.Helper()
	pool := workerpool.New[loopResult](maxConcurrency)
	s := NewSliceScheduler(ld, testAxes(t), pool, maxDistance, nil)
	t.Cleanup(func() {
		s.AbortAll()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = pool.Wait(ctx)
	})
	return s, pool
}

func TestSliceScheduler_NeighborhoodIsBounded(t *testing.T) {
	s, _ := newTestSliceScheduler(t, newFakeLoader(store.New(), false), 1, 1)

	assert.Equal(t, []int{2, 1, 3}, s.neighborhood(sliceRound{Mode: axis.ModeSpace, SelectedBlock: 2}))
	assert.Equal(t, []int{0, 1}, s.neighborhood(sliceRound{Mode: axis.ModeSpace, SelectedBlock: 0}))
	// time mode: 5 level blocks
	assert.Equal(t, []int{4, 3}, s.neighborhood(sliceRound{Mode: axis.ModeTime, SelectedBlock: 4}))
}

func TestSliceScheduler_ScheduleAllCachesNeighborhood(t *testing.T) {
	a := testAxes(t)
	ld := newFakeLoader(store.New(), false)
	s, pool := newTestSliceScheduler(t, ld, 2, 1)

	n := s.ScheduleAll(context.Background(), sliceRound{
		Attribute: "theta", Mode: axis.ModeSpace, SelectedBlock: 2, SelectedPoint: 2, Slices: []int{1, 3},
	})
	assert.Equal(t, 3, n)
	require.NoError(t, pool.Wait(waitCtx(t)))

	assert.Zero(t, s.Len())
	for _, ts := range []int{1, 2, 3} {
		for _, lvl := range []int{1, 3} {
			assert.True(t, ld.store.Has("theta", a.Timestamp(ts), a.Level(lvl)), "ts %d level %d", ts, lvl)
		}
	}
	assert.Equal(t, 6, ld.store.Len())
}

func TestSliceScheduler_EmptySlicesOnlyAborts(t *testing.T) {
	ld := newFakeLoader(store.New(), false)
	s, _ := newTestSliceScheduler(t, ld, 1, 3)

	assert.Zero(t, s.ScheduleAll(context.Background(), sliceRound{Attribute: "theta", Mode: axis.ModeSpace, SelectedBlock: 2}))
	assert.Zero(t, s.Len())
	assert.Empty(t, ld.Calls())
}

func TestSliceScheduler_QueuedAndWorking(t *testing.T) {
	a := testAxes(t)
	ld := newFakeLoader(store.New(), true)
	s, _ := newTestSliceScheduler(t, ld, 1, 1)

	s.ScheduleAll(context.Background(), sliceRound{
		Attribute: "theta", Mode: axis.ModeSpace, SelectedBlock: 2, SelectedPoint: 2, Slices: []int{3, 1},
	})

	// slices are visited closest to the selected point first, ties in pinned order
	assert.Equal(t, keyAt(a, "theta", 2, 3), waitStarted(t, ld))

	info := s.Info()
	assert.Equal(t, []int{3, 1}, info.Slices)
	assert.Equal(t, []SliceJob{{Block: 1}, {Block: 2, Working: true}, {Block: 3}}, info.Jobs)

	assert.True(t, s.working(2, 1))
	assert.True(t, s.queued(2, 1))
	assert.False(t, s.working(1, 1))
	assert.True(t, s.queued(1, 1))
	assert.False(t, s.queued(2, 2), "unpinned point")
	assert.False(t, s.queued(4, 1), "outside the neighborhood")
}

func TestSliceScheduler_AbortAllClearsQueue(t *testing.T) {
	ld := newFakeLoader(store.New(), true)
	s, pool := newTestSliceScheduler(t, ld, 1, 1)

	s.ScheduleAll(context.Background(), sliceRound{
		Attribute: "theta", Mode: axis.ModeSpace, SelectedBlock: 2, SelectedPoint: 0, Slices: []int{0},
	})
	waitStarted(t, ld)

	assert.True(t, s.AbortAll())
	assert.Zero(t, s.Len())
	assert.Empty(t, s.Info().Slices)
	require.NoError(t, pool.Wait(waitCtx(t)))

	assert.Equal(t, 2, pool.Stats().Cleared)
	assert.Len(t, ld.Calls(), 1)
	assert.Zero(t, ld.store.Len())

	assert.False(t, s.AbortAll())
}

func TestSliceScheduler_ScheduleAllSupersedesJobs(t *testing.T) {
	a := testAxes(t)
	ld := newFakeLoader(store.New(), true)
	s, _ := newTestSliceScheduler(t, ld, 1, 0)

	s.ScheduleAll(context.Background(), sliceRound{
		Attribute: "theta", Mode: axis.ModeSpace, SelectedBlock: 2, Slices: []int{0},
	})
	waitStarted(t, ld)

	s.ScheduleAll(context.Background(), sliceRound{
		Attribute: "theta", Mode: axis.ModeSpace, SelectedBlock: 4, Slices: []int{0},
	})
	assert.Equal(t, keyAt(a, "theta", 4, 0), waitStarted(t, ld))
	assert.Equal(t, []SliceJob{{Block: 4, Working: true}}, s.Info().Jobs)
}

func TestSliceScheduler_RemoveByTokenIdentity(t *testing.T) {
	s, _ := newTestSliceScheduler(t, newFakeLoader(store.New(), false), 1, 1)

	stale := NewToken(context.Background())
	current := NewToken(context.Background())
	s.jobs[4] = &sliceJob{token: current}

	// a superseded job neither flags nor removes the entry now holding its block
	s.markWorking(4, stale)
	assert.False(t, s.jobs[4].working)
	s.remove(stale)
	assert.Equal(t, 1, s.Len())
	assert.True(t, stale.Aborted())
	assert.False(t, current.Aborted())

	s.markWorking(4, current)
	assert.True(t, s.jobs[4].working)
	s.remove(current)
	assert.Zero(t, s.Len())
	assert.True(t, current.Aborted())
}

func TestSliceScheduler_UntrackedJobs(t *testing.T) {
	a := testAxes(t)
	ld := newFakeLoader(store.New(), false)
	s, pool := newTestSliceScheduler(t, ld, 2, 1)

	n := s.ScheduleUntracked(context.Background(), sliceRound{
		Attribute: "salt", Mode: axis.ModeTime, SelectedBlock: 0, SelectedPoint: 0, Slices: []int{5},
	})
	assert.Equal(t, 2, n)
	assert.Zero(t, s.Len())
	require.NoError(t, pool.Wait(waitCtx(t)))

	assert.True(t, ld.store.Has("salt", a.Timestamp(5), a.Level(0)))
	assert.True(t, ld.store.Has("salt", a.Timestamp(5), a.Level(1)))
}
