package prefetch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/marmos91/oceancache/pkg/axis"
	"github.com/marmos91/oceancache/pkg/layer"
	"github.com/marmos91/oceancache/pkg/layer/store"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

// testAxes has 5 levels and 6 timestamps: in space mode a block holds 5
// points and there are 6 blocks.
func testAxes(t *testing.T) *axis.Axes {
	t.Helper()
	ts, err := axis.ParseTimestamps([]string{
		"2011-09-13-0", "2011-10-13-0", "2011-11-13-0",
		"2011-12-13-0", "2012-01-13-0", "2012-02-13-0",
	})
	require.NoError(t, err)
	a, err := axis.New([]axis.Level{5, 15, 25, 35, 45}, ts, []axis.Attribute{"theta", "salt"})
	require.NoError(t, err)
	return a
}

func keyAt(a *axis.Axes, attr axis.Attribute, tsIdx, lvlIdx int) layer.Key {
	return layer.Key{Attribute: attr, Timestamp: a.Timestamp(tsIdx), Level: a.Level(lvlIdx)}
}

// fakeLoader stores a one-value layer for every load. When blocking, each
// load waits for release or for its context.
type fakeLoader struct {
	store   *store.Store
	hold    chan struct{}
	started chan layer.Key

	mu      sync.Mutex
	calls   []layer.Key
	failing map[layer.Key]bool
}

func newFakeLoader(st *store.Store, blocking bool) *fakeLoader {
	f := &fakeLoader{
		store:   st,
		started: make(chan layer.Key, 256),
		failing: make(map[layer.Key]bool),
	}
	if blocking {
		f.hold = make(chan struct{})
	}
	return f
}

func (f *fakeLoader) release() { close(f.hold) }

func (f *fakeLoader) fail(key layer.Key) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing[key] = true
}

func (f *fakeLoader) Calls() []layer.Key {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]layer.Key(nil), f.calls...)
}

func (f *fakeLoader) Load(ctx context.Context, attr axis.Attribute, ts axis.Timestamp, level axis.Level) layer.Result {
	key := layer.Key{Attribute: attr, Timestamp: ts, Level: level}
	if lyr, ok := f.store.GetKey(key); ok {
		return layer.LoadedResult(lyr)
	}

	f.mu.Lock()
	f.calls = append(f.calls, key)
	failing := f.failing[key]
	f.mu.Unlock()
	f.started <- key

	if f.hold != nil {
		select {
		case <-f.hold:
		case <-ctx.Done():
			return layer.CancelledResult()
		}
	}
	if ctx.Err() != nil {
		return layer.CancelledResult()
	}
	if failing {
		return layer.FailedResult(errBoom)
	}

	lyr := layer.New([]float32{1})
	f.store.PutKey(key, lyr)
	return layer.LoadedResult(lyr)
}

func waitStarted(t *testing.T, f *fakeLoader) layer.Key {
	t.Helper()
	select {
	case k := <-f.started:
		return k
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a load to start")
		return layer.Key{}
	}
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func newTestScheduler(t *testing.T, a *axis.Axes, ld *fakeLoader, sel Selection, cfg Config) *Scheduler {
	t.Helper()
	s, err := New(a, ld.store, ld, sel, cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Close(ctx)
	})
	return s
}
