// Package loader fetches raw layer files from a source, decodes them and
// records them in the layer store.
//
// Loads never retry. A load abandoned by its caller reports Cancelled and
// stores nothing; any other failure is logged at warn level and reported as
// Failed. Concurrent loads of the same layer can share one fetch (see
// Config.Coalesce).
package loader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/marmos91/oceancache/internal/logger"
	"github.com/marmos91/oceancache/internal/telemetry"
	"github.com/marmos91/oceancache/pkg/axis"
	"github.com/marmos91/oceancache/pkg/layer"
	"github.com/marmos91/oceancache/pkg/layer/store"
	"github.com/marmos91/oceancache/pkg/metrics"
	"github.com/marmos91/oceancache/pkg/source"
)

var (
	// ErrLayerTooLarge is returned when a fetched file exceeds MaxLayerSize.
	ErrLayerTooLarge = errors.New("layer exceeds maximum size")

	// ErrFetchTimeout is returned when a fetch exceeds Config.Timeout.
	ErrFetchTimeout = errors.New("layer fetch timed out")

	// ErrInvalidLayer is returned when fetched bytes are not a float32 array.
	ErrInvalidLayer = layer.ErrInvalidLayer
)

// Config tunes the loader.
type Config struct {
	// Coalesce makes concurrent loads of one layer share a single fetch.
	Coalesce bool

	// MaxLayerSize rejects files larger than this many bytes. 0 disables
	// the check.
	MaxLayerSize int

	// Timeout bounds each fetch. 0 means no timeout.
	Timeout time.Duration

	// SourceType labels fetch spans (http, filesystem, s3, badger).
	SourceType string
}

// Option configures a Loader.
type Option func(*Loader)

// WithMetrics sets the metrics sink. nil disables metrics.
func WithMetrics(m metrics.LoaderMetrics) Option {
	return func(l *Loader) { l.metrics = m }
}

// Loader loads layers into a store. It is safe for concurrent use.
type Loader struct {
	axes    *axis.Axes
	store   *store.Store
	src     source.Source
	cfg     Config
	metrics metrics.LoaderMetrics

	mu       sync.Mutex
	inFlight map[string]*sharedFetch
}

// sharedFetch is one fetch awaited by one or more loads. done is closed
// once layer and err are final.
type sharedFetch struct {
	done    chan struct{}
	layer   *layer.Layer
	err     error
	waiters int
	cancel  context.CancelFunc
}

// New creates a loader reading from src and writing to st.
func New(axes *axis.Axes, st *store.Store, src source.Source, cfg Config, opts ...Option) *Loader {
	l := &Loader{
		axes:     axes,
		store:    st,
		src:      src,
		cfg:      cfg,
		inFlight: make(map[string]*sharedFetch),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Store returns the store the loader writes to.
func (l *Loader) Store() *store.Store { return l.store }

// InFlight returns the number of distinct fetches currently shared between
// loads. Always 0 when coalescing is off.
func (l *Loader) InFlight() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.inFlight)
}

// Load returns the layer for (attr, ts, level), fetching it when the store
// does not hold it yet. ctx is the cancellation token of the load.
func (l *Loader) Load(ctx context.Context, attr axis.Attribute, ts axis.Timestamp, level axis.Level) layer.Result {
	if lyr, ok := l.store.Get(attr, ts, level); ok {
		if l.metrics != nil {
			l.metrics.RecordCacheHit(string(attr))
		}
		return layer.LoadedResult(lyr)
	}

	key := layer.Key{Attribute: attr, Timestamp: ts, Level: level}
	path, err := l.resolve(key)
	if err != nil {
		logger.WarnCtx(ctx, "Layer load rejected",
			logger.KeyAttribute, string(attr),
			logger.KeyTimestamp, ts.String(),
			logger.KeyLevel, float64(level),
			logger.KeyError, err)
		return layer.FailedResult(err)
	}

	ctx, span := telemetry.StartLoadSpan(ctx, string(attr), ts.String(), float64(level), telemetry.Path(path))
	defer span.End()

	var lyr *layer.Layer
	if l.cfg.Coalesce {
		lyr, err = l.loadShared(ctx, key, path)
	} else {
		lyr, err = l.fetch(ctx, key, path)
	}

	switch {
	case err == nil:
		return layer.LoadedResult(lyr)
	case ctx.Err() != nil:
		logger.DebugCtx(ctx, "Layer load cancelled", logger.KeyPath, path)
		return layer.CancelledResult()
	default:
		telemetry.RecordError(ctx, err)
		logger.WarnCtx(ctx, "Layer load failed",
			logger.KeyAttribute, string(attr),
			logger.KeyPath, path,
			logger.KeyError, err)
		return layer.FailedResult(err)
	}
}

// LoadKey is Load addressed by a layer.Key.
func (l *Loader) LoadKey(ctx context.Context, key layer.Key) layer.Result {
	return l.Load(ctx, key.Attribute, key.Timestamp, key.Level)
}

// resolve validates the key against the axes and returns its file path.
func (l *Loader) resolve(key layer.Key) (string, error) {
	if !l.axes.HasAttribute(key.Attribute) {
		return "", fmt.Errorf("%w: attribute %q", axis.ErrUnknownValue, key.Attribute)
	}
	if _, ok := l.axes.TimestampIndex(key.Timestamp); !ok {
		return "", fmt.Errorf("%w: timestamp %s", axis.ErrUnknownValue, key.Timestamp)
	}
	idx, ok := l.axes.LevelIndex(key.Level)
	if !ok {
		return "", fmt.Errorf("%w: level %g", axis.ErrUnknownValue, float64(key.Level))
	}
	return layer.Path(key.Attribute, key.Timestamp, idx), nil
}

// loadShared joins or starts the shared fetch for path. The shared fetch
// runs detached from any single caller and is cancelled once its last
// waiter has gone.
func (l *Loader) loadShared(ctx context.Context, key layer.Key, path string) (*layer.Layer, error) {
	l.mu.Lock()
	f, joined := l.inFlight[path]
	if !joined {
		// a shared fetch may have stored the layer since the caller's check
		if lyr, ok := l.store.GetKey(key); ok {
			l.mu.Unlock()
			return lyr, nil
		}
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &sharedFetch{done: make(chan struct{}), cancel: cancel}
		l.inFlight[path] = f
		go l.runShared(fctx, key, path, f)
	}
	f.waiters++
	l.mu.Unlock()

	if joined {
		if l.metrics != nil {
			l.metrics.RecordCoalesced(string(key.Attribute))
		}
		telemetry.SetAttributes(ctx, telemetry.Coalesced(true))
	}

	select {
	case <-f.done:
		return f.layer, f.err
	case <-ctx.Done():
		l.mu.Lock()
		f.waiters--
		if f.waiters == 0 {
			if l.inFlight[path] == f {
				delete(l.inFlight, path)
			}
			f.cancel()
		}
		l.mu.Unlock()
		return nil, ctx.Err()
	}
}

func (l *Loader) runShared(ctx context.Context, key layer.Key, path string, f *sharedFetch) {
	lyr, err := l.fetch(ctx, key, path)

	l.mu.Lock()
	if l.inFlight[path] == f {
		delete(l.inFlight, path)
	}
	f.layer, f.err = lyr, err
	close(f.done)
	l.mu.Unlock()

	f.cancel()
}

// fetch reads, validates, decodes and stores one layer file.
func (l *Loader) fetch(ctx context.Context, key layer.Key, path string) (*layer.Layer, error) {
	parent := ctx
	if l.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.cfg.Timeout)
		defer cancel()
	}

	ctx, span := telemetry.StartFetchSpan(ctx, l.cfg.SourceType, path)
	defer span.End()

	start := time.Now()
	data, err := l.src.Fetch(ctx, path)
	elapsed := time.Since(start)

	if err != nil {
		outcome := metrics.OutcomeFailed
		switch {
		case parent.Err() != nil:
			outcome = metrics.OutcomeCancelled
		case errors.Is(err, context.DeadlineExceeded) && ctx.Err() != nil:
			err = fmt.Errorf("%w after %s", ErrFetchTimeout, l.cfg.Timeout)
		case errors.Is(err, source.ErrLayerNotFound):
			outcome = metrics.OutcomeNotFound
		}
		l.observe(key, outcome, 0, elapsed)
		if outcome != metrics.OutcomeCancelled {
			telemetry.RecordError(ctx, err)
		}
		return nil, fmt.Errorf("fetch %s: %w", path, err)
	}

	if l.cfg.MaxLayerSize > 0 && len(data) > l.cfg.MaxLayerSize {
		l.observe(key, metrics.OutcomeFailed, len(data), elapsed)
		return nil, fmt.Errorf("%w: %s is %d bytes (limit %d)", ErrLayerTooLarge, path, len(data), l.cfg.MaxLayerSize)
	}

	lyr, err := layer.Decode(data)
	if err != nil {
		l.observe(key, metrics.OutcomeFailed, len(data), elapsed)
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	l.store.PutKey(key, lyr)
	l.observe(key, metrics.OutcomeLoaded, len(data), elapsed)
	telemetry.SetAttributes(ctx, telemetry.Bytes(len(data)))

	logger.DebugCtx(ctx, "Layer loaded",
		logger.KeyPath, path,
		logger.KeyBytes, len(data),
		logger.KeyDurationMs, float64(elapsed.Microseconds())/1000.0)
	return lyr, nil
}

func (l *Loader) observe(key layer.Key, outcome string, bytes int, d time.Duration) {
	if l.metrics != nil {
		l.metrics.ObserveFetch(string(key.Attribute), outcome, bytes, d)
	}
}
