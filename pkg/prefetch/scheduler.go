// Package prefetch decides which layers to fetch, in what order, how many at
// once, and which work to cancel as the user's selection moves.
//
// The Scheduler composes two strategies. The BlockController caches the
// selected block (every point-axis value of the selected block-axis value),
// one layer at a time, closest to the selected point first; only one block
// round runs at a time. The SliceScheduler pre-warms, for each pinned slice,
// the blocks around the selected one through a bounded worker pool.
//
// Scheduling operations never fail: selections that do not fit the axes are
// logged and ignored.
package prefetch

import (
	"context"
	"errors"
	"sync"

	"github.com/marmos91/oceancache/internal/logger"
	"github.com/marmos91/oceancache/pkg/axis"
	"github.com/marmos91/oceancache/pkg/layer"
	"github.com/marmos91/oceancache/pkg/layer/store"
	"github.com/marmos91/oceancache/pkg/metrics"
	"github.com/marmos91/oceancache/pkg/workerpool"
)

// ErrClosed is returned by operations on a closed scheduler.
var ErrClosed = errors.New("scheduler closed")

// Config tunes the scheduler.
type Config struct {
	// MaxConcurrency bounds the slice jobs running at once.
	MaxConcurrency int

	// MaxCachingDistance bounds, in block indices, the neighborhood the
	// slice scheduler pre-warms around the selected block.
	MaxCachingDistance int

	// AutoCache starts rounds automatically when the selection changes.
	AutoCache bool
}

// DefaultConfig returns two workers, a distance of 20 and auto caching on.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency:     2,
		MaxCachingDistance: DefaultMaxCachingDistance,
		AutoCache:          true,
	}
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithMetrics sets the metrics sink. nil disables metrics.
func WithMetrics(m metrics.SchedulerMetrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// Scheduler owns the selection and the caching rounds derived from it. All
// state transitions are serialized; it is safe for concurrent use.
type Scheduler struct {
	axes    *axis.Axes
	store   *store.Store
	loader  Loader
	cfg     Config
	metrics metrics.SchedulerMetrics

	ctx    context.Context
	cancel context.CancelFunc

	roundsMu   sync.Mutex
	rounds     int // running round goroutines
	roundsIdle *sync.Cond

	pool   *workerpool.Pool[loopResult]
	block  *BlockController
	slices *SliceScheduler

	mu        sync.Mutex
	sel       Selection
	autoCache bool
	closed    bool

	preloadMu  sync.Mutex
	preloading map[axis.Attribute]bool
	preloaded  map[axis.Attribute]bool
}

// DefaultSelection selects the first timestamp and level of attr in mode,
// with the whole point axis visible and no pinned slices.
func DefaultSelection(axes *axis.Axes, mode axis.Mode, attr axis.Attribute) Selection {
	return Selection{
		Mode:      mode,
		Attribute: attr,
		Range:     FullRange(axes.PointLen(mode)),
	}
}

// New creates a scheduler with the initial selection. No round starts until
// CacheCurrent or an On* handler is called.
func New(axes *axis.Axes, st *store.Store, ld Loader, initial Selection, cfg Config, opts ...Option) (*Scheduler, error) {
	if err := initial.Validate(axes); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		axes:       axes,
		store:      st,
		loader:     ld,
		cfg:        cfg,
		ctx:        ctx,
		cancel:     cancel,
		sel:        initial.clone(),
		autoCache:  cfg.AutoCache,
		preloading: make(map[axis.Attribute]bool),
		preloaded:  make(map[axis.Attribute]bool),
	}
	s.roundsIdle = sync.NewCond(&s.roundsMu)
	for _, opt := range opts {
		opt(s)
	}

	var poolOpts []workerpool.Option
	if s.metrics != nil {
		poolOpts = append(poolOpts, workerpool.WithMetrics(s.metrics))
	}
	s.pool = workerpool.New[loopResult](cfg.MaxConcurrency, poolOpts...)
	s.block = NewBlockController(ld, axes, s.metrics)
	s.slices = NewSliceScheduler(ld, axes, s.pool, cfg.MaxCachingDistance, s.metrics)
	return s, nil
}

// Axes returns the coordinate system the scheduler works on.
func (s *Scheduler) Axes() *axis.Axes { return s.axes }

// Store returns the layer store.
func (s *Scheduler) Store() *store.Store { return s.store }

// Selection returns a copy of the current selection.
func (s *Scheduler) Selection() Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sel.clone()
}

// AutoCache reports whether rounds start automatically.
func (s *Scheduler) AutoCache() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.autoCache
}

// GetLayer returns the layer, loading it if needed.
func (s *Scheduler) GetLayer(ctx context.Context, attr axis.Attribute, ts axis.Timestamp, level axis.Level) layer.Result {
	return s.loader.Load(ctx, attr, ts, level)
}

// ============================================================================
// Selection events
// ============================================================================

// OnSelectionChanged moves the selected point and restarts both rounds.
func (s *Scheduler) OnSelectionChanged(timestampIdx, levelIdx int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if timestampIdx < 0 || timestampIdx >= s.axes.NumTimestamps() || levelIdx < 0 || levelIdx >= s.axes.NumLevels() {
		logger.Warn("Ignoring selection outside the axes", "timestamp_index", timestampIdx, logger.KeyLevelIndex, levelIdx)
		return
	}
	s.sel.Timestamp, s.sel.Level = timestampIdx, levelIdx
	if s.autoCacheLocked() {
		s.startBlockRoundLocked()
		s.startSliceRoundLocked()
	}
}

// OnRangeChanged sets the visible part of the point axis and restarts the
// block round.
func (s *Scheduler) OnRangeChanged(r Range) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := validateRange(s.axes, s.sel.Mode, r); err != nil {
		logger.Warn("Ignoring range outside the point axis", logger.KeyError, err)
		return
	}
	s.sel.Range = r
	if s.autoCacheLocked() {
		s.startBlockRoundLocked()
	}
}

// OnModeChanged swaps block and point axes. Everything is aborted; the range
// resets to the whole new point axis and pinned slices are dropped, since
// they referred to the old point axis.
func (s *Scheduler) OnModeChanged(mode axis.Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !mode.Valid() {
		logger.Warn("Ignoring unknown mode", logger.KeyMode, string(mode))
		return
	}
	if mode == s.sel.Mode {
		return
	}
	s.abortAllLocked()
	s.sel.Mode = mode
	s.sel.Range = FullRange(s.axes.PointLen(mode))
	s.sel.Slices = nil
	if s.autoCacheLocked() {
		s.startBlockRoundLocked()
		s.startSliceRoundLocked()
	}
}

// OnAttributeChanged aborts everything and restarts both rounds for attr.
func (s *Scheduler) OnAttributeChanged(attr axis.Attribute) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.axes.HasAttribute(attr) {
		logger.Warn("Ignoring unknown attribute", logger.KeyAttribute, string(attr))
		return
	}
	if attr == s.sel.Attribute {
		return
	}
	s.abortAllLocked()
	s.sel.Attribute = attr
	if s.autoCacheLocked() {
		s.startBlockRoundLocked()
		s.startSliceRoundLocked()
	}
}

// OnSlicesChanged replaces the pinned slices and restarts the slice round.
func (s *Scheduler) OnSlicesChanged(points []int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := validateSlices(s.axes, s.sel.Mode, points); err != nil {
		logger.Warn("Ignoring slices outside the point axis", logger.KeyError, err)
		return
	}
	s.sel.Slices = normalizeSlices(points)
	if s.autoCacheLocked() {
		s.startSliceRoundLocked()
	}
}

// OnPointDragging aborts the block round while the user drags the point
// selection; the round restarts with the final selection.
func (s *Scheduler) OnPointDragging() {
	s.block.Abort()
}

// SetAutoCache toggles automatic rounds. Turning it off aborts everything;
// turning it on starts both rounds for the current selection.
func (s *Scheduler) SetAutoCache(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || on == s.autoCache {
		return
	}
	s.autoCache = on
	if !on {
		s.abortAllLocked()
		return
	}
	s.startBlockRoundLocked()
	s.startSliceRoundLocked()
}

// CacheCurrent starts both automatic rounds for the current selection when
// auto caching is on.
func (s *Scheduler) CacheCurrent() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.autoCacheLocked() {
		s.startBlockRoundLocked()
		s.startSliceRoundLocked()
	}
}

// ============================================================================
// Manual caching
// ============================================================================

// CacheBlock caches the whole selected block regardless of the visible
// range. The round is untracked: later rounds and aborts do not stop it and
// status queries do not report it.
func (s *Scheduler) CacheBlock() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	sel := s.sel.clone()
	s.goRound(func() { s.block.runUntracked(s.ctx, sel) })
	return nil
}

// CacheSlices aborts the automatic slice jobs and submits untracked jobs for
// the pinned slices. It returns the number of jobs submitted.
func (s *Scheduler) CacheSlices() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrClosed
	}
	return s.slices.ScheduleUntracked(s.ctx, s.sliceRoundLocked()), nil
}

// ============================================================================
// Aborts
// ============================================================================

// AbortAll aborts the block round and every slice job.
func (s *Scheduler) AbortAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.abortAllLocked()
}

// AbortBlock aborts the block round.
func (s *Scheduler) AbortBlock() { s.block.Abort() }

// AbortSlices aborts every slice job and clears the pool queue.
func (s *Scheduler) AbortSlices() { s.slices.AbortAll() }

func (s *Scheduler) abortAllLocked() {
	s.block.Abort()
	s.slices.AbortAll()
}

// ============================================================================
// Lifecycle
// ============================================================================

// Wait blocks until no round is running and the pool is idle, or ctx is
// done.
func (s *Scheduler) Wait(ctx context.Context) error {
	if err := s.waitRounds(ctx); err != nil {
		return err
	}
	return s.pool.Wait(ctx)
}

func (s *Scheduler) waitRounds(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		s.roundsMu.Lock()
		s.roundsIdle.Broadcast()
		s.roundsMu.Unlock()
	})
	defer stop()

	s.roundsMu.Lock()
	defer s.roundsMu.Unlock()
	for s.rounds > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.roundsIdle.Wait()
	}
	return nil
}

// Close aborts all work, including untracked rounds and preloads, and waits
// for it to stop or for ctx to expire.
func (s *Scheduler) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.abortAllLocked()
	s.mu.Unlock()

	s.cancel()
	return s.Wait(ctx)
}

func (s *Scheduler) autoCacheLocked() bool {
	return s.autoCache && !s.closed
}

func (s *Scheduler) goRound(fn func()) {
	s.roundsMu.Lock()
	s.rounds++
	s.roundsMu.Unlock()

	go func() {
		defer func() {
			s.roundsMu.Lock()
			s.rounds--
			if s.rounds == 0 {
				s.roundsIdle.Broadcast()
			}
			s.roundsMu.Unlock()
		}()
		fn()
	}()
}

func (s *Scheduler) startBlockRoundLocked() {
	sel := s.sel.clone()
	tok := newRoundToken(s.ctx, metrics.RoundBlock, sel.Attribute, sel.Mode)
	s.block.StartRound(tok, sel.Block(), true)

	r := blockRound{
		Token:     tok,
		Attribute: sel.Attribute,
		Mode:      sel.Mode,
		Block:     sel.Block(),
		Points:    blockCandidates(s.axes, sel, true),
	}
	s.goRound(func() { s.block.Run(r, true) })
}

func (s *Scheduler) startSliceRoundLocked() {
	s.slices.ScheduleAll(s.ctx, s.sliceRoundLocked())
}

func (s *Scheduler) sliceRoundLocked() sliceRound {
	return sliceRound{
		Attribute:     s.sel.Attribute,
		Mode:          s.sel.Mode,
		SelectedBlock: s.sel.Block(),
		SelectedPoint: s.sel.Point(),
		Slices:        append([]int(nil), s.sel.Slices...),
	}
}
