package prefetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/marmos91/oceancache/internal/logger"
	"github.com/marmos91/oceancache/internal/telemetry"
	"github.com/marmos91/oceancache/pkg/axis"
	"github.com/marmos91/oceancache/pkg/layer"
	"github.com/marmos91/oceancache/pkg/metrics"
)

// ErrPreloadInProgress is returned when the attribute is already being
// preloaded.
var ErrPreloadInProgress = errors.New("preload already in progress")

// PreloadResult summarizes a preload.
type PreloadResult struct {
	Attribute axis.Attribute `json:"attribute"`
	Total     int            `json:"total"`
	Loaded    int            `json:"loaded"`
	Failed    int            `json:"failed"`
	Skipped   bool           `json:"skipped"`
	Duration  time.Duration  `json:"duration"`
}

// PreloadAttribute loads every (timestamp, level) of attr. With concurrency
// <= 1 layers are loaded one at a time in axis order, otherwise up to
// concurrency at once. An attribute that was fully preloaded before is
// skipped. Failed layers are counted, not returned; the error is only set
// when ctx or the scheduler is cancelled.
func (s *Scheduler) PreloadAttribute(ctx context.Context, attr axis.Attribute, concurrency int) (PreloadResult, error) {
	res := PreloadResult{Attribute: attr}
	if !s.axes.HasAttribute(attr) {
		return res, fmt.Errorf("%w: attribute %q", axis.ErrUnknownValue, attr)
	}

	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return res, ErrClosed
	}

	skip, err := s.claimPreload(attr)
	if err != nil {
		return res, err
	}
	if skip {
		res.Skipped = true
		return res, nil
	}
	return s.runPreload(ctx, attr, concurrency)
}

// claimPreload marks attr as being preloaded. skip is set when attr was
// fully preloaded before.
func (s *Scheduler) claimPreload(attr axis.Attribute) (skip bool, err error) {
	s.preloadMu.Lock()
	defer s.preloadMu.Unlock()

	if s.preloaded[attr] {
		return true, nil
	}
	if s.preloading[attr] {
		return false, ErrPreloadInProgress
	}
	s.preloading[attr] = true
	return false, nil
}

// runPreload loads every layer of attr, which must have been claimed with
// claimPreload. The claim is released on return.
func (s *Scheduler) runPreload(ctx context.Context, attr axis.Attribute, concurrency int) (PreloadResult, error) {
	res := PreloadResult{Attribute: attr}
	defer func() {
		s.preloadMu.Lock()
		delete(s.preloading, attr)
		s.preloadMu.Unlock()
	}()

	// Closing the scheduler stops the preload too.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(s.ctx, cancel)
	defer stop()

	tok := newRoundToken(ctx, metrics.RoundPreload, attr, "")
	defer tok.Abort()
	ctx, span := telemetry.StartRoundSpan(tok.Context(), telemetry.SpanPreload, tok.ID(), metrics.RoundPreload,
		telemetry.Attribute(string(attr)))
	defer span.End()

	if s.metrics != nil {
		s.metrics.RecordRoundStarted(metrics.RoundPreload)
	}

	start := time.Now()
	keys := s.preloadKeys(attr)
	res.Total = len(keys)
	logger.InfoCtx(ctx, "Preload started", logger.KeyTotal, len(keys))

	results := make([]layer.Status, len(keys))
	if concurrency <= 1 {
		for i, k := range keys {
			if ctx.Err() != nil {
				break
			}
			results[i] = s.loader.Load(ctx, k.Attribute, k.Timestamp, k.Level).Status
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(concurrency)
		for i, k := range keys {
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				results[i] = s.loader.Load(gctx, k.Attribute, k.Timestamp, k.Level).Status
				return nil
			})
		}
		_ = g.Wait()
	}

	for _, st := range results {
		switch st {
		case layer.Loaded:
			res.Loaded++
		case layer.Failed:
			res.Failed++
		}
	}
	res.Duration = time.Since(start)

	if err := ctx.Err(); err != nil {
		if s.metrics != nil {
			s.metrics.RecordRoundAborted(metrics.RoundPreload)
		}
		logger.InfoCtx(ctx, "Preload cancelled", logger.KeyProcessed, res.Loaded+res.Failed, logger.KeyTotal, res.Total)
		return res, err
	}

	if res.Loaded == res.Total {
		s.preloadMu.Lock()
		s.preloaded[attr] = true
		s.preloadMu.Unlock()
	}
	if s.metrics != nil {
		s.metrics.RecordRoundCompleted(metrics.RoundPreload)
	}
	logger.InfoCtx(ctx, "Preload finished",
		"loaded", res.Loaded,
		"failed", res.Failed,
		logger.KeyDurationMs, float64(res.Duration.Microseconds())/1000.0)
	return res, nil
}

// StartPreload runs PreloadAttribute in the background, bound to the
// scheduler's lifetime. Close waits for it.
func (s *Scheduler) StartPreload(attr axis.Attribute, concurrency int) error {
	if !s.axes.HasAttribute(attr) {
		return fmt.Errorf("%w: attribute %q", axis.ErrUnknownValue, attr)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	// claimed before the goroutine starts so a second call sees it
	skip, err := s.claimPreload(attr)
	if err != nil || skip {
		return err
	}

	s.goRound(func() {
		if _, err := s.runPreload(s.ctx, attr, concurrency); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("Preload failed", logger.KeyAttribute, string(attr), logger.KeyError, err)
		}
	})
	return nil
}

// Preloading reports whether attr is being preloaded.
func (s *Scheduler) Preloading(attr axis.Attribute) bool {
	s.preloadMu.Lock()
	defer s.preloadMu.Unlock()
	return s.preloading[attr]
}

func (s *Scheduler) preloadKeys(attr axis.Attribute) []layer.Key {
	keys := make([]layer.Key, 0, s.axes.NumTimestamps()*s.axes.NumLevels())
	for _, ts := range s.axes.Timestamps() {
		for _, lvl := range s.axes.Levels() {
			keys = append(keys, layer.Key{Attribute: attr, Timestamp: ts, Level: lvl})
		}
	}
	return keys
}
