package prefetch

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/marmos91/oceancache/internal/logger"
	"github.com/marmos91/oceancache/internal/telemetry"
	"github.com/marmos91/oceancache/pkg/axis"
	"github.com/marmos91/oceancache/pkg/metrics"
	"github.com/marmos91/oceancache/pkg/workerpool"
)

// DefaultMaxCachingDistance bounds how many blocks on each side of the
// selected block the slice scheduler pre-warms.
const DefaultMaxCachingDistance = 20

type sliceJob struct {
	token   *Token
	working bool
}

// SliceJob is a snapshot of one tracked neighborhood job.
type SliceJob struct {
	Block   int  `json:"block"`
	Working bool `json:"working"`
}

// SliceInfo is a snapshot of the slice scheduler state.
type SliceInfo struct {
	Slices []int      `json:"slices"`
	Jobs   []SliceJob `json:"jobs"`
}

// sliceRound is the input of ScheduleAll.
type sliceRound struct {
	Attribute     axis.Attribute
	Mode          axis.Mode
	SelectedBlock int
	SelectedPoint int
	Slices        []int
}

// SliceScheduler pre-warms, for every pinned slice, the blocks around the
// selected one. Each block is a separate pool job with its own token.
type SliceScheduler struct {
	loader      Loader
	axes        *axis.Axes
	pool        *workerpool.Pool[loopResult]
	maxDistance int
	metrics     metrics.SchedulerMetrics

	mu     sync.Mutex
	slices []int
	jobs   map[int]*sliceJob
}

// NewSliceScheduler creates a scheduler submitting jobs to pool.
func NewSliceScheduler(ld Loader, axes *axis.Axes, pool *workerpool.Pool[loopResult], maxDistance int, m metrics.SchedulerMetrics) *SliceScheduler {
	if maxDistance < 0 {
		maxDistance = 0
	}
	return &SliceScheduler{
		loader:      ld,
		axes:        axes,
		pool:        pool,
		maxDistance: maxDistance,
		metrics:     m,
		jobs:        make(map[int]*sliceJob),
	}
}

// ScheduleAll aborts every tracked job, drops queued work and schedules one
// job per block within the caching distance of the selected block, closest
// first. It returns the number of jobs scheduled.
func (s *SliceScheduler) ScheduleAll(parent context.Context, r sliceRound) int {
	s.AbortAll()
	if len(r.Slices) == 0 {
		return 0
	}

	blocks := s.neighborhood(r)
	points := axis.SortByProximity(slices.Clone(r.Slices), r.SelectedPoint)

	jobs := make(map[int]*sliceJob, len(blocks))
	tokens := make([]*Token, len(blocks))
	for i, b := range blocks {
		tokens[i] = newRoundToken(parent, metrics.RoundSlice, r.Attribute, r.Mode)
		jobs[b] = &sliceJob{token: tokens[i]}
	}

	s.mu.Lock()
	s.slices = slices.Clone(r.Slices)
	s.jobs = jobs
	s.mu.Unlock()

	for i, b := range blocks {
		tok := tokens[i]
		s.pool.Submit(func() (loopResult, error) {
			defer s.remove(tok)
			s.markWorking(b, tok)
			return s.runJob(r, b, points, tok), nil
		})
	}

	if s.metrics != nil {
		s.metrics.RecordRoundStarted(metrics.RoundSlice)
		s.metrics.SetSliceJobs(len(blocks))
	}
	logger.DebugCtx(parent, "Slice round scheduled",
		logger.KeyAttribute, string(r.Attribute),
		logger.KeyMode, string(r.Mode),
		logger.KeySlices, r.Slices,
		logger.KeyJobs, len(blocks))
	return len(blocks)
}

// ScheduleUntracked submits neighborhood jobs that are not recorded, so no
// abort reaches them and status queries do not report them. Tracked jobs
// are aborted first.
func (s *SliceScheduler) ScheduleUntracked(parent context.Context, r sliceRound) int {
	s.AbortAll()
	if len(r.Slices) == 0 {
		return 0
	}

	blocks := s.neighborhood(r)
	points := axis.SortByProximity(slices.Clone(r.Slices), r.SelectedPoint)
	for _, b := range blocks {
		s.pool.Submit(func() (loopResult, error) {
			tok := newRoundToken(parent, metrics.RoundManual, r.Attribute, r.Mode)
			defer tok.Abort()
			return s.runJob(r, b, points, tok), nil
		})
	}
	if s.metrics != nil {
		s.metrics.RecordRoundStarted(metrics.RoundManual)
	}
	return len(blocks)
}

// AbortAll aborts every tracked job, forgets them and clears the pool's
// queue. Running jobs stop at their next loop boundary. It reports whether
// any job was tracked.
func (s *SliceScheduler) AbortAll() bool {
	s.mu.Lock()
	had := len(s.jobs) > 0
	for _, j := range s.jobs {
		j.token.Abort()
	}
	s.slices = nil
	s.jobs = make(map[int]*sliceJob)
	s.mu.Unlock()

	cleared := s.pool.ClearQueue()
	if had {
		if s.metrics != nil {
			s.metrics.RecordRoundAborted(metrics.RoundSlice)
			s.metrics.SetSliceJobs(0)
		}
		logger.Debug("Slice jobs aborted", logger.KeyCleared, cleared)
	}
	return had
}

// Info returns a snapshot ordered by block index.
func (s *SliceScheduler) Info() SliceInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	info := SliceInfo{Slices: slices.Clone(s.slices), Jobs: make([]SliceJob, 0, len(s.jobs))}
	for _, b := range slices.Sorted(maps.Keys(s.jobs)) {
		info.Jobs = append(info.Jobs, SliceJob{Block: b, Working: s.jobs[b].working})
	}
	return info
}

// Len returns the number of tracked jobs.
func (s *SliceScheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

func (s *SliceScheduler) queued(block, point int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.jobs[block]
	return ok && slices.Contains(s.slices, point)
}

func (s *SliceScheduler) working(block, point int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[block]
	return ok && j.working && slices.Contains(s.slices, point)
}

func (s *SliceScheduler) neighborhood(r sliceRound) []int {
	return axis.WithinDistance(s.axes.BlockLen(r.Mode), r.SelectedBlock, s.maxDistance)
}

// markWorking flags the job of block as running, but only if tok is still
// the token on record. A superseded job must not flag its successor.
func (s *SliceScheduler) markWorking(block int, tok *Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, ok := s.jobs[block]; ok && j.token == tok {
		j.working = true
	}
}

// remove drops the job owning tok. The lookup is by token, never by block:
// after a mode switch the same block index may belong to a newer job.
func (s *SliceScheduler) remove(tok *Token) {
	s.mu.Lock()
	removed := false
	for b, j := range s.jobs {
		if j.token == tok {
			delete(s.jobs, b)
			removed = true
			break
		}
	}
	left := len(s.jobs)
	s.mu.Unlock()

	completed := removed && !tok.Aborted()
	tok.Abort()

	if removed && s.metrics != nil {
		s.metrics.SetSliceJobs(left)
		if completed && left == 0 {
			s.metrics.RecordRoundCompleted(metrics.RoundSlice)
		}
	}
}

func (s *SliceScheduler) runJob(r sliceRound, block int, points []int, tok *Token) loopResult {
	ctx, span := telemetry.StartRoundSpan(tok.Context(), telemetry.SpanSliceRound, tok.ID(), metrics.RoundSlice,
		telemetry.Attribute(string(r.Attribute)), telemetry.Mode(string(r.Mode)), telemetry.Block(block))
	defer span.End()

	res := cacheSubset(s.loader, s.axes, r.Attribute, r.Mode, block, points, tok)
	logger.DebugCtx(ctx, "Slice job finished",
		logger.KeyBlock, block,
		logger.KeyProcessed, res.Attempted,
		logger.KeyTotal, len(points),
		"aborted", res.Aborted)
	return res
}
