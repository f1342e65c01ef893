package prefetch

import (
	"fmt"
	"slices"

	"github.com/marmos91/oceancache/pkg/axis"
)

// CacheStatus is the caching state of one layer as seen by the user.
type CacheStatus int

const (
	StatusMissing CacheStatus = iota
	StatusQueued
	StatusWorking
	StatusCached
)

func (s CacheStatus) String() string {
	switch s {
	case StatusCached:
		return "cached"
	case StatusWorking:
		return "working"
	case StatusQueued:
		return "queued"
	default:
		return "missing"
	}
}

// MarshalText encodes the status name.
func (s CacheStatus) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText decodes a status name.
func (s *CacheStatus) UnmarshalText(text []byte) error {
	switch string(text) {
	case "cached":
		*s = StatusCached
	case "working":
		*s = StatusWorking
	case "queued":
		*s = StatusQueued
	case "missing":
		*s = StatusMissing
	default:
		return fmt.Errorf("unknown cache status %q", text)
	}
	return nil
}

// statusView is a consistent snapshot of everything status queries read.
type statusView struct {
	sel   Selection
	block BlockInfo
	jobs  map[int]bool // block -> working
	pins  []int
}

func (s *Scheduler) statusView() statusView {
	s.mu.Lock()
	sel := s.sel.clone()
	s.mu.Unlock()

	info := s.slices.Info()
	jobs := make(map[int]bool, len(info.Jobs))
	for _, j := range info.Jobs {
		jobs[j.Block] = j.Working
	}
	return statusView{sel: sel, block: s.block.Info(), jobs: jobs, pins: info.Slices}
}

func (v statusView) blockWorking(attr axis.Attribute, block, point int) bool {
	return attr == v.sel.Attribute &&
		v.block.Active() &&
		v.block.Block == block &&
		(!v.block.InRangeOnly || v.sel.Range.Contains(point))
}

func (v statusView) working(attr axis.Attribute, block, point int) bool {
	if v.blockWorking(attr, block, point) {
		return true
	}
	w, ok := v.jobs[block]
	return ok && w && attr == v.sel.Attribute && slices.Contains(v.pins, point)
}

func (v statusView) queued(attr axis.Attribute, block, point int) bool {
	if v.blockWorking(attr, block, point) {
		return true
	}
	_, ok := v.jobs[block]
	return ok && attr == v.sel.Attribute && slices.Contains(v.pins, point)
}

func (s *Scheduler) statusOf(v statusView, attr axis.Attribute, tsIdx, lvlIdx int) CacheStatus {
	if s.store.Has(attr, s.axes.Timestamp(tsIdx), s.axes.Level(lvlIdx)) {
		return StatusCached
	}
	block, point := axis.Split(v.sel.Mode, tsIdx, lvlIdx)
	switch {
	case v.working(attr, block, point):
		return StatusWorking
	case v.queued(attr, block, point):
		return StatusQueued
	default:
		return StatusMissing
	}
}

// indices resolves a coordinate, reporting false when it is not on the axes.
func (s *Scheduler) indices(attr axis.Attribute, ts axis.Timestamp, level axis.Level) (int, int, bool) {
	if !s.axes.HasAttribute(attr) {
		return 0, 0, false
	}
	tsIdx, ok := s.axes.TimestampIndex(ts)
	if !ok {
		return 0, 0, false
	}
	lvlIdx, ok := s.axes.LevelIndex(level)
	if !ok {
		return 0, 0, false
	}
	return tsIdx, lvlIdx, true
}

// IsCached reports whether the layer is in the store.
func (s *Scheduler) IsCached(attr axis.Attribute, ts axis.Timestamp, level axis.Level) bool {
	return s.store.Has(attr, ts, level)
}

// IsWorking reports whether a tracked round is loading or about to load the
// layer. Manual rounds are not reported.
func (s *Scheduler) IsWorking(attr axis.Attribute, ts axis.Timestamp, level axis.Level) bool {
	tsIdx, lvlIdx, ok := s.indices(attr, ts, level)
	if !ok {
		return false
	}
	v := s.statusView()
	block, point := axis.Split(v.sel.Mode, tsIdx, lvlIdx)
	return v.working(attr, block, point)
}

// IsQueued reports whether a tracked round will load the layer.
func (s *Scheduler) IsQueued(attr axis.Attribute, ts axis.Timestamp, level axis.Level) bool {
	tsIdx, lvlIdx, ok := s.indices(attr, ts, level)
	if !ok {
		return false
	}
	v := s.statusView()
	block, point := axis.Split(v.sel.Mode, tsIdx, lvlIdx)
	return v.queued(attr, block, point)
}

// Status combines the queries with precedence cached, working, queued,
// missing. Coordinates off the axes are missing.
func (s *Scheduler) Status(attr axis.Attribute, ts axis.Timestamp, level axis.Level) CacheStatus {
	tsIdx, lvlIdx, ok := s.indices(attr, ts, level)
	if !ok {
		return StatusMissing
	}
	return s.statusOf(s.statusView(), attr, tsIdx, lvlIdx)
}

// Grid is the status of every layer of one attribute. Cells is indexed
// [level][timestamp].
type Grid struct {
	Attribute  axis.Attribute   `json:"attribute"`
	Timestamps []axis.Timestamp `json:"timestamps"`
	Levels     []axis.Level     `json:"levels"`
	Cells      [][]CacheStatus  `json:"cells"`
}

// Count returns how many cells have status st.
func (g Grid) Count(st CacheStatus) int {
	n := 0
	for _, row := range g.Cells {
		for _, c := range row {
			if c == st {
				n++
			}
		}
	}
	return n
}

// Grid returns the status of every layer of attr from one snapshot.
func (s *Scheduler) Grid(attr axis.Attribute) (Grid, error) {
	if !s.axes.HasAttribute(attr) {
		return Grid{}, fmt.Errorf("%w: attribute %q", axis.ErrUnknownValue, attr)
	}

	v := s.statusView()
	g := Grid{
		Attribute:  attr,
		Timestamps: s.axes.Timestamps(),
		Levels:     s.axes.Levels(),
		Cells:      make([][]CacheStatus, s.axes.NumLevels()),
	}
	for l := range g.Cells {
		row := make([]CacheStatus, s.axes.NumTimestamps())
		for t := range row {
			row[t] = s.statusOf(v, attr, t, l)
		}
		g.Cells[l] = row
	}
	return g, nil
}
