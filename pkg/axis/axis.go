// Package axis describes the two discrete coordinate domains of a dataset
// (depth levels and timestamps) and the mode that decides which of them is
// the block axis and which is the point axis.
package axis

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrUnknownValue is returned when a value is not part of an axis domain.
var ErrUnknownValue = errors.New("value not on axis")

// Attribute names a physical quantity stored in the dataset (theta, salt...).
type Attribute string

// Level is a depth value in meters.
type Level float64

// Mode selects which axis forms a block.
//
// In Space mode a block is every level at one timestamp, so the block axis
// is Timestamps and the point axis is Levels. Time mode is the reverse.
type Mode string

const (
	ModeSpace Mode = "space"
	ModeTime  Mode = "time"
)

// ParseMode parses a mode name, case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeSpace:
		return ModeSpace, nil
	case ModeTime:
		return ModeTime, nil
	default:
		return "", fmt.Errorf("unknown mode %q", s)
	}
}

// Valid reports whether m is one of the known modes.
func (m Mode) Valid() bool {
	return m == ModeSpace || m == ModeTime
}

// Axes is the fixed, ordered coordinate system of a dataset.
//
// Axes is immutable after construction and safe for concurrent use.
type Axes struct {
	levels     []Level
	timestamps []Timestamp
	attributes []Attribute

	levelIndex map[Level]int
	timeIndex  map[Timestamp]int
}

// New builds an Axes from the given domains.
//
// Levels must be strictly ascending and timestamps strictly chronological.
func New(levels []Level, timestamps []Timestamp, attributes []Attribute) (*Axes, error) {
	if len(levels) == 0 {
		return nil, errors.New("at least one level is required")
	}
	if len(timestamps) == 0 {
		return nil, errors.New("at least one timestamp is required")
	}
	if len(attributes) == 0 {
		return nil, errors.New("at least one attribute is required")
	}

	a := &Axes{
		levels:     slices.Clone(levels),
		timestamps: slices.Clone(timestamps),
		attributes: slices.Clone(attributes),
		levelIndex: make(map[Level]int, len(levels)),
		timeIndex:  make(map[Timestamp]int, len(timestamps)),
	}

	for i, l := range a.levels {
		if i > 0 && l <= a.levels[i-1] {
			return nil, fmt.Errorf("levels must be strictly ascending: %v after %v", l, a.levels[i-1])
		}
		a.levelIndex[l] = i
	}
	for i, ts := range a.timestamps {
		if i > 0 && !a.timestamps[i-1].Before(ts) {
			return nil, fmt.Errorf("timestamps must be strictly chronological: %s after %s", ts, a.timestamps[i-1])
		}
		a.timeIndex[ts] = i
	}
	for i, attr := range a.attributes {
		if attr == "" {
			return nil, fmt.Errorf("attribute %d is empty", i)
		}
		if slices.Index(a.attributes[:i], attr) >= 0 {
			return nil, fmt.Errorf("duplicate attribute %q", attr)
		}
	}

	return a, nil
}

// Levels returns a copy of the level domain.
func (a *Axes) Levels() []Level { return slices.Clone(a.levels) }

// Timestamps returns a copy of the timestamp domain.
func (a *Axes) Timestamps() []Timestamp { return slices.Clone(a.timestamps) }

// Attributes returns a copy of the attribute set.
func (a *Axes) Attributes() []Attribute { return slices.Clone(a.attributes) }

// NumLevels returns the size of the level domain.
func (a *Axes) NumLevels() int { return len(a.levels) }

// NumTimestamps returns the size of the timestamp domain.
func (a *Axes) NumTimestamps() int { return len(a.timestamps) }

// Level returns the level at index i.
func (a *Axes) Level(i int) Level { return a.levels[i] }

// Timestamp returns the timestamp at index i.
func (a *Axes) Timestamp(i int) Timestamp { return a.timestamps[i] }

// LevelIndex returns the position of l in the level domain.
func (a *Axes) LevelIndex(l Level) (int, bool) {
	i, ok := a.levelIndex[l]
	return i, ok
}

// TimestampIndex returns the position of ts in the timestamp domain.
func (a *Axes) TimestampIndex(ts Timestamp) (int, bool) {
	i, ok := a.timeIndex[ts]
	return i, ok
}

// HasAttribute reports whether attr is part of the dataset.
func (a *Axes) HasAttribute(attr Attribute) bool {
	return slices.Contains(a.attributes, attr)
}

// ClosestLevel returns the level nearest to depth. Ties resolve to the
// deeper level.
func (a *Axes) ClosestLevel(depth float64) Level {
	for i, l := range a.levels {
		if float64(l) >= depth {
			if i == 0 {
				return l
			}
			prev := a.levels[i-1]
			if depth-float64(prev) < float64(l)-depth {
				return prev
			}
			return l
		}
	}
	return a.levels[len(a.levels)-1]
}

// BlockLen returns the size of the block axis for mode.
func (a *Axes) BlockLen(m Mode) int {
	if m == ModeTime {
		return len(a.levels)
	}
	return len(a.timestamps)
}

// PointLen returns the size of the point axis for mode.
func (a *Axes) PointLen(m Mode) int {
	if m == ModeTime {
		return len(a.timestamps)
	}
	return len(a.levels)
}

// Split maps a (timestamp, level) index pair to (block, point) indices for mode.
func Split(m Mode, timestampIdx, levelIdx int) (block, point int) {
	if m == ModeTime {
		return levelIdx, timestampIdx
	}
	return timestampIdx, levelIdx
}

// Join is the inverse of Split.
func Join(m Mode, block, point int) (timestampIdx, levelIdx int) {
	if m == ModeTime {
		return point, block
	}
	return block, point
}
