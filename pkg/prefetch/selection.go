package prefetch

import (
	"fmt"
	"slices"

	"github.com/marmos91/oceancache/pkg/axis"
)

// Range is an inclusive interval of point-axis indices: the part of the
// point axis visible to the user.
type Range struct {
	Lo int `json:"lo"`
	Hi int `json:"hi"`
}

// FullRange covers a point axis of n values.
func FullRange(n int) Range { return Range{Lo: 0, Hi: n - 1} }

// Contains reports whether point lies inside r.
func (r Range) Contains(point int) bool { return point >= r.Lo && point <= r.Hi }

// Indices lists every index in r in ascending order.
func (r Range) Indices() []int {
	if r.Hi < r.Lo {
		return nil
	}
	out := make([]int, 0, r.Hi-r.Lo+1)
	for i := r.Lo; i <= r.Hi; i++ {
		out = append(out, i)
	}
	return out
}

// Selection is the user's focus: what is shown and where.
//
// Timestamp and level are indices into the axes. Range and Slices refer to
// the point axis of Mode.
type Selection struct {
	Mode      axis.Mode      `json:"mode"`
	Attribute axis.Attribute `json:"attribute"`
	Timestamp int            `json:"timestamp_index"`
	Level     int            `json:"level_index"`
	Range     Range          `json:"range"`
	Slices    []int          `json:"slices"`
}

// Block returns the selected block-axis index.
func (s Selection) Block() int {
	b, _ := axis.Split(s.Mode, s.Timestamp, s.Level)
	return b
}

// Point returns the selected point-axis index.
func (s Selection) Point() int {
	_, p := axis.Split(s.Mode, s.Timestamp, s.Level)
	return p
}

// HasSlice reports whether point is pinned.
func (s Selection) HasSlice(point int) bool { return slices.Contains(s.Slices, point) }

func (s Selection) clone() Selection {
	s.Slices = slices.Clone(s.Slices)
	return s
}

// Validate checks every index of s against axes.
func (s Selection) Validate(axes *axis.Axes) error {
	if !s.Mode.Valid() {
		return fmt.Errorf("%w: mode %q", axis.ErrUnknownValue, s.Mode)
	}
	if !axes.HasAttribute(s.Attribute) {
		return fmt.Errorf("%w: attribute %q", axis.ErrUnknownValue, s.Attribute)
	}
	if s.Timestamp < 0 || s.Timestamp >= axes.NumTimestamps() {
		return fmt.Errorf("%w: timestamp index %d", axis.ErrUnknownValue, s.Timestamp)
	}
	if s.Level < 0 || s.Level >= axes.NumLevels() {
		return fmt.Errorf("%w: level index %d", axis.ErrUnknownValue, s.Level)
	}
	if err := validateRange(axes, s.Mode, s.Range); err != nil {
		return err
	}
	return validateSlices(axes, s.Mode, s.Slices)
}

func validateRange(axes *axis.Axes, mode axis.Mode, r Range) error {
	if r.Lo < 0 || r.Hi >= axes.PointLen(mode) || r.Lo > r.Hi {
		return fmt.Errorf("%w: range [%d, %d]", axis.ErrUnknownValue, r.Lo, r.Hi)
	}
	return nil
}

func validateSlices(axes *axis.Axes, mode axis.Mode, pts []int) error {
	n := axes.PointLen(mode)
	for _, p := range pts {
		if p < 0 || p >= n {
			return fmt.Errorf("%w: slice index %d", axis.ErrUnknownValue, p)
		}
	}
	return nil
}

// normalizeSlices drops duplicates and keeps first-seen order.
func normalizeSlices(pts []int) []int {
	out := make([]int, 0, len(pts))
	for _, p := range pts {
		if !slices.Contains(out, p) {
			out = append(out, p)
		}
	}
	return out
}
