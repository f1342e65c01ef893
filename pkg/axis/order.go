package axis

import (
	"slices"
)

// ProximityOrder returns the indices 0..n-1 sorted by ascending distance from
// selected. Equal distances keep ascending index order, so the value just
// before the selection is visited before the one just after it.
//
// A selected index outside [0, n) is treated as 0.
func ProximityOrder(n, selected int) []int {
	if selected >= n {
		selected = 0
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return SortByProximity(idx, selected)
}

// SortByProximity stably reorders positions by ascending distance from
// selected and returns the same slice. Positions are indices into whatever
// list the caller is ordering; the original order breaks ties.
func SortByProximity(positions []int, selected int) []int {
	if selected < 0 {
		selected = 0
	}
	slices.SortStableFunc(positions, func(a, b int) int {
		return distance(a, selected) - distance(b, selected)
	})
	return positions
}

// WithinDistance returns the indices in [0, n) that are at most maxDistance
// away from selected, ordered by proximity.
func WithinDistance(n, selected, maxDistance int) []int {
	if selected < 0 || selected >= n {
		selected = 0
	}
	out := make([]int, 0, min(n, 2*maxDistance+1))
	for i := 0; i < n; i++ {
		if distance(i, selected) <= maxDistance {
			out = append(out, i)
		}
	}
	return SortByProximity(out, selected)
}

func distance(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}
