package prefetch

import (
	"maps"
	"slices"

	"github.com/marmos91/oceancache/pkg/axis"
	"github.com/marmos91/oceancache/pkg/workerpool"
)

// BlockState is the serializable form of BlockInfo.
type BlockState struct {
	Active      bool   `json:"active"`
	Block       int    `json:"block"`
	InRangeOnly bool   `json:"in_range_only"`
	RoundID     string `json:"round_id,omitempty"`
}

// StoreState summarizes the layer store.
type StoreState struct {
	Layers int   `json:"layers"`
	Bytes  int64 `json:"bytes"`
}

// State is a point-in-time view of the scheduler.
type State struct {
	Selection  Selection        `json:"selection"`
	AutoCache  bool             `json:"auto_cache"`
	Block      BlockState       `json:"block"`
	Slices     SliceInfo        `json:"slices"`
	Pool       workerpool.Stats `json:"pool"`
	Store      StoreState       `json:"store"`
	Preloading []axis.Attribute `json:"preloading"`
}

// State returns a snapshot of the scheduler.
func (s *Scheduler) State() State {
	s.mu.Lock()
	st := State{Selection: s.sel.clone(), AutoCache: s.autoCache}
	s.mu.Unlock()

	info := s.block.Info()
	st.Block = BlockState{
		Active:      info.Active(),
		Block:       info.Block,
		InRangeOnly: info.InRangeOnly,
		RoundID:     info.Token.ID(),
	}
	st.Slices = s.slices.Info()
	st.Pool = s.pool.Stats()
	st.Store = StoreState{Layers: s.store.Len(), Bytes: s.store.SizeBytes()}

	s.preloadMu.Lock()
	st.Preloading = slices.Sorted(maps.Keys(s.preloading))
	s.preloadMu.Unlock()
	return st
}
