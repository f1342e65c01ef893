package prefetch

import (
	"context"

	"github.com/marmos91/oceancache/pkg/axis"
	"github.com/marmos91/oceancache/pkg/layer"
)

// Loader loads one layer. *loader.Loader implements it.
type Loader interface {
	Load(ctx context.Context, attr axis.Attribute, ts axis.Timestamp, level axis.Level) layer.Result
}

// loopResult counts the outcome of a caching loop.
type loopResult struct {
	Attempted int
	Loaded    int
	Failed    int
	Aborted   bool
}

// cacheSubset loads the layer of block at each point, in the given order, one
// at a time. The token is checked before every load; once it is aborted the
// loop stops and layers already loaded stay cached.
func cacheSubset(ld Loader, axes *axis.Axes, attr axis.Attribute, mode axis.Mode, block int, points []int, tok *Token) loopResult {
	var res loopResult
	for _, p := range points {
		if tok.Aborted() {
			res.Aborted = true
			return res
		}

		tsIdx, lvlIdx := axis.Join(mode, block, p)
		res.Attempted++
		switch r := ld.Load(tok.Context(), attr, axes.Timestamp(tsIdx), axes.Level(lvlIdx)); r.Status {
		case layer.Loaded:
			res.Loaded++
		case layer.Failed:
			res.Failed++
		}
	}
	res.Aborted = tok.Aborted()
	return res
}
