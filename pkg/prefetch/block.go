package prefetch

import (
	"context"
	"sync"

	"github.com/marmos91/oceancache/internal/logger"
	"github.com/marmos91/oceancache/internal/telemetry"
	"github.com/marmos91/oceancache/pkg/axis"
	"github.com/marmos91/oceancache/pkg/metrics"
)

// BlockInfo describes the active block round. Token is nil when no round is
// active.
type BlockInfo struct {
	Block       int
	Token       *Token
	InRangeOnly bool
}

// Active reports whether a round is running.
func (b BlockInfo) Active() bool { return b.Token != nil }

// blockRound is the input of one block round.
type blockRound struct {
	Token     *Token
	Attribute axis.Attribute
	Mode      axis.Mode
	Block     int
	Points    []int // proximity ordered
}

// BlockController runs at most one tracked block round at a time. Starting a
// round aborts the previous one before the new one is recorded.
type BlockController struct {
	loader  Loader
	axes    *axis.Axes
	metrics metrics.SchedulerMetrics

	mu   sync.Mutex
	info BlockInfo
}

// NewBlockController creates an idle controller.
func NewBlockController(ld Loader, axes *axis.Axes, m metrics.SchedulerMetrics) *BlockController {
	return &BlockController{loader: ld, axes: axes, metrics: m}
}

// StartRound aborts the active round, if any, and records a new one for block.
func (c *BlockController) StartRound(tok *Token, block int, inRangeOnly bool) {
	c.mu.Lock()
	prev := c.info.Token
	prev.Abort()
	c.info = BlockInfo{Block: block, Token: tok, InRangeOnly: inRangeOnly}
	c.mu.Unlock()

	if prev != nil {
		c.recordAborted()
	}
	if c.metrics != nil {
		c.metrics.RecordRoundStarted(metrics.RoundBlock)
	}
}

// Abort cancels the active round and clears the info. It reports whether a
// round was active.
func (c *BlockController) Abort() bool {
	c.mu.Lock()
	prev := c.info.Token
	prev.Abort()
	c.info = BlockInfo{}
	c.mu.Unlock()

	if prev == nil {
		return false
	}
	c.recordAborted()
	return true
}

// Info returns the active round.
func (c *BlockController) Info() BlockInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.info
}

// finish clears the info if tok is still the active token. A newer round
// may already have replaced it, in which case nothing happens.
func (c *BlockController) finish(tok *Token) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.info.Token != tok {
		return false
	}
	c.info = BlockInfo{}
	return true
}

// Run loads every point of the round sequentially. Tracked rounds clear
// their info on completion; untracked (manual) rounds never touch it.
func (c *BlockController) Run(r blockRound, tracked bool) loopResult {
	name, kind := telemetry.SpanBlockRound, metrics.RoundBlock
	if !tracked {
		name, kind = telemetry.SpanManualRound, metrics.RoundManual
	}
	ctx, span := telemetry.StartRoundSpan(r.Token.Context(), name, r.Token.ID(), kind,
		telemetry.Attribute(string(r.Attribute)), telemetry.Mode(string(r.Mode)), telemetry.Block(r.Block), telemetry.Jobs(len(r.Points)))
	defer span.End()

	logger.DebugCtx(ctx, "Block round started", logger.KeyBlock, r.Block, logger.KeyTotal, len(r.Points))

	res := cacheSubset(c.loader, c.axes, r.Attribute, r.Mode, r.Block, r.Points, r.Token)

	logger.DebugCtx(ctx, "Block round finished",
		logger.KeyBlock, r.Block,
		logger.KeyProcessed, res.Attempted,
		logger.KeyTotal, len(r.Points),
		"aborted", res.Aborted,
		"failed", res.Failed)

	if tracked && c.finish(r.Token) && c.metrics != nil && !res.Aborted {
		c.metrics.RecordRoundCompleted(metrics.RoundBlock)
	}
	return res
}

func (c *BlockController) recordAborted() {
	if c.metrics != nil {
		c.metrics.RecordRoundAborted(metrics.RoundBlock)
	}
}

// blockCandidates returns the point-axis indices a block round visits, in
// visiting order.
//
// With inRangeOnly the candidates are the visible range, ordered by distance
// from the selected point's position inside that range (position 0 when the
// point is outside it). Otherwise the whole point axis is ordered by distance
// from the selected point.
func blockCandidates(axes *axis.Axes, sel Selection, inRangeOnly bool) []int {
	point := sel.Point()
	if !inRangeOnly {
		return axis.ProximityOrder(axes.PointLen(sel.Mode), point)
	}

	candidates := sel.Range.Indices()
	selected := 0
	if sel.Range.Contains(point) {
		selected = point - sel.Range.Lo
	}

	out := make([]int, len(candidates))
	for i, pos := range axis.ProximityOrder(len(candidates), selected) {
		out[i] = candidates[pos]
	}
	return out
}

// runUntracked runs a manual block round that no abort can reach except
// the scheduler shutting down.
func (c *BlockController) runUntracked(parent context.Context, sel Selection) loopResult {
	tok := newRoundToken(parent, metrics.RoundManual, sel.Attribute, sel.Mode)
	defer tok.Abort()
	if c.metrics != nil {
		c.metrics.RecordRoundStarted(metrics.RoundManual)
	}
	res := c.Run(blockRound{
		Token:     tok,
		Attribute: sel.Attribute,
		Mode:      sel.Mode,
		Block:     sel.Block(),
		Points:    blockCandidates(c.axes, sel, false),
	}, false)
	if c.metrics != nil && !res.Aborted {
		c.metrics.RecordRoundCompleted(metrics.RoundManual)
	}
	return res
}
