package handlers

import (
	"net/http"

	"github.com/marmos91/oceancache/pkg/axis"
	"github.com/marmos91/oceancache/pkg/prefetch"
)

// SelectionRequest is the request body for PUT /api/v1/selection.
type SelectionRequest struct {
	TimestampIndex int `json:"timestamp_index"`
	LevelIndex     int `json:"level_index"`
}

// ModeRequest is the request body for PUT /api/v1/mode.
type ModeRequest struct {
	Mode string `json:"mode"`
}

// AttributeRequest is the request body for PUT /api/v1/attribute.
type AttributeRequest struct {
	Attribute string `json:"attribute"`
}

// SlicesRequest is the request body for PUT /api/v1/slices.
type SlicesRequest struct {
	Slices []int `json:"slices"`
}

// AutoCacheRequest is the request body for PUT /api/v1/autocache.
type AutoCacheRequest struct {
	Enabled bool `json:"enabled"`
}

// The scheduler ignores invalid events. The handlers below check the
// changed selection first so the caller gets a 400 instead.

// SetSelection handles PUT /api/v1/selection.
func (h *SchedulerHandler) SetSelection(w http.ResponseWriter, r *http.Request) {
	var req SelectionRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	sel := h.sched.Selection()
	sel.Timestamp, sel.Level = req.TimestampIndex, req.LevelIndex
	if !h.validSelection(w, sel) {
		return
	}

	h.sched.OnSelectionChanged(req.TimestampIndex, req.LevelIndex)
	writeOK(w, h.sched.State())
}

// SetRange handles PUT /api/v1/range.
func (h *SchedulerHandler) SetRange(w http.ResponseWriter, r *http.Request) {
	var req prefetch.Range
	if !decodeJSONBody(w, r, &req) {
		return
	}

	sel := h.sched.Selection()
	sel.Range = req
	if !h.validSelection(w, sel) {
		return
	}

	h.sched.OnRangeChanged(req)
	writeOK(w, h.sched.State())
}

// SetMode handles PUT /api/v1/mode.
func (h *SchedulerHandler) SetMode(w http.ResponseWriter, r *http.Request) {
	var req ModeRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	mode, err := axis.ParseMode(req.Mode)
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	h.sched.OnModeChanged(mode)
	writeOK(w, h.sched.State())
}

// SetAttribute handles PUT /api/v1/attribute.
func (h *SchedulerHandler) SetAttribute(w http.ResponseWriter, r *http.Request) {
	var req AttributeRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	attr := axis.Attribute(req.Attribute)
	if !h.sched.Axes().HasAttribute(attr) {
		BadRequest(w, "Unknown attribute: "+req.Attribute)
		return
	}

	h.sched.OnAttributeChanged(attr)
	writeOK(w, h.sched.State())
}

// SetSlices handles PUT /api/v1/slices.
func (h *SchedulerHandler) SetSlices(w http.ResponseWriter, r *http.Request) {
	var req SlicesRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	sel := h.sched.Selection()
	sel.Slices = req.Slices
	if !h.validSelection(w, sel) {
		return
	}

	h.sched.OnSlicesChanged(req.Slices)
	writeOK(w, h.sched.State())
}

// SetAutoCache handles PUT /api/v1/autocache.
func (h *SchedulerHandler) SetAutoCache(w http.ResponseWriter, r *http.Request) {
	var req AutoCacheRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	h.sched.SetAutoCache(req.Enabled)
	writeOK(w, h.sched.State())
}

// Dragging handles POST /api/v1/dragging, sent while the user drags the
// point slider. Only the block round is aborted.
func (h *SchedulerHandler) Dragging(w http.ResponseWriter, r *http.Request) {
	h.sched.OnPointDragging()
	w.WriteHeader(http.StatusNoContent)
}

func (h *SchedulerHandler) validSelection(w http.ResponseWriter, sel prefetch.Selection) bool {
	if err := sel.Validate(h.sched.Axes()); err != nil {
		BadRequest(w, err.Error())
		return false
	}
	return true
}
