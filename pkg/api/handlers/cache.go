package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/marmos91/oceancache/pkg/axis"
	"github.com/marmos91/oceancache/pkg/prefetch"
)

// Abort scopes.
const (
	AbortAll    = "all"
	AbortBlock  = "block"
	AbortSlices = "slices"
)

// AbortRequest is the request body for POST /api/v1/cache/abort. An empty
// body or scope aborts everything.
type AbortRequest struct {
	Scope string `json:"scope"`
}

// CacheSlicesResponse is the response body for POST /api/v1/cache/slices.
type CacheSlicesResponse struct {
	Jobs int `json:"jobs"`
}

// PreloadRequest is the request body for POST /api/v1/cache/attribute.
// Concurrency <= 1 loads one layer at a time.
type PreloadRequest struct {
	Attribute   string `json:"attribute"`
	Concurrency int    `json:"concurrency,omitempty"`
}

// PreloadResponse is the response body for POST /api/v1/cache/attribute.
type PreloadResponse struct {
	Attribute axis.Attribute `json:"attribute"`
	Layers    int            `json:"layers"`
}

// Abort handles POST /api/v1/cache/abort.
func (h *SchedulerHandler) Abort(w http.ResponseWriter, r *http.Request) {
	var req AbortRequest
	if err := decodeOptionalBody(r, &req); err != nil {
		BadRequest(w, "Invalid request body")
		return
	}

	switch req.Scope {
	case "", AbortAll:
		h.sched.AbortAll()
	case AbortBlock:
		h.sched.AbortBlock()
	case AbortSlices:
		h.sched.AbortSlices()
	default:
		BadRequest(w, "Unknown abort scope: "+req.Scope)
		return
	}
	writeOK(w, h.sched.State())
}

// CacheBlock handles POST /api/v1/cache/block: the whole selected block,
// regardless of the visible range.
func (h *SchedulerHandler) CacheBlock(w http.ResponseWriter, r *http.Request) {
	if err := h.sched.CacheBlock(); err != nil {
		h.schedulerError(w, err)
		return
	}
	writeAccepted(w, h.sched.Selection())
}

// CacheSlices handles POST /api/v1/cache/slices.
func (h *SchedulerHandler) CacheSlices(w http.ResponseWriter, r *http.Request) {
	n, err := h.sched.CacheSlices()
	if err != nil {
		h.schedulerError(w, err)
		return
	}
	writeAccepted(w, CacheSlicesResponse{Jobs: n})
}

// CacheAttribute handles POST /api/v1/cache/attribute. The preload runs in
// the background; progress shows in the status endpoint.
func (h *SchedulerHandler) CacheAttribute(w http.ResponseWriter, r *http.Request) {
	var req PreloadRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.Attribute == "" {
		BadRequest(w, "Attribute is required")
		return
	}

	attr := axis.Attribute(req.Attribute)
	if err := h.sched.StartPreload(attr, req.Concurrency); err != nil {
		h.schedulerError(w, err)
		return
	}

	axes := h.sched.Axes()
	writeAccepted(w, PreloadResponse{
		Attribute: attr,
		Layers:    axes.NumTimestamps() * axes.NumLevels(),
	})
}

func (h *SchedulerHandler) schedulerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, axis.ErrUnknownValue):
		BadRequest(w, err.Error())
	case errors.Is(err, prefetch.ErrPreloadInProgress):
		Conflict(w, err.Error())
	case errors.Is(err, prefetch.ErrClosed):
		ServiceUnavailable(w, err.Error())
	default:
		InternalServerError(w, err.Error())
	}
}

// decodeOptionalBody is decodeJSONBody for endpoints whose body may be
// omitted.
func decodeOptionalBody(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
