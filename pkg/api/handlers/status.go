package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/marmos91/oceancache/pkg/axis"
	"github.com/marmos91/oceancache/pkg/prefetch"
)

// SchedulerHandler serves the scheduler state and forwards user events to
// it.
type SchedulerHandler struct {
	sched *prefetch.Scheduler
}

// NewSchedulerHandler creates a SchedulerHandler.
func NewSchedulerHandler(sched *prefetch.Scheduler) *SchedulerHandler {
	return &SchedulerHandler{sched: sched}
}

// LayerStatusResponse is the response body of the layer status endpoint.
type LayerStatusResponse struct {
	Attribute axis.Attribute       `json:"attribute"`
	Timestamp axis.Timestamp       `json:"timestamp"`
	Level     axis.Level           `json:"level"`
	Status    prefetch.CacheStatus `json:"status"`
}

// Status handles GET /api/v1/status.
func (h *SchedulerHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeOK(w, h.sched.State())
}

// Grid handles GET /api/v1/status/grid?attribute=. Without the parameter
// the selected attribute is used.
func (h *SchedulerHandler) Grid(w http.ResponseWriter, r *http.Request) {
	attr := axis.Attribute(r.URL.Query().Get("attribute"))
	if attr == "" {
		attr = h.sched.Selection().Attribute
	}

	grid, err := h.sched.Grid(attr)
	if err != nil {
		NotFound(w, err.Error())
		return
	}
	writeOK(w, grid)
}

// LayerStatus handles GET /api/v1/status/layer/{attribute}/{timestamp}/{level}.
func (h *SchedulerHandler) LayerStatus(w http.ResponseWriter, r *http.Request) {
	key, ok := h.layerKey(w, r)
	if !ok {
		return
	}
	writeOK(w, LayerStatusResponse{
		Attribute: key.attr,
		Timestamp: key.ts,
		Level:     key.level,
		Status:    h.sched.Status(key.attr, key.ts, key.level),
	})
}

type layerKey struct {
	attr  axis.Attribute
	ts    axis.Timestamp
	level axis.Level
}

// layerKey parses the {attribute}/{timestamp}/{level} URL parameters. The
// level is a depth in meters. Values that do not parse get a 400, values
// off the axes a 404.
func (h *SchedulerHandler) layerKey(w http.ResponseWriter, r *http.Request) (layerKey, bool) {
	axes := h.sched.Axes()

	attr := axis.Attribute(chi.URLParam(r, "attribute"))
	ts, err := axis.ParseTimestamp(chi.URLParam(r, "timestamp"))
	if err != nil {
		BadRequest(w, err.Error())
		return layerKey{}, false
	}
	depth, err := strconv.ParseFloat(chi.URLParam(r, "level"), 64)
	if err != nil {
		BadRequest(w, "Invalid level: "+chi.URLParam(r, "level"))
		return layerKey{}, false
	}
	level := axis.Level(depth)

	switch {
	case !axes.HasAttribute(attr):
		NotFound(w, "Unknown attribute: "+string(attr))
		return layerKey{}, false
	case !hasTimestamp(axes, ts):
		NotFound(w, "Unknown timestamp: "+ts.String())
		return layerKey{}, false
	case !hasLevel(axes, level):
		NotFound(w, "Unknown level: "+chi.URLParam(r, "level"))
		return layerKey{}, false
	}
	return layerKey{attr: attr, ts: ts, level: level}, true
}

func hasTimestamp(axes *axis.Axes, ts axis.Timestamp) bool {
	_, ok := axes.TimestampIndex(ts)
	return ok
}

func hasLevel(axes *axis.Axes, l axis.Level) bool {
	_, ok := axes.LevelIndex(l)
	return ok
}
