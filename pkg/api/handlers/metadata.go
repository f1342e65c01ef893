package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/marmos91/oceancache/pkg/axis"
	"github.com/marmos91/oceancache/pkg/metadata"
)

// MetadataHandler serves dataset metadata and color scale overrides.
type MetadataHandler struct {
	md   *metadata.Metadata
	axes *axis.Axes
}

// NewMetadataHandler creates a MetadataHandler. md may be nil when no
// metadata file is configured; every endpoint then answers 404.
func NewMetadataHandler(md *metadata.Metadata, axes *axis.Axes) *MetadataHandler {
	return &MetadataHandler{md: md, axes: axes}
}

// Summary handles GET /api/v1/metadata.
func (h *MetadataHandler) Summary(w http.ResponseWriter, r *http.Request) {
	if !h.loaded(w) {
		return
	}
	writeOK(w, h.md.Summary())
}

// Extrema handles GET /api/v1/metadata/extrema/{attribute}/{timestamp}/{level}.
// The level is a depth in meters; ?global=true asks for the attribute-wide
// bounds.
func (h *MetadataHandler) Extrema(w http.ResponseWriter, r *http.Request) {
	if !h.loaded(w) {
		return
	}

	attr := axis.Attribute(chi.URLParam(r, "attribute"))
	ts, err := axis.ParseTimestamp(chi.URLParam(r, "timestamp"))
	if err != nil {
		BadRequest(w, err.Error())
		return
	}
	depth, err := strconv.ParseFloat(chi.URLParam(r, "level"), 64)
	if err != nil {
		BadRequest(w, "Invalid level: "+chi.URLParam(r, "level"))
		return
	}
	levelIdx, ok := h.axes.LevelIndex(axis.Level(depth))
	if !ok {
		NotFound(w, "Unknown level: "+chi.URLParam(r, "level"))
		return
	}
	global, _ := strconv.ParseBool(r.URL.Query().Get("global"))

	e, err := h.md.Extrema(attr, ts, levelIdx, global)
	if err != nil {
		if errors.Is(err, metadata.ErrNoStats) {
			NotFound(w, err.Error())
			return
		}
		InternalServerError(w, err.Error())
		return
	}
	writeOK(w, e)
}

// SetOverride handles PUT /api/v1/metadata/overrides/{attribute}.
func (h *MetadataHandler) SetOverride(w http.ResponseWriter, r *http.Request) {
	if !h.loaded(w) {
		return
	}

	attr := axis.Attribute(chi.URLParam(r, "attribute"))
	if !h.axes.HasAttribute(attr) {
		NotFound(w, "Unknown attribute: "+string(attr))
		return
	}

	var req metadata.Extrema
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if err := h.md.SetOverride(attr, req); err != nil {
		BadRequest(w, err.Error())
		return
	}
	writeOK(w, req)
}

// ClearOverride handles DELETE /api/v1/metadata/overrides/{attribute}.
func (h *MetadataHandler) ClearOverride(w http.ResponseWriter, r *http.Request) {
	if !h.loaded(w) {
		return
	}
	h.md.ClearOverride(axis.Attribute(chi.URLParam(r, "attribute")))
	w.WriteHeader(http.StatusNoContent)
}

func (h *MetadataHandler) loaded(w http.ResponseWriter) bool {
	if h.md == nil {
		NotFound(w, "No dataset metadata loaded")
		return false
	}
	return true
}
