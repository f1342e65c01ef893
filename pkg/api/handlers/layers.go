package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/marmos91/oceancache/internal/logger"
	"github.com/marmos91/oceancache/pkg/layer"
	"github.com/marmos91/oceancache/pkg/source"
)

// Layer download headers.
const (
	HeaderLayerKey    = "X-Layer-Key"
	HeaderLayerValues = "X-Layer-Values"
)

// Layer handles GET /api/v1/layers/{attribute}/{timestamp}/{level}. The
// body is the raw little-endian float32 array, fetched through the cache.
func (h *SchedulerHandler) Layer(w http.ResponseWriter, r *http.Request) {
	key, ok := h.layerKey(w, r)
	if !ok {
		return
	}

	res := h.sched.GetLayer(r.Context(), key.attr, key.ts, key.level)
	switch res.Status {
	case layer.Loaded:
	case layer.Cancelled:
		if r.Context().Err() != nil {
			// nobody is listening
			return
		}
		ServiceUnavailable(w, "Layer load cancelled")
		return
	default:
		if errors.Is(res.Err, source.ErrLayerNotFound) {
			NotFound(w, "Layer not found in source")
			return
		}
		logger.WarnCtx(r.Context(), "Layer download failed", logger.KeyError, res.Err)
		BadGateway(w, res.Err.Error())
		return
	}

	data := res.Layer.Encode()
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set(HeaderLayerKey, layer.Key{Attribute: key.attr, Timestamp: key.ts, Level: key.level}.String())
	w.Header().Set(HeaderLayerValues, strconv.Itoa(res.Layer.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
