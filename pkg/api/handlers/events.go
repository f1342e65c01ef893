package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/marmos91/oceancache/internal/logger"
	"github.com/marmos91/oceancache/pkg/axis"
	"github.com/marmos91/oceancache/pkg/layer"
	"github.com/marmos91/oceancache/pkg/layer/store"
)

// EventLayer is the server-sent event name of a store write.
const EventLayer = "layer"

const (
	eventBuffer       = 256
	keepaliveInterval = 15 * time.Second
)

// LayerEvent is the payload of a "layer" event.
type LayerEvent struct {
	Attribute axis.Attribute `json:"attribute"`
	Timestamp axis.Timestamp `json:"timestamp"`
	Level     axis.Level     `json:"level"`
	Values    int            `json:"values"`
	Bytes     int            `json:"bytes"`
}

// EventsHandler streams store writes as server-sent events.
type EventsHandler struct {
	store *store.Store
}

// NewEventsHandler creates an EventsHandler.
func NewEventsHandler(st *store.Store) *EventsHandler {
	return &EventsHandler{store: st}
}

// Stream handles GET /api/v1/events. Every layer written to the store is
// sent as one "layer" event. A client too slow to keep up misses events
// rather than stalling the writers.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		InternalServerError(w, "Streaming not supported")
		return
	}
	// the server write timeout would end the stream
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	events := make(chan LayerEvent, eventBuffer)
	var dropped atomic.Int64
	unsubscribe := h.store.Subscribe(store.ObserverFunc(func(key layer.Key, l *layer.Layer) {
		select {
		case events <- LayerEvent{
			Attribute: key.Attribute,
			Timestamp: key.Timestamp,
			Level:     key.Level,
			Values:    l.Len(),
			Bytes:     l.SizeBytes(),
		}:
		default:
			dropped.Add(1)
		}
	}))
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			if n := dropped.Load(); n > 0 {
				logger.DebugCtx(r.Context(), "Event stream closed with dropped events", "dropped", n)
			}
			return
		case ev := <-events:
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", uuid.NewString(), EventLayer, data); err != nil {
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
