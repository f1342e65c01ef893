package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/marmos91/oceancache/internal/logger"
	"github.com/marmos91/oceancache/pkg/api/handlers"
	"github.com/marmos91/oceancache/pkg/metadata"
	"github.com/marmos91/oceancache/pkg/prefetch"
)

// requestTimeout bounds every route except the event stream.
const requestTimeout = 30 * time.Second

// NewRouter creates the chi router with all middleware and routes.
//
// Routes:
//   - GET /health, GET /health/ready - Liveness and readiness checks
//   - GET /api/v1/status - Scheduler state
//   - GET /api/v1/status/grid - Cache status of every layer of an attribute
//   - GET /api/v1/status/layer/{attribute}/{timestamp}/{level} - One layer
//   - GET /api/v1/layers/{attribute}/{timestamp}/{level} - Layer download
//   - PUT /api/v1/{selection,range,mode,attribute,slices,autocache} - User events
//   - POST /api/v1/dragging - Point slider dragging
//   - POST /api/v1/cache/{abort,block,slices,attribute} - Manual caching
//   - /api/v1/metadata/* - Dataset metadata and color scale overrides
//   - GET /api/v1/events - Store writes as server-sent events
//
// md and src may be nil.
func NewRouter(sched *prefetch.Scheduler, src handlers.HealthChecker, md *metadata.Metadata) http.Handler {
	r := chi.NewRouter()

	// Middleware stack - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	healthHandler := handlers.NewHealthHandler(src)
	schedHandler := handlers.NewSchedulerHandler(sched)
	metadataHandler := handlers.NewMetadataHandler(md, sched.Axes())
	eventsHandler := handlers.NewEventsHandler(sched.Store())

	r.Route("/health", func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))
		r.Get("/", healthHandler.Liveness)
		r.Get("/ready", healthHandler.Readiness)
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/health", http.StatusTemporaryRedirect)
	})

	r.Route("/api/v1", func(r chi.Router) {
		// The event stream stays open for as long as the client listens.
		r.Get("/events", eventsHandler.Stream)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(requestTimeout))

			r.Route("/status", func(r chi.Router) {
				r.Get("/", schedHandler.Status)
				r.Get("/grid", schedHandler.Grid)
				r.Get("/layer/{attribute}/{timestamp}/{level}", schedHandler.LayerStatus)
			})

			r.Get("/layers/{attribute}/{timestamp}/{level}", schedHandler.Layer)

			r.Put("/selection", schedHandler.SetSelection)
			r.Put("/range", schedHandler.SetRange)
			r.Put("/mode", schedHandler.SetMode)
			r.Put("/attribute", schedHandler.SetAttribute)
			r.Put("/slices", schedHandler.SetSlices)
			r.Put("/autocache", schedHandler.SetAutoCache)
			r.Post("/dragging", schedHandler.Dragging)

			r.Route("/cache", func(r chi.Router) {
				r.Post("/abort", schedHandler.Abort)
				r.Post("/block", schedHandler.CacheBlock)
				r.Post("/slices", schedHandler.CacheSlices)
				r.Post("/attribute", schedHandler.CacheAttribute)
			})

			r.Route("/metadata", func(r chi.Router) {
				r.Get("/", metadataHandler.Summary)
				r.Get("/extrema/{attribute}/{timestamp}/{level}", metadataHandler.Extrema)
				r.Put("/overrides/{attribute}", metadataHandler.SetOverride)
				r.Delete("/overrides/{attribute}", metadataHandler.ClearOverride)
			})
		})
	})

	return r
}

// requestLogger logs requests with the internal logger and attaches the
// request id to the context so handler logs carry it.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		lc := &logger.LogContext{RequestID: requestID, StartTime: start}
		r = r.WithContext(logger.WithContext(r.Context(), lc))

		logger.DebugCtx(r.Context(), "API request started",
			logger.KeyMethod, r.Method,
			logger.KeyPath, r.URL.Path,
			logger.KeyClientIP, r.RemoteAddr,
		)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		logger.InfoCtx(r.Context(), "API request completed",
			logger.KeyMethod, r.Method,
			logger.KeyPath, r.URL.Path,
			logger.KeyStatus, ww.Status(),
			logger.KeyBytes, ww.BytesWritten(),
			logger.KeyDurationMs, lc.DurationMs(),
		)
	})
}
