// Package prometheus implements the metrics hooks on top of
// prometheus/client_golang. Importing it registers the constructors used by
// metrics.New*.
package prometheus

import (
	"time"

	"github.com/marmos91/oceancache/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func init() {
	metrics.RegisterConstructors(
		func() metrics.LoaderMetrics { return NewLoaderMetrics(metrics.GetRegistry()) },
		func() metrics.SchedulerMetrics { return NewSchedulerMetrics(metrics.GetRegistry()) },
		func() metrics.StoreMetrics { return NewStoreMetrics(metrics.GetRegistry()) },
	)
}

// loaderMetrics is the Prometheus implementation of metrics.LoaderMetrics.
type loaderMetrics struct {
	fetches       *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	fetchedBytes  *prometheus.CounterVec
	cacheHits     *prometheus.CounterVec
	coalesced     *prometheus.CounterVec
}

// NewLoaderMetrics registers loader metrics on reg.
func NewLoaderMetrics(reg prometheus.Registerer) metrics.LoaderMetrics {
	return &loaderMetrics{
		fetches: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "oceancache_loader_fetches_total",
				Help: "Total number of layer fetches by attribute and outcome",
			},
			[]string{"attribute", "outcome"},
		),
		fetchDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "oceancache_loader_fetch_duration_milliseconds",
				Help: "Duration of layer fetches in milliseconds",
				Buckets: []float64{
					5,     // local mirror
					20,    // same datacenter
					50,    // 50ms
					100,   // 100ms
					250,   // typical remote layer
					500,   // 500ms
					1000,  // 1s
					5000,  // slow link
					15000, // 15s
				},
			},
			[]string{"attribute", "outcome"},
		),
		fetchedBytes: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "oceancache_loader_fetched_bytes_total",
				Help: "Total bytes fetched from the layer source",
			},
			[]string{"attribute"},
		),
		cacheHits: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "oceancache_loader_cache_hits_total",
				Help: "Loads served from the layer store without fetching",
			},
			[]string{"attribute"},
		),
		coalesced: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "oceancache_loader_coalesced_total",
				Help: "Loads that joined an in-flight fetch for the same layer",
			},
			[]string{"attribute"},
		),
	}
}

func (m *loaderMetrics) ObserveFetch(attribute, outcome string, bytes int, duration time.Duration) {
	if m == nil {
		return
	}
	m.fetches.WithLabelValues(attribute, outcome).Inc()
	m.fetchDuration.WithLabelValues(attribute, outcome).Observe(float64(duration.Microseconds()) / 1000.0)
	if bytes > 0 {
		m.fetchedBytes.WithLabelValues(attribute).Add(float64(bytes))
	}
}

func (m *loaderMetrics) RecordCacheHit(attribute string) {
	if m == nil {
		return
	}
	m.cacheHits.WithLabelValues(attribute).Inc()
}

func (m *loaderMetrics) RecordCoalesced(attribute string) {
	if m == nil {
		return
	}
	m.coalesced.WithLabelValues(attribute).Inc()
}

// schedulerMetrics is the Prometheus implementation of metrics.SchedulerMetrics.
type schedulerMetrics struct {
	roundsStarted   *prometheus.CounterVec
	roundsAborted   *prometheus.CounterVec
	roundsCompleted *prometheus.CounterVec
	sliceJobs       prometheus.Gauge
	poolQueued      prometheus.Gauge
	poolRunning     prometheus.Gauge
}

// NewSchedulerMetrics registers scheduler metrics on reg.
func NewSchedulerMetrics(reg prometheus.Registerer) metrics.SchedulerMetrics {
	return &schedulerMetrics{
		roundsStarted: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "oceancache_scheduler_rounds_started_total",
				Help: "Caching rounds started by kind",
			},
			[]string{"kind"},
		),
		roundsAborted: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "oceancache_scheduler_rounds_aborted_total",
				Help: "Caching rounds aborted before completion by kind",
			},
			[]string{"kind"},
		),
		roundsCompleted: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "oceancache_scheduler_rounds_completed_total",
				Help: "Caching rounds that ran to completion by kind",
			},
			[]string{"kind"},
		),
		sliceJobs: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "oceancache_scheduler_slice_jobs",
			Help: "Neighborhood jobs currently tracked by the slice scheduler",
		}),
		poolQueued: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "oceancache_pool_queued_tasks",
			Help: "Tasks waiting for a worker slot",
		}),
		poolRunning: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "oceancache_pool_running_tasks",
			Help: "Tasks currently running in the worker pool",
		}),
	}
}

func (m *schedulerMetrics) RecordRoundStarted(kind string) {
	if m == nil {
		return
	}
	m.roundsStarted.WithLabelValues(kind).Inc()
}

func (m *schedulerMetrics) RecordRoundAborted(kind string) {
	if m == nil {
		return
	}
	m.roundsAborted.WithLabelValues(kind).Inc()
}

func (m *schedulerMetrics) RecordRoundCompleted(kind string) {
	if m == nil {
		return
	}
	m.roundsCompleted.WithLabelValues(kind).Inc()
}

func (m *schedulerMetrics) SetSliceJobs(n int) {
	if m == nil {
		return
	}
	m.sliceJobs.Set(float64(n))
}

func (m *schedulerMetrics) SetQueued(n int) {
	if m == nil {
		return
	}
	m.poolQueued.Set(float64(n))
}

func (m *schedulerMetrics) SetRunning(n int) {
	if m == nil {
		return
	}
	m.poolRunning.Set(float64(n))
}

// storeMetrics is the Prometheus implementation of metrics.StoreMetrics.
type storeMetrics struct {
	stored     *prometheus.CounterVec
	layers     prometheus.Gauge
	totalBytes prometheus.Gauge
}

// NewStoreMetrics registers layer store metrics on reg.
func NewStoreMetrics(reg prometheus.Registerer) metrics.StoreMetrics {
	return &storeMetrics{
		stored: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "oceancache_store_writes_total",
				Help: "Layer store writes by attribute",
			},
			[]string{"attribute"},
		),
		layers: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "oceancache_store_layers",
			Help: "Layers held in memory",
		}),
		totalBytes: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "oceancache_store_bytes",
			Help: "Total decoded size of layers held in memory",
		}),
	}
}

func (m *storeMetrics) RecordLayerStored(attribute string, layers int, totalBytes int64) {
	if m == nil {
		return
	}
	m.stored.WithLabelValues(attribute).Inc()
	m.layers.Set(float64(layers))
	m.totalBytes.Set(float64(totalBytes))
}
