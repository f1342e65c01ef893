package metrics

import (
	"time"
)

// Fetch outcomes reported by the loader.
const (
	OutcomeLoaded    = "loaded"
	OutcomeCancelled = "cancelled"
	OutcomeFailed    = "failed"
	OutcomeNotFound  = "not_found"
)

// Round kinds reported by the scheduler.
const (
	RoundBlock   = "block"
	RoundSlice   = "slice"
	RoundManual  = "manual"
	RoundPreload = "preload"
)

// LoaderMetrics observes layer fetches.
type LoaderMetrics interface {
	// ObserveFetch records one fetch attempt against the source.
	ObserveFetch(attribute, outcome string, bytes int, duration time.Duration)

	// RecordCacheHit records a load served from the layer store.
	RecordCacheHit(attribute string)

	// RecordCoalesced records a load that joined an in-flight fetch.
	RecordCoalesced(attribute string)
}

// SchedulerMetrics observes caching rounds and the worker pool.
type SchedulerMetrics interface {
	RecordRoundStarted(kind string)
	RecordRoundAborted(kind string)
	RecordRoundCompleted(kind string)

	// SetSliceJobs records the number of tracked neighborhood jobs.
	SetSliceJobs(n int)

	// SetQueued and SetRunning report worker pool depth.
	SetQueued(n int)
	SetRunning(n int)
}

// StoreMetrics observes the layer store.
type StoreMetrics interface {
	RecordLayerStored(attribute string, layers int, totalBytes int64)
}

var (
	newLoaderMetrics    func() LoaderMetrics
	newSchedulerMetrics func() SchedulerMetrics
	newStoreMetrics     func() StoreMetrics
)

// RegisterConstructors is called by the Prometheus implementation package
// during initialization. The indirection keeps this package free of
// implementation imports.
func RegisterConstructors(loader func() LoaderMetrics, scheduler func() SchedulerMetrics, store func() StoreMetrics) {
	newLoaderMetrics = loader
	newSchedulerMetrics = scheduler
	newStoreMetrics = store
}

// NewLoaderMetrics returns the loader metrics, or nil when disabled.
func NewLoaderMetrics() LoaderMetrics {
	if !IsEnabled() || newLoaderMetrics == nil {
		return nil
	}
	return newLoaderMetrics()
}

// NewSchedulerMetrics returns the scheduler metrics, or nil when disabled.
func NewSchedulerMetrics() SchedulerMetrics {
	if !IsEnabled() || newSchedulerMetrics == nil {
		return nil
	}
	return newSchedulerMetrics()
}

// NewStoreMetrics returns the store metrics, or nil when disabled.
func NewStoreMetrics() StoreMetrics {
	if !IsEnabled() || newStoreMetrics == nil {
		return nil
	}
	return newStoreMetrics()
}
