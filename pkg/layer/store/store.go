// Package store implements the in-memory layer cache.
//
// The store maps attribute → timestamp → level to a decoded layer. It only
// grows: there is no eviction and entries live as long as the process.
// Writes are idempotent upserts, so concurrent writers racing on the same
// key are safe and the last write wins.
package store

import (
	"sync"

	"github.com/marmos91/oceancache/pkg/axis"
	"github.com/marmos91/oceancache/pkg/layer"
	"github.com/marmos91/oceancache/pkg/metrics"
)

// Observer is notified after every write to the store.
//
// Notifications are delivered synchronously on the writer's goroutine after
// the write is visible to readers. Implementations must not block for long
// and must not call Subscribe or the returned unsubscribe function from
// within LayerStored.
type Observer interface {
	LayerStored(key layer.Key, l *layer.Layer)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(key layer.Key, l *layer.Layer)

// LayerStored calls f(key, l).
func (f ObserverFunc) LayerStored(key layer.Key, l *layer.Layer) { f(key, l) }

type levelMap map[axis.Level]*layer.Layer

type timestampMap map[axis.Timestamp]levelMap

// Store is a grow-only three-level layer cache. It is safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	layers map[axis.Attribute]timestampMap
	count  int
	bytes  int64

	obsMu     sync.RWMutex
	observers map[uint64]Observer
	nextObsID uint64
}

// New creates an empty store.
func New() *Store {
	return &Store{
		layers:    make(map[axis.Attribute]timestampMap),
		observers: make(map[uint64]Observer),
	}
}

// Has reports whether a layer is stored for the key.
func (s *Store) Has(attr axis.Attribute, ts axis.Timestamp, level axis.Level) bool {
	_, ok := s.Get(attr, ts, level)
	return ok
}

// Get returns the stored layer for the key.
func (s *Store) Get(attr axis.Attribute, ts axis.Timestamp, level axis.Level) (*layer.Layer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.layers[attr][ts][level]
	return l, ok
}

// Put stores l under the key, replacing any existing layer, and notifies
// observers once the write is complete. A nil layer is ignored.
func (s *Store) Put(attr axis.Attribute, ts axis.Timestamp, level axis.Level, l *layer.Layer) {
	if l == nil {
		return
	}

	s.mu.Lock()
	byTime, ok := s.layers[attr]
	if !ok {
		byTime = make(timestampMap)
		s.layers[attr] = byTime
	}
	byLevel, ok := byTime[ts]
	if !ok {
		byLevel = make(levelMap)
		byTime[ts] = byLevel
	}
	if old, exists := byLevel[level]; exists {
		s.bytes -= int64(old.SizeBytes())
	} else {
		s.count++
	}
	byLevel[level] = l
	s.bytes += int64(l.SizeBytes())
	s.mu.Unlock()

	s.notify(layer.Key{Attribute: attr, Timestamp: ts, Level: level}, l)
}

// PutKey is Put addressed by a layer.Key.
func (s *Store) PutKey(key layer.Key, l *layer.Layer) {
	s.Put(key.Attribute, key.Timestamp, key.Level, l)
}

// GetKey is Get addressed by a layer.Key.
func (s *Store) GetKey(key layer.Key) (*layer.Layer, bool) {
	return s.Get(key.Attribute, key.Timestamp, key.Level)
}

// Len returns the number of stored layers.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

// SizeBytes returns the total encoded size of all stored layers.
func (s *Store) SizeBytes() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bytes
}

// Keys returns every stored key for attr, in no particular order.
func (s *Store) Keys(attr axis.Attribute) []layer.Key {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []layer.Key
	for ts, byLevel := range s.layers[attr] {
		for lvl := range byLevel {
			keys = append(keys, layer.Key{Attribute: attr, Timestamp: ts, Level: lvl})
		}
	}
	return keys
}

// Subscribe registers o for write notifications. The returned function
// removes the subscription; it is safe to call more than once.
func (s *Store) Subscribe(o Observer) (unsubscribe func()) {
	s.obsMu.Lock()
	id := s.nextObsID
	s.nextObsID++
	s.observers[id] = o
	s.obsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.obsMu.Lock()
			delete(s.observers, id)
			s.obsMu.Unlock()
		})
	}
}

func (s *Store) notify(key layer.Key, l *layer.Layer) {
	s.obsMu.RLock()
	defer s.obsMu.RUnlock()

	for _, o := range s.observers {
		o.LayerStored(key, l)
	}
}

// ReportTo publishes store growth to m and returns the unsubscribe function.
// A nil m subscribes nothing.
func (s *Store) ReportTo(m metrics.StoreMetrics) (unsubscribe func()) {
	if m == nil {
		return func() {}
	}
	return s.Subscribe(ObserverFunc(func(key layer.Key, _ *layer.Layer) {
		m.RecordLayerStored(string(key.Attribute), s.Len(), s.SizeBytes())
	}))
}
