// Package metadata reads the dataset's metadata.json: the horizontal extent
// of the grid and per-attribute value extrema used to scale color maps.
//
// The file looks like:
//
//	{
//	  "size_km": 1200,
//	  "THETA": {
//	    "min_global": -2.1, "max_global": 31.4,
//	    "min_local": {"2011-9-13-0": [..one value per level..], ...},
//	    "max_local": {"2011-9-13-0": [...], ...}
//	  },
//	  "SALT": {...},
//	  "VORT": {...}
//	}
package metadata

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"slices"
	"sync"

	"github.com/marmos91/oceancache/internal/logger"
	"github.com/marmos91/oceancache/pkg/axis"
)

var (
	// ErrNoStats is returned for attributes without extrema in the file.
	ErrNoStats = errors.New("no extrema for attribute")

	// ErrInvalidOverride is returned when an override has min > max.
	ErrInvalidOverride = errors.New("override minimum exceeds maximum")
)

// datasetNames maps attributes to their key in metadata.json.
var datasetNames = map[axis.Attribute]string{
	"theta":         "THETA",
	"salt":          "SALT",
	"vorticity_uvw": "VORT",
}

// DatasetName returns the metadata.json key holding the extrema of attr.
func DatasetName(attr axis.Attribute) (string, bool) {
	name, ok := datasetNames[attr]
	return name, ok
}

// Extrema is a closed value interval.
type Extrema struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

func (e Extrema) union(o Extrema) Extrema {
	return Extrema{Min: math.Min(e.Min, o.Min), Max: math.Max(e.Max, o.Max)}
}

// Stats are the extrema of one attribute. Local extrema are indexed by
// timestamp, then level index.
type Stats struct {
	Global   Extrema
	MinLocal map[axis.Timestamp][]float64
	MaxLocal map[axis.Timestamp][]float64
}

type rawStats struct {
	MinGlobal float64              `json:"min_global"`
	MaxGlobal float64              `json:"max_global"`
	MinLocal  map[string][]float64 `json:"min_local"`
	MaxLocal  map[string][]float64 `json:"max_local"`
}

// Metadata is the parsed file plus runtime extrema overrides. It is safe for
// concurrent use.
type Metadata struct {
	SizeKm float64

	stats      map[string]*Stats
	timestamps []axis.Timestamp

	mu        sync.RWMutex
	overrides map[axis.Attribute]Extrema
}

// Load reads and parses the file at path.
func Load(path string) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata file: %w", err)
	}

	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	logger.Info("Metadata loaded",
		logger.KeyPath, path,
		"size_km", m.SizeKm,
		"timestamps", len(m.timestamps))
	return m, nil
}

// Parse decodes metadata.json content.
func Parse(data []byte) (*Metadata, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}

	m := &Metadata{
		stats:     make(map[string]*Stats),
		overrides: make(map[axis.Attribute]Extrema),
	}

	if raw, ok := doc["size_km"]; ok {
		if err := json.Unmarshal(raw, &m.SizeKm); err != nil {
			return nil, fmt.Errorf("invalid size_km: %w", err)
		}
	}

	for _, name := range datasetNames {
		raw, ok := doc[name]
		if !ok {
			continue
		}
		var rs rawStats
		if err := json.Unmarshal(raw, &rs); err != nil {
			return nil, fmt.Errorf("invalid %s extrema: %w", name, err)
		}
		st, err := convertStats(rs)
		if err != nil {
			return nil, fmt.Errorf("invalid %s extrema: %w", name, err)
		}
		m.stats[name] = st
	}

	// timestamps come from the THETA keys, as the dataset was published
	if st, ok := m.stats["THETA"]; ok {
		for ts := range st.MinLocal {
			m.timestamps = append(m.timestamps, ts)
		}
		slices.SortFunc(m.timestamps, func(a, b axis.Timestamp) int {
			switch {
			case a.Before(b):
				return -1
			case b.Before(a):
				return 1
			default:
				return 0
			}
		})
	}
	return m, nil
}

func convertStats(rs rawStats) (*Stats, error) {
	st := &Stats{
		Global:   Extrema{Min: rs.MinGlobal, Max: rs.MaxGlobal},
		MinLocal: make(map[axis.Timestamp][]float64, len(rs.MinLocal)),
		MaxLocal: make(map[axis.Timestamp][]float64, len(rs.MaxLocal)),
	}
	for key, vals := range rs.MinLocal {
		ts, err := axis.ParseTimestamp(key)
		if err != nil {
			return nil, err
		}
		st.MinLocal[ts] = vals
	}
	for key, vals := range rs.MaxLocal {
		ts, err := axis.ParseTimestamp(key)
		if err != nil {
			return nil, err
		}
		st.MaxLocal[ts] = vals
	}
	return st, nil
}

// Timestamps returns the timestamps listed in the file, chronologically.
// Empty when the file has no THETA section.
func (m *Metadata) Timestamps() []axis.Timestamp {
	return slices.Clone(m.timestamps)
}

// Stats returns the extrema of attr.
func (m *Metadata) Stats(attr axis.Attribute) (*Stats, error) {
	name, ok := DatasetName(attr)
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrNoStats, attr)
	}
	st, ok := m.stats[name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrNoStats, attr)
	}
	return st, nil
}

// Attributes lists the attributes with extrema in the file.
func (m *Metadata) Attributes() []axis.Attribute {
	var out []axis.Attribute
	for attr, name := range datasetNames {
		if _, ok := m.stats[name]; ok {
			out = append(out, attr)
		}
	}
	slices.Sort(out)
	return out
}

// Local returns the extrema of attr over the given timestamps and level
// indices. Pairs missing from the file are skipped; it fails when none is
// present.
func (m *Metadata) Local(attr axis.Attribute, timestamps []axis.Timestamp, levels []int) (Extrema, error) {
	st, err := m.Stats(attr)
	if err != nil {
		return Extrema{}, err
	}

	out := Extrema{Min: math.Inf(1), Max: math.Inf(-1)}
	found := false
	for _, ts := range timestamps {
		mins, maxs := st.MinLocal[ts], st.MaxLocal[ts]
		for _, l := range levels {
			if l < 0 || l >= len(mins) || l >= len(maxs) {
				continue
			}
			out = out.union(Extrema{Min: mins[l], Max: maxs[l]})
			found = true
		}
	}
	if !found {
		return Extrema{}, fmt.Errorf("%w %q at the requested coordinates", ErrNoStats, attr)
	}
	return out, nil
}

// Extrema returns the color scale bounds for one layer. With global set it
// returns the attribute's global extrema, or the override when one is set;
// otherwise the local extrema of the layer.
func (m *Metadata) Extrema(attr axis.Attribute, ts axis.Timestamp, level int, global bool) (Extrema, error) {
	if global {
		if o, ok := m.Override(attr); ok {
			return o, nil
		}
		st, err := m.Stats(attr)
		if err != nil {
			return Extrema{}, err
		}
		return st.Global, nil
	}
	return m.Local(attr, []axis.Timestamp{ts}, []int{level})
}

// SetOverride replaces the global extrema of attr.
func (m *Metadata) SetOverride(attr axis.Attribute, e Extrema) error {
	if e.Min > e.Max {
		return fmt.Errorf("%w: [%g, %g]", ErrInvalidOverride, e.Min, e.Max)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overrides[attr] = e
	return nil
}

// ClearOverride removes the override of attr.
func (m *Metadata) ClearOverride(attr axis.Attribute) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.overrides, attr)
}

// Override returns the override of attr, if any.
func (m *Metadata) Override(attr axis.Attribute) (Extrema, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.overrides[attr]
	return e, ok
}

// Summary is the JSON view served by the control API.
type Summary struct {
	SizeKm     float64                    `json:"size_km"`
	Timestamps []axis.Timestamp           `json:"timestamps"`
	Global     map[axis.Attribute]Extrema `json:"global"`
	Overrides  map[axis.Attribute]Extrema `json:"overrides"`
}

// Summary returns the global extrema and overrides of every attribute.
func (m *Metadata) Summary() Summary {
	s := Summary{
		SizeKm:     m.SizeKm,
		Timestamps: m.Timestamps(),
		Global:     make(map[axis.Attribute]Extrema),
		Overrides:  make(map[axis.Attribute]Extrema),
	}
	for _, attr := range m.Attributes() {
		s.Global[attr] = m.stats[datasetNames[attr]].Global
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	for attr, e := range m.overrides {
		s.Overrides[attr] = e
	}
	return s
}
