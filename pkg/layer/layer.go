// Package layer defines a decoded data layer: one 2D grid of float32 values
// for a single (attribute, timestamp, level) coordinate.
package layer

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/marmos91/oceancache/pkg/axis"
)

// ErrInvalidLayer is returned when raw bytes cannot be decoded into a layer.
var ErrInvalidLayer = errors.New("invalid layer data")

// Key uniquely identifies a layer.
type Key struct {
	Attribute axis.Attribute
	Timestamp axis.Timestamp
	Level     axis.Level
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%g", k.Attribute, k.Timestamp, float64(k.Level))
}

// Layer is an immutable decoded grid.
type Layer struct {
	values []float32
}

// New wraps values in a Layer. The caller must not modify values afterwards.
func New(values []float32) *Layer {
	return &Layer{values: values}
}

// Decode parses a flat little-endian float32 array.
func Decode(data []byte) (*Layer, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("%w: length %d is not a multiple of 4", ErrInvalidLayer, len(data))
	}

	values := make([]float32, len(data)/4)
	for i := range values {
		values[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return &Layer{values: values}, nil
}

// Encode serializes the layer in the on-disk format accepted by Decode.
func (l *Layer) Encode() []byte {
	out := make([]byte, len(l.values)*4)
	for i, v := range l.values {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}

// Values returns the backing array. It is shared and must be treated as
// read-only.
func (l *Layer) Values() []float32 { return l.values }

// Len returns the number of values in the layer.
func (l *Layer) Len() int { return len(l.values) }

// SizeBytes returns the encoded size of the layer.
func (l *Layer) SizeBytes() int { return len(l.values) * 4 }

// Path returns the relative object path of a layer file:
//
//	{attribute}_{year}_{month}_{day}_{hour}_{levelIndex}.bin
//
// Month and day are written without leading zeros. levelIndex is the
// position of the level in the level domain.
func Path(attr axis.Attribute, ts axis.Timestamp, levelIndex int) string {
	return fmt.Sprintf("%s_%d_%d_%d_%d_%d.bin", attr, ts.Year, ts.Month, ts.Day, ts.Hour, levelIndex)
}
