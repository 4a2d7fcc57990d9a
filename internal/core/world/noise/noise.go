// Package noise provides the deterministic scalar field the world is
// generated from.
package noise

import (
	"github.com/cespare/xxhash/v2"
	"github.com/ojrac/opensimplex-go"
)

// Field is a seeded, continuous noise function with values in [-1, 1].
// It is safe for concurrent use.
type Field struct {
	seed  int64
	scale float64
	src   opensimplex.Noise
}

// New creates a field. Cell coordinates are divided by scale before sampling;
// a non-positive scale samples raw coordinates.
func New(seed int64, scale float64) *Field {
	if scale <= 0 {
		scale = 1
	}
	return &Field{seed: seed, scale: scale, src: opensimplex.New(seed)}
}

// SeedFromPhrase turns free text into a numeric seed.
func SeedFromPhrase(phrase string) int64 {
	return int64(xxhash.Sum64String(phrase))
}

func (f *Field) Seed() int64 { return f.seed }

func (f *Field) Scale() float64 { return f.scale }

// Value evaluates the field at an arbitrary point.
func (f *Field) Value(x, y float64) float64 {
	return f.src.Eval2(x, y)
}

// Sample evaluates the field for an integer cell.
func (f *Field) Sample(cellX, cellY int) float64 {
	return f.Value(float64(cellX)/f.scale, float64(cellY)/f.scale)
}
