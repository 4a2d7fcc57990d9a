// Package chunk streams fixed-size blocks of terrain in and out around a
// viewpoint.
package chunk

import (
	"iter"
	"maps"
	"slices"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/juniorbueno0/coppercaves/internal/core/world/grid"
	"github.com/juniorbueno0/coppercaves/pkg/sequence"
)

// Set is a set of chunk coordinates.
type Set struct {
	m map[grid.Coord]struct{}
}

func NewSet(coords ...grid.Coord) Set {
	return Set{m: sequence.ToSet(sequence.From(coords))}
}

func (s Set) Contains(c grid.Coord) bool {
	_, ok := s.m[c]
	return ok
}

func (s Set) Len() int { return len(s.m) }

// All yields the coordinates in no particular order.
func (s Set) All() iter.Seq[grid.Coord] { return maps.Keys(s.m) }

// Sorted returns the coordinates ordered by X then Y.
func (s Set) Sorted() []grid.Coord {
	return slices.SortedFunc(maps.Keys(s.m), compareCoord)
}

// Minus returns s \ o in sorted order.
func (s Set) Minus(o Set) []grid.Coord {
	return sequence.FromSeq(s.All()).
		Filter(func(c grid.Coord) bool { return !o.Contains(c) }).
		Sort(grid.Coord.Less).
		Collect()
}

// Equal reports whether both sets hold the same coordinates.
func (s Set) Equal(o Set) bool {
	if s.Len() != o.Len() {
		return false
	}
	return sequence.FromSeq(s.All()).Filter(o.Contains).Count() == s.Len()
}

func compareCoord(a, b grid.Coord) int {
	switch {
	case a.Less(b):
		return -1
	case b.Less(a):
		return 1
	default:
		return 0
	}
}

// Desired returns every chunk within Chebyshev distance radius of the chunk
// containing viewpoint: a (2r+1)² square. A negative radius is treated as 0.
func Desired(geom grid.Geometry, viewpoint mgl64.Vec2, radius int) Set {
	radius = max(radius, 0)
	center := geom.WorldToChunk(viewpoint)
	side := 2*radius + 1
	s := Set{m: make(map[grid.Coord]struct{}, side*side)}
	for i := -radius; i <= radius; i++ {
		for j := -radius; j <= radius; j++ {
			s.m[grid.Coord{X: center.X + i, Y: center.Y + j}] = struct{}{}
		}
	}
	return s
}
