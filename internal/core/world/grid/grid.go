// Package grid holds the pure coordinate math shared by chunk streaming and
// the navigation overlay. World positions are pixel-space vectors, cells are
// integer tiles and chunks are square blocks of ChunkSize×ChunkSize cells.
package grid

import (
	"fmt"
	"iter"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Cell addresses one tile of the world grid.
type Cell struct {
	X, Y int
}

func (c Cell) String() string { return fmt.Sprintf("(%d,%d)", c.X, c.Y) }

// Add offsets a cell.
func (c Cell) Add(dx, dy int) Cell { return Cell{X: c.X + dx, Y: c.Y + dy} }

// Coord identifies one chunk.
type Coord struct {
	X, Y int
}

func (c Coord) String() string { return fmt.Sprintf("[%d,%d]", c.X, c.Y) }

// Less orders coordinates by X then Y.
func (c Coord) Less(o Coord) bool {
	if c.X != o.X {
		return c.X < o.X
	}
	return c.Y < o.Y
}

// Chebyshev returns the chessboard distance between two chunk coordinates.
func (c Coord) Chebyshev(o Coord) int {
	return max(abs(c.X-o.X), abs(c.Y-o.Y))
}

// Geometry fixes chunk size (cells per side) and tile size (pixels per cell).
type Geometry struct {
	ChunkSize int
	TileSize  int
}

// ChunkPixels is the side length of one chunk in world units.
func (g Geometry) ChunkPixels() int { return g.ChunkSize * g.TileSize }

// WorldToChunk floors a world position to the chunk containing it.
func (g Geometry) WorldToChunk(pos mgl64.Vec2) Coord {
	size := float64(g.ChunkPixels())
	return Coord{
		X: int(math.Floor(pos.X() / size)),
		Y: int(math.Floor(pos.Y() / size)),
	}
}

// PixelToCell floors a world position to the tile under it.
func (g Geometry) PixelToCell(pos mgl64.Vec2) Cell {
	size := float64(g.TileSize)
	return Cell{
		X: int(math.Floor(pos.X() / size)),
		Y: int(math.Floor(pos.Y() / size)),
	}
}

// CellCenter returns the world position of the middle of a cell.
func (g Geometry) CellCenter(c Cell) mgl64.Vec2 {
	size := float64(g.TileSize)
	return mgl64.Vec2{(float64(c.X) + 0.5) * size, (float64(c.Y) + 0.5) * size}
}

// ChunkOrigin returns the world position of the chunk's lowest corner.
func (g Geometry) ChunkOrigin(c Coord) mgl64.Vec2 {
	size := float64(g.ChunkPixels())
	return mgl64.Vec2{float64(c.X) * size, float64(c.Y) * size}
}

// OriginCell is the first cell of a chunk.
func (g Geometry) OriginCell(c Coord) Cell {
	return Cell{X: c.X * g.ChunkSize, Y: c.Y * g.ChunkSize}
}

// CellToChunk returns the chunk owning a cell.
func (g Geometry) CellToChunk(c Cell) Coord {
	return Coord{X: FloorDiv(c.X, g.ChunkSize), Y: FloorDiv(c.Y, g.ChunkSize)}
}

// LocalCell returns a cell's position inside its chunk, each axis in [0, ChunkSize).
func (g Geometry) LocalCell(c Cell) (lx, ly int) {
	return Mod(c.X, g.ChunkSize), Mod(c.Y, g.ChunkSize)
}

// Cells enumerates the ChunkSize² cells of a chunk, row by row.
func (g Geometry) Cells(c Coord) iter.Seq[Cell] {
	origin := g.OriginCell(c)
	n := g.ChunkSize
	return func(yield func(Cell) bool) {
		for ly := 0; ly < n; ly++ {
			for lx := 0; lx < n; lx++ {
				if !yield(Cell{X: origin.X + lx, Y: origin.Y + ly}) {
					return
				}
			}
		}
	}
}

// FloorDiv divides rounding toward negative infinity.
func FloorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// Mod returns a non-negative remainder for positive b.
func Mod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
