package nav

import "github.com/juniorbueno0/coppercaves/internal/core/world/grid"

var cardinals = [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}

// Index is an immutable snapshot of the grid: a dense cost table plus
// 4-connected component labels over passable cells.
type Index struct {
	bounds     Bounds
	cost       []int
	label      []int32
	components int
	generation uint64
	writes     uint64
}

func newIndex(bounds Bounds, cells []NavCell, generation, writes uint64) *Index {
	ix := &Index{
		bounds:     bounds,
		cost:       make([]int, len(cells)),
		label:      make([]int32, len(cells)),
		generation: generation,
		writes:     writes,
	}
	for i, c := range cells {
		ix.cost[i] = c.cost
		ix.label[i] = -1
	}

	queue := make([]int, 0, 64)
	for start := range ix.cost {
		if ix.cost[start] == 0 || ix.label[start] >= 0 {
			continue
		}
		id := int32(ix.components)
		ix.components++
		ix.label[start] = id
		queue = append(queue[:0], start)
		for len(queue) > 0 {
			i := queue[len(queue)-1]
			queue = queue[:len(queue)-1]
			c := bounds.cellAt(i)
			for _, d := range cardinals {
				n := grid.Cell{X: c.X + d[0], Y: c.Y + d[1]}
				if !bounds.Contains(n) {
					continue
				}
				j := bounds.offset(n)
				if ix.cost[j] == 0 || ix.label[j] >= 0 {
					continue
				}
				ix.label[j] = id
				queue = append(queue, j)
			}
		}
	}
	return ix
}

func (ix *Index) Bounds() Bounds { return ix.bounds }

// Generation counts builds; the first build is generation 1.
func (ix *Index) Generation() uint64 { return ix.generation }

// Components is the number of connected passable regions.
func (ix *Index) Components() int { return ix.components }

// Covers reports whether the write behind d is reflected in this index.
func (ix *Index) Covers(d Dirty) bool { return ix.writes >= d.Write }

// Cell returns the state captured for c, or false out of bounds.
func (ix *Index) Cell(c grid.Cell) (NavCell, bool) {
	if !ix.bounds.Contains(c) {
		return NavCell{}, false
	}
	return NavCell{cost: ix.cost[ix.bounds.offset(c)]}, true
}

func (ix *Index) Passable(c grid.Cell) bool {
	return ix.bounds.Contains(c) && ix.cost[ix.bounds.offset(c)] > 0
}

// Cost of entering c; false if c is impassable or out of bounds.
func (ix *Index) Cost(c grid.Cell) (int, bool) {
	if !ix.Passable(c) {
		return 0, false
	}
	return ix.cost[ix.bounds.offset(c)], true
}

// Neighbors returns the passable cardinal neighbours of c.
func (ix *Index) Neighbors(c grid.Cell) []grid.Cell {
	out := make([]grid.Cell, 0, 4)
	for _, d := range cardinals {
		n := grid.Cell{X: c.X + d[0], Y: c.Y + d[1]}
		if ix.Passable(n) {
			out = append(out, n)
		}
	}
	return out
}

// Component returns the region label of a passable cell.
func (ix *Index) Component(c grid.Cell) (int, bool) {
	if !ix.Passable(c) {
		return 0, false
	}
	return int(ix.label[ix.bounds.offset(c)]), true
}

// Connected reports whether both cells are passable and in the same region.
func (ix *Index) Connected(a, b grid.Cell) bool {
	ca, ok := ix.Component(a)
	if !ok {
		return false
	}
	cb, ok := ix.Component(b)
	return ok && ca == cb
}

// Reachable reports whether b can be reached by walking out of a. Unlike
// Connected, a itself may be blocked, as when an agent stands on it.
func (ix *Index) Reachable(a, b grid.Cell) bool {
	if a == b {
		return ix.bounds.Contains(a)
	}
	cb, ok := ix.Component(b)
	if !ok {
		return false
	}
	if ca, ok := ix.Component(a); ok {
		return ca == cb
	}
	for _, n := range ix.Neighbors(a) {
		if cn, _ := ix.Component(n); cn == cb {
			return true
		}
	}
	return false
}
