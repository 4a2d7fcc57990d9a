// Package nav keeps per-cell passability for pathfinding and turns it into an
// immutable, queryable Index.
//
// Writes never affect queries directly. Every Set marks the grid dirty and
// Index refuses to hand out an index until Build has run, so a path request
// can not see a half-applied edit.
package nav

import (
	"errors"
	"fmt"
	"sync"

	"github.com/juniorbueno0/coppercaves/internal/core/events/bus"
	"github.com/juniorbueno0/coppercaves/internal/core/observability/log"
	"github.com/juniorbueno0/coppercaves/internal/core/world/grid"
)

var (
	// ErrStaleIndex is returned by Grid.Index while writes are pending.
	ErrStaleIndex  = errors.New("nav: index is stale, build required")
	ErrOutOfBounds = errors.New("nav: cell out of bounds")
)

// EventRebuilt is published after every Build with a RebuiltEvent payload.
const EventRebuilt = "nav.rebuilt"

// NavCell is the state of one cell: impassable, or passable with a positive
// cost. The zero value is impassable.
type NavCell struct {
	cost int
}

func Impassable() NavCell { return NavCell{} }

// Passable returns a passable cell. Costs below 1 are raised to 1.
func Passable(cost int) NavCell { return NavCell{cost: max(cost, 1)} }

func (c NavCell) IsPassable() bool { return c.cost > 0 }

// Cost is the weight of entering the cell, or 0 when impassable.
func (c NavCell) Cost() int { return c.cost }

// Toggled applies the toggle policy: impassable becomes Passable(1),
// anything else becomes impassable.
func (c NavCell) Toggled() NavCell {
	if c.IsPassable() {
		return Impassable()
	}
	return Passable(1)
}

func (c NavCell) String() string {
	if !c.IsPassable() {
		return "impassable"
	}
	return fmt.Sprintf("passable(%d)", c.cost)
}

// Bounds is the rectangle of addressable cells.
type Bounds struct {
	MinX, MinY    int
	Width, Height int
}

func (b Bounds) Contains(c grid.Cell) bool {
	return c.X >= b.MinX && c.X < b.MinX+b.Width && c.Y >= b.MinY && c.Y < b.MinY+b.Height
}

func (b Bounds) Len() int { return b.Width * b.Height }

func (b Bounds) offset(c grid.Cell) int {
	return (c.Y-b.MinY)*b.Width + (c.X - b.MinX)
}

func (b Bounds) cellAt(i int) grid.Cell {
	return grid.Cell{X: b.MinX + i%b.Width, Y: b.MinY + i/b.Width}
}

// Dirty identifies a write. An index covers the write once it was built
// after it.
type Dirty struct {
	Write uint64
}

// RebuiltEvent is the payload of EventRebuilt.
type RebuiltEvent struct {
	Generation uint64
	Components int
}

// Grid owns the cell states of a bounded region. Cells never written hold
// Passable(1). It is safe for concurrent use.
type Grid struct {
	mu     sync.RWMutex
	bounds Bounds
	cells  []NavCell

	writes uint64
	built  uint64
	index  *Index

	logger log.Log
	events bus.EventBus
}

// NewGrid creates a grid with every cell Passable(1). It starts dirty: Build
// must run before the first query. events may be nil.
func NewGrid(bounds Bounds, logger log.Log, events bus.EventBus) *Grid {
	cells := make([]NavCell, max(bounds.Len(), 0))
	for i := range cells {
		cells[i] = Passable(1)
	}
	return &Grid{
		bounds: bounds,
		cells:  cells,
		writes: 1,
		logger: logger.With(log.String("component", "nav_grid")),
		events: events,
	}
}

func (g *Grid) Bounds() Bounds { return g.bounds }

// Get returns the state of a cell, or false outside the bounds.
func (g *Grid) Get(c grid.Cell) (NavCell, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.get(c)
}

func (g *Grid) get(c grid.Cell) (NavCell, bool) {
	if !g.bounds.Contains(c) {
		return NavCell{}, false
	}
	return g.cells[g.bounds.offset(c)], true
}

// Set records a new state for a cell. Out of bounds writes are ignored and
// report false.
func (g *Grid) Set(c grid.Cell, v NavCell) (Dirty, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.set(c, v)
}

func (g *Grid) set(c grid.Cell, v NavCell) (Dirty, bool) {
	if !g.bounds.Contains(c) {
		return Dirty{Write: g.writes}, false
	}
	g.writes++
	g.cells[g.bounds.offset(c)] = v
	return Dirty{Write: g.writes}, true
}

// IsDirty reports whether writes happened since the last Build.
func (g *Grid) IsDirty() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.built != g.writes
}

// Build recomputes the index from the current cell states.
func (g *Grid) Build() *Index {
	g.mu.Lock()
	ix := g.build()
	g.mu.Unlock()

	g.publish(ix)
	return ix
}

func (g *Grid) build() *Index {
	var gen uint64 = 1
	if g.index != nil {
		gen = g.index.generation + 1
	}
	ix := newIndex(g.bounds, g.cells, gen, g.writes)
	g.index = ix
	g.built = g.writes
	return ix
}

func (g *Grid) publish(ix *Index) {
	g.logger.Debug("Navigation index rebuilt",
		log.Uint64("generation", ix.generation),
		log.Int("components", ix.components))
	if g.events == nil {
		return
	}
	err := g.events.Publish(bus.NewEvent(EventRebuilt, "nav_grid", RebuiltEvent{
		Generation: ix.generation,
		Components: ix.components,
	}))
	if err != nil {
		g.logger.Warn("Navigation event handler failed", log.Error(err))
	}
}

// Index returns the last built index, or ErrStaleIndex if writes are pending
// or nothing was built yet.
func (g *Grid) Index() (*Index, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.index == nil || g.built != g.writes {
		return nil, ErrStaleIndex
	}
	return g.index, nil
}

// Toggle flips a cell with the toggle policy and rebuilds. It reports false,
// without building, for cells out of bounds.
func (g *Grid) Toggle(c grid.Cell) (*Index, bool) {
	if !g.bounds.Contains(c) {
		return nil, false
	}
	return g.Batch().Toggle(c).Commit(), true
}

// Populate classifies every cell: obstacles become impassable and the rest
// Passable(cost). It does not build.
func (g *Grid) Populate(obstacle func(grid.Cell) bool, cost int) Dirty {
	g.mu.Lock()
	defer g.mu.Unlock()
	var d Dirty
	for i := range g.cells {
		c := g.bounds.cellAt(i)
		if obstacle(c) {
			d, _ = g.set(c, Impassable())
		} else {
			d, _ = g.set(c, Passable(cost))
		}
	}
	if len(g.cells) == 0 {
		d = Dirty{Write: g.writes}
	}
	g.logger.Info("Navigation grid populated",
		log.Int("width", g.bounds.Width),
		log.Int("height", g.bounds.Height))
	return d
}

// Batch starts a group of writes applied with a single build.
func (g *Grid) Batch() *Batch {
	return &Batch{grid: g}
}
