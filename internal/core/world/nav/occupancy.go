package nav

import (
	"errors"

	"github.com/google/uuid"
	"github.com/juniorbueno0/coppercaves/internal/core/observability/log"
	"github.com/juniorbueno0/coppercaves/internal/core/world/grid"
)

var (
	ErrUnknownOccupant = errors.New("nav: unknown occupant")
	ErrAlreadyPlaced   = errors.New("nav: occupant already placed")
	ErrCellOccupied    = errors.New("nav: cell occupied")
	ErrCellClaimed     = errors.New("nav: cell claimed this tick")
	ErrCellBlocked     = errors.New("nav: cell impassable")
)

// Move is an accepted cell change.
type Move struct {
	ID       uuid.UUID
	From, To grid.Cell
}

// Refusal is a move request that was turned down; the occupant keeps its cell.
type Refusal struct {
	Move
	Reason error
}

// MoveReport is the outcome of one Apply.
type MoveReport struct {
	Moved   []Move
	Refused []Refusal
	// Index is the index built for this tick, or the current one if nothing moved.
	Index *Index
}

// Occupancy keeps the cell under every occupant impassable. Requests are
// resolved first come first served and applied with one build per Apply.
// When an occupant leaves a cell, the state the cell had before it was
// occupied is restored.
type Occupancy struct {
	grid   *Grid
	logger log.Log

	cellOf    map[uuid.UUID]grid.Cell
	occupant  map[grid.Cell]uuid.UUID
	prior     map[grid.Cell]NavCell
	order     []uuid.UUID
	requested map[uuid.UUID]grid.Cell
}

func NewOccupancy(g *Grid, logger log.Log) *Occupancy {
	return &Occupancy{
		grid:      g,
		logger:    logger.With(log.String("component", "occupancy")),
		cellOf:    make(map[uuid.UUID]grid.Cell),
		occupant:  make(map[grid.Cell]uuid.UUID),
		prior:     make(map[grid.Cell]NavCell),
		requested: make(map[uuid.UUID]grid.Cell),
	}
}

// Place puts a new occupant on a passable, free cell and rebuilds.
func (o *Occupancy) Place(id uuid.UUID, c grid.Cell) (*Index, error) {
	if _, ok := o.cellOf[id]; ok {
		return nil, ErrAlreadyPlaced
	}
	if _, ok := o.occupant[c]; ok {
		return nil, ErrCellOccupied
	}
	state, ok := o.grid.Get(c)
	if !ok {
		return nil, ErrOutOfBounds
	}
	if !state.IsPassable() {
		return nil, ErrCellBlocked
	}
	o.prior[c] = state
	o.cellOf[id] = c
	o.occupant[c] = id
	return o.grid.Batch().Set(c, Impassable()).Commit(), nil
}

// Remove frees the occupant's cell and rebuilds.
func (o *Occupancy) Remove(id uuid.UUID) (*Index, error) {
	c, ok := o.cellOf[id]
	if !ok {
		return nil, ErrUnknownOccupant
	}
	b := o.grid.Batch().Set(c, o.prior[c])
	delete(o.prior, c)
	delete(o.occupant, c)
	delete(o.cellOf, id)
	delete(o.requested, id)
	return b.Commit(), nil
}

// CellOf returns where an occupant stands.
func (o *Occupancy) CellOf(id uuid.UUID) (grid.Cell, bool) {
	c, ok := o.cellOf[id]
	return c, ok
}

// OccupantAt returns who stands on c.
func (o *Occupancy) OccupantAt(c grid.Cell) (uuid.UUID, bool) {
	id, ok := o.occupant[c]
	return id, ok
}

func (o *Occupancy) IsOccupied(c grid.Cell) bool {
	_, ok := o.occupant[c]
	return ok
}

// Toggle applies the toggle policy to a free cell. Occupied and out of bounds
// cells are left alone and report false.
func (o *Occupancy) Toggle(c grid.Cell) (*Index, bool) {
	if o.IsOccupied(c) {
		return nil, false
	}
	return o.grid.Toggle(c)
}

// RequestMove queues a move for the next Apply. Requests keep the order of
// the first request per occupant; a later request only replaces the target.
func (o *Occupancy) RequestMove(id uuid.UUID, to grid.Cell) {
	if _, ok := o.requested[id]; !ok {
		o.order = append(o.order, id)
	}
	o.requested[id] = to
}

// Pending is the number of queued requests.
func (o *Occupancy) Pending() int { return len(o.order) }

// Apply resolves queued requests in order and writes all accepted moves in a
// single batch. A request is refused when the target is out of bounds,
// impassable, already claimed this tick, or occupied by someone who has not
// moved away earlier in the same Apply.
func (o *Occupancy) Apply() MoveReport {
	var report MoveReport
	claimed := make(map[grid.Cell]struct{})
	vacated := make(map[grid.Cell]struct{})

	for _, id := range o.order {
		to := o.requested[id]
		from, ok := o.cellOf[id]
		if !ok {
			report.Refused = append(report.Refused, Refusal{Move: Move{ID: id, To: to}, Reason: ErrUnknownOccupant})
			continue
		}
		if from == to {
			continue
		}
		if reason := o.check(to, claimed, vacated); reason != nil {
			report.Refused = append(report.Refused, Refusal{Move: Move{ID: id, From: from, To: to}, Reason: reason})
			continue
		}
		claimed[to] = struct{}{}
		vacated[from] = struct{}{}
		report.Moved = append(report.Moved, Move{ID: id, From: from, To: to})
	}
	o.order = o.order[:0]
	clear(o.requested)

	b := o.grid.Batch()
	// Free every old cell before claiming new ones so a cell handed over
	// within the tick keeps its original state as prior.
	freed := make(map[grid.Cell]NavCell, len(report.Moved))
	for _, m := range report.Moved {
		freed[m.From] = o.prior[m.From]
		b.Set(m.From, o.prior[m.From])
		delete(o.prior, m.From)
		delete(o.occupant, m.From)
	}
	for _, m := range report.Moved {
		if state, ok := freed[m.To]; ok {
			o.prior[m.To] = state
		} else {
			o.prior[m.To], _ = o.grid.Get(m.To)
		}
		b.Set(m.To, Impassable())
		o.occupant[m.To] = m.ID
		o.cellOf[m.ID] = m.To
	}
	report.Index = b.Commit()

	for _, r := range report.Refused {
		o.logger.Warn("Move refused",
			log.Stringer("agent", r.ID),
			log.Stringer("to", r.To),
			log.Error(r.Reason))
	}
	return report
}

func (o *Occupancy) check(to grid.Cell, claimed, vacated map[grid.Cell]struct{}) error {
	if _, ok := claimed[to]; ok {
		return ErrCellClaimed
	}
	if _, ok := o.occupant[to]; ok {
		if _, left := vacated[to]; !left {
			return ErrCellOccupied
		}
		if !o.prior[to].IsPassable() {
			return ErrCellBlocked
		}
		return nil
	}
	state, ok := o.grid.Get(to)
	if !ok {
		return ErrOutOfBounds
	}
	if !state.IsPassable() {
		return ErrCellBlocked
	}
	return nil
}
