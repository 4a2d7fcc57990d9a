// Package agent holds the movable units, the click selection and the
// commander that turns move orders into per-tick steps.
package agent

import (
	"errors"
	"slices"

	"github.com/google/uuid"
	"github.com/juniorbueno0/coppercaves/internal/core/world/grid"
)

var ErrUnknownAgent = errors.New("agent: unknown agent")

// Agent is a unit standing on one cell, optionally walking a path.
type Agent struct {
	ID   uuid.UUID
	Name string
	Cell grid.Cell

	path    []grid.Cell
	stalled int
}

// Path returns the remaining waypoints.
func (a *Agent) Path() []grid.Cell { return slices.Clone(a.path) }

func (a *Agent) Moving() bool { return len(a.path) > 0 }

// Next returns the next waypoint.
func (a *Agent) Next() (grid.Cell, bool) {
	if len(a.path) == 0 {
		return grid.Cell{}, false
	}
	return a.path[0], true
}

func (a *Agent) setPath(p []grid.Cell) {
	a.path = slices.Clone(p)
	a.stalled = 0
}

func (a *Agent) advance(to grid.Cell) {
	a.Cell = to
	if len(a.path) > 0 && a.path[0] == to {
		a.path = a.path[1:]
	}
	a.stalled = 0
}

func (a *Agent) stop() {
	a.path = nil
	a.stalled = 0
}

// Roster keeps agents in insertion order.
type Roster struct {
	agents []*Agent
	byID   map[uuid.UUID]*Agent
}

func NewRoster() *Roster {
	return &Roster{byID: make(map[uuid.UUID]*Agent)}
}

// Add creates an agent at c.
func (r *Roster) Add(name string, c grid.Cell) *Agent {
	a := &Agent{ID: uuid.New(), Name: name, Cell: c}
	r.agents = append(r.agents, a)
	r.byID[a.ID] = a
	return a
}

// Remove drops an agent; unknown ids are ignored.
func (r *Roster) Remove(id uuid.UUID) {
	if _, ok := r.byID[id]; !ok {
		return
	}
	delete(r.byID, id)
	r.agents = slices.DeleteFunc(r.agents, func(a *Agent) bool { return a.ID == id })
}

func (r *Roster) Get(id uuid.UUID) (*Agent, bool) {
	a, ok := r.byID[id]
	return a, ok
}

func (r *Roster) All() []*Agent { return slices.Clone(r.agents) }

func (r *Roster) Len() int { return len(r.agents) }

// Selection is an ordered set of agent ids.
type Selection struct {
	order []uuid.UUID
}

func NewSelection() *Selection { return &Selection{} }

// Toggle selects or deselects id and reports whether it is now selected.
func (s *Selection) Toggle(id uuid.UUID) bool {
	if i := slices.Index(s.order, id); i >= 0 {
		s.order = slices.Delete(s.order, i, i+1)
		return false
	}
	s.order = append(s.order, id)
	return true
}

func (s *Selection) Contains(id uuid.UUID) bool { return slices.Contains(s.order, id) }

// Selected returns ids in selection order.
func (s *Selection) Selected() []uuid.UUID { return slices.Clone(s.order) }

func (s *Selection) Len() int { return len(s.order) }

func (s *Selection) Clear() { s.order = s.order[:0] }

// Drop removes id if present.
func (s *Selection) Drop(id uuid.UUID) {
	s.order = slices.DeleteFunc(s.order, func(v uuid.UUID) bool { return v == id })
}
