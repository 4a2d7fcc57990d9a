// Package pathfind is the default path collaborator: A* over a nav.Index.
package pathfind

import (
	"errors"

	"github.com/juniorbueno0/coppercaves/internal/core/world/grid"
	"github.com/juniorbueno0/coppercaves/internal/core/world/nav"
	"github.com/juniorbueno0/coppercaves/pkg/sequence"
)

var (
	ErrNoPath   = errors.New("pathfind: no path")
	ErrNilIndex = errors.New("pathfind: nil index")
)

// AStar finds cheapest 4-connected paths. The cost of a step is the cost of
// the cell entered; the heuristic is Manhattan distance.
type AStar struct {
	// MaxExpanded caps visited cells per search. Zero means the whole index.
	MaxExpanded int
}

func New() *AStar { return &AStar{} }

// FindPath returns the waypoints after from, ending at to. from may be
// impassable, since an agent blocks its own cell. A search for from == to
// returns no waypoints.
func (a *AStar) FindPath(ix *nav.Index, from, to grid.Cell) ([]grid.Cell, error) {
	if ix == nil {
		return nil, ErrNilIndex
	}
	if from == to {
		return nil, nil
	}
	if !ix.Reachable(from, to) {
		return nil, ErrNoPath
	}

	limit := a.MaxExpanded
	if limit <= 0 {
		limit = ix.Bounds().Len()
	}

	open := sequence.NewMinPriorityQueue[grid.Cell]()
	queued := map[grid.Cell]*sequence.PriorityItem[grid.Cell]{}
	g := map[grid.Cell]int{from: 0}
	came := map[grid.Cell]grid.Cell{}
	closed := map[grid.Cell]bool{}
	queued[from] = open.Enqueue(from, manhattan(from, to))

	for !open.IsEmpty() && len(closed) < limit {
		cur, _ := open.Dequeue()
		delete(queued, cur)
		closed[cur] = true
		if cur == to {
			return reconstruct(came, from, to), nil
		}
		for _, nb := range ix.Neighbors(cur) {
			if closed[nb] {
				continue
			}
			step, _ := ix.Cost(nb)
			tentative := g[cur] + step
			if old, ok := g[nb]; !ok || tentative < old {
				g[nb] = tentative
				came[nb] = cur
				if item, ok := queued[nb]; ok {
					open.Update(item, nb, tentative+manhattan(nb, to))
				} else {
					queued[nb] = open.Enqueue(nb, tentative+manhattan(nb, to))
				}
			}
		}
	}
	return nil, ErrNoPath
}

func reconstruct(came map[grid.Cell]grid.Cell, from, to grid.Cell) []grid.Cell {
	path := []grid.Cell{to}
	for c := came[to]; c != from; c = came[c] {
		path = append(path, c)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

func manhattan(a, b grid.Cell) int {
	dx, dy := a.X-b.X, a.Y-b.Y
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	return dx + dy
}
