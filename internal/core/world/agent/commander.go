package agent

import (
	"errors"

	"github.com/google/uuid"
	"github.com/juniorbueno0/coppercaves/internal/core/observability/log"
	"github.com/juniorbueno0/coppercaves/internal/core/world/grid"
	"github.com/juniorbueno0/coppercaves/internal/core/world/nav"
)

// DefaultMaxStall is how many refused steps in a row an agent tolerates
// before giving up its path.
const DefaultMaxStall = 8

// Pathfinder computes waypoints from one cell to another over a built index.
// The returned path excludes from and ends at to.
type Pathfinder interface {
	FindPath(ix *nav.Index, from, to grid.Cell) ([]grid.Cell, error)
}

// Step is one waypoint an agent wants to enter this tick.
type Step struct {
	ID uuid.UUID
	To grid.Cell
}

// Failure is a selected agent whose path request failed.
type Failure struct {
	ID  uuid.UUID
	Err error
}

// CommandReport is the outcome of IssueMove.
type CommandReport struct {
	Issued []uuid.UUID
	Failed []Failure
}

// Commander issues move orders for the selection and feeds the resulting
// waypoints to the occupancy tracker one step per tick.
type Commander struct {
	finder    Pathfinder
	roster    *Roster
	selection *Selection
	logger    log.Log

	MaxStall int
}

func NewCommander(finder Pathfinder, roster *Roster, selection *Selection, logger log.Log) *Commander {
	return &Commander{
		finder:    finder,
		roster:    roster,
		selection: selection,
		logger:    logger.With(log.String("component", "commander")),
		MaxStall:  DefaultMaxStall,
	}
}

// IssueMove requests a path to target for every selected agent, in selection
// order. Each new path replaces whatever the agent was walking. An empty
// selection does nothing.
func (c *Commander) IssueMove(ix *nav.Index, target grid.Cell) CommandReport {
	var report CommandReport
	for _, id := range c.selection.Selected() {
		a, ok := c.roster.Get(id)
		if !ok {
			report.Failed = append(report.Failed, Failure{ID: id, Err: ErrUnknownAgent})
			continue
		}
		path, err := c.finder.FindPath(ix, a.Cell, target)
		if err != nil {
			a.stop()
			report.Failed = append(report.Failed, Failure{ID: id, Err: err})
			c.logger.Debug("Path request failed",
				log.Stringer("agent", id),
				log.Stringer("target", target),
				log.Error(err))
			continue
		}
		a.setPath(path)
		report.Issued = append(report.Issued, id)
	}
	return report
}

// NextSteps returns the next waypoint of every moving agent. Selected agents
// come first in selection order, then the rest in roster order.
func (c *Commander) NextSteps() []Step {
	var steps []Step
	seen := make(map[uuid.UUID]struct{})
	add := func(a *Agent) {
		if _, dup := seen[a.ID]; dup {
			return
		}
		seen[a.ID] = struct{}{}
		if to, ok := a.Next(); ok {
			steps = append(steps, Step{ID: a.ID, To: to})
		}
	}
	for _, id := range c.selection.Selected() {
		if a, ok := c.roster.Get(id); ok {
			add(a)
		}
	}
	for _, a := range c.roster.All() {
		add(a)
	}
	return steps
}

// Resolve applies an occupancy report: moved agents advance, agents facing a
// wall drop their path, agents that waited too long give up.
func (c *Commander) Resolve(report nav.MoveReport) {
	for _, m := range report.Moved {
		if a, ok := c.roster.Get(m.ID); ok {
			a.advance(m.To)
		}
	}
	for _, r := range report.Refused {
		a, ok := c.roster.Get(r.ID)
		if !ok {
			continue
		}
		if errors.Is(r.Reason, nav.ErrCellBlocked) || errors.Is(r.Reason, nav.ErrOutOfBounds) {
			a.stop()
			continue
		}
		a.stalled++
		if c.MaxStall > 0 && a.stalled >= c.MaxStall {
			c.logger.Warn("Agent gave up path", log.Stringer("agent", a.ID), log.Int("stalled", a.stalled))
			a.stop()
		}
	}
}
