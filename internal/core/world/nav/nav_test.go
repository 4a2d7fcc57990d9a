package nav

import (
	"testing"

	"github.com/google/uuid"
	"github.com/juniorbueno0/coppercaves/internal/core/events/bus"
	"github.com/juniorbueno0/coppercaves/internal/core/observability/log"
	"github.com/juniorbueno0/coppercaves/internal/core/world/grid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGrid(w, h int) *Grid {
	return NewGrid(Bounds{Width: w, Height: h}, log.NewNop(), nil)
}

func cell(x, y int) grid.Cell { return grid.Cell{X: x, Y: y} }

func TestGetDefaultsAndBounds(t *testing.T) {
	g := NewGrid(Bounds{MinX: -2, MinY: -2, Width: 4, Height: 4}, log.NewNop(), nil)

	v, ok := g.Get(cell(-2, 1))
	require.True(t, ok)
	assert.Equal(t, Passable(1), v)

	_, ok = g.Get(cell(2, 0))
	assert.False(t, ok)
	_, ok = g.Get(cell(0, -3))
	assert.False(t, ok)

	_, applied := g.Set(cell(5, 5), Impassable())
	assert.False(t, applied)
}

func TestPassableClampsCost(t *testing.T) {
	assert.Equal(t, 1, Passable(0).Cost())
	assert.Equal(t, 1, Passable(-4).Cost())
	assert.Equal(t, 7, Passable(7).Cost())
	assert.False(t, Impassable().IsPassable())
	assert.Equal(t, "passable(7)", Passable(7).String())
	assert.Equal(t, "impassable", Impassable().String())
}

func TestIndexKeepsLargeCosts(t *testing.T) {
	g := newGrid(3, 1)
	g.Set(cell(1, 0), Passable(1<<31))
	g.Set(cell(2, 0), Passable(1<<32))
	ix := g.Build()

	for _, c := range []grid.Cell{cell(1, 0), cell(2, 0)} {
		want, ok := g.Get(c)
		require.True(t, ok)
		got, ok := ix.Cell(c)
		require.True(t, ok)
		assert.Equal(t, want, got, "cell %s", c)
		assert.True(t, ix.Passable(c))
		cost, ok := ix.Cost(c)
		require.True(t, ok)
		assert.Equal(t, want.Cost(), cost)
	}
	assert.True(t, ix.Connected(cell(0, 0), cell(2, 0)))
	assert.Equal(t, 1, ix.Components())
}

func TestIndexIsStaleUntilBuilt(t *testing.T) {
	g := newGrid(10, 10)

	_, err := g.Index()
	assert.ErrorIs(t, err, ErrStaleIndex)

	first := g.Build()
	ix, err := g.Index()
	require.NoError(t, err)
	assert.Same(t, first, ix)
	assert.Equal(t, uint64(1), ix.Generation())

	d, ok := g.Set(cell(3, 3), Impassable())
	require.True(t, ok)
	assert.True(t, g.IsDirty())
	_, err = g.Index()
	assert.ErrorIs(t, err, ErrStaleIndex)
	assert.False(t, first.Covers(d))
	assert.True(t, first.Passable(cell(3, 3)))

	second := g.Build()
	assert.True(t, second.Covers(d))
	assert.False(t, second.Passable(cell(3, 3)))
	assert.Equal(t, uint64(2), second.Generation())
	assert.False(t, g.IsDirty())
}

func TestToggleScenario(t *testing.T) {
	g := newGrid(10, 10)
	g.Build()
	target := cell(5, 5)

	v, _ := g.Get(target)
	require.Equal(t, Passable(1), v)

	ix, ok := g.Toggle(target)
	require.True(t, ok)
	v, _ = g.Get(target)
	assert.Equal(t, Impassable(), v)
	assert.False(t, ix.Passable(target))

	ix, ok = g.Toggle(target)
	require.True(t, ok)
	v, _ = g.Get(target)
	assert.Equal(t, Passable(1), v)
	assert.True(t, ix.Passable(target))

	_, ok = g.Toggle(cell(10, 0))
	assert.False(t, ok)
}

func TestToggleIsSelfInverse(t *testing.T) {
	g := newGrid(6, 6)
	g.Set(cell(1, 1), Impassable())
	g.Set(cell(2, 2), Passable(1))
	g.Build()

	for _, c := range []grid.Cell{cell(0, 0), cell(1, 1), cell(2, 2)} {
		before, _ := g.Get(c)
		g.Toggle(c)
		g.Toggle(c)
		after, _ := g.Get(c)
		assert.Equal(t, before, after, "cell %v", c)
	}
}

func TestToggleOfCostlyCellBecomesWall(t *testing.T) {
	g := newGrid(3, 3)
	g.Set(cell(1, 1), Passable(5))
	g.Toggle(cell(1, 1))
	v, _ := g.Get(cell(1, 1))
	assert.Equal(t, Impassable(), v)
	g.Toggle(cell(1, 1))
	v, _ = g.Get(cell(1, 1))
	assert.Equal(t, Passable(1), v)
}

func TestBatchEqualsIndividualBuilds(t *testing.T) {
	writes := []struct {
		c grid.Cell
		v NavCell
	}{
		{cell(0, 1), Impassable()},
		{cell(1, 1), Impassable()},
		{cell(2, 1), Passable(3)},
		{cell(3, 1), Impassable()},
		{cell(1, 1), Passable(2)},
		{cell(4, 4), Impassable()},
	}

	one := newGrid(5, 5)
	var last *Index
	for _, w := range writes {
		one.Set(w.c, w.v)
		last = one.Build()
	}

	batched := newGrid(5, 5)
	b := batched.Batch()
	for _, w := range writes {
		b.Set(w.c, w.v)
	}
	assert.Equal(t, len(writes), b.Len())
	ix := b.Commit()
	assert.Equal(t, uint64(1), ix.Generation())

	for y := 0; y < 5; y++ {
		for x := 0; x < 5; x++ {
			c := cell(x, y)
			a, _ := last.Cell(c)
			bb, _ := ix.Cell(c)
			assert.Equal(t, a, bb, "cell %v", c)
			ca, _ := last.Component(c)
			cb, _ := ix.Component(c)
			assert.Equal(t, ca, cb, "component %v", c)
		}
	}
	assert.Equal(t, last.Components(), ix.Components())
}

func TestBatchToggleSeesEarlierWrites(t *testing.T) {
	g := newGrid(3, 3)
	ix := g.Batch().Set(cell(0, 0), Impassable()).Toggle(cell(0, 0)).Commit()
	assert.True(t, ix.Passable(cell(0, 0)))
}

func TestEmptyCommitOnCleanGridDoesNotBuild(t *testing.T) {
	g := newGrid(3, 3)
	first := g.Build()
	assert.Same(t, first, g.Batch().Commit())
}

func TestConnectivity(t *testing.T) {
	// A wall down column 2 splits the grid in two.
	g := newGrid(5, 3)
	b := g.Batch()
	for y := 0; y < 3; y++ {
		b.Set(cell(2, y), Impassable())
	}
	ix := b.Commit()

	assert.Equal(t, 2, ix.Components())
	assert.True(t, ix.Connected(cell(0, 0), cell(1, 2)))
	assert.False(t, ix.Connected(cell(0, 0), cell(4, 0)))
	assert.False(t, ix.Connected(cell(2, 0), cell(2, 0)))
	assert.ElementsMatch(t, []grid.Cell{cell(1, 0), cell(0, 1)}, ix.Neighbors(cell(0, 0)))
	assert.ElementsMatch(t, []grid.Cell{cell(0, 1), cell(1, 0), cell(1, 2)}, ix.Neighbors(cell(1, 1)))

	cost, ok := ix.Cost(cell(0, 0))
	assert.True(t, ok)
	assert.Equal(t, 1, cost)
	_, ok = ix.Cost(cell(2, 1))
	assert.False(t, ok)

	// Opening a gap joins the regions.
	ix, _ = g.Toggle(cell(2, 1))
	assert.Equal(t, 1, ix.Components())
	assert.True(t, ix.Connected(cell(0, 0), cell(4, 2)))
}

func TestReachableFromBlockedStart(t *testing.T) {
	g := newGrid(4, 1)
	ix := g.Batch().Set(cell(0, 0), Impassable()).Commit()

	assert.True(t, ix.Reachable(cell(0, 0), cell(3, 0)))
	assert.False(t, ix.Reachable(cell(3, 0), cell(0, 0)))
	assert.True(t, ix.Reachable(cell(0, 0), cell(0, 0)))
}

func TestPopulate(t *testing.T) {
	g := newGrid(4, 4)
	d := g.Populate(func(c grid.Cell) bool { return c.X == c.Y }, 3)
	assert.True(t, g.IsDirty())

	ix := g.Build()
	assert.True(t, ix.Covers(d))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			v, _ := g.Get(cell(x, y))
			if x == y {
				assert.Equal(t, Impassable(), v)
			} else {
				assert.Equal(t, Passable(3), v)
			}
		}
	}
}

func TestRebuildPublishesEvent(t *testing.T) {
	b := bus.New()
	var got []RebuiltEvent
	_, err := b.Subscribe(EventRebuilt, func(e bus.Event) error {
		got = append(got, e.Data().(RebuiltEvent))
		return nil
	})
	require.NoError(t, err)

	g := NewGrid(Bounds{Width: 2, Height: 2}, log.NewNop(), b)
	g.Build()
	g.Toggle(cell(0, 0))

	require.Len(t, got, 2)
	assert.Equal(t, uint64(1), got[0].Generation)
	assert.Equal(t, uint64(2), got[1].Generation)
	assert.Equal(t, 1, got[1].Components)
}

func TestOccupancyMoveScenario(t *testing.T) {
	g := newGrid(10, 10)
	g.Build()
	occ := NewOccupancy(g, log.NewNop())
	id := uuid.New()

	_, err := occ.Place(id, cell(2, 2))
	require.NoError(t, err)
	v, _ := g.Get(cell(2, 2))
	assert.Equal(t, Impassable(), v)

	occ.RequestMove(id, cell(3, 2))
	report := occ.Apply()

	require.Len(t, report.Moved, 1)
	assert.Empty(t, report.Refused)
	v, _ = g.Get(cell(2, 2))
	assert.Equal(t, Passable(1), v)
	v, _ = g.Get(cell(3, 2))
	assert.Equal(t, Impassable(), v)

	ix, err := g.Index()
	require.NoError(t, err)
	assert.Same(t, report.Index, ix)
	assert.True(t, ix.Passable(cell(2, 2)))
	assert.False(t, ix.Passable(cell(3, 2)))

	at, ok := occ.CellOf(id)
	require.True(t, ok)
	assert.Equal(t, cell(3, 2), at)
}

func TestOccupancyOneBuildPerApply(t *testing.T) {
	g := newGrid(10, 10)
	g.Build()
	occ := NewOccupancy(g, log.NewNop())
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	for i, id := range ids {
		_, err := occ.Place(id, cell(i, 0))
		require.NoError(t, err)
	}
	before, err := g.Index()
	require.NoError(t, err)

	for i, id := range ids {
		occ.RequestMove(id, cell(i, 1))
	}
	report := occ.Apply()

	assert.Len(t, report.Moved, 3)
	assert.Equal(t, before.Generation()+1, report.Index.Generation())
}

func TestOccupancyFirstComeFirstServed(t *testing.T) {
	g := newGrid(10, 10)
	g.Build()
	occ := NewOccupancy(g, log.NewNop())
	first, second := uuid.New(), uuid.New()
	_, err := occ.Place(first, cell(1, 1))
	require.NoError(t, err)
	_, err = occ.Place(second, cell(3, 1))
	require.NoError(t, err)

	occ.RequestMove(first, cell(2, 1))
	occ.RequestMove(second, cell(2, 1))
	report := occ.Apply()

	require.Len(t, report.Moved, 1)
	assert.Equal(t, first, report.Moved[0].ID)
	require.Len(t, report.Refused, 1)
	assert.Equal(t, second, report.Refused[0].ID)
	assert.ErrorIs(t, report.Refused[0].Reason, ErrCellClaimed)

	at, _ := occ.CellOf(second)
	assert.Equal(t, cell(3, 1), at)
}

func TestOccupancyFollowTheLeader(t *testing.T) {
	g := newGrid(10, 10)
	g.Build()
	occ := NewOccupancy(g, log.NewNop())
	lead, follow := uuid.New(), uuid.New()
	_, err := occ.Place(lead, cell(2, 0))
	require.NoError(t, err)
	_, err = occ.Place(follow, cell(1, 0))
	require.NoError(t, err)

	// The follower asks first: the leader has not left yet.
	occ.RequestMove(follow, cell(2, 0))
	occ.RequestMove(lead, cell(3, 0))
	report := occ.Apply()
	require.Len(t, report.Refused, 1)
	assert.ErrorIs(t, report.Refused[0].Reason, ErrCellOccupied)

	// In leader-first order both move, and the handed over cell stays blocked.
	occ.RequestMove(lead, cell(4, 0))
	occ.RequestMove(follow, cell(3, 0))
	report = occ.Apply()
	assert.Len(t, report.Moved, 2)
	assert.Empty(t, report.Refused)

	for _, c := range []grid.Cell{cell(3, 0), cell(4, 0)} {
		v, _ := g.Get(c)
		assert.Equal(t, Impassable(), v, "cell %v", c)
	}
	for _, c := range []grid.Cell{cell(1, 0), cell(2, 0)} {
		v, _ := g.Get(c)
		assert.Equal(t, Passable(1), v, "cell %v", c)
	}

	// The follower eventually leaves the handed over cell and it is restored.
	occ.RequestMove(follow, cell(3, 1))
	occ.Apply()
	v, _ := g.Get(cell(3, 0))
	assert.Equal(t, Passable(1), v)
}

func TestOccupancyRestoresPriorState(t *testing.T) {
	g := newGrid(5, 5)
	g.Set(cell(1, 1), Passable(4))
	g.Build()
	occ := NewOccupancy(g, log.NewNop())
	id := uuid.New()
	_, err := occ.Place(id, cell(0, 1))
	require.NoError(t, err)

	occ.RequestMove(id, cell(1, 1))
	occ.Apply()
	occ.RequestMove(id, cell(2, 1))
	occ.Apply()

	v, _ := g.Get(cell(1, 1))
	assert.Equal(t, Passable(4), v)
}

func TestOccupancyRefusals(t *testing.T) {
	g := newGrid(5, 5)
	g.Set(cell(4, 4), Impassable())
	g.Build()
	occ := NewOccupancy(g, log.NewNop())
	id := uuid.New()
	_, err := occ.Place(id, cell(0, 0))
	require.NoError(t, err)

	cases := []struct {
		to   grid.Cell
		want error
	}{
		{cell(4, 4), ErrCellBlocked},
		{cell(-1, 0), ErrOutOfBounds},
	}
	for _, c := range cases {
		occ.RequestMove(id, c.to)
		report := occ.Apply()
		require.Len(t, report.Refused, 1)
		assert.ErrorIs(t, report.Refused[0].Reason, c.want)
	}

	occ.RequestMove(uuid.New(), cell(1, 1))
	report := occ.Apply()
	require.Len(t, report.Refused, 1)
	assert.ErrorIs(t, report.Refused[0].Reason, ErrUnknownOccupant)

	_, err = occ.Place(id, cell(2, 2))
	assert.ErrorIs(t, err, ErrAlreadyPlaced)
	_, err = occ.Place(uuid.New(), cell(0, 0))
	assert.ErrorIs(t, err, ErrCellOccupied)
	_, err = occ.Place(uuid.New(), cell(4, 4))
	assert.ErrorIs(t, err, ErrCellBlocked)
	_, err = occ.Place(uuid.New(), cell(9, 9))
	assert.ErrorIs(t, err, ErrOutOfBounds)
}

func TestToggleOccupiedCellIsNoop(t *testing.T) {
	g := newGrid(5, 5)
	g.Build()
	occ := NewOccupancy(g, log.NewNop())
	_, err := occ.Place(uuid.New(), cell(2, 2))
	require.NoError(t, err)

	_, ok := occ.Toggle(cell(2, 2))
	assert.False(t, ok)
	v, _ := g.Get(cell(2, 2))
	assert.Equal(t, Impassable(), v)

	_, ok = occ.Toggle(cell(3, 3))
	assert.True(t, ok)
}

func TestRemoveFreesCell(t *testing.T) {
	g := newGrid(5, 5)
	occ := NewOccupancy(g, log.NewNop())
	id := uuid.New()
	_, err := occ.Place(id, cell(1, 1))
	require.NoError(t, err)

	ix, err := occ.Remove(id)
	require.NoError(t, err)
	assert.True(t, ix.Passable(cell(1, 1)))
	assert.False(t, occ.IsOccupied(cell(1, 1)))

	_, err = occ.Remove(id)
	assert.ErrorIs(t, err, ErrUnknownOccupant)
}
