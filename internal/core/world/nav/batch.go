package nav

import "github.com/juniorbueno0/coppercaves/internal/core/world/grid"

type write struct {
	cell   grid.Cell
	value  NavCell
	toggle bool
}

// Batch collects writes and applies them in order on Commit. A toggle sees
// the writes queued before it.
type Batch struct {
	grid   *Grid
	writes []write
}

func (b *Batch) Set(c grid.Cell, v NavCell) *Batch {
	b.writes = append(b.writes, write{cell: c, value: v})
	return b
}

func (b *Batch) Toggle(c grid.Cell) *Batch {
	b.writes = append(b.writes, write{cell: c, toggle: true})
	return b
}

func (b *Batch) Len() int { return len(b.writes) }

// Commit applies every write and builds once. With nothing queued and a
// clean grid it returns the current index without building.
func (b *Batch) Commit() *Index {
	g := b.grid
	g.mu.Lock()
	for _, w := range b.writes {
		v := w.value
		if w.toggle {
			cur, ok := g.get(w.cell)
			if !ok {
				continue
			}
			v = cur.Toggled()
		}
		g.set(w.cell, v)
	}
	b.writes = b.writes[:0]

	if g.index != nil && g.built == g.writes {
		ix := g.index
		g.mu.Unlock()
		return ix
	}
	ix := g.build()
	g.mu.Unlock()

	g.publish(ix)
	return ix
}
