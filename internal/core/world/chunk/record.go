package chunk

import (
	"encoding/binary"
	"math"
	"slices"

	"github.com/cespare/xxhash/v2"
	"github.com/juniorbueno0/coppercaves/internal/core/world/grid"
	"github.com/juniorbueno0/coppercaves/internal/core/world/terrain"
)

// Handle identifies one content item owned by a loaded chunk.
type Handle uint64

// Content is one generated terrain cell.
type Content struct {
	Handle Handle
	Cell   grid.Cell
	Kind   terrain.Kind
	Noise  float64
}

// Record is a materialized chunk and everything it owns.
type Record struct {
	Coord   grid.Coord
	Content []Content
}

func (r *Record) Handles() []Handle {
	out := make([]Handle, len(r.Content))
	for i, c := range r.Content {
		out[i] = c.Handle
	}
	return out
}

// Digest hashes the generated terrain of the chunk. Handles are excluded, so a
// chunk regenerated after eviction has the same digest.
func (r *Record) Digest() uint64 {
	h := xxhash.New()
	buf := make([]byte, 0, 32)
	for _, c := range r.Content {
		buf = buf[:0]
		buf = binary.LittleEndian.AppendUint64(buf, uint64(int64(c.Cell.X)))
		buf = binary.LittleEndian.AppendUint64(buf, uint64(int64(c.Cell.Y)))
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(c.Noise))
		_, _ = h.Write(buf)
		_, _ = h.WriteString(c.Kind.Name)
	}
	return h.Sum64()
}

func (r *Record) clone() Record {
	return Record{Coord: r.Coord, Content: slices.Clone(r.Content)}
}
