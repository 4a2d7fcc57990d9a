// Package terrain classifies noise values into terrain kinds.
package terrain

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/juniorbueno0/coppercaves/internal/config"
	"github.com/juniorbueno0/coppercaves/internal/core/world/grid"
	"github.com/juniorbueno0/coppercaves/internal/core/world/noise"
)

var (
	ErrEmptyTable   = errors.New("terrain: table has no bands")
	ErrInvalidBand  = errors.New("terrain: invalid band")
	ErrInvalidColor = errors.New("terrain: invalid color")
)

// Color is an sRGB appearance.
type Color struct {
	R, G, B uint8
}

// ParseColor reads "#rrggbb".
func ParseColor(s string) (Color, error) {
	hex, ok := strings.CutPrefix(s, "#")
	if !ok || len(hex) != 6 {
		return Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	return Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

func (c Color) String() string { return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B) }

// Kind is one terrain category.
type Kind struct {
	Name     string
	Color    Color
	Obstacle bool
}

// Band maps values in [Min, Max) to Kind.
type Band struct {
	Min, Max float64
	Kind     Kind
}

// Table is an ordered, gap-free list of bands plus a fallback for values
// outside all of them. It is immutable once built.
type Table struct {
	bands    []Band
	fallback Kind
}

// NewTable validates bands and builds a table. Bands must be ascending,
// non-empty and contiguous.
func NewTable(bands []Band, fallback Kind) (*Table, error) {
	if len(bands) == 0 {
		return nil, ErrEmptyTable
	}
	for i, b := range bands {
		if !(b.Min < b.Max) {
			return nil, fmt.Errorf("%w: %q has min %v >= max %v", ErrInvalidBand, b.Kind.Name, b.Min, b.Max)
		}
		if i > 0 && bands[i-1].Max != b.Min {
			return nil, fmt.Errorf("%w: %q leaves a gap or overlap after %q", ErrInvalidBand, b.Kind.Name, bands[i-1].Kind.Name)
		}
	}
	return &Table{bands: append([]Band(nil), bands...), fallback: fallback}, nil
}

// FromConfig builds a table from its config form.
func FromConfig(cfg config.TerrainConfig) (*Table, error) {
	bands := make([]Band, 0, len(cfg.Bands))
	for _, b := range cfg.Bands {
		kind, err := kindFromConfig(b.KindConfig())
		if err != nil {
			return nil, err
		}
		bands = append(bands, Band{Min: b.Min, Max: b.Max, Kind: kind})
	}
	fallback, err := kindFromConfig(cfg.Fallback)
	if err != nil {
		return nil, err
	}
	return NewTable(bands, fallback)
}

// Default returns the built-in table.
func Default() *Table {
	t, err := FromConfig(config.DefaultTerrain())
	if err != nil {
		panic(err)
	}
	return t
}

func kindFromConfig(k config.KindConfig) (Kind, error) {
	c, err := ParseColor(k.Color)
	if err != nil {
		return Kind{}, fmt.Errorf("kind %q: %w", k.Kind, err)
	}
	return Kind{Name: k.Kind, Color: c, Obstacle: k.Obstacle}, nil
}

// Classify returns the kind whose band contains v, or the fallback.
// NaN always falls back.
func (t *Table) Classify(v float64) Kind {
	if math.IsNaN(v) {
		return t.fallback
	}
	lo, hi := 0, len(t.bands)
	for lo < hi {
		mid := (lo + hi) / 2
		switch b := t.bands[mid]; {
		case v < b.Min:
			hi = mid
		case v >= b.Max:
			lo = mid + 1
		default:
			return b.Kind
		}
	}
	return t.fallback
}

func (t *Table) Bands() []Band { return append([]Band(nil), t.bands...) }

func (t *Table) Fallback() Kind { return t.fallback }

// Sample is the classified value of one cell.
type Sample struct {
	Noise float64
	Kind  Kind
}

// Sampler combines a noise field with a table. Chunk generation and
// navigation seeding both read terrain through it so they always agree.
type Sampler struct {
	Field *noise.Field
	Table *Table
}

func NewSampler(field *noise.Field, table *Table) *Sampler {
	return &Sampler{Field: field, Table: table}
}

// At classifies a cell.
func (s *Sampler) At(c grid.Cell) Sample {
	v := s.Field.Sample(c.X, c.Y)
	return Sample{Noise: v, Kind: s.Table.Classify(v)}
}

// Obstacle reports whether the cell's terrain blocks movement.
func (s *Sampler) Obstacle(c grid.Cell) bool {
	return s.At(c).Kind.Obstacle
}
