package terrain

import (
	"math"
	"testing"

	"github.com/juniorbueno0/coppercaves/internal/config"
	"github.com/juniorbueno0/coppercaves/internal/core/world/grid"
	"github.com/juniorbueno0/coppercaves/internal/core/world/noise"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultClassify(t *testing.T) {
	table := Default()
	cases := []struct {
		v        float64
		kind     string
		obstacle bool
	}{
		{-1.0, "deep_water", true},
		{-0.8, "water", true},
		{-0.51, "water", true},
		{-0.5, "shallows", true},
		{-0.1, "sand", false},
		{-0.0001, "sand", false},
		{0, "grass", false},
		{0.4, "forest", false},
		{0.99, "rock", false},
		{1.0, "peak", false},
		{-1.2, "peak", false},
		{math.NaN(), "peak", false},
	}
	for _, c := range cases {
		k := table.Classify(c.v)
		assert.Equal(t, c.kind, k.Name, "value %v", c.v)
		assert.Equal(t, c.obstacle, k.Obstacle, "value %v", c.v)
	}
}

func TestNewTableRejects(t *testing.T) {
	k := Kind{Name: "k"}

	_, err := NewTable(nil, k)
	assert.ErrorIs(t, err, ErrEmptyTable)

	_, err = NewTable([]Band{{Min: 0, Max: 0, Kind: k}}, k)
	assert.ErrorIs(t, err, ErrInvalidBand)

	_, err = NewTable([]Band{{Min: 0, Max: 1, Kind: k}, {Min: 0.5, Max: 2, Kind: k}}, k)
	assert.ErrorIs(t, err, ErrInvalidBand)

	_, err = NewTable([]Band{{Min: 0, Max: 1, Kind: k}, {Min: 1.5, Max: 2, Kind: k}}, k)
	assert.ErrorIs(t, err, ErrInvalidBand)
}

func TestFromConfigRejectsBadColor(t *testing.T) {
	cfg := config.DefaultTerrain()
	cfg.Fallback.Color = "white"
	_, err := FromConfig(cfg)
	assert.ErrorIs(t, err, ErrInvalidColor)
}

func TestParseColor(t *testing.T) {
	c, err := ParseColor("#4d80ff")
	require.NoError(t, err)
	assert.Equal(t, Color{R: 0x4d, G: 0x80, B: 0xff}, c)
	assert.Equal(t, "#4d80ff", c.String())

	_, err = ParseColor("4d80ff")
	assert.Error(t, err)
	_, err = ParseColor("#zz0000")
	assert.Error(t, err)
}

func TestSamplerMatchesTable(t *testing.T) {
	field := noise.New(9, 200)
	s := NewSampler(field, Default())
	for x := -20; x < 20; x += 3 {
		cell := grid.Cell{X: x, Y: -x}
		got := s.At(cell)
		assert.Equal(t, field.Sample(x, -x), got.Noise)
		assert.Equal(t, s.Table.Classify(got.Noise), got.Kind)
		assert.Equal(t, got.Kind.Obstacle, s.Obstacle(cell))
	}
}
