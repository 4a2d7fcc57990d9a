// Package config loads simulation settings from YAML or TOML files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml"
	"gopkg.in/yaml.v3"
)

// ErrUnsupportedFormat is returned by Load for unknown file extensions.
var ErrUnsupportedFormat = errors.New("config: unsupported file format")

// Config holds every tunable of the simulation.
type Config struct {
	World   WorldConfig   `yaml:"world" toml:"world" json:"world"`
	Noise   NoiseConfig   `yaml:"noise" toml:"noise" json:"noise"`
	Terrain TerrainConfig `yaml:"terrain" toml:"terrain" json:"terrain"`
	Nav     NavConfig     `yaml:"nav" toml:"nav" json:"nav"`
	Budget  BudgetConfig  `yaml:"budget" toml:"budget" json:"budget"`
	Sim     SimConfig     `yaml:"sim" toml:"sim" json:"sim"`
	Log     LogConfig     `yaml:"log" toml:"log" json:"log"`
}

// WorldConfig holds chunk geometry and the streaming radius.
type WorldConfig struct {
	ChunkSize      int `yaml:"chunk_size" toml:"chunk_size" json:"chunk_size"`
	TileSize       int `yaml:"tile_size" toml:"tile_size" json:"tile_size"`
	RenderDistance int `yaml:"render_distance" toml:"render_distance" json:"render_distance"`
	// MaxChunkExtent bounds chunk coordinates to |cx|, |cy| <= extent.
	MaxChunkExtent int  `yaml:"max_chunk_extent" toml:"max_chunk_extent" json:"max_chunk_extent"`
	Unbounded      bool `yaml:"unbounded" toml:"unbounded" json:"unbounded"`
}

// NoiseConfig seeds the terrain noise. A non-empty SeedPhrase overrides Seed.
type NoiseConfig struct {
	Seed       int64   `yaml:"seed" toml:"seed" json:"seed"`
	SeedPhrase string  `yaml:"seed_phrase" toml:"seed_phrase" json:"seed_phrase"`
	Scale      float64 `yaml:"scale" toml:"scale" json:"scale"`
}

// TerrainConfig is the ordered bucketing table.
type TerrainConfig struct {
	Bands    []BandConfig `yaml:"bands" toml:"bands" json:"bands"`
	Fallback KindConfig   `yaml:"fallback" toml:"fallback" json:"fallback"`
}

// BandConfig maps the half-open noise range [Min, Max) to a kind.
type BandConfig struct {
	Min      float64 `yaml:"min" toml:"min" json:"min"`
	Max      float64 `yaml:"max" toml:"max" json:"max"`
	Kind     string  `yaml:"kind" toml:"kind" json:"kind"`
	Color    string  `yaml:"color" toml:"color" json:"color"`
	Obstacle bool    `yaml:"obstacle" toml:"obstacle" json:"obstacle"`
}

func (b BandConfig) KindConfig() KindConfig {
	return KindConfig{Kind: b.Kind, Color: b.Color, Obstacle: b.Obstacle}
}

// KindConfig describes one terrain kind.
type KindConfig struct {
	Kind     string `yaml:"kind" toml:"kind" json:"kind"`
	Color    string `yaml:"color" toml:"color" json:"color"`
	Obstacle bool   `yaml:"obstacle" toml:"obstacle" json:"obstacle"`
}

// NavConfig bounds the navigation grid in cells.
type NavConfig struct {
	MinX        int `yaml:"min_x" toml:"min_x" json:"min_x"`
	MinY        int `yaml:"min_y" toml:"min_y" json:"min_y"`
	Width       int `yaml:"width" toml:"width" json:"width"`
	Height      int `yaml:"height" toml:"height" json:"height"`
	DefaultCost int `yaml:"default_cost" toml:"default_cost" json:"default_cost"`
}

// BudgetConfig caps chunk cache growth. Zero means unlimited.
type BudgetConfig struct {
	MaxLoadedChunks int `yaml:"max_loaded_chunks" toml:"max_loaded_chunks" json:"max_loaded_chunks"`
	MaxContentItems int `yaml:"max_content_items" toml:"max_content_items" json:"max_content_items"`
}

// SimConfig drives the tick loop.
type SimConfig struct {
	TickRate   int          `yaml:"tick_rate" toml:"tick_rate" json:"tick_rate"` // Hz
	Workers    int          `yaml:"workers" toml:"workers" json:"workers"`
	AgentSpawn []CellConfig `yaml:"agent_spawn" toml:"agent_spawn" json:"agent_spawn"`
}

// CellConfig is a cell position in config files.
type CellConfig struct {
	X int `yaml:"x" toml:"x" json:"x"`
	Y int `yaml:"y" toml:"y" json:"y"`
}

type LogConfig struct {
	Level string `yaml:"level" toml:"level" json:"level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		World: WorldConfig{
			ChunkSize:      8,
			TileSize:       12,
			RenderDistance: 2,
			MaxChunkExtent: 50,
		},
		Noise: NoiseConfig{
			Seed:  9,
			Scale: 200,
		},
		Terrain: DefaultTerrain(),
		Nav: NavConfig{
			Width:       50,
			Height:      50,
			DefaultCost: 1,
		},
		Sim: SimConfig{
			TickRate:   20,
			Workers:    4,
			AgentSpawn: []CellConfig{{X: 4, Y: 4}},
		},
		Log: LogConfig{Level: "info"},
	}
}

// DefaultTerrain is the canonical terrain table.
func DefaultTerrain() TerrainConfig {
	return TerrainConfig{
		Bands: []BandConfig{
			{Min: -1.0, Max: -0.8, Kind: "deep_water", Color: "#000080", Obstacle: true},
			{Min: -0.8, Max: -0.5, Kind: "water", Color: "#0033cc", Obstacle: true},
			{Min: -0.5, Max: -0.1, Kind: "shallows", Color: "#4d80ff", Obstacle: true},
			{Min: -0.1, Max: 0.0, Kind: "sand", Color: "#ffe699"},
			{Min: 0.0, Max: 0.4, Kind: "grass", Color: "#8fd46e"},
			{Min: 0.4, Max: 0.8, Kind: "forest", Color: "#66a647"},
			{Min: 0.8, Max: 1.0, Kind: "rock", Color: "#cccccc"},
		},
		Fallback: KindConfig{Kind: "peak", Color: "#ffffff"},
	}
}

// Load reads a configuration file. The format follows the extension:
// .yaml/.yml or .toml. Keys missing from the file keep their default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadEnv loads the file named by CONFIG_PATH, or the defaults when unset.
func LoadEnv() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

// fillDefaults replaces zero values that are never meaningful.
func (c *Config) fillDefaults() {
	def := Default()
	if c.World.ChunkSize == 0 {
		c.World.ChunkSize = def.World.ChunkSize
	}
	if c.World.TileSize == 0 {
		c.World.TileSize = def.World.TileSize
	}
	if c.Noise.Scale == 0 {
		c.Noise.Scale = def.Noise.Scale
	}
	if len(c.Terrain.Bands) == 0 {
		c.Terrain = def.Terrain
	}
	if c.Terrain.Fallback.Kind == "" {
		c.Terrain.Fallback = def.Terrain.Fallback
	}
	if c.Nav.DefaultCost == 0 {
		c.Nav.DefaultCost = def.Nav.DefaultCost
	}
	if c.Sim.TickRate == 0 {
		c.Sim.TickRate = def.Sim.TickRate
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
}
