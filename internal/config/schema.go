package config

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid")

//go:embed schema.json
var schemaSource string

var (
	compiled    *jsonschema.Schema
	compileErr  error
	compileOnce sync.Once
)

func schema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiled, compileErr = jsonschema.CompileString("config.schema.json", schemaSource)
	})
	return compiled, compileErr
}

// Validate checks the configuration against the embedded JSON schema and
// then checks that the terrain bands partition their range.
func (c *Config) Validate() error {
	s, err := schema()
	if err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	if err := s.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	bands := c.Terrain.Bands
	for i, b := range bands {
		if b.Min >= b.Max {
			return fmt.Errorf("%w: terrain band %q has min %v >= max %v", ErrInvalid, b.Kind, b.Min, b.Max)
		}
		if i > 0 && bands[i-1].Max != b.Min {
			return fmt.Errorf("%w: terrain band %q does not start where %q ends", ErrInvalid, b.Kind, bands[i-1].Kind)
		}
	}
	return nil
}
