package injector

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeSimulation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sim.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: silent\nworld:\n  render_distance: 1\n"), 0o644))
	t.Setenv("CONFIG_PATH", path)

	s, cleanup, err := InitializeSimulation()
	require.NoError(t, err)
	defer cleanup()

	_, err = s.Nav().Index()
	assert.NoError(t, err)
	assert.NotNil(t, s.Events())
}

func TestInitializeSimulationBadConfig(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	_, _, err := InitializeSimulation()
	assert.Error(t, err)
}
