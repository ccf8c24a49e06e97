package marble

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	config := DefaultConfig()

	require.NoError(t, config.Validate())
	assert.Equal(t, BroadPhaseTree, config.BroadPhase)
	assert.Equal(t, mgl64.Vec3{}, config.Gravity)
}

func TestLoadConfig(t *testing.T) {
	doc := `
iterations: 4
gravity: [0, -9.81, 0]
broad_phase: grid
cell_size: 2.5
buckets: 512
restitution_threshold: 0.25
debug: true
`
	config, err := LoadConfig(strings.NewReader(doc))
	require.NoError(t, err)

	assert.Equal(t, 4, config.Iterations)
	assert.Equal(t, mgl64.Vec3{0, -9.81, 0}, config.Gravity)
	assert.Equal(t, BroadPhaseGrid, config.BroadPhase)
	assert.Equal(t, 2.5, config.CellSize)
	assert.Equal(t, 512, config.Buckets)
	assert.Equal(t, 0.25, config.RestitutionThreshold)
	assert.True(t, config.Debug)

	// untouched fields keep their default
	assert.Equal(t, DefaultConfig().ContactMargin, config.ContactMargin)
	assert.Equal(t, DefaultConfig().FatMargin, config.FatMargin)
}

func TestLoadConfigEmptyDocument(t *testing.T) {
	config, err := LoadConfig(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), config)
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"malformed", "iterations: [1"},
		{"wrong type", "iterations: many"},
		{"short gravity", "gravity: [0, -9.81]"},
		{"no iterations", "iterations: 0"},
		{"unknown broad phase", "broad_phase: octree"},
		{"grid without cells", "broad_phase: grid\ncell_size: 0"},
		{"grid without buckets", "broad_phase: grid\nbuckets: 0"},
		{"negative margin", "contact_margin: -0.1"},
		{"negative threshold", "restitution_threshold: -1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(strings.NewReader(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "marble.yaml")
	require.NoError(t, os.WriteFile(path, []byte("iterations: 12\n"), 0o644))

	config, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, 12, config.Iterations)

	_, err = LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSystemUsesGridBroadPhase(t *testing.T) {
	config := DefaultConfig()
	config.BroadPhase = BroadPhaseGrid

	s, err := NewSystem(config)
	require.NoError(t, err)

	_, ok := s.broadPhase.(*gridBroadPhase)
	assert.True(t, ok)
	assert.Equal(t, BroadPhaseGrid, s.Config().BroadPhase)
}
