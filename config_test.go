package points

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig_OverridesDefaults(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
spaceSize: 1024
friction: 0.9
scaleNodesOnZoom: false
nodeColor: "#00ff00"
nodeSize: 6
randomSeed: 42
`))
	require.NoError(t, err)

	assert.Equal(t, float32(1024), cfg.SpaceSize)
	assert.Equal(t, float32(0.9), cfg.Friction)
	assert.False(t, cfg.ScaleNodesOnZoom)
	assert.Equal(t, uint64(42), cfg.RandomSeed)
	// untouched keys keep their defaults
	assert.Equal(t, float32(2), cfg.PixelRatio)
	assert.Equal(t, float32(0.1), cfg.GreyoutOpacity)

	c, ok := cfg.NodeColor.Resolve(&Node{Color: "#ff0000"})
	assert.True(t, ok)
	assert.Equal(t, mgl32.Vec4{0, 1, 0, 1}, c)

	size, ok := cfg.NodeSize.Resolve(&Node{Size: f32(1)})
	assert.True(t, ok)
	assert.Equal(t, float32(6), size)
}

func TestParseConfig_Invalid(t *testing.T) {
	_, err := ParseConfig([]byte("spaceSize: -1"))
	assert.Error(t, err)

	_, err = ParseConfig([]byte("nodeColor: nope"))
	assert.Error(t, err)

	_, err = ParseConfig([]byte("friction: [1"))
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadConfig(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().SpaceSize, cfg.SpaceSize)

	path := filepath.Join(dir, "points.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pixelRatio: 1\n"), 0o644))
	cfg, err = LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, float32(1), cfg.PixelRatio)
	assert.IsType(t, NodeColorField{}, cfg.NodeColor)
}
