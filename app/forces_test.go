package app

import (
	"testing"

	points "github.com/gekko3d/pointstate"
	"github.com/gekko3d/pointstate/gpu"
	"github.com/gekko3d/pointstate/layout"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingForce_Velocity(t *testing.T) {
	f := RingForce{Radius: 0.25, Strength: 1}
	grid := layout.Grid{Size: 2}
	pos := grid.NewState()
	// inside the ring, outside the ring, on the ring, at the centre
	copy(pos[0:], []float32{60, 50})
	copy(pos[4:], []float32{50, 90})
	copy(pos[8:], []float32{25, 50})
	copy(pos[12:], []float32{50, 50})

	v := f.Velocity(grid, pos, 4, 100)
	assert.InDelta(t, 15, v[0], 1e-5)
	assert.InDelta(t, 0, v[1], 1e-5)
	assert.InDelta(t, -15, v[5], 1e-5)
	assert.InDelta(t, 0, v[8], 1e-5)

	centre := mgl32.Vec2{v[12], v[13]}
	assert.Greater(t, centre.Len(), float32(0), "a particle on the centre still moves")
}

func TestRingForce_ApplySpreadsParticles(t *testing.T) {
	cfg := points.DefaultConfig()
	cfg.SpaceSize = 100
	store := points.NewStore(3)
	store.SetTextureSizeFor(16)
	data := RandomGraph(16, 3)

	device := gpu.NewSoftwareDevice(nil)
	p := points.New(device, cfg, store, data, nil)
	require.NoError(t, p.Create())
	defer p.Destroy()

	f := DefaultRingForce()
	for i := 0; i < 200; i++ {
		require.NoError(t, f.Apply(device, p, data.Count(), cfg.SpaceSize))
		require.NoError(t, p.Advance())
	}

	pos, err := device.ReadTarget(p.CurrentPosition())
	require.NoError(t, err)
	grid := layout.Grid{Size: store.TextureSize}
	for i := 0; i < 16; i++ {
		o := grid.Offset(i)
		d := mgl32.Vec2{pos[o] - 50, pos[o+1] - 50}.Len()
		assert.InDelta(t, 30, d, 1, "particle %d", i)
	}
}

func TestRandomGraph(t *testing.T) {
	g := RandomGraph(30, 1)
	assert.Equal(t, 30, g.Count())
	assert.Empty(t, g.Nodes[0].Color)
	for _, n := range g.Nodes[1:10] {
		_, err := points.ParseColor(n.Color)
		assert.NoError(t, err)
	}
	deg, ok := points.ValueField("degree").Resolve(&g.Nodes[5])
	assert.True(t, ok)
	assert.GreaterOrEqual(t, deg, float32(1))
}
