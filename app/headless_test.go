package app

import (
	"testing"

	points "github.com/gekko3d/pointstate"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunHeadless(t *testing.T) {
	cfg := points.DefaultConfig()
	cfg.SpaceSize = 200
	cfg.PixelRatio = 1
	cfg.NodeSize = points.ValueField("degree")

	// Whole screen selected: every particle is picked.
	area := [2]mgl32.Vec2{{0, 0}, {200, 200}}
	res, err := RunHeadless(cfg, RandomGraph(20, 5), HeadlessOptions{
		Width: 200, Height: 200, Steps: 50, Pick: &area,
		Background: [4]float32{0, 0, 0, 1},
	}, nil)
	require.NoError(t, err)

	assert.Len(t, res.Selected, 20)
	assert.Equal(t, 200, res.Frame.Bounds().Dx())
	assert.Equal(t, 7, res.Profiler.Counts["targets"])
	assert.Equal(t, 50, res.Profiler.Calls("advance"))

	lit := 0
	for i := 0; i < len(res.Frame.Pix); i += 4 {
		if res.Frame.Pix[i] > 0 || res.Frame.Pix[i+1] > 0 || res.Frame.Pix[i+2] > 0 {
			lit++
		}
	}
	assert.Greater(t, lit, 0, "particles should be visible on the frame")
}
