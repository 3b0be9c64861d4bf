package app

import (
	"testing"

	points "github.com/gekko3d/pointstate"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestToClip(t *testing.T) {
	size := mgl32.Vec2{200, 100}
	assert.Equal(t, mgl32.Vec2{-1, 1}, ToClip(mgl32.Vec2{0, 0}, size))
	assert.Equal(t, mgl32.Vec2{0, 0}, ToClip(mgl32.Vec2{100, 50}, size))
	assert.Equal(t, mgl32.Vec2{1, -1}, ToClip(mgl32.Vec2{200, 100}, size))
}

func TestCamera2D_ZoomAtKeepsCursorFixed(t *testing.T) {
	size := mgl32.Vec2{200, 100}
	cursor := mgl32.Vec2{150, 25}
	c := NewCamera2D()
	c.PanBy(mgl32.Vec2{10, -5}, size)

	anchor := ToClip(cursor, size)
	local := anchor.Sub(c.Pan).Mul(1 / c.Zoom)

	c.ZoomAt(cursor, size, 2)
	assert.InDelta(t, 2, c.Zoom, 1e-6)

	moved := local.Mul(c.Zoom).Add(c.Pan)
	assert.True(t, moved.ApproxEqualThreshold(anchor, 1e-5), "%v != %v", moved, anchor)
}

func TestCamera2D_ZoomClamped(t *testing.T) {
	c := NewCamera2D()
	for i := 0; i < 100; i++ {
		c.ZoomAt(mgl32.Vec2{0, 0}, mgl32.Vec2{10, 10}, 2)
	}
	assert.Equal(t, float32(MaxZoom), c.Zoom)
}

func TestCamera2D_Apply(t *testing.T) {
	store := points.NewStore(0)
	c := &Camera2D{Zoom: 3, Pan: mgl32.Vec2{0.1, 0.2}}
	c.Apply(store)
	assert.Equal(t, float32(3), store.Zoom())
	assert.Equal(t, float32(0.1), store.Transform[6])
	assert.Equal(t, float32(0.2), store.Transform[7])
}
