package points

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestStore_RandomFloat(t *testing.T) {
	a, b := NewStore(7), NewStore(7)
	for i := 0; i < 100; i++ {
		v := a.RandomFloat()
		assert.Equal(t, v, b.RandomFloat())
		assert.GreaterOrEqual(t, v, float32(0))
		assert.Less(t, v, float32(1))
	}
	assert.NotEqual(t, NewStore(1).RandomFloat(), NewStore(2).RandomFloat())
}

func TestStore_ZoomPan(t *testing.T) {
	s := NewStore(0)
	assert.Equal(t, float32(1), s.Zoom())

	s.SetZoomPan(3, mgl32.Vec2{0.5, -0.25})
	assert.Equal(t, float32(3), s.Zoom())
	got := s.Transform.Mul3x1(mgl32.Vec3{1, 1, 1})
	assert.True(t, got.ApproxEqual(mgl32.Vec3{3.5, 2.75, 1}), "%v", got)
}

func TestStore_Selection(t *testing.T) {
	s := NewStore(0)
	s.SetTextureSizeFor(10)
	assert.Equal(t, 4, s.TextureSize)

	s.SetSelectedIndices([]int{5, 1, 5, 3})
	assert.Equal(t, []int{1, 3, 5}, s.SelectedIndices)

	s.SelectedArea = [2]mgl32.Vec2{{30, 5}, {10, 20}}
	lo, hi := s.selectionBounds()
	assert.Equal(t, mgl32.Vec2{10, 5}, lo)
	assert.Equal(t, mgl32.Vec2{30, 20}, hi)
}
