package app

import (
	points "github.com/gekko3d/pointstate"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	MinZoom = 0.05
	MaxZoom = 50
)

// Camera2D is a zoom plus clip-space pan over the simulation space.
type Camera2D struct {
	Zoom float32
	Pan  mgl32.Vec2
}

func NewCamera2D() *Camera2D {
	return &Camera2D{Zoom: 1}
}

// ToClip converts logical pixels (origin top-left) to clip coordinates.
func ToClip(screen, size mgl32.Vec2) mgl32.Vec2 {
	return mgl32.Vec2{
		2*screen[0]/size[0] - 1,
		1 - 2*screen[1]/size[1],
	}
}

// ZoomAt multiplies the zoom by factor keeping the point under cursor fixed.
func (c *Camera2D) ZoomAt(cursor, screenSize mgl32.Vec2, factor float32) {
	next := mgl32.Clamp(c.Zoom*factor, MinZoom, MaxZoom)
	anchor := ToClip(cursor, screenSize)
	local := anchor.Sub(c.Pan).Mul(1 / c.Zoom)
	c.Pan = anchor.Sub(local.Mul(next))
	c.Zoom = next
}

// PanBy moves the view by a cursor delta in logical pixels.
func (c *Camera2D) PanBy(delta, screenSize mgl32.Vec2) {
	c.Pan = c.Pan.Add(mgl32.Vec2{
		2 * delta[0] / screenSize[0],
		-2 * delta[1] / screenSize[1],
	})
}

// Apply writes the camera into the store transform.
func (c *Camera2D) Apply(store *points.Store) {
	store.SetZoomPan(c.Zoom, c.Pan)
}
