package app

import (
	"fmt"

	points "github.com/gekko3d/pointstate"
	"github.com/gekko3d/pointstate/gpu"
	"github.com/gekko3d/pointstate/layout"
	"github.com/go-gl/mathgl/mgl32"
)

// RingForce pulls every particle toward a circle around the centre of the
// space. It stands in for a real force layout so the demo has motion.
type RingForce struct {
	// Radius as a fraction of the space size.
	Radius   float32
	Strength float32
}

func DefaultRingForce() RingForce {
	return RingForce{Radius: 0.3, Strength: 0.05}
}

// Velocity computes a velocity state for the first n particles of
// positions.
func (f RingForce) Velocity(grid layout.Grid, positions []float32, n int, spaceSize float32) []float32 {
	out := grid.NewState()
	center := mgl32.Vec2{spaceSize / 2, spaceSize / 2}
	radius := f.Radius * spaceSize

	for i := 0; i < n && grid.Contains(i); i++ {
		o := grid.Offset(i)
		d := mgl32.Vec2{positions[o], positions[o+1]}.Sub(center)
		dist := d.Len()
		if dist < 1e-4 {
			// golden angle spread for particles sitting on the centre
			d = mgl32.Rotate2D(float32(i) * 2.399963).Mul2x1(mgl32.Vec2{1, 0})
			dist = 1
		}
		v := d.Mul((radius - dist) / dist * f.Strength)
		out[o] = v[0]
		out[o+1] = v[1]
	}
	return out
}

// Apply reads the current positions back, computes velocities and writes
// them to the velocity target.
func (f RingForce) Apply(device gpu.Device, p *points.Points, n int, spaceSize float32) error {
	current := p.CurrentPosition()
	if current == nil {
		return nil
	}
	positions, err := device.ReadTarget(current)
	if err != nil {
		return fmt.Errorf("ring force: %w", err)
	}
	grid := layout.Grid{Size: current.Size()}
	return p.WriteVelocity(f.Velocity(grid, positions, n, spaceSize))
}
