package points

import (
	"fmt"

	"github.com/gekko3d/pointstate/gpu"
	"github.com/gekko3d/pointstate/layout"
)

// Band of the random start position, as a fraction of the space size.
const (
	jitterLow  = 0.495
	jitterHigh = 0.505
)

func (p *Points) initialPositions(grid layout.Grid) []float32 {
	state := grid.NewState()
	space := p.config.SpaceSize
	p.data.eachSorted(func(sorted int, n *Node) {
		if !grid.Contains(sorted) {
			return
		}
		o := grid.Offset(sorted)
		x, y := space, space
		if n.X != nil {
			x = *n.X
		} else {
			x *= p.store.RandomFloat()*(jitterHigh-jitterLow) + jitterLow
		}
		if n.Y != nil {
			y = *n.Y
		} else {
			y *= p.store.RandomFloat()*(jitterHigh-jitterLow) + jitterLow
		}
		state[o] = x
		state[o+1] = y
	})
	return state
}

func (p *Points) simulation() gpu.Simulation {
	return gpu.Simulation{
		Friction:    p.config.Friction,
		SpaceSize:   p.config.SpaceSize,
		TextureSize: uint32(p.stateGrid().Size),
	}
}

// Advance runs one integration tick. The position targets swap roles
// first, then previous (last tick's result) plus velocity is integrated
// into current.
func (p *Points) Advance() error {
	if p.integrateCommand == nil || p.currentPosition == nil || p.previousPosition == nil || p.velocity == nil {
		return nil
	}
	p.swapPositions()
	err := p.integrateCommand.Run(gpu.IntegrateInputs{
		Target:     p.currentPosition,
		Position:   p.previousPosition,
		Velocity:   p.velocity,
		Simulation: p.simulation(),
	})
	if err != nil {
		p.swapPositions()
		return fmt.Errorf("advance: %w", err)
	}
	return nil
}

func (p *Points) swapPositions() {
	p.currentPosition, p.previousPosition = p.previousPosition, p.currentPosition
}

// WriteVelocity replaces the whole velocity target. data is a host RGBA
// array laid out by layout.Grid with vx, vy in channels 0 and 1.
func (p *Points) WriteVelocity(data []float32) error {
	if p.velocity == nil {
		return nil
	}
	if err := p.device.WriteTarget(p.velocity, data); err != nil {
		return fmt.Errorf("write velocity: %w", err)
	}
	return nil
}
