// Package points keeps per-particle state of a force-directed point
// renderer on the GPU: positions (double buffered), velocity, colour,
// size, greyout flags, and the selection written by picking passes.
//
// All state lives in square RGBA float targets addressed through
// layout.Grid. Points owns those targets and the four programs that read
// them, and is driven from a single frame loop:
//
//	p.Advance()     // integrate previous + velocity into current
//	p.Draw()
//	p.PickAtPoint() // on click, then ReadSelection
package points

import (
	"fmt"

	"github.com/gekko3d/pointstate/gpu"
	"github.com/gekko3d/pointstate/layout"
	"github.com/gekko3d/pointstate/logging"
)

type Points struct {
	device gpu.Device
	config *Config
	store  *Store
	data   *GraphData
	log    logging.Logger

	currentPosition  gpu.Target
	previousPosition gpu.Target
	velocity         gpu.Target
	selection        gpu.Target
	colors           gpu.Target
	sizes            gpu.Target
	greyout          gpu.Target

	integrateCommand gpu.Command[gpu.IntegrateInputs]
	drawCommand      gpu.Command[gpu.DrawInputs]
	pickPointCommand gpu.Command[gpu.PickInputs]
	pickAreaCommand  gpu.Command[gpu.PickInputs]
}

// New wires Points to its collaborators. Nothing is allocated until Create.
func New(device gpu.Device, config *Config, store *Store, data *GraphData, log logging.Logger) *Points {
	if config == nil {
		config = DefaultConfig()
	}
	if store == nil {
		store = NewStore(config.RandomSeed)
	}
	if data == nil {
		data = NewGraphData(nil)
	}
	return &Points{
		device: device,
		config: config,
		store:  store,
		data:   data,
		log:    logging.Scoped(log, "points"),
	}
}

func (p *Points) grid() layout.Grid {
	return layout.Grid{Size: p.store.TextureSize}
}

// stateGrid is the grid the live position targets were created on. Every
// rebuild and pass uses it until the next Create picks up a new
// Store.TextureSize.
func (p *Points) stateGrid() layout.Grid {
	if p.currentPosition != nil {
		return layout.Grid{Size: p.currentPosition.Size()}
	}
	return p.grid()
}

// InitPrograms compiles the four programs. Programs that already exist are
// kept.
func (p *Points) InitPrograms() error {
	var err error
	if p.integrateCommand == nil {
		if p.integrateCommand, err = p.device.NewIntegrateCommand(); err != nil {
			return fmt.Errorf("init integrate program: %w", err)
		}
	}
	if p.drawCommand == nil {
		if p.drawCommand, err = p.device.NewDrawCommand(); err != nil {
			return fmt.Errorf("init draw program: %w", err)
		}
	}
	if p.pickPointCommand == nil {
		if p.pickPointCommand, err = p.device.NewPointPickCommand(); err != nil {
			return fmt.Errorf("init point pick program: %w", err)
		}
	}
	if p.pickAreaCommand == nil {
		if p.pickAreaCommand, err = p.device.NewAreaPickCommand(); err != nil {
			return fmt.Errorf("init area pick program: %w", err)
		}
	}
	return nil
}

// Create allocates every state target for the current particle set and
// builds the attribute targets. State from an earlier Create is released
// first.
func (p *Points) Create() error {
	if err := p.InitPrograms(); err != nil {
		return err
	}
	p.releaseTargets()

	grid := p.grid()
	n := p.data.Count()
	if !grid.Fits(n) {
		p.log.Warnf("%d particles do not fit a %dx%d grid, extra particles are dropped", n, grid.Size, grid.Size)
	}

	initial := p.initialPositions(grid)
	var err error
	if p.currentPosition, err = p.device.CreateTarget("position current", grid.Size, initial); err != nil {
		return fmt.Errorf("create position: %w", err)
	}
	if p.previousPosition, err = p.device.CreateTarget("position previous", grid.Size, initial); err != nil {
		return fmt.Errorf("create position: %w", err)
	}
	if p.velocity, err = p.device.CreateTarget("velocity", grid.Size, nil); err != nil {
		return fmt.Errorf("create velocity: %w", err)
	}
	if p.selection, err = p.device.CreateTarget("selection", grid.Size, nil); err != nil {
		return fmt.Errorf("create selection: %w", err)
	}

	if err := p.RebuildSize(); err != nil {
		return err
	}
	if err := p.RebuildColor(); err != nil {
		return err
	}
	if err := p.RebuildGreyout(); err != nil {
		return err
	}
	p.log.Infof("created %d particles on a %dx%d grid", n, grid.Size, grid.Size)
	return nil
}

// Destroy releases every target and program. It is safe to call more than
// once and before Create. Draw, Advance and the picks become no-ops.
func (p *Points) Destroy() {
	p.releaseTargets()
	releaseCommand(&p.integrateCommand)
	releaseCommand(&p.drawCommand)
	releaseCommand(&p.pickPointCommand)
	releaseCommand(&p.pickAreaCommand)
	p.log.Debugf("destroyed")
}

func (p *Points) releaseTargets() {
	for _, t := range []*gpu.Target{
		&p.currentPosition, &p.previousPosition, &p.velocity, &p.selection,
		&p.colors, &p.sizes, &p.greyout,
	} {
		releaseTarget(t)
	}
}

func releaseTarget(t *gpu.Target) {
	if *t != nil {
		(*t).Release()
		*t = nil
	}
}

func releaseCommand[In any](c *gpu.Command[In]) {
	if *c != nil {
		(*c).Release()
		*c = nil
	}
}

// CurrentPosition is the target Draw and the picks read. It holds the
// state produced by the most recent Advance.
func (p *Points) CurrentPosition() gpu.Target { return p.currentPosition }

// PreviousPosition is the source of the most recent Advance.
func (p *Points) PreviousPosition() gpu.Target { return p.previousPosition }

func (p *Points) Velocity() gpu.Target  { return p.velocity }
func (p *Points) Selection() gpu.Target { return p.selection }
func (p *Points) Colors() gpu.Target    { return p.colors }
func (p *Points) Sizes() gpu.Target     { return p.sizes }
func (p *Points) Greyout() gpu.Target   { return p.greyout }
