package points

import (
	"fmt"

	"github.com/gekko3d/pointstate/gpu"
	"github.com/gekko3d/pointstate/layout"
)

// RebuildColor regenerates the colour target from Config.NodeColor.
// Nodes without a colour get DefaultNodeColor.
func (p *Points) RebuildColor() error {
	accessor := p.config.NodeColor
	return p.rebuild(&p.colors, "color", func(grid layout.Grid, state []float32) {
		p.data.eachSorted(func(sorted int, n *Node) {
			if !grid.Contains(sorted) {
				return
			}
			c := DefaultNodeColor
			if accessor != nil {
				if v, ok := accessor.Resolve(n); ok {
					c = v
				}
			}
			copy(state[grid.Offset(sorted):], c[:])
		})
	})
}

// RebuildSize regenerates the size target from Config.NodeSize. Nodes
// without a size get DefaultNodeSize.
func (p *Points) RebuildSize() error {
	accessor := p.config.NodeSize
	return p.rebuild(&p.sizes, "size", func(grid layout.Grid, state []float32) {
		p.data.eachSorted(func(sorted int, n *Node) {
			if !grid.Contains(sorted) {
				return
			}
			size := DefaultNodeSize
			if accessor != nil {
				if v, ok := accessor.Resolve(n); ok {
					size = v
				}
			}
			state[grid.Offset(sorted)] = size
		})
	})
}

// RebuildGreyout regenerates the greyout flags from Store.SelectedIndices.
// A nil selection greys out nothing. Any other selection, including an empty
// one, greys out every particle outside it.
func (p *Points) RebuildGreyout() error {
	selected := p.store.SelectedIndices
	return p.rebuild(&p.greyout, "greyout", func(grid layout.Grid, state []float32) {
		if selected == nil {
			return
		}
		p.data.eachSorted(func(sorted int, _ *Node) {
			if grid.Contains(sorted) {
				state[grid.Offset(sorted)] = 1
			}
		})
		for _, sorted := range selected {
			if grid.Contains(sorted) {
				state[grid.Offset(sorted)] = 0
			}
		}
	})
}

// rebuild fills a fresh host array, uploads it as a new target and then
// releases the target it replaces. Without a Create it does nothing.
func (p *Points) rebuild(slot *gpu.Target, name string, fill func(grid layout.Grid, state []float32)) error {
	if p.currentPosition == nil {
		return nil
	}
	grid := p.stateGrid()
	state := grid.NewState()
	fill(grid, state)

	t, err := p.device.CreateTarget(name, grid.Size, state)
	if err != nil {
		return fmt.Errorf("rebuild %s: %w", name, err)
	}
	releaseTarget(slot)
	*slot = t
	return nil
}
