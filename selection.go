package points

import (
	"fmt"

	"github.com/gekko3d/pointstate/gpu"
	"github.com/gekko3d/pointstate/layout"
)

// view collects the uniforms shared by Draw and the picks.
func (p *Points) view() gpu.View {
	lo, hi := p.store.selectionBounds()
	grid := p.stateGrid()
	count := min(p.data.Count(), grid.Capacity())
	return gpu.View{
		Transform:      p.store.Transform,
		ScreenSize:     p.store.ScreenSize,
		SpaceSize:      p.config.SpaceSize,
		Ratio:          p.config.PixelRatio,
		SizeScale:      p.config.SizeScale,
		MaxPointSize:   p.store.MaxPointSize,
		ScaleOnZoom:    p.config.ScaleNodesOnZoom,
		GreyoutOpacity: p.config.GreyoutOpacity,
		Pointer:        p.store.PointerPosition,
		SelectionMin:   lo,
		SelectionMax:   hi,
		TextureSize:    uint32(grid.Size),
		Count:          uint32(count),
	}
}

// Draw renders the current positions. It reads state and changes nothing.
func (p *Points) Draw() error {
	if p.drawCommand == nil || p.currentPosition == nil || p.colors == nil || p.sizes == nil || p.greyout == nil {
		return nil
	}
	err := p.drawCommand.Run(gpu.DrawInputs{
		Positions: p.currentPosition,
		Colors:    p.colors,
		Sizes:     p.sizes,
		Greyout:   p.greyout,
		View:      p.view(),
	})
	if err != nil {
		return fmt.Errorf("draw: %w", err)
	}
	return nil
}

// PickAtPoint marks the particles whose rendered disc covers
// Store.PointerPosition. The whole selection target is overwritten.
func (p *Points) PickAtPoint() error {
	return p.pick(p.pickPointCommand, "pick at point")
}

// PickInArea marks the particles whose rendered disc reaches into
// Store.SelectedArea. The whole selection target is overwritten.
func (p *Points) PickInArea() error {
	return p.pick(p.pickAreaCommand, "pick in area")
}

func (p *Points) pick(cmd gpu.Command[gpu.PickInputs], name string) error {
	if cmd == nil || p.selection == nil || p.currentPosition == nil || p.sizes == nil {
		return nil
	}
	err := cmd.Run(gpu.PickInputs{
		Target:    p.selection,
		Positions: p.currentPosition,
		Sizes:     p.sizes,
		View:      p.view(),
	})
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// ReadSelection reads the selection target back and returns the input
// indices of every hit particle in ascending order. It returns nil before
// Create and after Destroy.
func (p *Points) ReadSelection() ([]int, error) {
	if p.selection == nil || p.data == nil {
		return nil, nil
	}
	texels, err := p.device.ReadTarget(p.selection)
	if err != nil {
		return nil, fmt.Errorf("read selection: %w", err)
	}

	grid := layout.Grid{Size: p.selection.Size()}
	hits := make([]bool, len(p.data.Nodes))
	for row := 0; row < grid.Size; row++ {
		for col := 0; col < grid.Size; col++ {
			sorted := grid.Index(col, row)
			if texels[grid.Offset(sorted)] <= 0 {
				continue
			}
			if input, ok := p.data.InputIndexBySortedIndex(sorted); ok {
				hits[input] = true
			}
		}
	}

	var out []int
	for input, hit := range hits {
		if hit {
			out = append(out, input)
		}
	}
	return out, nil
}
