package app

import (
	"image"
	"math"

	points "github.com/gekko3d/pointstate"
	"github.com/gekko3d/pointstate/gpu"
	"github.com/gekko3d/pointstate/logging"
	"github.com/go-gl/mathgl/mgl32"
)

type HeadlessOptions struct {
	Width, Height int
	Steps         int
	// Pick is an optional selection rectangle in logical pixels applied
	// after the last step.
	Pick       *[2]mgl32.Vec2
	Background [4]float32
}

// HeadlessResult is the rendered frame and the input indices picked.
type HeadlessResult struct {
	Frame    *image.NRGBA
	Selected []int
	Profiler *Profiler
}

// RunHeadless runs the whole pipeline on the software device: create,
// Steps ticks of the ring force, an optional area pick with greyout, and
// one draw.
func RunHeadless(settings *points.Config, data *points.GraphData, opts HeadlessOptions, log logging.Logger) (*HeadlessResult, error) {
	log = logging.OrNop(log)
	device := gpu.NewSoftwareDevice(log)
	profiler := NewProfiler()

	store := points.NewStore(settings.RandomSeed)
	store.ScreenSize = mgl32.Vec2{float32(opts.Width), float32(opts.Height)}
	store.SetTextureSizeFor(data.Count())

	p := points.New(device, settings, store, data, log)
	defer p.Destroy()
	if err := profiler.Measure("create", p.Create); err != nil {
		return nil, err
	}

	force := DefaultRingForce()
	for i := 0; i < opts.Steps; i++ {
		err := profiler.Measure("forces", func() error {
			return force.Apply(device, p, data.Count(), settings.SpaceSize)
		})
		if err != nil {
			return nil, err
		}
		if err := profiler.Measure("advance", p.Advance); err != nil {
			return nil, err
		}
	}

	result := &HeadlessResult{Profiler: profiler}
	if opts.Pick != nil {
		store.SelectedArea = *opts.Pick
		err := profiler.Measure("area pick", func() error {
			if err := p.PickInArea(); err != nil {
				return err
			}
			hits, err := p.ReadSelection()
			if err != nil {
				return err
			}
			result.Selected = hits
			store.SetSelectedIndices(data.SortedIndices(hits))
			return p.RebuildGreyout()
		})
		if err != nil {
			return nil, err
		}
		profiler.SetCount("selected", len(result.Selected))
	}

	w := int(math.Ceil(float64(float32(opts.Width) * settings.PixelRatio)))
	h := int(math.Ceil(float64(float32(opts.Height) * settings.PixelRatio)))
	device.ClearFrame(w, h, opts.Background)
	if err := profiler.Measure("draw", p.Draw); err != nil {
		return nil, err
	}
	result.Frame = device.FrameImage()

	stats := device.Stats()
	profiler.SetCount("passes", stats.Passes)
	profiler.SetCount("readbacks", stats.Readbacks)
	profiler.SetCount("targets", device.LiveTargets())
	return result, nil
}
