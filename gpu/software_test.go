package gpu

import (
	"testing"

	"github.com/gekko3d/pointstate/layout"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func filled(size int, f func(i int) [4]float32) []float32 {
	g := layout.Grid{Size: size}
	data := g.NewState()
	for i := 0; i < g.Capacity(); i++ {
		v := f(i)
		copy(data[g.Offset(i):], v[:])
	}
	return data
}

func TestSoftwareDevice_TargetRoundTrip(t *testing.T) {
	d := NewSoftwareDevice(nil)
	data := filled(2, func(i int) [4]float32 { return [4]float32{float32(i), 1, 2, 3} })

	target, err := d.CreateTarget("positions", 2, data)
	require.NoError(t, err)
	assert.Equal(t, "positions", target.Label())
	assert.Equal(t, 2, target.Size())

	got, err := d.ReadTarget(target)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	got[0] = 99
	again, _ := d.ReadTarget(target)
	assert.Equal(t, float32(0), again[0], "readback must be a copy")

	zeroed, err := d.CreateTarget("zeroed", 3, nil)
	require.NoError(t, err)
	z, _ := d.ReadTarget(zeroed)
	assert.Len(t, z, 36)

	stats := d.Stats()
	assert.Equal(t, 2, stats.TargetsCreated)
	assert.Equal(t, 1, stats.Uploads)
	assert.Equal(t, 3, stats.Readbacks)
}

func TestSoftwareDevice_SizeChecks(t *testing.T) {
	d := NewSoftwareDevice(nil)

	_, err := d.CreateTarget("bad", 2, make([]float32, 3))
	assert.ErrorIs(t, err, ErrSizeMismatch)
	_, err = d.CreateTarget("bad", 0, nil)
	assert.Error(t, err)

	target, err := d.CreateTarget("ok", 2, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, d.WriteTarget(target, make([]float32, 4)), ErrSizeMismatch)
	assert.NoError(t, d.WriteTarget(target, make([]float32, 16)))
}

func TestSoftwareDevice_Release(t *testing.T) {
	d := NewSoftwareDevice(nil)
	target, err := d.CreateTarget("t", 1, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, d.LiveTargets())

	target.Release()
	target.Release()
	assert.Equal(t, 0, d.LiveTargets())
	assert.Equal(t, 1, d.Stats().TargetsReleased)

	_, err = d.ReadTarget(target)
	assert.ErrorIs(t, err, ErrReleased)
}

func TestSoftwareDevice_ForeignTarget(t *testing.T) {
	a := NewSoftwareDevice(nil)
	b := NewSoftwareDevice(nil)
	target, err := a.CreateTarget("t", 1, nil)
	require.NoError(t, err)

	_, err = b.ReadTarget(target)
	assert.ErrorIs(t, err, ErrForeignTarget)
}

func TestSoftwareDevice_Integrate(t *testing.T) {
	d := NewSoftwareDevice(nil)
	sim := Simulation{Friction: 0.5, SpaceSize: 100, TextureSize: 2}

	prev, _ := d.CreateTarget("prev", 2, filled(2, func(i int) [4]float32 { return [4]float32{10, 10, 0, 0} }))
	vel, _ := d.CreateTarget("vel", 2, filled(2, func(i int) [4]float32 { return [4]float32{float32(i), -2, 0, 0} }))
	cur, _ := d.CreateTarget("cur", 2, nil)

	cmd, err := d.NewIntegrateCommand()
	require.NoError(t, err)
	defer cmd.Release()

	require.NoError(t, cmd.Run(IntegrateInputs{Target: cur, Position: prev, Velocity: vel, Simulation: sim}))

	got, _ := d.ReadTarget(cur)
	for i := 0; i < 4; i++ {
		assert.InDelta(t, 10+float32(i)*0.5, got[i*4], 1e-6)
		assert.InDelta(t, 9, got[i*4+1], 1e-6)
	}
	before, _ := d.ReadTarget(prev)
	assert.Equal(t, float32(10), before[0], "source must be untouched")
	assert.Equal(t, 1, d.Stats().Passes)
}

func TestSoftwareDevice_IntegrateRejectsAliasing(t *testing.T) {
	d := NewSoftwareDevice(nil)
	pos, _ := d.CreateTarget("pos", 1, nil)
	vel, _ := d.CreateTarget("vel", 1, nil)

	cmd, err := d.NewIntegrateCommand()
	require.NoError(t, err)
	err = cmd.Run(IntegrateInputs{Target: pos, Position: pos, Velocity: vel, Simulation: Simulation{TextureSize: 1}})
	assert.ErrorIs(t, err, ErrAliased)
	assert.Equal(t, 0, d.Stats().Passes)
}

func TestSoftwareDevice_CommandLifetime(t *testing.T) {
	d := NewSoftwareDevice(nil)
	cmd, err := d.NewAreaPickCommand()
	require.NoError(t, err)
	assert.Equal(t, 1, d.LiveCommands())

	cmd.Release()
	cmd.Release()
	assert.Equal(t, 0, d.LiveCommands())
	assert.ErrorIs(t, cmd.Run(PickInputs{}), ErrReleased)
}

func TestSoftwareDevice_PickIgnoresPadding(t *testing.T) {
	d := NewSoftwareDevice(nil)
	// All four texels sit on the same spot, only three are particles.
	pos, _ := d.CreateTarget("pos", 2, filled(2, func(int) [4]float32 { return [4]float32{50, 50, 0, 0} }))
	sizes, _ := d.CreateTarget("sizes", 2, filled(2, func(int) [4]float32 { return [4]float32{4, 0, 0, 0} }))
	sel, _ := d.CreateTarget("sel", 2, nil)

	view := testView()
	view.Count = 3
	view.Pointer = mgl32.Vec2{50, 50}

	cmd, err := d.NewPointPickCommand()
	require.NoError(t, err)
	require.NoError(t, cmd.Run(PickInputs{Target: sel, Positions: pos, Sizes: sizes, View: view}))

	got, _ := d.ReadTarget(sel)
	assert.Equal(t, []float32{1, 0, 50, 50}, got[0:4])
	assert.Equal(t, float32(1), got[8])
	assert.Equal(t, []float32{0, 0, 50, 50}, got[12:16])
}

func TestSoftwareDevice_Draw(t *testing.T) {
	d := NewSoftwareDevice(nil)
	pos, _ := d.CreateTarget("pos", 1, []float32{50, 50, 0, 0})
	colors, _ := d.CreateTarget("colors", 1, []float32{1, 0, 0, 1})
	sizes, _ := d.CreateTarget("sizes", 1, []float32{10, 0, 0, 0})
	greyout, _ := d.CreateTarget("greyout", 1, nil)

	view := testView()
	view.TextureSize = 1
	view.Count = 1

	cmd, err := d.NewDrawCommand()
	require.NoError(t, err)
	d.ClearFrame(100, 100, [4]float32{0, 0, 0, 1})
	require.NoError(t, cmd.Run(DrawInputs{Positions: pos, Colors: colors, Sizes: sizes, Greyout: greyout, View: view}))

	frame, w, h := d.Frame()
	require.Equal(t, 100, w)
	require.Equal(t, 100, h)
	center := (50*w + 50) * 4
	assert.Equal(t, []float32{1, 0, 0, 1}, frame[center:center+4])
	corner := 0
	assert.Equal(t, []float32{0, 0, 0, 1}, frame[corner:corner+4])

	img := d.FrameImage()
	assert.Equal(t, uint8(255), img.NRGBAAt(50, 50).R)

	// greyed out points are drawn with reduced alpha
	require.NoError(t, d.WriteTarget(greyout, []float32{1, 0, 0, 0}))
	d.ClearFrame(100, 100, [4]float32{0, 0, 0, 1})
	require.NoError(t, cmd.Run(DrawInputs{Positions: pos, Colors: colors, Sizes: sizes, Greyout: greyout, View: view}))
	frame, _, _ = d.Frame()
	assert.InDelta(t, 0.1, frame[center], 1e-6)
}

func TestSoftwareDevice_DrawRejectsMixedSizes(t *testing.T) {
	d := NewSoftwareDevice(nil)
	pos, _ := d.CreateTarget("pos", 1, []float32{50, 50, 0, 0})
	colors, _ := d.CreateTarget("colors", 1, []float32{1, 0, 0, 1})
	sizes, _ := d.CreateTarget("sizes", 2, nil)
	greyout, _ := d.CreateTarget("greyout", 1, nil)

	view := testView()
	view.TextureSize = 1
	view.Count = 1

	cmd, err := d.NewDrawCommand()
	require.NoError(t, err)
	d.ClearFrame(100, 100, [4]float32{0, 0, 0, 1})
	err = cmd.Run(DrawInputs{Positions: pos, Colors: colors, Sizes: sizes, Greyout: greyout, View: view})
	assert.ErrorIs(t, err, ErrSizeMismatch)

	frame, _, _ := d.Frame()
	center := (50*100 + 50) * 4
	assert.Equal(t, []float32{0, 0, 0, 1}, frame[center:center+4], "nothing is drawn")
}
