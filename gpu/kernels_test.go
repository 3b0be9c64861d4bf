package gpu

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func testView() View {
	return View{
		Transform:      mgl32.Ident3(),
		ScreenSize:     mgl32.Vec2{100, 100},
		SpaceSize:      100,
		Ratio:          1,
		SizeScale:      1,
		MaxPointSize:   64,
		ScaleOnZoom:    true,
		GreyoutOpacity: 0.1,
		TextureSize:    2,
		Count:          4,
	}
}

func TestSimulationStep(t *testing.T) {
	sim := Simulation{Friction: 0.5, SpaceSize: 10, TextureSize: 1}

	got := sim.Step([4]float32{5, 5, 7, 8}, [4]float32{2, -4, 0, 0})
	if got != [4]float32{6, 3, 7, 8} {
		t.Errorf("unexpected step result %v", got)
	}

	got = sim.Step([4]float32{9, 1, 0, 0}, [4]float32{10, -10, 0, 0})
	if got[0] != 10 || got[1] != 0 {
		t.Errorf("position should be clamped to the space, got %v", got)
	}
}

func TestSimulationStep_ZeroVelocityIsIdentity(t *testing.T) {
	sim := Simulation{Friction: 0.85, SpaceSize: 4096, TextureSize: 1}
	p := [4]float32{1234.5, 17, 0, 0}
	for i := 0; i < 10; i++ {
		p = sim.Step(p, [4]float32{})
	}
	if p != [4]float32{1234.5, 17, 0, 0} {
		t.Errorf("position drifted to %v", p)
	}
}

func TestViewPointSize(t *testing.T) {
	v := testView()
	if got := v.PointSize(4); got != 4 {
		t.Errorf("PointSize(4) = %f, want 4", got)
	}

	v.Transform[0] = 3
	if got := v.PointSize(4); got != 12 {
		t.Errorf("zoomed PointSize(4) = %f, want 12", got)
	}

	v.Ratio = 2
	if got := v.PointSize(100); got != 128 {
		t.Errorf("PointSize should clamp to MaxPointSize*Ratio, got %f", got)
	}

	v = testView()
	v.ScaleOnZoom = false
	v.Transform[0] = 300
	if got := v.PointSize(4); got != 12 {
		t.Errorf("unscaled PointSize(4) at zoom 300 = %f, want 12", got)
	}
	v.Transform[0] = 10000
	if got := v.PointSize(4); got != 20 {
		t.Errorf("unscaled zoom factor should cap at 5, got %f", got)
	}
}

func TestViewScreenPosition(t *testing.T) {
	v := testView()

	if got := v.ScreenPosition(mgl32.Vec2{50, 50}); !got.ApproxEqual(mgl32.Vec2{50, 50}) {
		t.Errorf("space center should land on screen center, got %v", got)
	}
	if got := v.ScreenPosition(mgl32.Vec2{0, 0}); !got.ApproxEqual(mgl32.Vec2{0, 100}) {
		t.Errorf("space origin should land bottom-left, got %v", got)
	}
}

func TestViewHits(t *testing.T) {
	v := testView()
	v.Pointer = mgl32.Vec2{51, 50}

	if !v.HitsPoint(mgl32.Vec2{50, 50}, 4) {
		t.Error("pointer inside the footprint should hit")
	}
	v.Pointer = mgl32.Vec2{53, 50}
	if v.HitsPoint(mgl32.Vec2{50, 50}, 4) {
		t.Error("pointer outside the footprint should miss")
	}
	if v.HitsPoint(mgl32.Vec2{53, 50}, 0) {
		t.Error("zero-sized points are never hit")
	}

	v.SelectionMin = mgl32.Vec2{40, 40}
	v.SelectionMax = mgl32.Vec2{50, 50}
	if !v.HitsArea(mgl32.Vec2{50, 50}, 4) {
		t.Error("selection bounds are inclusive")
	}
	if !v.HitsArea(mgl32.Vec2{51.5, 50}, 4) {
		t.Error("a disc overlapping the rectangle should hit")
	}
	if v.HitsArea(mgl32.Vec2{60, 50}, 4) {
		t.Error("a disc outside the rectangle should miss")
	}
	if v.HitsArea(mgl32.Vec2{45, 45}, 0) {
		t.Error("zero-sized points are never selected")
	}
}

func TestViewPointAlpha(t *testing.T) {
	v := testView()
	if got := v.PointAlpha(1, 0); got != 1 {
		t.Errorf("alpha without greyout = %f", got)
	}
	if got := v.PointAlpha(1, 1); math.Abs(float64(got-0.1)) > 1e-6 {
		t.Errorf("alpha with greyout = %f, want 0.1", got)
	}
}

func TestViewUniformLayout(t *testing.T) {
	v := testView()
	v.Transform = mgl32.Mat3{1, 2, 3, 4, 5, 6, 7, 8, 9}
	v.Count = 42
	buf := v.uniformBytes()

	if len(buf) != viewUniformSize {
		t.Fatalf("uniform size %d, want %d", len(buf), viewUniformSize)
	}
	f := func(off int) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(buf[off:])) }

	// second column starts on a 16 byte boundary
	if f(16) != 4 || f(24) != 6 || f(32) != 7 {
		t.Errorf("matrix columns are not padded: %v %v %v", f(16), f(24), f(32))
	}
	if binary.LittleEndian.Uint32(buf[72:]) != 1 {
		t.Error("scale_on_zoom flag not set")
	}
	if binary.LittleEndian.Uint32(buf[108:]) != 42 {
		t.Error("count not written at offset 108")
	}
	if len(Simulation{}.uniformBytes()) != simulationUniformSize {
		t.Error("simulation uniform size mismatch")
	}
}
