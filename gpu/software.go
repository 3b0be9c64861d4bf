package gpu

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"sync"

	"github.com/gekko3d/pointstate/layout"
	"github.com/gekko3d/pointstate/logging"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// Stats counts device work. Tests use it to assert that an operation did
// or did not reach the device.
type Stats struct {
	TargetsCreated  int
	TargetsReleased int
	Uploads         int
	Readbacks       int
	Passes          int
}

// SoftwareDevice executes every program on the host, texel by texel,
// with the same formulas as the WGSL programs.
type SoftwareDevice struct {
	mu       sync.Mutex
	targets  map[uuid.UUID]*softwareTarget
	commands int
	stats    Stats

	frame  []float32
	frameW int
	frameH int
	log    logging.Logger
}

type softwareTarget struct {
	id     uuid.UUID
	label  string
	size   int
	texels []float32
	device *SoftwareDevice
}

func (t *softwareTarget) ID() uuid.UUID { return t.id }
func (t *softwareTarget) Label() string { return t.label }
func (t *softwareTarget) Size() int     { return t.size }

func (t *softwareTarget) Release() {
	t.device.release(t)
}

func NewSoftwareDevice(log logging.Logger) *SoftwareDevice {
	return &SoftwareDevice{
		targets: make(map[uuid.UUID]*softwareTarget),
		log:     logging.Scoped(log, "software"),
	}
}

func (d *SoftwareDevice) CreateTarget(label string, size int, data []float32) (Target, error) {
	if size <= 0 {
		return nil, fmt.Errorf("create target %q: invalid size %d", label, size)
	}
	if err := checkData(size, data); err != nil {
		return nil, fmt.Errorf("create target %q: %w", label, err)
	}

	t := &softwareTarget{
		id:     uuid.New(),
		label:  label,
		size:   size,
		texels: make([]float32, texelCount(size)),
		device: d,
	}
	copy(t.texels, data)

	d.mu.Lock()
	d.targets[t.id] = t
	d.stats.TargetsCreated++
	if data != nil {
		d.stats.Uploads++
	}
	d.mu.Unlock()

	d.log.Debugf("created target %s (%dx%d)", label, size, size)
	return t, nil
}

func (d *SoftwareDevice) release(t *softwareTarget) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.targets[t.id]; !ok {
		return
	}
	delete(d.targets, t.id)
	t.texels = nil
	d.stats.TargetsReleased++
}

func (d *SoftwareDevice) lookup(t Target) (*softwareTarget, error) {
	st, ok := t.(*softwareTarget)
	if !ok || st.device != d {
		return nil, ErrForeignTarget
	}
	d.mu.Lock()
	_, live := d.targets[st.id]
	d.mu.Unlock()
	if !live {
		return nil, fmt.Errorf("target %q: %w", st.label, ErrReleased)
	}
	return st, nil
}

func (d *SoftwareDevice) WriteTarget(t Target, data []float32) error {
	st, err := d.lookup(t)
	if err != nil {
		return err
	}
	if len(data) != len(st.texels) {
		return fmt.Errorf("write target %q: %w", st.label, ErrSizeMismatch)
	}
	copy(st.texels, data)
	d.count(func(s *Stats) { s.Uploads++ })
	return nil
}

func (d *SoftwareDevice) ReadTarget(t Target) ([]float32, error) {
	st, err := d.lookup(t)
	if err != nil {
		return nil, err
	}
	out := make([]float32, len(st.texels))
	copy(out, st.texels)
	d.count(func(s *Stats) { s.Readbacks++ })
	return out, nil
}

func (d *SoftwareDevice) count(f func(s *Stats)) {
	d.mu.Lock()
	f(&d.stats)
	d.mu.Unlock()
}

// Stats returns a snapshot of the work counters.
func (d *SoftwareDevice) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// LiveTargets is the number of targets created and not yet released.
func (d *SoftwareDevice) LiveTargets() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.targets)
}

// LiveCommands is the number of commands created and not yet released.
func (d *SoftwareDevice) LiveCommands() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.commands
}

type softwareCommand[In any] struct {
	device   *SoftwareDevice
	name     string
	run      func(In) error
	released bool
}

func (c *softwareCommand[In]) Run(in In) error {
	if c.released {
		return fmt.Errorf("command %s: %w", c.name, ErrReleased)
	}
	if err := c.run(in); err != nil {
		return fmt.Errorf("command %s: %w", c.name, err)
	}
	c.device.count(func(s *Stats) { s.Passes++ })
	return nil
}

func (c *softwareCommand[In]) Release() {
	if c.released {
		return
	}
	c.released = true
	c.device.mu.Lock()
	c.device.commands--
	c.device.mu.Unlock()
}

func newSoftwareCommand[In any](d *SoftwareDevice, name string, run func(In) error) *softwareCommand[In] {
	d.mu.Lock()
	d.commands++
	d.mu.Unlock()
	return &softwareCommand[In]{device: d, name: name, run: run}
}

func (d *SoftwareDevice) NewIntegrateCommand() (Command[IntegrateInputs], error) {
	return newSoftwareCommand(d, "integrate", d.integrate), nil
}

func (d *SoftwareDevice) NewDrawCommand() (Command[DrawInputs], error) {
	return newSoftwareCommand(d, "draw_points", d.drawPoints), nil
}

func (d *SoftwareDevice) NewPointPickCommand() (Command[PickInputs], error) {
	return newSoftwareCommand(d, "pick_point", func(in PickInputs) error {
		return d.pick(in, in.View.HitsPoint)
	}), nil
}

func (d *SoftwareDevice) NewAreaPickCommand() (Command[PickInputs], error) {
	return newSoftwareCommand(d, "pick_area", func(in PickInputs) error {
		return d.pick(in, in.View.HitsArea)
	}), nil
}

func texel(data []float32, i int) [4]float32 {
	return [4]float32{data[i*4], data[i*4+1], data[i*4+2], data[i*4+3]}
}

func (d *SoftwareDevice) integrate(in IntegrateInputs) error {
	if sameTarget(in.Target, in.Position) {
		return ErrAliased
	}
	dst, err := d.lookup(in.Target)
	if err != nil {
		return err
	}
	prev, err := d.lookup(in.Position)
	if err != nil {
		return err
	}
	vel, err := d.lookup(in.Velocity)
	if err != nil {
		return err
	}

	size := int(in.Simulation.TextureSize)
	if size != dst.size || size != prev.size || size != vel.size {
		return ErrSizeMismatch
	}
	for i := 0; i < size*size; i++ {
		p := in.Simulation.Step(texel(prev.texels, i), texel(vel.texels, i))
		copy(dst.texels[i*4:i*4+4], p[:])
	}
	return nil
}

func (d *SoftwareDevice) pick(in PickInputs, hits func(p mgl32.Vec2, size float32) bool) error {
	if sameTarget(in.Target, in.Positions) || sameTarget(in.Target, in.Sizes) {
		return ErrAliased
	}
	dst, err := d.lookup(in.Target)
	if err != nil {
		return err
	}
	pos, err := d.lookup(in.Positions)
	if err != nil {
		return err
	}
	sizes, err := d.lookup(in.Sizes)
	if err != nil {
		return err
	}

	size := int(in.View.TextureSize)
	if size != dst.size || size != pos.size || size != sizes.size {
		return ErrSizeMismatch
	}
	grid := layout.Grid{Size: size}
	for row := 0; row < size; row++ {
		for col := 0; col < size; col++ {
			i := grid.Index(col, row)
			p := mgl32.Vec2{pos.texels[i*4], pos.texels[i*4+1]}
			var hit float32
			if uint32(i) < in.View.Count && hits(p, sizes.texels[i*4]) {
				hit = 1
			}
			dst.texels[i*4] = hit
			dst.texels[i*4+1] = 0
			dst.texels[i*4+2] = p[0]
			dst.texels[i*4+3] = p[1]
		}
	}
	return nil
}

// ClearFrame resizes the framebuffer to width x height device pixels and
// fills it with c.
func (d *SoftwareDevice) ClearFrame(width, height int, c [4]float32) {
	if width != d.frameW || height != d.frameH || d.frame == nil {
		d.frame = make([]float32, width*height*4)
		d.frameW, d.frameH = width, height
	}
	for i := 0; i < width*height; i++ {
		copy(d.frame[i*4:i*4+4], c[:])
	}
}

// Frame returns the framebuffer (RGBA floats, row-major, top row first).
func (d *SoftwareDevice) Frame() ([]float32, int, int) {
	return d.frame, d.frameW, d.frameH
}

// FrameImage converts the framebuffer to an 8-bit image.
func (d *SoftwareDevice) FrameImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, d.frameW, d.frameH))
	to8 := func(f float32) uint8 {
		return uint8(mgl32.Clamp(f, 0, 1)*255 + 0.5)
	}
	for y := 0; y < d.frameH; y++ {
		for x := 0; x < d.frameW; x++ {
			i := (y*d.frameW + x) * 4
			img.SetNRGBA(x, y, color.NRGBA{
				R: to8(d.frame[i]),
				G: to8(d.frame[i+1]),
				B: to8(d.frame[i+2]),
				A: to8(d.frame[i+3]),
			})
		}
	}
	return img
}

// drawPoints rasterises every point as a disc of PointSize device pixels
// with "over" blending in draw order. There is no depth test.
func (d *SoftwareDevice) drawPoints(in DrawInputs) error {
	pos, err := d.lookup(in.Positions)
	if err != nil {
		return err
	}
	colors, err := d.lookup(in.Colors)
	if err != nil {
		return err
	}
	sizes, err := d.lookup(in.Sizes)
	if err != nil {
		return err
	}
	greyout, err := d.lookup(in.Greyout)
	if err != nil {
		return err
	}

	v := in.View
	if err := matchSize(int(v.TextureSize), in.Positions, in.Colors, in.Sizes, in.Greyout); err != nil {
		return err
	}
	w := int(math.Ceil(float64(v.ScreenSize[0] * v.Ratio)))
	h := int(math.Ceil(float64(v.ScreenSize[1] * v.Ratio)))
	if w != d.frameW || h != d.frameH || d.frame == nil {
		d.ClearFrame(w, h, [4]float32{})
	}

	grid := layout.Grid{Size: int(v.TextureSize)}
	for i := 0; i < int(v.Count); i++ {
		if !grid.Contains(i) {
			break
		}
		o := grid.Offset(i)
		center := v.ScreenPosition(mgl32.Vec2{pos.texels[o], pos.texels[o+1]}).Mul(v.Ratio)
		radius := v.PointSize(sizes.texels[o]*v.SizeScale) / 2
		if radius <= 0 {
			continue
		}
		c := texel(colors.texels, i)
		c[3] = v.PointAlpha(c[3], greyout.texels[o])
		d.fillDisc(center, radius, c)
	}
	return nil
}

func (d *SoftwareDevice) fillDisc(center mgl32.Vec2, radius float32, c [4]float32) {
	x0 := max(0, int(math.Floor(float64(center[0]-radius))))
	x1 := min(d.frameW-1, int(math.Ceil(float64(center[0]+radius))))
	y0 := max(0, int(math.Floor(float64(center[1]-radius))))
	y1 := min(d.frameH-1, int(math.Ceil(float64(center[1]+radius))))
	r2 := radius * radius

	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			dx := float32(x) + 0.5 - center[0]
			dy := float32(y) + 0.5 - center[1]
			if dx*dx+dy*dy > r2 {
				continue
			}
			i := (y*d.frameW + x) * 4
			a := c[3]
			for k := 0; k < 3; k++ {
				d.frame[i+k] = c[k]*a + d.frame[i+k]*(1-a)
			}
			d.frame[i+3] = a + d.frame[i+3]*(1-a)
		}
	}
}
