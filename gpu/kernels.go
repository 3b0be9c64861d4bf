package gpu

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Simulation holds the integrator uniforms.
type Simulation struct {
	Friction    float32
	SpaceSize   float32
	TextureSize uint32
}

// Step advances one texel: the velocity is damped by friction, added to
// the position, and the position is clamped to [0, SpaceSize].
// Channels 2 and 3 are carried over unchanged.
func (s Simulation) Step(position, velocity [4]float32) [4]float32 {
	vx := velocity[0] * s.Friction
	vy := velocity[1] * s.Friction
	position[0] = mgl32.Clamp(position[0]+vx, 0, s.SpaceSize)
	position[1] = mgl32.Clamp(position[1]+vy, 0, s.SpaceSize)
	return position
}

// struct Simulation { friction: f32, space_size: f32, texture_size: u32, pad: u32 }
const simulationUniformSize = 16

func (s Simulation) uniformBytes() []byte {
	buf := make([]byte, simulationUniformSize)
	binary.LittleEndian.PutUint32(buf[0:], math.Float32bits(s.Friction))
	binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(s.SpaceSize))
	binary.LittleEndian.PutUint32(buf[8:], s.TextureSize)
	return buf
}

// View holds the uniforms shared by the draw and pick programs.
// Screen coordinates are logical pixels with the origin at the top-left.
type View struct {
	Transform      mgl32.Mat3
	ScreenSize     mgl32.Vec2
	SpaceSize      float32
	Ratio          float32
	SizeScale      float32
	MaxPointSize   float32
	ScaleOnZoom    bool
	GreyoutOpacity float32
	Pointer        mgl32.Vec2
	SelectionMin   mgl32.Vec2
	SelectionMax   mgl32.Vec2
	TextureSize    uint32
	Count          uint32
}

// PointSize returns the diameter in device pixels for an already scaled size.
func (v View) PointSize(size float32) float32 {
	zoom := v.Transform[0]
	var px float32
	if v.ScaleOnZoom {
		px = size * v.Ratio * zoom
	} else {
		px = size * v.Ratio * min(5, max(1, zoom*0.01))
	}
	return min(px, v.MaxPointSize*v.Ratio)
}

// ClipPosition projects a world position into normalized device coordinates.
func (v View) ClipPosition(p mgl32.Vec2) mgl32.Vec2 {
	nx := 2*p[0]/v.SpaceSize - 1
	ny := 2*p[1]/v.SpaceSize - 1
	nx = nx * v.SpaceSize / v.ScreenSize[0]
	ny = ny * v.SpaceSize / v.ScreenSize[1]
	f := v.Transform.Mul3x1(mgl32.Vec3{nx, ny, 1})
	return mgl32.Vec2{f[0], f[1]}
}

// ScreenPosition projects a world position into logical pixels.
func (v View) ScreenPosition(p mgl32.Vec2) mgl32.Vec2 {
	c := v.ClipPosition(p)
	return mgl32.Vec2{
		(c[0] + 1) * 0.5 * v.ScreenSize[0],
		(1 - c[1]) * 0.5 * v.ScreenSize[1],
	}
}

// HitsPoint reports whether the rendered footprint of a point covers the pointer.
func (v View) HitsPoint(p mgl32.Vec2, size float32) bool {
	radius := v.PointSize(size*v.SizeScale) / (2 * v.Ratio)
	if radius <= 0 {
		return false
	}
	return v.ScreenPosition(p).Sub(v.Pointer).Len() < radius
}

// HitsArea reports whether the rendered footprint of a visible point
// reaches into the selection rectangle: the rectangle, bounds included, is
// grown by the point's logical radius before testing the projected centre.
func (v View) HitsArea(p mgl32.Vec2, size float32) bool {
	px := v.PointSize(size * v.SizeScale)
	if px <= 0 {
		return false
	}
	r := px / (2 * v.Ratio)
	s := v.ScreenPosition(p)
	return s[0] >= v.SelectionMin[0]-r && s[0] <= v.SelectionMax[0]+r &&
		s[1] >= v.SelectionMin[1]-r && s[1] <= v.SelectionMax[1]+r
}

// PointAlpha applies the greyout policy to a point colour's alpha.
func (v View) PointAlpha(alpha, greyout float32) float32 {
	if greyout > 0 {
		return alpha * v.GreyoutOpacity
	}
	return alpha
}

// Uniform layout of struct View in view.wgsl:
//
//	transform       mat3x3<f32>  0   (3 columns, 16 bytes each)
//	screen_size     vec2<f32>    48
//	space_size      f32          56
//	ratio           f32          60
//	size_scale      f32          64
//	max_point_size  f32          68
//	scale_on_zoom   u32          72
//	greyout_opacity f32          76
//	pointer         vec2<f32>    80
//	selection_min   vec2<f32>    88
//	selection_max   vec2<f32>    96
//	texture_size    u32          104
//	count           u32          108
const viewUniformSize = 112

func (v View) uniformBytes() []byte {
	buf := make([]byte, viewUniformSize)
	putF := func(offset int, f float32) {
		binary.LittleEndian.PutUint32(buf[offset:], math.Float32bits(f))
	}

	for col := 0; col < 3; col++ {
		for row := 0; row < 3; row++ {
			putF(col*16+row*4, v.Transform[col*3+row])
		}
	}
	putF(48, v.ScreenSize[0])
	putF(52, v.ScreenSize[1])
	putF(56, v.SpaceSize)
	putF(60, v.Ratio)
	putF(64, v.SizeScale)
	putF(68, v.MaxPointSize)
	if v.ScaleOnZoom {
		binary.LittleEndian.PutUint32(buf[72:], 1)
	}
	putF(76, v.GreyoutOpacity)
	putF(80, v.Pointer[0])
	putF(84, v.Pointer[1])
	putF(88, v.SelectionMin[0])
	putF(92, v.SelectionMin[1])
	putF(96, v.SelectionMax[0])
	putF(100, v.SelectionMax[1])
	binary.LittleEndian.PutUint32(buf[104:], v.TextureSize)
	binary.LittleEndian.PutUint32(buf[108:], v.Count)
	return buf
}
