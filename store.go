package points

import (
	"math/rand/v2"
	"slices"

	"github.com/gekko3d/pointstate/layout"
	"github.com/go-gl/mathgl/mgl32"
)

// Store is the runtime state Points reads on every call: grid size,
// camera, screen, pointer, selection, and the seeded random source.
type Store struct {
	// TextureSize is the side T of every state texture. T*T must cover the
	// particle count.
	TextureSize int
	// Transform maps normalized space coordinates to clip space.
	Transform mgl32.Mat3
	// ScreenSize is in logical pixels.
	ScreenSize      mgl32.Vec2
	PointerPosition mgl32.Vec2
	// SelectedArea holds two opposite corners in logical pixels, in any order.
	SelectedArea [2]mgl32.Vec2
	// SelectedIndices are sorted indices of highlighted particles.
	SelectedIndices []int
	// MaxPointSize bounds the rendered and picked point diameter, in
	// logical pixels.
	MaxPointSize float32

	rng *rand.Rand
}

const DefaultMaxPointSize = 64

func NewStore(seed uint64) *Store {
	return &Store{
		Transform:    mgl32.Ident3(),
		MaxPointSize: DefaultMaxPointSize,
		rng:          rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// RandomFloat returns a uniform value in [0, 1). The sequence is fixed by
// the seed passed to NewStore.
func (s *Store) RandomFloat() float32 {
	return s.rng.Float32()
}

// SetTextureSizeFor picks the smallest grid that fits n particles.
func (s *Store) SetTextureSizeFor(n int) {
	s.TextureSize = layout.SizeFor(n)
}

// SetZoomPan sets a uniform zoom followed by a clip-space pan.
func (s *Store) SetZoomPan(zoom float32, pan mgl32.Vec2) {
	s.Transform = mgl32.Mat3{
		zoom, 0, 0,
		0, zoom, 0,
		pan[0], pan[1], 1,
	}
}

func (s *Store) Zoom() float32 {
	return s.Transform[0]
}

// SetSelectedIndices replaces the highlighted set. nil clears the highlight,
// an empty slice highlights nothing. Call Points.RebuildGreyout afterwards.
func (s *Store) SetSelectedIndices(indices []int) {
	s.SelectedIndices = slices.Clone(indices)
	slices.Sort(s.SelectedIndices)
	s.SelectedIndices = slices.Compact(s.SelectedIndices)
}

// selectionBounds returns the selection rectangle as min and max corners.
func (s *Store) selectionBounds() (lo, hi mgl32.Vec2) {
	a, b := s.SelectedArea[0], s.SelectedArea[1]
	lo = mgl32.Vec2{min(a[0], b[0]), min(a[1], b[1])}
	hi = mgl32.Vec2{max(a[0], b[0]), max(a[1], b[1])}
	return lo, hi
}
