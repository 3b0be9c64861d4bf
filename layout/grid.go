// Package layout maps logical particle indices to texels of the square
// float textures that hold per-particle state.
//
// The mapping is row-major:
//
//	col = index % T
//	row = index / T
//	index = row*T + col
//
// The WGSL helpers texel_of and index_of in gpu/shaders/common.wgsl are
// the shader side of the same formula. Both sides must stay identical.
package layout

// Channels is the number of float channels per texel (RGBA).
const Channels = 4

// Grid is a square texture grid of side Size.
type Grid struct {
	Size int
}

// Texel returns the column and row of index.
func (g Grid) Texel(index int) (col, row int) {
	return index % g.Size, index / g.Size
}

// Index is the inverse of Texel.
func (g Grid) Index(col, row int) int {
	return row*g.Size + col
}

// Offset returns the position of index's first channel in a host-side
// RGBA float array of Capacity()*Channels elements.
func (g Grid) Offset(index int) int {
	col, row := g.Texel(index)
	return g.Index(col, row) * Channels
}

// Capacity is the number of texels in the grid.
func (g Grid) Capacity() int {
	return g.Size * g.Size
}

// Contains reports whether index addresses a texel of the grid.
func (g Grid) Contains(index int) bool {
	return index >= 0 && index < g.Capacity()
}

// Fits reports whether n particles fit into the grid.
func (g Grid) Fits(n int) bool {
	return n <= g.Capacity()
}

// NewState allocates a zeroed host-side RGBA array for the grid.
func (g Grid) NewState() []float32 {
	return make([]float32, g.Capacity()*Channels)
}

// SizeFor returns the smallest side T with T*T >= n. It never returns
// less than 1 so that empty particle sets still get a valid texture.
func SizeFor(n int) int {
	size := 1
	for size*size < n {
		size++
	}
	return size
}
