// Package gpu is the device layer under the point state: float RGBA
// targets (a texture wrapped so passes can write into it) and the four
// programs that read them (integrate, draw, point pick, area pick).
//
// Two devices implement it. WebGPUDevice runs the WGSL programs from
// gpu/shaders. SoftwareDevice runs the same math from kernels.go on the
// host and is used for tests and headless runs.
package gpu

import (
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrReleased is returned when a released target or command is used.
	ErrReleased = errors.New("gpu: resource released")
	// ErrSizeMismatch is returned when host data does not cover a target exactly.
	ErrSizeMismatch = errors.New("gpu: data does not match target size")
	// ErrAliased is returned when a pass would read and write the same target.
	ErrAliased = errors.New("gpu: pass reads and writes the same target")
	// ErrForeignTarget is returned when a target created by another device is passed in.
	ErrForeignTarget = errors.New("gpu: target belongs to another device")
)

// Target is a square RGBA32 float texture usable both as a shader input
// and as the output of a pass.
type Target interface {
	ID() uuid.UUID
	Label() string
	// Size is the side of the texture in texels.
	Size() int
	Release()
}

// Command is a compiled GPU program bound to its inputs at Run time.
type Command[In any] interface {
	Run(in In) error
	Release()
}

// IntegrateInputs feeds one integration step. Target must differ from Position.
type IntegrateInputs struct {
	Target     Target
	Position   Target
	Velocity   Target
	Simulation Simulation
}

// DrawInputs feeds the point draw. View.Count points are drawn.
type DrawInputs struct {
	Positions Target
	Colors    Target
	Sizes     Target
	Greyout   Target
	View      View
}

// PickInputs feeds both picking programs. Every texel of Target is overwritten.
type PickInputs struct {
	Target    Target
	Positions Target
	Sizes     Target
	View      View
}

type Device interface {
	// CreateTarget allocates a size x size target. data may be nil for a
	// zeroed target, otherwise it must hold size*size*4 floats.
	CreateTarget(label string, size int, data []float32) (Target, error)
	WriteTarget(t Target, data []float32) error
	ReadTarget(t Target) ([]float32, error)

	NewIntegrateCommand() (Command[IntegrateInputs], error)
	NewDrawCommand() (Command[DrawInputs], error)
	NewPointPickCommand() (Command[PickInputs], error)
	NewAreaPickCommand() (Command[PickInputs], error)
}

func texelCount(size int) int {
	return size * size * 4
}

func checkData(size int, data []float32) error {
	if data != nil && len(data) != texelCount(size) {
		return ErrSizeMismatch
	}
	return nil
}

// matchSize returns ErrSizeMismatch unless every target is size x size.
func matchSize(size int, targets ...Target) error {
	for _, t := range targets {
		if t == nil || t.Size() != size {
			return ErrSizeMismatch
		}
	}
	return nil
}

func sameTarget(a, b Target) bool {
	return a != nil && b != nil && a.ID() == b.ID()
}
