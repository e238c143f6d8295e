package compute

import (
	"unsafe"
)

// Pixel is one element of the output buffer: four tightly packed
// 32-bit float channels.
type Pixel struct {
	R, G, B, A float32
}

// PixelSize is the size of a Pixel in bytes.
const PixelSize = 16

// SeedSize is the size of the seed uniform in bytes.
const SeedSize = 4

// BufferSize returns the byte size of the output buffer for a
// width x height image. It is always a multiple of PixelSize.
func BufferSize(width, height int) uint64 {
	if width <= 0 || height <= 0 {
		return 0
	}
	return uint64(width) * uint64(height) * PixelSize //nolint:gosec // both checked positive
}

// Grid is the number of work-groups dispatched in each dimension.
type Grid struct {
	X, Y, Z uint32
}

// Groups returns the total number of work-groups in the grid.
func (g Grid) Groups() uint64 {
	return uint64(g.X) * uint64(g.Y) * uint64(g.Z)
}

// GroupCount returns the minimal grid of groupSize x groupSize work-groups
// covering a width x height image. Edges that are not a multiple of the
// group size get one extra, partially used, group.
func GroupCount(width, height, groupSize int) Grid {
	if width <= 0 || height <= 0 || groupSize <= 0 {
		return Grid{}
	}
	return Grid{
		X: uint32((width + groupSize - 1) / groupSize),  //nolint:gosec // positive
		Y: uint32((height + groupSize - 1) / groupSize), //nolint:gosec // positive
		Z: 1,
	}
}

// pixelView reinterprets mapped memory as row-major pixels without copying.
// The returned slice aliases b and is only valid while b is.
func pixelView(b []byte) []Pixel {
	n := len(b) / PixelSize
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*Pixel)(unsafe.Pointer(&b[0])), n) //nolint:gosec // mapped memory is at least 4-byte aligned
}
