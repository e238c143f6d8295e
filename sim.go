package mandel

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/mandel/internal/compute"
	"github.com/gogpu/mandel/internal/kernel"
	"github.com/gogpu/mandel/internal/simgpu"
)

// referenceKernel computes the built-in kernel's pixels in Go for the
// simulated device. Binding 0 holds the pixels, binding 1 the seed.
func referenceKernel(width, height int) simgpu.Kernel {
	return func(inv simgpu.Invocation, bindings [][]byte) {
		x, y := int(inv.Global[0]), int(inv.Global[1])
		if x >= width || y >= height || len(bindings) < 2 {
			return
		}
		seed := binary.LittleEndian.Uint32(bindings[1])
		r, g, b, a := kernel.Shade(x, y, width, height, seed)

		off := (y*width + x) * compute.PixelSize
		px := bindings[0][off : off+compute.PixelSize]
		binary.LittleEndian.PutUint32(px[0:], math.Float32bits(r))
		binary.LittleEndian.PutUint32(px[4:], math.Float32bits(g))
		binary.LittleEndian.PutUint32(px[8:], math.Float32bits(b))
		binary.LittleEndian.PutUint32(px[12:], math.Float32bits(a))
	}
}
