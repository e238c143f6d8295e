package kernel

import (
	"math"
)

// MaxIterations is the escape-time iteration limit of the built-in kernel.
const MaxIterations = 128

const (
	span = 3.5
	tau  = 2 * math.Pi
)

// MixSeed is the seed hash used for the palette phase.
func MixSeed(x uint32) uint32 {
	h := x
	h ^= h >> 16
	h *= 0x7feb352d
	h ^= h >> 15
	h *= 0x846ca68b
	h ^= h >> 16
	return h
}

// Escape returns the iteration count at which pixel (x, y) of a
// width x height image escapes, or MaxIterations if it does not.
func Escape(x, y, width, height int) int {
	scale := float32(span) / float32(width)
	cx := (float32(x)-0.5*float32(width))*scale - 0.75
	cy := (float32(y) - 0.5*float32(height)) * scale

	var zx, zy float32
	n := 0
	for n < MaxIterations && zx*zx+zy*zy <= 4 {
		zx, zy = zx*zx-zy*zy+cx, 2*zx*zy+cy
		n++
	}
	return n
}

// Shade returns the color of pixel (x, y) as the built-in kernel
// computes it.
func Shade(x, y, width, height int, seed uint32) (r, g, b, a float32) {
	n := Escape(x, y, width, height)
	if n >= MaxIterations {
		return 0, 0, 0, 1
	}
	phase := float64(MixSeed(seed)&0xffff) / 65535
	t := float64(n) / MaxIterations
	channel := func(offset float64) float32 {
		return float32(0.5 + 0.5*math.Cos(tau*(t+phase+offset)))
	}
	return channel(0), channel(0.33), channel(0.67), 1
}
