package compute

import (
	"sync/atomic"
	"time"
)

var lastSeed atomic.Uint32

// ClockSeed derives a seed from the high-resolution wall clock, truncated
// to 32 bits. Two calls in the same process never return the same value.
func ClockSeed() uint32 {
	for {
		prev := lastSeed.Load()
		seed := uint32(time.Now().UnixNano()) //nolint:gosec // truncation intended
		if seed == prev {
			seed++
		}
		if lastSeed.CompareAndSwap(prev, seed) {
			return seed
		}
	}
}
