package compute

import (
	"testing"
)

func TestClockSeedDiffers(t *testing.T) {
	prev := ClockSeed()
	for range 1000 {
		s := ClockSeed()
		if s == prev {
			t.Fatalf("ClockSeed() returned %d twice in a row", s)
		}
		prev = s
	}
}
