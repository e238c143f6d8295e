package compute

import (
	"encoding/binary"
	"math"
	"testing"
	"unsafe"
)

func TestPixelLayout(t *testing.T) {
	if got := unsafe.Sizeof(Pixel{}); got != PixelSize {
		t.Errorf("sizeof(Pixel) = %d, want %d", got, PixelSize)
	}
}

func TestBufferSize(t *testing.T) {
	tests := []struct {
		w, h int
		want uint64
	}{
		{3200, 2400, 122_880_000},
		{1, 1, 16},
		{33, 17, 33 * 17 * 16},
		{0, 100, 0},
		{100, -1, 0},
	}
	for _, tt := range tests {
		got := BufferSize(tt.w, tt.h)
		if got != tt.want {
			t.Errorf("BufferSize(%d, %d) = %d, want %d", tt.w, tt.h, got, tt.want)
		}
		if got%PixelSize != 0 {
			t.Errorf("BufferSize(%d, %d) = %d, not a multiple of %d", tt.w, tt.h, got, PixelSize)
		}
	}
}

func TestGroupCount(t *testing.T) {
	tests := []struct {
		name    string
		w, h, g int
		want    Grid
	}{
		{"reference", 3200, 2400, 32, Grid{100, 75, 1}},
		{"exact", 64, 64, 32, Grid{2, 2, 1}},
		{"round up width", 65, 64, 32, Grid{3, 2, 1}},
		{"round up both", 100, 50, 32, Grid{4, 2, 1}},
		{"smaller than group", 5, 3, 32, Grid{1, 1, 1}},
		{"unit group", 7, 9, 1, Grid{7, 9, 1}},
		{"zero width", 0, 10, 8, Grid{}},
		{"zero group", 10, 10, 0, Grid{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GroupCount(tt.w, tt.h, tt.g)
			if got != tt.want {
				t.Fatalf("GroupCount(%d, %d, %d) = %+v, want %+v", tt.w, tt.h, tt.g, got, tt.want)
			}
			if tt.g <= 0 || tt.w <= 0 {
				return
			}
			// Minimal cover: every pixel is inside the grid, and one group
			// fewer in either dimension would miss some.
			if int(got.X)*tt.g < tt.w || int(got.Y)*tt.g < tt.h {
				t.Errorf("grid %+v does not cover %dx%d", got, tt.w, tt.h)
			}
			if int(got.X-1)*tt.g >= tt.w || int(got.Y-1)*tt.g >= tt.h {
				t.Errorf("grid %+v is not minimal for %dx%d", got, tt.w, tt.h)
			}
		})
	}

	if got := (Grid{100, 75, 1}).Groups(); got != 7500 {
		t.Errorf("Groups() = %d, want 7500", got)
	}
}

func TestPixelView(t *testing.T) {
	b := make([]byte, 2*PixelSize)
	binary.LittleEndian.PutUint32(b[0:], math.Float32bits(0.25))
	binary.LittleEndian.PutUint32(b[28:], math.Float32bits(1))

	px := pixelView(b)
	if len(px) != 2 {
		t.Fatalf("len = %d, want 2", len(px))
	}
	if px[0].R != 0.25 || px[1].A != 1 {
		t.Errorf("pixels = %+v", px)
	}

	// The view aliases the bytes.
	px[1].G = 2
	if got := math.Float32frombits(binary.LittleEndian.Uint32(b[20:])); got != 2 {
		t.Errorf("write through view = %v, want 2", got)
	}

	if pixelView(nil) != nil {
		t.Error("pixelView(nil) should be nil")
	}
}
