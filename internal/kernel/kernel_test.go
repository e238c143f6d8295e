package kernel

import (
	"encoding/binary"
	"errors"
	"math/bits"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func spirvHeader(order binary.ByteOrder) []byte {
	words := []uint32{SPIRVMagic, 0x00010300, 0, 16, 0}
	b := make([]byte, 4*len(words))
	for i, w := range words {
		order.PutUint32(b[i*4:], w)
	}
	return b
}

func TestWords(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		wantErr bool
	}{
		{"little endian", spirvHeader(binary.LittleEndian), false},
		{"big endian", spirvHeader(binary.BigEndian), false},
		{"truncated", spirvHeader(binary.LittleEndian)[:18], true},
		{"too short", []byte{0x03, 0x02, 0x23, 0x07}, true},
		{"bad magic", make([]byte, 20), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := Words(tt.data)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidSPIRV) {
					t.Fatalf("Words() error = %v, want ErrInvalidSPIRV", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Words() error = %v", err)
			}
			if code[0] != SPIRVMagic {
				t.Errorf("code[0] = %#x, want magic", code[0])
			}
			if code[3] != 16 {
				t.Errorf("bound word = %d, want 16", code[3])
			}
		})
	}
}

func TestExpand(t *testing.T) {
	src := Source(Params{Width: 3200, Height: 2400, GroupSize: 32})

	for _, want := range []string{
		"const WIDTH: u32 = 3200u;",
		"const HEIGHT: u32 = 2400u;",
		"@workgroup_size(32, 32, 1)",
		"fn main(",
	} {
		if !strings.Contains(src, want) {
			t.Errorf("source does not contain %q", want)
		}
	}
	if strings.Contains(src, "{{") {
		t.Error("source still contains placeholders")
	}
}

func TestCompileBuiltin(t *testing.T) {
	code, err := Compile(Source(Params{Width: 64, Height: 48, GroupSize: 8}))
	if err != nil {
		if strings.Contains(err.Error(), "not yet implemented") || strings.Contains(err.Error(), "not supported") {
			t.Skipf("Skipping: naga feature not yet implemented: %v", err)
		}
		t.Fatalf("Compile() error = %v", err)
	}
	if len(code) < 5 || code[0] != SPIRVMagic {
		t.Fatalf("compiled module does not start with the SPIR-V magic")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	p := Params{Width: 16, Height: 16, GroupSize: 8}

	spv := filepath.Join(dir, "kernel.spv")
	if err := os.WriteFile(spv, spirvHeader(binary.LittleEndian), 0o600); err != nil {
		t.Fatal(err)
	}
	code, err := Load(spv, p)
	if err != nil {
		t.Fatalf("Load(.spv) error = %v", err)
	}
	if len(code) != 5 {
		t.Errorf("Load(.spv) = %d words, want 5", len(code))
	}

	glsl := filepath.Join(dir, "kernel.comp")
	if err := os.WriteFile(glsl, []byte("#version 450"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(glsl, p); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Load(.comp) error = %v, want ErrUnsupportedFormat", err)
	}

	if _, err := Load(filepath.Join(dir, "missing.spv"), p); err == nil {
		t.Error("Load(missing) should fail")
	}
}

func TestEscape(t *testing.T) {
	const w, h = 320, 240

	// Pixel (229, 120) maps to c ~ 0.005, inside the main cardioid.
	if n := Escape(229, h/2, w, h); n != MaxIterations {
		t.Errorf("Escape(inside) = %d, want %d", n, MaxIterations)
	}
	// The left edge maps to c = -2.5, which escapes immediately.
	if n := Escape(0, h/2, w, h); n > 2 {
		t.Errorf("Escape(left edge) = %d, want <= 2", n)
	}
}

func TestShade(t *testing.T) {
	const w, h = 320, 240

	r, g, b, a := Shade(229, h/2, w, h, 42)
	if r != 0 || g != 0 || b != 0 || a != 1 {
		t.Errorf("Shade(inside) = (%v, %v, %v, %v), want opaque black", r, g, b, a)
	}

	r1, g1, b1, _ := Shade(10, 10, w, h, 1)
	r2, g2, b2, _ := Shade(10, 10, w, h, 0xdeadbeef)
	if r1 == r2 && g1 == g2 && b1 == b2 {
		t.Error("different seeds should shift the palette")
	}
	for _, c := range []float32{r1, g1, b1, r2, g2, b2} {
		if c < 0 || c > 1 {
			t.Errorf("channel %v outside [0, 1]", c)
		}
	}
}

func TestMixSeed(t *testing.T) {
	if MixSeed(1) == MixSeed(2) {
		t.Error("MixSeed should separate adjacent seeds")
	}
	if bits.OnesCount32(MixSeed(1)^MixSeed(2)) < 4 {
		t.Error("MixSeed should change many bits for adjacent seeds")
	}
}
