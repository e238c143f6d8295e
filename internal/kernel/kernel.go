// Package kernel provides the fractal compute kernel as SPIR-V.
//
// The built-in kernel is WGSL embedded in the binary and compiled with
// naga. A kernel file can be supplied instead: .spv files are passed to
// the driver as-is, .wgsl files are compiled.
package kernel

import (
	_ "embed"
	"encoding/binary"
	"errors"
	"fmt"
	"math/bits"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gogpu/naga"
)

// SPIRVMagic is the first word of every SPIR-V module.
const SPIRVMagic = 0x07230203

// EntryPoint is the entry point of the built-in kernel.
const EntryPoint = "main"

var (
	// ErrInvalidSPIRV is returned when a binary is not a SPIR-V module.
	ErrInvalidSPIRV = errors.New("kernel: invalid SPIR-V")

	// ErrUnsupportedFormat is returned for kernel files that are neither
	// .spv nor .wgsl.
	ErrUnsupportedFormat = errors.New("kernel: unsupported kernel format")
)

//go:embed mandelbrot.wgsl
var mandelbrotWGSL string

// Params are substituted into WGSL sources before compilation.
type Params struct {
	Width     int
	Height    int
	GroupSize int
}

// Source returns the built-in kernel's WGSL for p.
func Source(p Params) string {
	return Expand(mandelbrotWGSL, p)
}

// Expand replaces the {{WIDTH}}, {{HEIGHT}} and {{GROUP}} placeholders.
func Expand(wgsl string, p Params) string {
	r := strings.NewReplacer(
		"{{WIDTH}}", strconv.Itoa(p.Width),
		"{{HEIGHT}}", strconv.Itoa(p.Height),
		"{{GROUP}}", strconv.Itoa(p.GroupSize),
	)
	return r.Replace(wgsl)
}

// Compile compiles WGSL to SPIR-V words.
func Compile(wgsl string) ([]uint32, error) {
	spirv, err := naga.Compile(wgsl)
	if err != nil {
		return nil, fmt.Errorf("kernel: compile WGSL: %w", err)
	}
	return Words(spirv)
}

// Words converts a SPIR-V binary to 32-bit words. Modules written in
// big-endian order are byte-swapped.
func Words(spirv []byte) ([]uint32, error) {
	if len(spirv) < 20 || len(spirv)%4 != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a whole module", ErrInvalidSPIRV, len(spirv))
	}
	code := make([]uint32, len(spirv)/4)
	for i := range code {
		code[i] = binary.LittleEndian.Uint32(spirv[i*4:])
	}
	switch code[0] {
	case SPIRVMagic:
	case bits.ReverseBytes32(SPIRVMagic):
		for i := range code {
			code[i] = bits.ReverseBytes32(code[i])
		}
	default:
		return nil, fmt.Errorf("%w: bad magic %#08x", ErrInvalidSPIRV, code[0])
	}
	return code, nil
}

// Load returns the SPIR-V kernel. An empty path selects the built-in
// kernel compiled for p.
func Load(path string, p Params) ([]uint32, error) {
	if path == "" {
		return Compile(Source(p))
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("kernel: read %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".spv":
		return Words(data)
	case ".wgsl":
		return Compile(Expand(string(data), p))
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}
