package compute_test

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/gogpu/mandel/internal/compute"
	"github.com/gogpu/mandel/internal/simgpu"
)

// testCode is the smallest kernel binary the simulated device accepts.
var testCode = []uint32{simgpu.SPIRVMagic, 0x00010300, 0, 1, 0}

// coordKernel writes (x, y, seed, 1) to every in-bounds pixel.
func coordKernel(width, height int) simgpu.Kernel {
	return func(inv simgpu.Invocation, bindings [][]byte) {
		x, y := int(inv.Global[0]), int(inv.Global[1])
		if x >= width || y >= height {
			return
		}
		seed := binary.LittleEndian.Uint32(bindings[compute.SlotSeed])
		px := bindings[compute.SlotPixels][(y*width+x)*compute.PixelSize:]
		binary.LittleEndian.PutUint32(px[0:], math.Float32bits(float32(x)))
		binary.LittleEndian.PutUint32(px[4:], math.Float32bits(float32(y)))
		binary.LittleEndian.PutUint32(px[8:], math.Float32bits(float32(seed)))
		binary.LittleEndian.PutUint32(px[12:], math.Float32bits(1))
	}
}

// rig is a selected simulated device with its owning scope.
type rig struct {
	drv   *simgpu.Driver
	scope *compute.Scope
	dc    compute.DeviceContext
	dev   *simgpu.Device
}

func newRig(t *testing.T, cfg simgpu.Config) *rig {
	t.Helper()
	drv := simgpu.New(cfg)
	scope := compute.NewScope()
	t.Cleanup(func() { _ = scope.Close() })

	dc, err := compute.NewSelector(drv, true).Select(scope)
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	return &rig{drv: drv, scope: scope, dc: dc, dev: dc.Device.(*simgpu.Device)}
}

// stages builds resources, binding and pipeline for a width x height image.
func (r *rig) stages(t *testing.T, width, height int) (compute.ResourceSet, compute.Binding, compute.Pipeline) {
	t.Helper()
	res, err := compute.NewResourceSet(r.scope, r.dc.Device, compute.NewAllocator(r.dc),
		compute.ResourceSpec{Width: width, Height: height})
	if err != nil {
		t.Fatalf("NewResourceSet() error = %v", err)
	}
	b, err := compute.NewBinding(r.scope, r.dc.Device, res)
	if err != nil {
		t.Fatalf("NewBinding() error = %v", err)
	}
	p, err := compute.NewPipeline(r.scope, r.dc.Device, b, testCode, "")
	if err != nil {
		t.Fatalf("NewPipeline() error = %v", err)
	}
	return res, b, p
}

// closeClean closes the scope and checks that the device saw no misuse
// and holds no objects.
func (r *rig) closeClean(t *testing.T) {
	t.Helper()
	if err := r.scope.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !r.dev.Destroyed() {
		t.Error("device not destroyed")
	}
	if n := r.dev.Live(); n != 0 {
		t.Errorf("%d objects leaked", n)
	}
	if v := r.dev.Violations(); len(v) != 0 {
		t.Errorf("violations: %v", v)
	}
}
