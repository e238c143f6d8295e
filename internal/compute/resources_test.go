package compute_test

import (
	"errors"
	"testing"

	"github.com/gogpu/mandel/internal/compute"
	"github.com/gogpu/mandel/internal/simgpu"
)

func TestFindMemoryType(t *testing.T) {
	props := simgpu.DefaultDevice().Memory

	tests := []struct {
		name     string
		typeBits uint32
		required compute.MemoryPropertyFlags
		size     uint64
		want     uint32
		wantErr  bool
	}{
		{"device local", 0b111, compute.MemoryDeviceLocal, 1 << 20, 0, false},
		{"host mapped", 0b111, compute.HostMapped, 1 << 20, 1, false},
		{"host cached", 0b111, compute.HostMapped | compute.MemoryHostCached, 1 << 20, 2, false},
		{"type bits exclude first match", 0b100, compute.HostMapped, 1 << 20, 2, false},
		{"type bits exclude all", 0b001, compute.HostMapped, 1 << 20, 0, true},
		{"no such properties", 0b111, compute.MemoryDeviceLocal | compute.MemoryHostVisible, 1 << 20, 0, true},
		{"larger than heap", 0b111, compute.HostMapped, 32 << 30, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := compute.FindMemoryType(props, tt.typeBits, tt.required, tt.size)
			if tt.wantErr {
				var nm *compute.NoSuitableMemoryTypeError
				if !errors.As(err, &nm) {
					t.Fatalf("FindMemoryType() error = %v, want NoSuitableMemoryTypeError", err)
				}
				if nm.Required != tt.required || nm.Size != tt.size {
					t.Errorf("error = %+v", nm)
				}
				return
			}
			if err != nil {
				t.Fatalf("FindMemoryType() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("FindMemoryType() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestNewResourceSet(t *testing.T) {
	r := newRig(t, simgpu.Config{})

	res, err := compute.NewResourceSet(r.scope, r.dc.Device, compute.NewAllocator(r.dc),
		compute.ResourceSpec{Width: 40, Height: 30})
	if err != nil {
		t.Fatalf("NewResourceSet() error = %v", err)
	}

	if res.Pixels.Size != 40*30*compute.PixelSize {
		t.Errorf("pixel buffer = %d bytes", res.Pixels.Size)
	}
	if res.Pixels.Usage != compute.UsageStorage || res.Seed.Usage != compute.UsageUniform {
		t.Errorf("usages = %s, %s", res.Pixels.Usage, res.Seed.Usage)
	}
	if res.Seed.Size != compute.SeedSize {
		t.Errorf("seed buffer = %d bytes", res.Seed.Size)
	}
	for _, b := range []compute.Buffer{res.Pixels, res.Seed} {
		if !b.Memory.Flags.Contains(compute.HostMapped) {
			t.Errorf("%s memory flags = %s", b.Name, b.Memory.Flags)
		}
	}
	if n := r.dev.Calls("vkBindBufferMemory"); n != 2 {
		t.Errorf("vkBindBufferMemory called %d times, want 2", n)
	}

	r.closeClean(t)
}

func TestNewResourceSetNoHostVisibleMemory(t *testing.T) {
	dev := simgpu.DefaultDevice()
	dev.Memory.Types = []compute.MemoryType{{Flags: compute.MemoryDeviceLocal, Heap: 0}}
	r := newRig(t, simgpu.Config{Devices: []simgpu.DeviceConfig{dev}})

	_, err := compute.NewResourceSet(r.scope, r.dc.Device, compute.NewAllocator(r.dc),
		compute.ResourceSpec{Width: 3200, Height: 2400})

	var nm *compute.NoSuitableMemoryTypeError
	if !errors.As(err, &nm) {
		t.Fatalf("NewResourceSet() error = %v, want NoSuitableMemoryTypeError", err)
	}
	if nm.Required != compute.HostMapped {
		t.Errorf("Required = %s", nm.Required)
	}
	if n := r.dev.Calls("vkAllocateMemory"); n != 0 {
		t.Errorf("vkAllocateMemory called %d times, want 0", n)
	}
	if n := r.dev.Calls("vkBindBufferMemory"); n != 0 {
		t.Errorf("vkBindBufferMemory called %d times, want 0", n)
	}

	r.closeClean(t)
}

func TestNewResourceSetHeapExhausted(t *testing.T) {
	dev := simgpu.DefaultDevice()
	dev.Memory.Heaps[1].Size = 1 << 20
	r := newRig(t, simgpu.Config{Devices: []simgpu.DeviceConfig{dev}})

	_, err := compute.NewResourceSet(r.scope, r.dc.Device, compute.NewAllocator(r.dc),
		compute.ResourceSpec{Width: 1024, Height: 1024})
	var nm *compute.NoSuitableMemoryTypeError
	if !errors.As(err, &nm) {
		t.Fatalf("NewResourceSet() error = %v, want NoSuitableMemoryTypeError", err)
	}
	if n := r.dev.Calls("vkBindBufferMemory"); n != 0 {
		t.Errorf("vkBindBufferMemory called %d times, want 0", n)
	}
	r.closeClean(t)
}

func TestNewResourceSetAllocationFails(t *testing.T) {
	dev := simgpu.DefaultDevice()
	dev.Fail = map[string]int32{"vkAllocateMemory": compute.StatusOutOfDeviceMemory}
	r := newRig(t, simgpu.Config{Devices: []simgpu.DeviceConfig{dev}})

	_, err := compute.NewResourceSet(r.scope, r.dc.Device, compute.NewAllocator(r.dc),
		compute.ResourceSpec{Width: 8, Height: 8})
	if !errors.Is(err, compute.ErrOutOfDeviceMemory) {
		t.Fatalf("NewResourceSet() error = %v, want ErrOutOfDeviceMemory", err)
	}
	if n := r.dev.Calls("vkBindBufferMemory"); n != 0 {
		t.Errorf("vkBindBufferMemory called %d times, want 0", n)
	}
	r.closeClean(t)
}

func TestNewResourceSetInvalidSize(t *testing.T) {
	r := newRig(t, simgpu.Config{})
	_, err := compute.NewResourceSet(r.scope, r.dc.Device, compute.NewAllocator(r.dc),
		compute.ResourceSpec{Width: 0, Height: 10})
	if !errors.Is(err, compute.ErrInvalidJob) {
		t.Fatalf("NewResourceSet() error = %v, want ErrInvalidJob", err)
	}
	if n := r.dev.Calls("vkCreateBuffer"); n != 0 {
		t.Errorf("vkCreateBuffer called %d times, want 0", n)
	}
	r.closeClean(t)
}
