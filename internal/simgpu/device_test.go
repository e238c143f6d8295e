package simgpu

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gogpu/mandel/internal/compute"
)

var header = []uint32{SPIRVMagic, 0x00010300, 0, 1, 0}

func openDevice(t *testing.T, cfg Config) *Device {
	t.Helper()
	inst, err := New(cfg).Open(compute.OpenOptions{Validation: true})
	if err != nil {
		t.Fatal(err)
	}
	pds, err := inst.PhysicalDevices()
	if err != nil || len(pds) == 0 {
		t.Fatalf("PhysicalDevices() = %v, %v", pds, err)
	}
	dev, err := pds[0].CreateDevice(0)
	if err != nil {
		t.Fatalf("CreateDevice() error = %v", err)
	}
	return dev.(*Device)
}

func hostBuffer(t *testing.T, d *Device, size uint64, usage compute.BufferUsage) (buf, mem compute.Handle) {
	t.Helper()
	buf, err := d.CreateBuffer(size, usage)
	if err != nil {
		t.Fatal(err)
	}
	req := d.BufferRequirements(buf)
	mem, err = d.AllocateMemory(req.Size, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.BindBufferMemory(buf, mem, 0); err != nil {
		t.Fatal(err)
	}
	return buf, mem
}

func TestBufferRequirements(t *testing.T) {
	d := openDevice(t, Config{})
	buf, err := d.CreateBuffer(1000, compute.UsageStorage)
	if err != nil {
		t.Fatal(err)
	}
	req := d.BufferRequirements(buf)
	if req.Size != 1024 || req.Alignment != bufferAlignment {
		t.Errorf("requirements = %+v, want 1024 bytes aligned to %d", req, bufferAlignment)
	}
	if req.TypeBits != 0b111 {
		t.Errorf("TypeBits = %#b, want every type", req.TypeBits)
	}
	d.DestroyBuffer(buf)
	d.Destroy()
	if v := d.Violations(); len(v) != 0 {
		t.Errorf("violations: %v", v)
	}
}

func TestHeapCapacity(t *testing.T) {
	cfg := DefaultDevice()
	cfg.Memory.Heaps[1].Size = 4096
	d := openDevice(t, Config{Devices: []DeviceConfig{cfg}})

	a, err := d.AllocateMemory(4096, 1)
	if err != nil {
		t.Fatalf("AllocateMemory() error = %v", err)
	}
	if _, err := d.AllocateMemory(1, 2); !errors.Is(err, compute.ErrOutOfDeviceMemory) {
		t.Errorf("AllocateMemory(over capacity) error = %v", err)
	}
	d.FreeMemory(a)
	b, err := d.AllocateMemory(4096, 2)
	if err != nil {
		t.Errorf("AllocateMemory(after free) error = %v", err)
	}
	d.FreeMemory(b)
}

func TestMapMemory(t *testing.T) {
	d := openDevice(t, Config{})

	devLocal, err := d.AllocateMemory(256, 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := d.MapMemory(devLocal, 0, 256); !errors.Is(err, compute.ErrMemoryMapFailed) {
		t.Errorf("MapMemory(device-local) error = %v", err)
	}

	host, err := d.AllocateMemory(256, 1)
	if err != nil {
		t.Fatal(err)
	}
	data, err := d.MapMemory(host, 0, 256)
	if err != nil {
		t.Fatalf("MapMemory() error = %v", err)
	}
	if len(data) != 256 {
		t.Errorf("mapped %d bytes", len(data))
	}
	if _, err := d.MapMemory(host, 0, 16); !errors.Is(err, compute.ErrMemoryMapFailed) {
		t.Errorf("double MapMemory() error = %v", err)
	}
	d.UnmapMemory(host)

	if _, err := d.MapMemory(host, 200, 100); !errors.Is(err, compute.ErrMemoryMapFailed) {
		t.Errorf("MapMemory(out of range) error = %v", err)
	}

	d.FreeMemory(devLocal)
	d.FreeMemory(host)

	if got := len(d.Violations()); got != 3 {
		t.Errorf("%d violations, want 3: %v", got, d.Violations())
	}
}

func TestBindBufferMemoryOnce(t *testing.T) {
	d := openDevice(t, Config{})
	buf, mem := hostBuffer(t, d, 64, compute.UsageStorage)
	if err := d.BindBufferMemory(buf, mem, 0); err == nil {
		t.Error("second bind should fail")
	}
	if n := d.Calls("vkBindBufferMemory"); n != 2 {
		t.Errorf("Calls = %d, want 2", n)
	}
}

func TestDescriptorPoolCapacity(t *testing.T) {
	d := openDevice(t, Config{})
	slots := []compute.LayoutSlot{
		{Binding: 0, Type: compute.DescriptorStorageBuffer, Count: 1},
		{Binding: 1, Type: compute.DescriptorUniformBuffer, Count: 1},
	}
	layout, err := d.CreateDescriptorSetLayout(slots)
	if err != nil {
		t.Fatal(err)
	}

	// Two sets allowed but only one set's worth of storage descriptors.
	pool, err := d.CreateDescriptorPool(2, []compute.PoolSize{
		{Type: compute.DescriptorStorageBuffer, Count: 1},
		{Type: compute.DescriptorUniformBuffer, Count: 2},
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := d.AllocateDescriptorSet(pool, layout); err != nil {
		t.Fatalf("first set error = %v", err)
	}
	if _, err := d.AllocateDescriptorSet(pool, layout); !errors.Is(err, compute.ErrOutOfPoolMemory) {
		t.Errorf("second set error = %v, want ErrOutOfPoolMemory", err)
	}

	d.DestroyDescriptorPool(pool)
	d.DestroyDescriptorSetLayout(layout)
	if d.Live() != 0 {
		t.Errorf("Live() = %d; destroying the pool must free its sets", d.Live())
	}

	if _, err := d.CreateDescriptorSetLayout(append(slots, slots[0])); err == nil {
		t.Error("duplicate binding should be rejected")
	}
}

func TestUpdateDescriptorSetsValidation(t *testing.T) {
	d := openDevice(t, Config{})
	layout, _ := d.CreateDescriptorSetLayout([]compute.LayoutSlot{
		{Binding: 0, Type: compute.DescriptorStorageBuffer, Count: 1},
	})
	pool, _ := d.CreateDescriptorPool(1, []compute.PoolSize{{Type: compute.DescriptorStorageBuffer, Count: 1}})
	set, err := d.AllocateDescriptorSet(pool, layout)
	if err != nil {
		t.Fatal(err)
	}
	uniform, _ := hostBuffer(t, d, 16, compute.UsageUniform)
	storage, _ := hostBuffer(t, d, 16, compute.UsageStorage)

	d.UpdateDescriptorSets([]compute.DescriptorWrite{
		{Set: set, Binding: 0, Type: compute.DescriptorUniformBuffer, Buffer: uniform, Range: 16},
		{Set: set, Binding: 0, Type: compute.DescriptorStorageBuffer, Buffer: uniform, Range: 16},
		{Set: set, Binding: 0, Type: compute.DescriptorStorageBuffer, Buffer: storage, Range: 32},
	})
	v := d.Violations()
	if len(v) != 3 {
		t.Fatalf("violations = %v, want type mismatch, usage mismatch and range", v)
	}
	if !strings.Contains(v[1], "usage") {
		t.Errorf("second violation = %q, want usage mismatch", v[1])
	}
}

func TestShaderModule(t *testing.T) {
	d := openDevice(t, Config{})
	if _, err := d.CreateShaderModule(header); err != nil {
		t.Errorf("CreateShaderModule(valid) error = %v", err)
	}
	for _, code := range [][]uint32{nil, {SPIRVMagic}, {0x03022307, 0, 0, 0, 0}} {
		if _, err := d.CreateShaderModule(code); !errors.Is(err, compute.ErrInvalidShader) {
			t.Errorf("CreateShaderModule(%x) error = %v, want ErrInvalidShader", code, err)
		}
	}
}

func TestFailInjection(t *testing.T) {
	cfg := DefaultDevice()
	cfg.Fail = map[string]int32{"vkCreateFence": compute.StatusOutOfHostMemory}
	d := openDevice(t, Config{Devices: []DeviceConfig{cfg}})

	_, err := d.CreateFence()
	var de *compute.DriverError
	if !errors.As(err, &de) || de.Op != "vkCreateFence" || de.Code != compute.StatusOutOfHostMemory {
		t.Fatalf("CreateFence() error = %v", err)
	}
	if !errors.Is(err, compute.ErrOutOfHostMemory) {
		t.Errorf("error class = %v", de.Err)
	}
	if d.Calls("vkCreateFence") != 1 {
		t.Error("failed call not counted")
	}
}

// dispatchRig records a dispatch of groups work-groups over a storage
// buffer with one word per group.
func dispatchRig(t *testing.T, d *Device, groups uint32) (cmd, fence, mem compute.Handle) {
	t.Helper()
	buf, mem := hostBuffer(t, d, uint64(groups)*4, compute.UsageStorage)
	layout, _ := d.CreateDescriptorSetLayout([]compute.LayoutSlot{{Binding: 0, Type: compute.DescriptorStorageBuffer, Count: 1}})
	pool, _ := d.CreateDescriptorPool(1, []compute.PoolSize{{Type: compute.DescriptorStorageBuffer, Count: 1}})
	set, err := d.AllocateDescriptorSet(pool, layout)
	if err != nil {
		t.Fatal(err)
	}
	d.UpdateDescriptorSets([]compute.DescriptorWrite{
		{Set: set, Binding: 0, Type: compute.DescriptorStorageBuffer, Buffer: buf, Range: uint64(groups) * 4},
	})
	module, _ := d.CreateShaderModule(header)
	pl, _ := d.CreatePipelineLayout([]compute.Handle{layout})
	pipe, err := d.CreateComputePipeline(module, pl, "main")
	if err != nil {
		t.Fatal(err)
	}
	cp, _ := d.CreateCommandPool(d.QueueFamily())
	cmd, _ = d.AllocateCommandBuffer(cp)
	if err := d.BeginCommandBuffer(cmd); err != nil {
		t.Fatal(err)
	}
	d.CmdBindPipeline(cmd, pipe)
	d.CmdBindDescriptorSet(cmd, pl, 0, set)
	d.CmdDispatch(cmd, groups, 1, 1)
	if err := d.EndCommandBuffer(cmd); err != nil {
		t.Fatal(err)
	}
	fence, err = d.CreateFence()
	if err != nil {
		t.Fatal(err)
	}
	return cmd, fence, mem
}

func TestDispatchRunsEveryInvocation(t *testing.T) {
	var calls atomic.Int64
	cfg := Config{
		WorkGroupSize: [3]uint32{4, 2, 1},
		Workers:       3,
		Kernel: func(inv Invocation, b [][]byte) {
			calls.Add(1)
			if inv.Local == [3]uint32{} {
				g := inv.WorkGroup[0]
				b[0][g*4] = byte(g + 1)
			}
			if inv.Global[0] != inv.WorkGroup[0]*4+inv.Local[0] {
				panic("bad global id")
			}
		},
	}
	d := openDevice(t, cfg)
	const groups = 10
	cmd, fence, mem := dispatchRig(t, d, groups)

	if err := d.Submit(cmd, fence); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if err := d.Submit(cmd, fence); err == nil {
		t.Error("resubmitting a pending buffer should fail")
	}
	if err := d.WaitForFence(fence, 5*time.Second); err != nil {
		t.Fatalf("WaitForFence() error = %v", err)
	}
	if err := d.WaitIdle(); err != nil {
		t.Errorf("WaitIdle() error = %v", err)
	}

	if got := calls.Load(); got != groups*8 {
		t.Errorf("kernel ran %d times, want %d", got, groups*8)
	}
	data, err := d.MapMemory(mem, 0, groups*4)
	if err != nil {
		t.Fatal(err)
	}
	for g := range groups {
		if data[g*4] != byte(g+1) {
			t.Errorf("group %d wrote %d", g, data[g*4])
		}
	}
	d.UnmapMemory(mem)
}

func TestFenceTimeoutOnHang(t *testing.T) {
	cfg := DefaultDevice()
	cfg.Fault = FaultHang
	d := openDevice(t, Config{Devices: []DeviceConfig{cfg}})
	cmd, fence, _ := dispatchRig(t, d, 1)

	if err := d.Submit(cmd, fence); err != nil {
		t.Fatal(err)
	}
	start := time.Now()
	err := d.WaitForFence(fence, 20*time.Millisecond)
	if !errors.Is(err, compute.ErrTimeout) {
		t.Fatalf("WaitForFence() error = %v, want ErrTimeout", err)
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Error("wait returned before the timeout")
	}
	if v := d.Violations(); len(v) != 0 {
		t.Fatalf("violations before reset: %v", v)
	}

	// Idling a hung device resets it: the fence signals with device loss
	// and the command buffer is no longer pending.
	if err := d.WaitIdle(); !errors.Is(err, compute.ErrDeviceLost) {
		t.Errorf("WaitIdle() error = %v, want ErrDeviceLost", err)
	}
	if err := d.WaitForFence(fence, time.Second); !errors.Is(err, compute.ErrDeviceLost) {
		t.Errorf("WaitForFence() after reset = %v, want ErrDeviceLost", err)
	}
	d.DestroyFence(fence)
	if v := d.Violations(); len(v) != 0 {
		t.Errorf("violations after reset: %v", v)
	}
}

func TestDestroyPendingFence(t *testing.T) {
	cfg := DefaultDevice()
	cfg.Fault = FaultHang
	d := openDevice(t, Config{Devices: []DeviceConfig{cfg}})
	cmd, fence, _ := dispatchRig(t, d, 1)

	if err := d.Submit(cmd, fence); err != nil {
		t.Fatal(err)
	}
	d.DestroyFence(fence)
	v := d.Violations()
	if len(v) != 1 || !strings.Contains(v[0], "destroyed while in use") {
		t.Errorf("violations = %v, want the in-use fence reported", v)
	}
}

func TestDeviceLost(t *testing.T) {
	cfg := DefaultDevice()
	cfg.Fault = FaultDeviceLost
	d := openDevice(t, Config{Devices: []DeviceConfig{cfg}})
	cmd, fence, _ := dispatchRig(t, d, 1)

	if err := d.Submit(cmd, fence); err != nil {
		t.Fatal(err)
	}
	if err := d.WaitForFence(fence, time.Second); !errors.Is(err, compute.ErrDeviceLost) {
		t.Fatalf("WaitForFence() error = %v, want ErrDeviceLost", err)
	}
	f2, _ := d.CreateFence()
	if err := d.Submit(cmd, f2); !errors.Is(err, compute.ErrDeviceLost) {
		t.Errorf("Submit(lost device) error = %v, want ErrDeviceLost", err)
	}
}

func TestDestroyReportsLeaks(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	d := openDevice(t, Config{Logger: logger})

	if _, err := d.CreateBuffer(16, compute.UsageUniform); err != nil {
		t.Fatal(err)
	}
	d.Destroy()
	v := d.Violations()
	if len(v) != 1 || !strings.Contains(v[0], "not destroyed") {
		t.Errorf("violations = %v, want one leak", v)
	}
	if !strings.Contains(logs.String(), "Validation") {
		t.Errorf("validation message not logged: %q", logs.String())
	}

	d.Destroy()
	if len(d.Violations()) != 2 {
		t.Error("second Destroy should be reported")
	}
}

func TestCreateDeviceRejectsEmptyFamily(t *testing.T) {
	inst, _ := New(Config{}).Open(compute.OpenOptions{})
	pds, _ := inst.PhysicalDevices()
	if _, err := pds[0].CreateDevice(7); !errors.Is(err, compute.ErrInitializationFailed) {
		t.Errorf("CreateDevice(7) error = %v", err)
	}
	if info := pds[0].Info(); info.APIVersion>>22 != 1 || info.Name == "" {
		t.Errorf("Info() = %+v", info)
	}
}
