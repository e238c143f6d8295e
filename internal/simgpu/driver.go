// Package simgpu is a simulated compute device.
//
// It implements the compute driver interfaces with Vulkan semantics that
// matter to a single dispatch: a memory type catalog with heap capacity,
// descriptor pools with fixed capacity, SPIR-V header checks, host-coherent
// mapped memory and a completion fence. Work-groups run concurrently on a
// worker pool and call a Go kernel.
//
// Faults can be injected per device: a delayed fence, a fence that never
// signals, device loss and failures of individual driver calls.
package simgpu

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/mandel/internal/compute"
)

// Invocation identifies one kernel invocation.
type Invocation struct {
	Global    [3]uint32
	Local     [3]uint32
	WorkGroup [3]uint32
}

// Kernel is executed once per invocation. bindings[i] is the buffer range
// bound at slot i of set 0. Invocations run concurrently; a kernel must
// only write the region it owns.
type Kernel func(inv Invocation, bindings [][]byte)

// Fault is an injected device failure.
type Fault uint8

const (
	// FaultNone executes the dispatch normally.
	FaultNone Fault = iota
	// FaultHang never signals the fence.
	FaultHang
	// FaultDeviceLost reports device loss instead of executing.
	FaultDeviceLost
)

// DeviceConfig describes one simulated physical device.
type DeviceConfig struct {
	Name          string
	Type          gputypes.DeviceType
	QueueFamilies []compute.QueueFamily
	Memory        compute.MemoryProperties

	// FenceDelay postpones execution after submission.
	FenceDelay time.Duration
	Fault      Fault

	// Fail makes the named driver call (e.g. "vkCreateComputePipelines")
	// return the given status.
	Fail map[string]int32
}

// DefaultDevice returns a discrete GPU with one universal queue family,
// a device-local heap and a host-visible heap.
func DefaultDevice() DeviceConfig {
	return DeviceConfig{
		Name: "Simulated GPU",
		Type: gputypes.DeviceTypeDiscreteGPU,
		QueueFamilies: []compute.QueueFamily{
			{Flags: compute.QueueGraphics | compute.QueueCompute | compute.QueueTransfer, Count: 1},
			{Flags: compute.QueueTransfer, Count: 2},
		},
		Memory: compute.MemoryProperties{
			Types: []compute.MemoryType{
				{Flags: compute.MemoryDeviceLocal, Heap: 0},
				{Flags: compute.MemoryHostVisible | compute.MemoryHostCoherent, Heap: 1},
				{Flags: compute.MemoryHostVisible | compute.MemoryHostCoherent | compute.MemoryHostCached, Heap: 1},
			},
			Heaps: []compute.MemoryHeap{
				{Size: 8 << 30, DeviceLocal: true},
				{Size: 16 << 30},
			},
		},
	}
}

// Config configures the simulated driver.
type Config struct {
	// Devices lists the physical devices in enumeration order.
	// Nil means one DefaultDevice; an empty non-nil slice means none.
	Devices []DeviceConfig

	// Kernel runs for each invocation. Nil leaves buffers untouched.
	Kernel Kernel

	// WorkGroupSize is the kernel's local size. Zero means 32x32x1.
	WorkGroupSize [3]uint32

	// Workers is the number of goroutines executing work-groups.
	// Zero means GOMAXPROCS.
	Workers int

	// Logger receives validation messages when an instance is opened
	// with validation enabled.
	Logger *slog.Logger
}

// Driver is the simulated compute driver.
type Driver struct {
	cfg Config

	mu      sync.Mutex
	opened  []compute.OpenOptions
	devices []*Device
}

var _ compute.Driver = (*Driver)(nil)

// New returns a simulated driver.
func New(cfg Config) *Driver {
	if cfg.Devices == nil {
		cfg.Devices = []DeviceConfig{DefaultDevice()}
	}
	if cfg.WorkGroupSize == [3]uint32{} {
		cfg.WorkGroupSize = [3]uint32{32, 32, 1}
	}
	return &Driver{cfg: cfg}
}

// Name returns "sim".
func (d *Driver) Name() string { return "sim" }

// Open creates an instance.
func (d *Driver) Open(opts compute.OpenOptions) (compute.Instance, error) {
	d.mu.Lock()
	d.opened = append(d.opened, opts)
	d.mu.Unlock()
	return &instance{driver: d, opts: opts}, nil
}

// Opened returns the options of every Open call.
func (d *Driver) Opened() []compute.OpenOptions {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]compute.OpenOptions(nil), d.opened...)
}

// Devices returns every logical device created so far.
func (d *Driver) Devices() []*Device {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*Device(nil), d.devices...)
}

type instance struct {
	driver *Driver
	opts   compute.OpenOptions
}

func (i *instance) PhysicalDevices() ([]compute.PhysicalDevice, error) {
	out := make([]compute.PhysicalDevice, len(i.driver.cfg.Devices))
	for n, cfg := range i.driver.cfg.Devices {
		out[n] = &physicalDevice{inst: i, cfg: cfg, index: n}
	}
	return out, nil
}

func (i *instance) Destroy() {}

type physicalDevice struct {
	inst  *instance
	cfg   DeviceConfig
	index int
}

func (p *physicalDevice) Info() compute.DeviceInfo {
	return compute.DeviceInfo{
		Name:       p.cfg.Name,
		Type:       p.cfg.Type,
		VendorID:   0x1af4,
		DeviceID:   uint32(p.index), //nolint:gosec // small index
		APIVersion: 1<<22 | 2<<12,
	}
}

func (p *physicalDevice) QueueFamilies() []compute.QueueFamily {
	return append([]compute.QueueFamily(nil), p.cfg.QueueFamilies...)
}

func (p *physicalDevice) MemoryProperties() compute.MemoryProperties {
	return compute.MemoryProperties{
		Types: append([]compute.MemoryType(nil), p.cfg.Memory.Types...),
		Heaps: append([]compute.MemoryHeap(nil), p.cfg.Memory.Heaps...),
	}
}

func (p *physicalDevice) CreateDevice(family uint32) (compute.Device, error) {
	if code, ok := p.cfg.Fail["vkCreateDevice"]; ok {
		return nil, compute.CheckStatus("vkCreateDevice", code)
	}
	if int(family) >= len(p.cfg.QueueFamilies) || p.cfg.QueueFamilies[family].Count == 0 {
		return nil, compute.CheckStatus("vkCreateDevice", compute.StatusInitializationFailed)
	}
	d := newDevice(p.inst.driver, p.cfg, family, p.inst.opts.Validation)
	p.inst.driver.mu.Lock()
	p.inst.driver.devices = append(p.inst.driver.devices, d)
	p.inst.driver.mu.Unlock()
	return d, nil
}
