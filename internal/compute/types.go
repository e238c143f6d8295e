package compute

import (
	"fmt"
	"strings"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// Handle identifies a driver object. The zero value is the null handle.
// Vulkan non-dispatchable handles are 64-bit on every platform, and
// dispatchable ones (pointers) fit as well.
type Handle uint64

// QueueFlags describes what a queue family can execute.
// Bit values match VkQueueFlagBits.
type QueueFlags uint32

const (
	QueueGraphics QueueFlags = 1 << 0
	QueueCompute  QueueFlags = 1 << 1
	QueueTransfer QueueFlags = 1 << 2
)

// String returns a "|" separated list of the set bits.
func (f QueueFlags) String() string {
	return flagString(uint32(f), []string{"graphics", "compute", "transfer"})
}

// MemoryPropertyFlags describes a memory type. Bit values match
// VkMemoryPropertyFlagBits.
type MemoryPropertyFlags uint32

const (
	MemoryDeviceLocal  MemoryPropertyFlags = 1 << 0
	MemoryHostVisible  MemoryPropertyFlags = 1 << 1
	MemoryHostCoherent MemoryPropertyFlags = 1 << 2
	MemoryHostCached   MemoryPropertyFlags = 1 << 3
)

// HostMapped is the property class used for every buffer of a run: the
// host writes the seed and reads pixels directly, without staging copies
// or explicit flush/invalidate.
const HostMapped = MemoryHostVisible | MemoryHostCoherent

// Contains reports whether f is a superset of required.
func (f MemoryPropertyFlags) Contains(required MemoryPropertyFlags) bool {
	return f&required == required
}

// String returns a "|" separated list of the set bits.
func (f MemoryPropertyFlags) String() string {
	return flagString(uint32(f), []string{"device-local", "host-visible", "host-coherent", "host-cached"})
}

// BufferUsage is the role of a buffer. Bit values match VkBufferUsageFlagBits.
type BufferUsage uint32

const (
	UsageUniform BufferUsage = 1 << 4
	UsageStorage BufferUsage = 1 << 5
)

// String returns the usage role name.
func (u BufferUsage) String() string {
	switch u {
	case UsageUniform:
		return "uniform-parameter"
	case UsageStorage:
		return "output-storage"
	default:
		return fmt.Sprintf("BufferUsage(%#x)", uint32(u))
	}
}

// DescriptorType is the kind of a binding slot. Values match VkDescriptorType.
type DescriptorType uint32

const (
	DescriptorUniformBuffer DescriptorType = 6
	DescriptorStorageBuffer DescriptorType = 7
)

// BindingType returns the equivalent WebGPU buffer binding type.
func (t DescriptorType) BindingType() gputypes.BufferBindingType {
	switch t {
	case DescriptorUniformBuffer:
		return gputypes.BufferBindingTypeUniform
	case DescriptorStorageBuffer:
		return gputypes.BufferBindingTypeStorage
	default:
		return gputypes.BufferBindingTypeUndefined
	}
}

// String returns the slot kind name.
func (t DescriptorType) String() string {
	switch t {
	case DescriptorUniformBuffer:
		return "uniform-buffer"
	case DescriptorStorageBuffer:
		return "storage-buffer"
	default:
		return fmt.Sprintf("DescriptorType(%d)", uint32(t))
	}
}

// QueueFamily is one entry of a device's queue family list.
type QueueFamily struct {
	Flags QueueFlags
	Count uint32
}

// MemoryType is one entry of a device's memory type catalog.
type MemoryType struct {
	Flags MemoryPropertyFlags
	Heap  uint32
}

// MemoryHeap is a memory heap with its total capacity in bytes.
type MemoryHeap struct {
	Size        uint64
	DeviceLocal bool
}

// MemoryProperties is the memory catalog of a physical device.
type MemoryProperties struct {
	Types []MemoryType
	Heaps []MemoryHeap
}

// MemoryRequirements is what the driver reports for a buffer.
type MemoryRequirements struct {
	Size      uint64
	Alignment uint64
	TypeBits  uint32
}

// DeviceInfo describes a physical device.
type DeviceInfo struct {
	Name       string
	Type       gputypes.DeviceType
	VendorID   uint32
	DeviceID   uint32
	APIVersion uint32
}

// Adapter returns the adapter summary shared with the rest of the gogpu stack.
func (i DeviceInfo) Adapter() gpucontext.AdapterInfo {
	t := gpucontext.AdapterTypeUnknown
	switch i.Type {
	case gputypes.DeviceTypeDiscreteGPU:
		t = gpucontext.AdapterTypeDiscrete
	case gputypes.DeviceTypeIntegratedGPU:
		t = gpucontext.AdapterTypeIntegrated
	case gputypes.DeviceTypeCPU:
		t = gpucontext.AdapterTypeSoftware
	}
	return gpucontext.AdapterInfo{Name: i.Name, Type: t}
}

// APIVersionString formats APIVersion as major.minor.patch.
func (i DeviceInfo) APIVersionString() string {
	v := i.APIVersion
	return fmt.Sprintf("%d.%d.%d", v>>22, (v>>12)&0x3ff, v&0xfff)
}

func flagString(bits uint32, names []string) string {
	if bits == 0 {
		return "none"
	}
	var parts []string
	for i, name := range names {
		if bits&(1<<i) != 0 {
			parts = append(parts, name)
			bits &^= 1 << i
		}
	}
	if bits != 0 {
		parts = append(parts, fmt.Sprintf("%#x", bits))
	}
	return strings.Join(parts, "|")
}
