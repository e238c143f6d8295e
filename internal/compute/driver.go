package compute

import (
	"time"

	"github.com/gogpu/gputypes"
)

// Driver opens instances of a compute API. Implementations: the Vulkan
// driver in internal/vulkan and the simulated device in internal/simgpu.
type Driver interface {
	// Name identifies the driver in logs and reports.
	Name() string

	// Open creates an API instance.
	Open(opts OpenOptions) (Instance, error)
}

// OpenOptions configures instance creation.
type OpenOptions struct {
	// AppName is reported to the driver.
	AppName string

	// Validation enables driver-side validation and routes its messages
	// to the logger. It never changes computed output.
	Validation bool
}

// Instance is an opened API instance.
type Instance interface {
	// PhysicalDevices lists devices in driver order.
	PhysicalDevices() ([]PhysicalDevice, error)

	// Destroy releases the instance.
	Destroy()
}

// PhysicalDevice is an enumerated device that has not been opened yet.
type PhysicalDevice interface {
	Info() DeviceInfo
	QueueFamilies() []QueueFamily
	MemoryProperties() MemoryProperties

	// CreateDevice opens a logical device with one queue from family.
	CreateDevice(family uint32) (Device, error)
}

// LayoutSlot declares one binding slot of a descriptor set layout.
type LayoutSlot struct {
	Binding uint32
	Type    DescriptorType
	Count   uint32
	Stage   gputypes.ShaderStage
}

// PoolSize is the descriptor capacity of a pool for one slot kind.
type PoolSize struct {
	Type  DescriptorType
	Count uint32
}

// DescriptorWrite associates a buffer range with a slot of a set.
type DescriptorWrite struct {
	Set     Handle
	Binding uint32
	Type    DescriptorType
	Buffer  Handle
	Offset  uint64
	Range   uint64
}

// Device is a logical device with exactly one queue. Every call that the
// underlying API can fail returns an error; destroy calls cannot fail.
//
// Errors returned by a Device should be *DriverError so that the stages
// can classify them.
type Device interface {
	CreateBuffer(size uint64, usage BufferUsage) (Handle, error)
	BufferRequirements(buffer Handle) MemoryRequirements
	DestroyBuffer(buffer Handle)

	AllocateMemory(size uint64, typeIndex uint32) (Handle, error)
	BindBufferMemory(buffer, memory Handle, offset uint64) error
	// MapMemory returns a host view of size bytes at offset. The view is
	// valid until UnmapMemory.
	MapMemory(memory Handle, offset, size uint64) ([]byte, error)
	UnmapMemory(memory Handle)
	FreeMemory(memory Handle)

	CreateDescriptorSetLayout(slots []LayoutSlot) (Handle, error)
	DestroyDescriptorSetLayout(layout Handle)
	CreateDescriptorPool(maxSets uint32, sizes []PoolSize) (Handle, error)
	DestroyDescriptorPool(pool Handle)
	AllocateDescriptorSet(pool, layout Handle) (Handle, error)
	UpdateDescriptorSets(writes []DescriptorWrite)

	CreateShaderModule(code []uint32) (Handle, error)
	DestroyShaderModule(module Handle)
	CreatePipelineLayout(setLayouts []Handle) (Handle, error)
	DestroyPipelineLayout(layout Handle)
	CreateComputePipeline(module, layout Handle, entryPoint string) (Handle, error)
	DestroyPipeline(pipeline Handle)

	CreateCommandPool(family uint32) (Handle, error)
	DestroyCommandPool(pool Handle)
	AllocateCommandBuffer(pool Handle) (Handle, error)
	FreeCommandBuffer(pool, cmd Handle)
	BeginCommandBuffer(cmd Handle) error
	CmdBindPipeline(cmd, pipeline Handle)
	CmdBindDescriptorSet(cmd, layout Handle, index uint32, set Handle)
	CmdDispatch(cmd Handle, x, y, z uint32)
	EndCommandBuffer(cmd Handle) error

	CreateFence() (Handle, error)
	DestroyFence(fence Handle)
	// Submit queues cmd with no wait semaphores; fence is signaled on completion.
	Submit(cmd, fence Handle) error
	// WaitForFence blocks until fence is signaled or timeout elapses.
	WaitForFence(fence Handle, timeout time.Duration) error

	WaitIdle() error
	Destroy()
}
