// Package vulkan implements the compute driver interfaces on a Vulkan
// loader through the pure-Go bindings of github.com/gogpu/wgpu.
//
// No cgo is involved: the loader library is opened at run time with goffi.
// Open fails with ErrUnavailable when no loader can be found.
package vulkan

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/mandel/internal/compute"
	"github.com/gogpu/wgpu/hal/vulkan/vk"
)

// ErrUnavailable is returned by Open when the Vulkan loader cannot be used.
var ErrUnavailable = errors.New("vulkan: loader unavailable")

const validationLayer = "VK_LAYER_KHRONOS_validation"

// Driver opens Vulkan instances.
type Driver struct{}

// New returns the Vulkan driver.
func New() *Driver { return &Driver{} }

// Name returns "vulkan".
func (*Driver) Name() string { return "vulkan" }

// Open loads the Vulkan library and creates an instance. With
// opts.Validation the Khronos validation layer is enabled when installed
// and its messages are logged; a missing layer is not an error.
func (*Driver) Open(opts compute.OpenOptions) (compute.Instance, error) {
	if err := vk.Init(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	cmds := vk.NewCommands()
	if err := cmds.LoadGlobal(); err != nil {
		return nil, fmt.Errorf("%w: load global commands: %w", ErrUnavailable, err)
	}

	appName := opts.AppName
	if appName == "" {
		appName = "mandel"
	}
	appNameC := appName + "\x00"
	engineName := "gogpu/mandel\x00"
	appInfo := vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		PApplicationName:   uintptr(unsafe.Pointer(unsafe.StringData(appNameC))),
		ApplicationVersion: makeVersion(1, 0, 0),
		PEngineName:        uintptr(unsafe.Pointer(unsafe.StringData(engineName))),
		EngineVersion:      makeVersion(0, 1, 0),
		ApiVersion:         makeVersion(1, 2, 0),
	}

	// The instance loader resolves the surface query entry points, so the
	// surface extensions are enabled even though nothing is presented.
	extensions := []string{"VK_KHR_surface", surfaceExtension()}
	var layers []string
	validation := false
	if opts.Validation {
		if layerAvailable(cmds, validationLayer) {
			layers = append(layers, validationLayer)
			extensions = append(extensions, "VK_EXT_debug_utils")
			validation = true
		} else {
			slogger().Warn("vulkan: validation requested but " + validationLayer + " is not installed")
		}
	}
	if runtime.GOOS == "darwin" {
		extensions = append(extensions, "VK_KHR_portability_enumeration")
	}

	extC := newCStrings(extensions)
	layerC := newCStrings(layers)
	info := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        &appInfo,
		EnabledExtensionCount:   extC.count(),
		PpEnabledExtensionNames: extC.array(),
		EnabledLayerCount:       layerC.count(),
		PpEnabledLayerNames:     layerC.array(),
	}

	var handle vk.Instance
	res := cmds.CreateInstance(&info, nil, &handle)
	extC.keepAlive()
	layerC.keepAlive()
	runtime.KeepAlive(appNameC)
	runtime.KeepAlive(engineName)
	if err := compute.CheckStatus("vkCreateInstance", int32(res)); err != nil {
		return nil, err
	}

	if err := cmds.LoadInstance(handle); err != nil {
		cmds.DestroyInstance(handle, nil)
		return nil, fmt.Errorf("%w: load instance commands: %w", ErrUnavailable, err)
	}
	vk.SetDeviceProcAddr(handle)

	inst := &instance{handle: handle, cmds: cmds}
	if validation {
		inst.messenger = createDebugMessenger(inst)
	}
	slogger().Info("vulkan: instance created",
		"api", "1.2.0",
		"validation", validation,
	)
	return inst, nil
}

// Available reports whether a Vulkan loader can be opened.
func Available() bool {
	return vk.Init() == nil
}

func makeVersion(major, minor, patch uint32) uint32 {
	return major<<22 | minor<<12 | patch
}

func surfaceExtension() string {
	switch runtime.GOOS {
	case "windows":
		return "VK_KHR_win32_surface"
	case "darwin":
		return "VK_EXT_metal_surface"
	default:
		if os.Getenv("WAYLAND_DISPLAY") != "" {
			return "VK_KHR_wayland_surface"
		}
		return "VK_KHR_xlib_surface"
	}
}

func layerAvailable(cmds *vk.Commands, name string) bool {
	var count uint32
	cmds.EnumerateInstanceLayerProperties(&count, nil)
	if count == 0 {
		return false
	}
	props := make([]vk.LayerProperties, count)
	cmds.EnumerateInstanceLayerProperties(&count, &props[0])
	for i := range props[:count] {
		if cStringToGo(props[i].LayerName[:]) == name {
			return true
		}
	}
	return false
}

type instance struct {
	handle    vk.Instance
	cmds      *vk.Commands
	messenger vk.DebugUtilsMessengerEXT
}

func (i *instance) PhysicalDevices() ([]compute.PhysicalDevice, error) {
	var count uint32
	if err := compute.CheckStatus("vkEnumeratePhysicalDevices",
		int32(i.cmds.EnumeratePhysicalDevices(i.handle, &count, nil))); err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	handles := make([]vk.PhysicalDevice, count)
	if err := compute.CheckStatus("vkEnumeratePhysicalDevices",
		int32(i.cmds.EnumeratePhysicalDevices(i.handle, &count, &handles[0]))); err != nil {
		return nil, err
	}

	out := make([]compute.PhysicalDevice, 0, count)
	for _, h := range handles[:count] {
		out = append(out, &physicalDevice{inst: i, handle: h})
	}
	return out, nil
}

func (i *instance) Destroy() {
	if i.handle == 0 {
		return
	}
	if i.messenger != 0 {
		i.cmds.DestroyDebugUtilsMessengerEXT(i.handle, i.messenger, nil)
		i.messenger = 0
	}
	i.cmds.DestroyInstance(i.handle, nil)
	i.handle = 0
}

type physicalDevice struct {
	inst   *instance
	handle vk.PhysicalDevice
}

func (p *physicalDevice) Info() compute.DeviceInfo {
	var props vk.PhysicalDeviceProperties
	p.inst.cmds.GetPhysicalDeviceProperties(p.handle, &props)
	return compute.DeviceInfo{
		Name:       cStringToGo(props.DeviceName[:]),
		Type:       deviceType(props.DeviceType),
		VendorID:   props.VendorID,
		DeviceID:   props.DeviceID,
		APIVersion: props.ApiVersion,
	}
}

func deviceType(t vk.PhysicalDeviceType) gputypes.DeviceType {
	switch t {
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return gputypes.DeviceTypeDiscreteGPU
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return gputypes.DeviceTypeIntegratedGPU
	case vk.PhysicalDeviceTypeVirtualGpu:
		return gputypes.DeviceTypeVirtualGPU
	case vk.PhysicalDeviceTypeCpu:
		return gputypes.DeviceTypeCPU
	default:
		return gputypes.DeviceTypeOther
	}
}

func (p *physicalDevice) QueueFamilies() []compute.QueueFamily {
	var count uint32
	p.inst.cmds.GetPhysicalDeviceQueueFamilyProperties(p.handle, &count, nil)
	if count == 0 {
		return nil
	}
	props := make([]vk.QueueFamilyProperties, count)
	p.inst.cmds.GetPhysicalDeviceQueueFamilyProperties(p.handle, &count, &props[0])

	out := make([]compute.QueueFamily, count)
	for i := range out {
		out[i] = compute.QueueFamily{
			Flags: compute.QueueFlags(props[i].QueueFlags),
			Count: props[i].QueueCount,
		}
	}
	return out
}

func (p *physicalDevice) MemoryProperties() compute.MemoryProperties {
	var props vk.PhysicalDeviceMemoryProperties
	p.inst.cmds.GetPhysicalDeviceMemoryProperties(p.handle, &props)

	out := compute.MemoryProperties{
		Types: make([]compute.MemoryType, props.MemoryTypeCount),
		Heaps: make([]compute.MemoryHeap, props.MemoryHeapCount),
	}
	for i := range out.Types {
		t := props.MemoryTypes[i]
		out.Types[i] = compute.MemoryType{
			Flags: compute.MemoryPropertyFlags(t.PropertyFlags),
			Heap:  t.HeapIndex,
		}
	}
	for i := range out.Heaps {
		h := props.MemoryHeaps[i]
		out.Heaps[i] = compute.MemoryHeap{
			Size:        uint64(h.Size),
			DeviceLocal: h.Flags&vk.MemoryHeapFlags(vk.MemoryHeapDeviceLocalBit) != 0,
		}
	}
	return out
}

func (p *physicalDevice) CreateDevice(family uint32) (compute.Device, error) {
	priority := float32(1.0)
	queueInfo := vk.DeviceQueueCreateInfo{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: family,
		QueueCount:       1,
		PQueuePriorities: &priority,
	}
	info := vk.DeviceCreateInfo{
		SType:                vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount: 1,
		PQueueCreateInfos:    &queueInfo,
	}

	var handle vk.Device
	if err := compute.CheckStatus("vkCreateDevice",
		int32(p.inst.cmds.CreateDevice(p.handle, &info, nil, &handle))); err != nil {
		return nil, err
	}

	cmds := new(vk.Commands)
	if err := cmds.LoadDevice(handle); err != nil {
		// DestroyDevice is a no-op when the entry point did not resolve.
		cmds.DestroyDevice(handle, nil)
		return nil, fmt.Errorf("%w: load device commands: %w", ErrUnavailable, err)
	}

	var queue vk.Queue
	cmds.GetDeviceQueue(handle, family, 0, &queue)

	return &device{
		handle: handle,
		cmds:   cmds,
		queue:  queue,
		mapped: make(map[vk.DeviceMemory]struct{}),
	}, nil
}
