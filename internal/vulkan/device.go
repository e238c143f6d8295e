package vulkan

import (
	"runtime"
	"sync"
	"time"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/mandel/internal/compute"
	"github.com/gogpu/wgpu/hal/vulkan/vk"
)

// device is a logical device with one queue.
type device struct {
	handle vk.Device
	cmds   *vk.Commands
	queue  vk.Queue

	mu     sync.Mutex
	mapped map[vk.DeviceMemory]struct{}
}

func check(op string, res vk.Result) error {
	return compute.CheckStatus(op, int32(res))
}

func (d *device) CreateBuffer(size uint64, usage compute.BufferUsage) (compute.Handle, error) {
	info := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       vk.BufferUsageFlags(usage),
		SharingMode: vk.SharingModeExclusive,
	}
	var buf vk.Buffer
	if err := check("vkCreateBuffer", d.cmds.CreateBuffer(d.handle, &info, nil, &buf)); err != nil {
		return 0, err
	}
	return compute.Handle(buf), nil
}

func (d *device) BufferRequirements(buffer compute.Handle) compute.MemoryRequirements {
	var req vk.MemoryRequirements
	d.cmds.GetBufferMemoryRequirements(d.handle, vk.Buffer(buffer), &req)
	return compute.MemoryRequirements{
		Size:      uint64(req.Size),
		Alignment: uint64(req.Alignment),
		TypeBits:  req.MemoryTypeBits,
	}
}

func (d *device) DestroyBuffer(buffer compute.Handle) {
	d.cmds.DestroyBuffer(d.handle, vk.Buffer(buffer), nil)
}

func (d *device) AllocateMemory(size uint64, typeIndex uint32) (compute.Handle, error) {
	info := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  vk.DeviceSize(size),
		MemoryTypeIndex: typeIndex,
	}
	var mem vk.DeviceMemory
	if err := check("vkAllocateMemory", d.cmds.AllocateMemory(d.handle, &info, nil, &mem)); err != nil {
		return 0, err
	}
	return compute.Handle(mem), nil
}

func (d *device) BindBufferMemory(buffer, memory compute.Handle, offset uint64) error {
	return check("vkBindBufferMemory",
		d.cmds.BindBufferMemory(d.handle, vk.Buffer(buffer), vk.DeviceMemory(memory), vk.DeviceSize(offset)))
}

// MapMemory maps a range of memory. Vulkan allows one active mapping per
// memory object; a second map fails with StatusMemoryMapFailed.
func (d *device) MapMemory(memory compute.Handle, offset, size uint64) ([]byte, error) {
	mem := vk.DeviceMemory(memory)
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.mapped[mem]; ok {
		return nil, compute.CheckStatus("vkMapMemory", compute.StatusMemoryMapFailed)
	}

	var ptr uintptr
	res := d.cmds.MapMemory(d.handle, mem, vk.DeviceSize(offset), vk.DeviceSize(size), 0,
		uintptr(unsafe.Pointer(&ptr)))
	if err := check("vkMapMemory", res); err != nil {
		return nil, err
	}
	if ptr == 0 {
		d.cmds.UnmapMemory(d.handle, mem)
		return nil, compute.CheckStatus("vkMapMemory", compute.StatusMemoryMapFailed)
	}
	d.mapped[mem] = struct{}{}
	return unsafe.Slice(ptrFromUintptr(ptr), size), nil
}

func (d *device) UnmapMemory(memory compute.Handle) {
	mem := vk.DeviceMemory(memory)
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.mapped[mem]; !ok {
		return
	}
	delete(d.mapped, mem)
	d.cmds.UnmapMemory(d.handle, mem)
}

func (d *device) FreeMemory(memory compute.Handle) {
	mem := vk.DeviceMemory(memory)
	d.mu.Lock()
	delete(d.mapped, mem)
	d.mu.Unlock()
	d.cmds.FreeMemory(d.handle, mem, nil)
}

func stageFlags(s gputypes.ShaderStage) vk.ShaderStageFlags {
	var f vk.ShaderStageFlagBits
	if s&gputypes.ShaderStageVertex != 0 {
		f |= vk.ShaderStageVertexBit
	}
	if s&gputypes.ShaderStageFragment != 0 {
		f |= vk.ShaderStageFragmentBit
	}
	if s&gputypes.ShaderStageCompute != 0 {
		f |= vk.ShaderStageComputeBit
	}
	return vk.ShaderStageFlags(f)
}

func (d *device) CreateDescriptorSetLayout(slots []compute.LayoutSlot) (compute.Handle, error) {
	bindings := make([]vk.DescriptorSetLayoutBinding, len(slots))
	for i, s := range slots {
		bindings[i] = vk.DescriptorSetLayoutBinding{
			Binding:         s.Binding,
			DescriptorType:  vk.DescriptorType(s.Type),
			DescriptorCount: s.Count,
			StageFlags:      stageFlags(s.Stage),
		}
	}
	info := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)), //nolint:gosec // bounded by the layout
	}
	if len(bindings) > 0 {
		info.PBindings = &bindings[0]
	}
	var layout vk.DescriptorSetLayout
	res := d.cmds.CreateDescriptorSetLayout(d.handle, &info, nil, &layout)
	runtime.KeepAlive(bindings)
	if err := check("vkCreateDescriptorSetLayout", res); err != nil {
		return 0, err
	}
	return compute.Handle(layout), nil
}

func (d *device) DestroyDescriptorSetLayout(layout compute.Handle) {
	d.cmds.DestroyDescriptorSetLayout(d.handle, vk.DescriptorSetLayout(layout), nil)
}

func (d *device) CreateDescriptorPool(maxSets uint32, sizes []compute.PoolSize) (compute.Handle, error) {
	vsizes := make([]vk.DescriptorPoolSize, len(sizes))
	for i, s := range sizes {
		vsizes[i] = vk.DescriptorPoolSize{Type: vk.DescriptorType(s.Type), DescriptorCount: s.Count}
	}
	info := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       maxSets,
		PoolSizeCount: uint32(len(vsizes)), //nolint:gosec // one entry per slot kind
	}
	if len(vsizes) > 0 {
		info.PPoolSizes = &vsizes[0]
	}
	var pool vk.DescriptorPool
	res := d.cmds.CreateDescriptorPool(d.handle, &info, nil, &pool)
	runtime.KeepAlive(vsizes)
	if err := check("vkCreateDescriptorPool", res); err != nil {
		return 0, err
	}
	return compute.Handle(pool), nil
}

func (d *device) DestroyDescriptorPool(pool compute.Handle) {
	d.cmds.DestroyDescriptorPool(d.handle, vk.DescriptorPool(pool), nil)
}

func (d *device) AllocateDescriptorSet(pool, layout compute.Handle) (compute.Handle, error) {
	setLayout := vk.DescriptorSetLayout(layout)
	info := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     vk.DescriptorPool(pool),
		DescriptorSetCount: 1,
		PSetLayouts:        &setLayout,
	}
	var set vk.DescriptorSet
	if err := check("vkAllocateDescriptorSets", d.cmds.AllocateDescriptorSets(d.handle, &info, &set)); err != nil {
		return 0, err
	}
	return compute.Handle(set), nil
}

func (d *device) UpdateDescriptorSets(writes []compute.DescriptorWrite) {
	if len(writes) == 0 {
		return
	}
	infos := make([]vk.DescriptorBufferInfo, len(writes))
	vwrites := make([]vk.WriteDescriptorSet, len(writes))
	for i, w := range writes {
		infos[i] = vk.DescriptorBufferInfo{
			Buffer: vk.Buffer(w.Buffer),
			Offset: vk.DeviceSize(w.Offset),
			Range:  vk.DeviceSize(w.Range),
		}
		vwrites[i] = vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          vk.DescriptorSet(w.Set),
			DstBinding:      w.Binding,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorType(w.Type),
			PBufferInfo:     &infos[i],
		}
	}
	d.cmds.UpdateDescriptorSets(d.handle, uint32(len(vwrites)), &vwrites[0], 0, nil) //nolint:gosec // one write per slot
	runtime.KeepAlive(infos)
	runtime.KeepAlive(vwrites)
}

func (d *device) CreateShaderModule(code []uint32) (compute.Handle, error) {
	if len(code) == 0 {
		return 0, compute.CheckStatus("vkCreateShaderModule", compute.StatusInvalidShader)
	}
	info := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uintptr(len(code) * 4),
		PCode:    &code[0],
	}
	var module vk.ShaderModule
	res := d.cmds.CreateShaderModule(d.handle, &info, nil, &module)
	runtime.KeepAlive(code)
	if err := check("vkCreateShaderModule", res); err != nil {
		return 0, err
	}
	return compute.Handle(module), nil
}

func (d *device) DestroyShaderModule(module compute.Handle) {
	d.cmds.DestroyShaderModule(d.handle, vk.ShaderModule(module), nil)
}

func (d *device) CreatePipelineLayout(setLayouts []compute.Handle) (compute.Handle, error) {
	layouts := make([]vk.DescriptorSetLayout, len(setLayouts))
	for i, h := range setLayouts {
		layouts[i] = vk.DescriptorSetLayout(h)
	}
	info := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: uint32(len(layouts)), //nolint:gosec // one set
	}
	if len(layouts) > 0 {
		info.PSetLayouts = &layouts[0]
	}
	var layout vk.PipelineLayout
	res := d.cmds.CreatePipelineLayout(d.handle, &info, nil, &layout)
	runtime.KeepAlive(layouts)
	if err := check("vkCreatePipelineLayout", res); err != nil {
		return 0, err
	}
	return compute.Handle(layout), nil
}

func (d *device) DestroyPipelineLayout(layout compute.Handle) {
	d.cmds.DestroyPipelineLayout(d.handle, vk.PipelineLayout(layout), nil)
}

func (d *device) CreateComputePipeline(module, layout compute.Handle, entryPoint string) (compute.Handle, error) {
	name := entryPoint + "\x00"
	info := vk.ComputePipelineCreateInfo{
		SType: vk.StructureTypeComputePipelineCreateInfo,
		Stage: vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageComputeBit,
			Module: vk.ShaderModule(module),
			PName:  uintptr(unsafe.Pointer(unsafe.StringData(name))),
		},
		Layout:            vk.PipelineLayout(layout),
		BasePipelineIndex: -1,
	}
	var pipeline vk.Pipeline
	res := d.cmds.CreateComputePipelines(d.handle, 0, 1, &info, nil, &pipeline)
	runtime.KeepAlive(name)
	if err := check("vkCreateComputePipelines", res); err != nil {
		return 0, err
	}
	return compute.Handle(pipeline), nil
}

func (d *device) DestroyPipeline(pipeline compute.Handle) {
	d.cmds.DestroyPipeline(d.handle, vk.Pipeline(pipeline), nil)
}

func (d *device) CreateCommandPool(family uint32) (compute.Handle, error) {
	info := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: family,
	}
	var pool vk.CommandPool
	if err := check("vkCreateCommandPool", d.cmds.CreateCommandPool(d.handle, &info, nil, &pool)); err != nil {
		return 0, err
	}
	return compute.Handle(pool), nil
}

func (d *device) DestroyCommandPool(pool compute.Handle) {
	d.cmds.DestroyCommandPool(d.handle, vk.CommandPool(pool), nil)
}

func (d *device) AllocateCommandBuffer(pool compute.Handle) (compute.Handle, error) {
	info := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        vk.CommandPool(pool),
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}
	var cmd vk.CommandBuffer
	if err := check("vkAllocateCommandBuffers", d.cmds.AllocateCommandBuffers(d.handle, &info, &cmd)); err != nil {
		return 0, err
	}
	return compute.Handle(cmd), nil
}

func (d *device) FreeCommandBuffer(pool, cmd compute.Handle) {
	buf := vk.CommandBuffer(cmd)
	d.cmds.FreeCommandBuffers(d.handle, vk.CommandPool(pool), 1, &buf)
}

func (d *device) BeginCommandBuffer(cmd compute.Handle) error {
	info := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	return check("vkBeginCommandBuffer", d.cmds.BeginCommandBuffer(vk.CommandBuffer(cmd), &info))
}

func (d *device) CmdBindPipeline(cmd, pipeline compute.Handle) {
	d.cmds.CmdBindPipeline(vk.CommandBuffer(cmd), vk.PipelineBindPointCompute, vk.Pipeline(pipeline))
}

func (d *device) CmdBindDescriptorSet(cmd, layout compute.Handle, index uint32, set compute.Handle) {
	s := vk.DescriptorSet(set)
	d.cmds.CmdBindDescriptorSets(vk.CommandBuffer(cmd), vk.PipelineBindPointCompute,
		vk.PipelineLayout(layout), index, 1, &s, 0, nil)
}

func (d *device) CmdDispatch(cmd compute.Handle, x, y, z uint32) {
	d.cmds.CmdDispatch(vk.CommandBuffer(cmd), x, y, z)
}

func (d *device) EndCommandBuffer(cmd compute.Handle) error {
	return check("vkEndCommandBuffer", d.cmds.EndCommandBuffer(vk.CommandBuffer(cmd)))
}

func (d *device) CreateFence() (compute.Handle, error) {
	info := vk.FenceCreateInfo{SType: vk.StructureTypeFenceCreateInfo}
	var fence vk.Fence
	if err := check("vkCreateFence", d.cmds.CreateFence(d.handle, &info, nil, &fence)); err != nil {
		return 0, err
	}
	return compute.Handle(fence), nil
}

func (d *device) DestroyFence(fence compute.Handle) {
	d.cmds.DestroyFence(d.handle, vk.Fence(fence), nil)
}

func (d *device) Submit(cmd, fence compute.Handle) error {
	buf := vk.CommandBuffer(cmd)
	info := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    &buf,
	}
	return check("vkQueueSubmit", d.cmds.QueueSubmit(d.queue, 1, &info, vk.Fence(fence)))
}

// WaitForFence waits at most timeout.
func (d *device) WaitForFence(fence compute.Handle, timeout time.Duration) error {
	f := vk.Fence(fence)
	ns := uint64(max(timeout, 0).Nanoseconds()) //nolint:gosec // clamped non-negative
	return check("vkWaitForFences", d.cmds.WaitForFences(d.handle, 1, &f, vk.Bool32(vk.True), ns))
}

func (d *device) WaitIdle() error {
	return check("vkDeviceWaitIdle", d.cmds.DeviceWaitIdle(d.handle))
}

func (d *device) Destroy() {
	if d.handle == 0 {
		return
	}
	d.cmds.DestroyDevice(d.handle, nil)
	d.handle = 0
}
