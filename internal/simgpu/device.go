package simgpu

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/mandel/internal/compute"
)

// SPIRVMagic is the first word of every SPIR-V module.
const SPIRVMagic = 0x07230203

const bufferAlignment = 256

type buffer struct {
	size   uint64
	usage  compute.BufferUsage
	memory compute.Handle
	bound  bool
}

type memory struct {
	data []byte
	heap uint32
	// access is held by the host between MapMemory and UnmapMemory and by
	// the device while it copies bindings in and out.
	access sync.Mutex
	mapped atomic.Bool
}

type setLayout struct {
	slots []compute.LayoutSlot
}

type descriptorPool struct {
	maxSets  uint32
	capacity map[compute.DescriptorType]uint32
	used     map[compute.DescriptorType]uint32
	sets     uint32
}

type descriptorSet struct {
	pool   compute.Handle
	layout compute.Handle
	writes map[uint32]compute.DescriptorWrite
}

type shaderModule struct {
	words int
}

type pipelineLayout struct {
	setLayouts []compute.Handle
}

type pipeline struct {
	module compute.Handle
	layout compute.Handle
	entry  string
}

type commandPool struct {
	family uint32
}

type cbState uint8

const (
	cbInitial cbState = iota
	cbRecording
	cbExecutable
	cbPending
)

type command struct {
	pipeline compute.Handle
	layout   compute.Handle
	set      compute.Handle
	grid     [3]uint32
}

type commandBuffer struct {
	pool     compute.Handle
	state    cbState
	pipeline compute.Handle
	sets     map[uint32]compute.Handle
	layout   compute.Handle
	cmds     []command
}

type fence struct {
	done      chan struct{}
	once      sync.Once
	status    int32
	submitted bool
}

func (f *fence) signal(status int32) {
	f.once.Do(func() {
		f.status = status
		close(f.done)
	})
}

// Device is a simulated logical device. All methods are safe for
// concurrent use.
type Device struct {
	driver     *Driver
	cfg        DeviceConfig
	family     uint32
	validation bool

	mu         sync.Mutex
	next       compute.Handle
	objects    map[compute.Handle]any
	heapUsed   []uint64
	calls      map[string]int
	violations []string
	destroyed  bool
	lost       atomic.Bool
	inflight   sync.WaitGroup
}

var _ compute.Device = (*Device)(nil)

func newDevice(drv *Driver, cfg DeviceConfig, family uint32, validation bool) *Device {
	return &Device{
		driver:     drv,
		cfg:        cfg,
		family:     family,
		validation: validation,
		objects:    make(map[compute.Handle]any),
		heapUsed:   make([]uint64, len(cfg.Memory.Heaps)),
		calls:      make(map[string]int),
	}
}

// QueueFamily returns the family the device was created with.
func (d *Device) QueueFamily() uint32 { return d.family }

// Calls returns how many times the named driver call was made.
func (d *Device) Calls(op string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls[op]
}

// Live returns the number of objects not yet destroyed.
func (d *Device) Live() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.objects)
}

// Destroyed reports whether Destroy was called.
func (d *Device) Destroyed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.destroyed
}

// Violations returns the usage errors detected so far.
func (d *Device) Violations() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.violations...)
}

// violate records a usage error. Caller holds d.mu.
func (d *Device) violate(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	d.violations = append(d.violations, msg)
	if d.validation && d.driver.cfg.Logger != nil {
		d.driver.cfg.Logger.LogAttrs(context.Background(), slog.LevelWarn, "simgpu: "+msg,
			slog.String("type", "Validation"))
	}
}

// call counts op and returns an injected failure, if any. Caller holds d.mu.
func (d *Device) call(op string) error {
	d.calls[op]++
	if d.destroyed {
		d.violate("%s on destroyed device", op)
	}
	if code, ok := d.cfg.Fail[op]; ok {
		return compute.CheckStatus(op, code)
	}
	return nil
}

// add stores obj under a fresh handle. Caller holds d.mu.
func (d *Device) add(obj any) compute.Handle {
	d.next++
	d.objects[d.next] = obj
	return d.next
}

// remove deletes h if it holds a T. Caller holds d.mu.
func remove[T any](d *Device, op string, h compute.Handle) (*T, bool) {
	d.calls[op]++
	obj, ok := lookup[T](d, h)
	if !ok {
		d.violate("%s: invalid handle %d", op, h)
		return nil, false
	}
	delete(d.objects, h)
	return obj, true
}

// lookup returns the object h if it is a T. Caller holds d.mu.
func lookup[T any](d *Device, h compute.Handle) (*T, bool) {
	obj, ok := d.objects[h].(*T)
	return obj, ok
}

func (d *Device) CreateBuffer(size uint64, usage compute.BufferUsage) (compute.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call("vkCreateBuffer"); err != nil {
		return 0, err
	}
	if size == 0 {
		d.violate("vkCreateBuffer: zero size")
		return 0, compute.CheckStatus("vkCreateBuffer", compute.StatusInitializationFailed)
	}
	return d.add(&buffer{size: size, usage: usage}), nil
}

func (d *Device) BufferRequirements(h compute.Handle) compute.MemoryRequirements {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls["vkGetBufferMemoryRequirements"]++
	b, ok := lookup[buffer](d, h)
	if !ok {
		d.violate("vkGetBufferMemoryRequirements: invalid buffer %d", h)
		return compute.MemoryRequirements{}
	}
	n := len(d.cfg.Memory.Types)
	return compute.MemoryRequirements{
		Size:      (b.size + bufferAlignment - 1) &^ (bufferAlignment - 1),
		Alignment: bufferAlignment,
		TypeBits:  uint32(1)<<n - 1, //nolint:gosec // at most 32 types
	}
}

func (d *Device) DestroyBuffer(h compute.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	remove[buffer](d, "vkDestroyBuffer", h)
}

func (d *Device) AllocateMemory(size uint64, typeIndex uint32) (compute.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call("vkAllocateMemory"); err != nil {
		return 0, err
	}
	if int(typeIndex) >= len(d.cfg.Memory.Types) {
		d.violate("vkAllocateMemory: memory type %d out of range", typeIndex)
		return 0, compute.CheckStatus("vkAllocateMemory", compute.StatusOutOfDeviceMemory)
	}
	heap := d.cfg.Memory.Types[typeIndex].Heap
	if d.heapUsed[heap]+size > d.cfg.Memory.Heaps[heap].Size {
		return 0, compute.CheckStatus("vkAllocateMemory", compute.StatusOutOfDeviceMemory)
	}
	d.heapUsed[heap] += size
	return d.add(&memory{data: make([]byte, size), heap: heap}), nil
}

func (d *Device) BindBufferMemory(buf, mem compute.Handle, offset uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call("vkBindBufferMemory"); err != nil {
		return err
	}
	b, ok := lookup[buffer](d, buf)
	m, mok := lookup[memory](d, mem)
	switch {
	case !ok || !mok:
		d.violate("vkBindBufferMemory: invalid handle")
		return compute.CheckStatus("vkBindBufferMemory", compute.StatusInitializationFailed)
	case b.bound:
		d.violate("vkBindBufferMemory: buffer %d already bound", buf)
		return compute.CheckStatus("vkBindBufferMemory", compute.StatusInitializationFailed)
	case offset+b.size > uint64(len(m.data)):
		d.violate("vkBindBufferMemory: buffer %d does not fit memory %d at offset %d", buf, mem, offset)
		return compute.CheckStatus("vkBindBufferMemory", compute.StatusOutOfDeviceMemory)
	}
	b.memory = mem
	b.bound = true
	return nil
}

func (d *Device) MapMemory(mem compute.Handle, offset, size uint64) ([]byte, error) {
	d.mu.Lock()
	if err := d.call("vkMapMemory"); err != nil {
		d.mu.Unlock()
		return nil, err
	}
	m, ok := lookup[memory](d, mem)
	if !ok {
		d.violate("vkMapMemory: invalid memory %d", mem)
		d.mu.Unlock()
		return nil, compute.CheckStatus("vkMapMemory", compute.StatusMemoryMapFailed)
	}
	if !d.hostVisible(m) {
		d.violate("vkMapMemory: memory %d is not host-visible", mem)
		d.mu.Unlock()
		return nil, compute.CheckStatus("vkMapMemory", compute.StatusMemoryMapFailed)
	}
	if offset+size > uint64(len(m.data)) {
		d.violate("vkMapMemory: range %d+%d exceeds allocation", offset, size)
		d.mu.Unlock()
		return nil, compute.CheckStatus("vkMapMemory", compute.StatusMemoryMapFailed)
	}
	if m.mapped.Load() {
		d.violate("vkMapMemory: memory %d already mapped", mem)
		d.mu.Unlock()
		return nil, compute.CheckStatus("vkMapMemory", compute.StatusMemoryMapFailed)
	}
	d.mu.Unlock()

	// Wait for the device to finish copying, outside d.mu.
	m.access.Lock()
	m.mapped.Store(true)
	return m.data[offset : offset+size], nil
}

func (d *Device) hostVisible(m *memory) bool {
	for _, t := range d.cfg.Memory.Types {
		if t.Heap == m.heap && t.Flags&compute.MemoryHostVisible != 0 {
			return true
		}
	}
	return false
}

func (d *Device) UnmapMemory(mem compute.Handle) {
	d.mu.Lock()
	d.calls["vkUnmapMemory"]++
	m, ok := lookup[memory](d, mem)
	if !ok || !m.mapped.Load() {
		d.violate("vkUnmapMemory: memory %d is not mapped", mem)
		d.mu.Unlock()
		return
	}
	d.mu.Unlock()
	m.mapped.Store(false)
	m.access.Unlock()
}

func (d *Device) FreeMemory(mem compute.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	m, ok := remove[memory](d, "vkFreeMemory", mem)
	if !ok {
		return
	}
	if m.mapped.Load() {
		d.violate("vkFreeMemory: memory %d freed while mapped", mem)
	}
	d.heapUsed[m.heap] -= uint64(len(m.data))
}

func (d *Device) CreateDescriptorSetLayout(slots []compute.LayoutSlot) (compute.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call("vkCreateDescriptorSetLayout"); err != nil {
		return 0, err
	}
	seen := make(map[uint32]bool, len(slots))
	for _, s := range slots {
		if seen[s.Binding] {
			d.violate("vkCreateDescriptorSetLayout: duplicate binding %d", s.Binding)
			return 0, compute.CheckStatus("vkCreateDescriptorSetLayout", compute.StatusInitializationFailed)
		}
		seen[s.Binding] = true
	}
	return d.add(&setLayout{slots: append([]compute.LayoutSlot(nil), slots...)}), nil
}

func (d *Device) DestroyDescriptorSetLayout(h compute.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	remove[setLayout](d, "vkDestroyDescriptorSetLayout", h)
}

func (d *Device) CreateDescriptorPool(maxSets uint32, sizes []compute.PoolSize) (compute.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call("vkCreateDescriptorPool"); err != nil {
		return 0, err
	}
	p := &descriptorPool{
		maxSets:  maxSets,
		capacity: make(map[compute.DescriptorType]uint32),
		used:     make(map[compute.DescriptorType]uint32),
	}
	for _, s := range sizes {
		p.capacity[s.Type] += s.Count
	}
	return d.add(p), nil
}

func (d *Device) DestroyDescriptorPool(h compute.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := remove[descriptorPool](d, "vkDestroyDescriptorPool", h); !ok {
		return
	}
	// Destroying a pool frees its sets.
	for sh, obj := range d.objects {
		if s, ok := obj.(*descriptorSet); ok && s.pool == h {
			delete(d.objects, sh)
		}
	}
}

func (d *Device) AllocateDescriptorSet(pool, layout compute.Handle) (compute.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call("vkAllocateDescriptorSets"); err != nil {
		return 0, err
	}
	p, ok := lookup[descriptorPool](d, pool)
	l, lok := lookup[setLayout](d, layout)
	if !ok || !lok {
		d.violate("vkAllocateDescriptorSets: invalid handle")
		return 0, compute.CheckStatus("vkAllocateDescriptorSets", compute.StatusInitializationFailed)
	}
	if p.sets >= p.maxSets {
		return 0, compute.CheckStatus("vkAllocateDescriptorSets", compute.StatusOutOfPoolMemory)
	}
	need := make(map[compute.DescriptorType]uint32)
	for _, s := range l.slots {
		need[s.Type] += s.Count
	}
	for t, n := range need {
		if p.used[t]+n > p.capacity[t] {
			return 0, compute.CheckStatus("vkAllocateDescriptorSets", compute.StatusOutOfPoolMemory)
		}
	}
	for t, n := range need {
		p.used[t] += n
	}
	p.sets++
	return d.add(&descriptorSet{pool: pool, layout: layout, writes: make(map[uint32]compute.DescriptorWrite)}), nil
}

func (d *Device) UpdateDescriptorSets(writes []compute.DescriptorWrite) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls["vkUpdateDescriptorSets"]++
	for _, w := range writes {
		s, ok := lookup[descriptorSet](d, w.Set)
		if !ok {
			d.violate("vkUpdateDescriptorSets: invalid set %d", w.Set)
			continue
		}
		l, _ := lookup[setLayout](d, s.layout)
		var slot *compute.LayoutSlot
		if l != nil {
			for i := range l.slots {
				if l.slots[i].Binding == w.Binding {
					slot = &l.slots[i]
				}
			}
		}
		if slot == nil || slot.Type != w.Type {
			d.violate("vkUpdateDescriptorSets: binding %d does not accept %s", w.Binding, w.Type)
			continue
		}
		b, ok := lookup[buffer](d, w.Buffer)
		if !ok {
			d.violate("vkUpdateDescriptorSets: invalid buffer %d", w.Buffer)
			continue
		}
		if (w.Type == compute.DescriptorStorageBuffer && b.usage&compute.UsageStorage == 0) ||
			(w.Type == compute.DescriptorUniformBuffer && b.usage&compute.UsageUniform == 0) {
			d.violate("vkUpdateDescriptorSets: buffer %d usage %s cannot back %s", w.Buffer, b.usage, w.Type)
		}
		if w.Range == 0 || w.Offset+w.Range > b.size {
			d.violate("vkUpdateDescriptorSets: range %d+%d outside buffer %d", w.Offset, w.Range, w.Buffer)
			continue
		}
		s.writes[w.Binding] = w
	}
}

func (d *Device) CreateShaderModule(code []uint32) (compute.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call("vkCreateShaderModule"); err != nil {
		return 0, err
	}
	if len(code) < 5 || code[0] != SPIRVMagic {
		return 0, compute.CheckStatus("vkCreateShaderModule", compute.StatusInvalidShader)
	}
	return d.add(&shaderModule{words: len(code)}), nil
}

func (d *Device) DestroyShaderModule(h compute.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	remove[shaderModule](d, "vkDestroyShaderModule", h)
}

func (d *Device) CreatePipelineLayout(setLayouts []compute.Handle) (compute.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call("vkCreatePipelineLayout"); err != nil {
		return 0, err
	}
	for _, h := range setLayouts {
		if _, ok := lookup[setLayout](d, h); !ok {
			d.violate("vkCreatePipelineLayout: invalid set layout %d", h)
			return 0, compute.CheckStatus("vkCreatePipelineLayout", compute.StatusInitializationFailed)
		}
	}
	return d.add(&pipelineLayout{setLayouts: append([]compute.Handle(nil), setLayouts...)}), nil
}

func (d *Device) DestroyPipelineLayout(h compute.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	remove[pipelineLayout](d, "vkDestroyPipelineLayout", h)
}

func (d *Device) CreateComputePipeline(module, layout compute.Handle, entryPoint string) (compute.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call("vkCreateComputePipelines"); err != nil {
		return 0, err
	}
	_, mok := lookup[shaderModule](d, module)
	_, lok := lookup[pipelineLayout](d, layout)
	if !mok || !lok || entryPoint == "" {
		d.violate("vkCreateComputePipelines: invalid module, layout or entry point")
		return 0, compute.CheckStatus("vkCreateComputePipelines", compute.StatusInitializationFailed)
	}
	return d.add(&pipeline{module: module, layout: layout, entry: entryPoint}), nil
}

func (d *Device) DestroyPipeline(h compute.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	remove[pipeline](d, "vkDestroyPipeline", h)
}

func (d *Device) CreateCommandPool(family uint32) (compute.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call("vkCreateCommandPool"); err != nil {
		return 0, err
	}
	if family != d.family {
		d.violate("vkCreateCommandPool: family %d has no queue on this device", family)
	}
	return d.add(&commandPool{family: family}), nil
}

func (d *Device) DestroyCommandPool(h compute.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := remove[commandPool](d, "vkDestroyCommandPool", h); !ok {
		return
	}
	for ch, obj := range d.objects {
		if cb, ok := obj.(*commandBuffer); ok && cb.pool == h {
			if cb.state == cbPending {
				d.violate("vkDestroyCommandPool: command buffer %d is pending", ch)
			}
			delete(d.objects, ch)
		}
	}
}

func (d *Device) AllocateCommandBuffer(pool compute.Handle) (compute.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call("vkAllocateCommandBuffers"); err != nil {
		return 0, err
	}
	if _, ok := lookup[commandPool](d, pool); !ok {
		d.violate("vkAllocateCommandBuffers: invalid pool %d", pool)
		return 0, compute.CheckStatus("vkAllocateCommandBuffers", compute.StatusInitializationFailed)
	}
	return d.add(&commandBuffer{pool: pool}), nil
}

func (d *Device) FreeCommandBuffer(pool, cmd compute.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	cb, ok := remove[commandBuffer](d, "vkFreeCommandBuffers", cmd)
	if !ok {
		return
	}
	if cb.pool != pool {
		d.violate("vkFreeCommandBuffers: buffer %d not from pool %d", cmd, pool)
	}
	if cb.state == cbPending {
		d.violate("vkFreeCommandBuffers: buffer %d is pending", cmd)
	}
}

func (d *Device) BeginCommandBuffer(cmd compute.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call("vkBeginCommandBuffer"); err != nil {
		return err
	}
	cb, ok := lookup[commandBuffer](d, cmd)
	if !ok || cb.state == cbPending || cb.state == cbRecording {
		d.violate("vkBeginCommandBuffer: buffer %d cannot begin", cmd)
		return compute.CheckStatus("vkBeginCommandBuffer", compute.StatusInitializationFailed)
	}
	cb.state = cbRecording
	cb.cmds = nil
	cb.pipeline = 0
	cb.sets = make(map[uint32]compute.Handle)
	return nil
}

func (d *Device) recording(op string, cmd compute.Handle) *commandBuffer {
	d.calls[op]++
	cb, ok := lookup[commandBuffer](d, cmd)
	if !ok || cb.state != cbRecording {
		d.violate("%s: buffer %d is not recording", op, cmd)
		return nil
	}
	return cb
}

func (d *Device) CmdBindPipeline(cmd, p compute.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if cb := d.recording("vkCmdBindPipeline", cmd); cb != nil {
		cb.pipeline = p
	}
}

func (d *Device) CmdBindDescriptorSet(cmd, layout compute.Handle, index uint32, set compute.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if cb := d.recording("vkCmdBindDescriptorSets", cmd); cb != nil {
		cb.sets[index] = set
		cb.layout = layout
	}
}

func (d *Device) CmdDispatch(cmd compute.Handle, x, y, z uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	cb := d.recording("vkCmdDispatch", cmd)
	if cb == nil {
		return
	}
	if cb.pipeline == 0 {
		d.violate("vkCmdDispatch: no pipeline bound")
		return
	}
	set, ok := cb.sets[0]
	if !ok {
		d.violate("vkCmdDispatch: no descriptor set bound at index 0")
		return
	}
	cb.cmds = append(cb.cmds, command{pipeline: cb.pipeline, layout: cb.layout, set: set, grid: [3]uint32{x, y, z}})
}

func (d *Device) EndCommandBuffer(cmd compute.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call("vkEndCommandBuffer"); err != nil {
		return err
	}
	cb, ok := lookup[commandBuffer](d, cmd)
	if !ok || cb.state != cbRecording {
		d.violate("vkEndCommandBuffer: buffer %d is not recording", cmd)
		return compute.CheckStatus("vkEndCommandBuffer", compute.StatusInitializationFailed)
	}
	cb.state = cbExecutable
	return nil
}

func (d *Device) CreateFence() (compute.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call("vkCreateFence"); err != nil {
		return 0, err
	}
	return d.add(&fence{done: make(chan struct{})}), nil
}

func (d *Device) DestroyFence(h compute.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	f, ok := remove[fence](d, "vkDestroyFence", h)
	if !ok {
		return
	}
	select {
	case <-f.done:
	default:
		if f.submitted {
			d.violate("vkDestroyFence: fence %d destroyed while in use", h)
		}
	}
}

func (d *Device) WaitForFence(h compute.Handle, timeout time.Duration) error {
	d.mu.Lock()
	d.calls["vkWaitForFences"]++
	f, ok := lookup[fence](d, h)
	if !ok {
		d.violate("vkWaitForFences: invalid fence %d", h)
		d.mu.Unlock()
		return compute.CheckStatus("vkWaitForFences", compute.StatusInitializationFailed)
	}
	d.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-f.done:
		return compute.CheckStatus("vkWaitForFences", f.status)
	case <-timer.C:
		return compute.CheckStatus("vkWaitForFences", compute.StatusTimeout)
	}
}

// WaitIdle blocks until no submitted work is executing. A hung device is
// reset instead: it becomes lost, its fences signal and its command
// buffers leave the pending state, as after a driver timeout recovery.
func (d *Device) WaitIdle() error {
	d.mu.Lock()
	d.calls["vkDeviceWaitIdle"]++
	if d.cfg.Fault == FaultHang {
		d.reset()
		d.mu.Unlock()
		return compute.CheckStatus("vkDeviceWaitIdle", compute.StatusDeviceLost)
	}
	d.mu.Unlock()
	d.inflight.Wait()
	if d.lost.Load() {
		return compute.CheckStatus("vkDeviceWaitIdle", compute.StatusDeviceLost)
	}
	return nil
}

// reset abandons all submitted work. Caller holds d.mu.
func (d *Device) reset() {
	d.lost.Store(true)
	for _, obj := range d.objects {
		switch o := obj.(type) {
		case *fence:
			if o.submitted {
				o.signal(compute.StatusDeviceLost)
			}
		case *commandBuffer:
			if o.state == cbPending {
				o.state = cbExecutable
			}
		}
	}
}

func (d *Device) Destroy() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls["vkDestroyDevice"]++
	if d.destroyed {
		d.violate("vkDestroyDevice: device destroyed twice")
		return
	}
	for h, obj := range d.objects {
		d.violate("vkDestroyDevice: %T %d not destroyed", obj, h)
	}
	d.destroyed = true
}
