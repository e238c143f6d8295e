package simgpu

import (
	"time"

	"github.com/gogpu/mandel/internal/compute"
	"github.com/gogpu/mandel/internal/parallel"
)

// boundRange is a buffer range resolved at submission time.
type boundRange struct {
	binding uint32
	typ     compute.DescriptorType
	mem     *memory
	offset  uint64
	size    uint64
}

type dispatch struct {
	grid     [3]uint32
	bindings []boundRange
}

// Submit resolves the recorded dispatches and executes them on a
// background goroutine. The fence is signaled when they finish.
func (d *Device) Submit(cmd, fenceHandle compute.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call("vkQueueSubmit"); err != nil {
		return err
	}
	if d.lost.Load() {
		return compute.CheckStatus("vkQueueSubmit", compute.StatusDeviceLost)
	}
	cb, ok := lookup[commandBuffer](d, cmd)
	if !ok || cb.state != cbExecutable {
		d.violate("vkQueueSubmit: buffer %d is not executable", cmd)
		return compute.CheckStatus("vkQueueSubmit", compute.StatusInitializationFailed)
	}
	f, ok := lookup[fence](d, fenceHandle)
	if !ok || f.submitted {
		d.violate("vkQueueSubmit: fence %d is invalid or already in use", fenceHandle)
		return compute.CheckStatus("vkQueueSubmit", compute.StatusInitializationFailed)
	}

	work := make([]dispatch, 0, len(cb.cmds))
	for _, c := range cb.cmds {
		dp, ok := d.resolve(c)
		if !ok {
			return compute.CheckStatus("vkQueueSubmit", compute.StatusInitializationFailed)
		}
		work = append(work, dp)
	}

	cb.state = cbPending
	f.submitted = true
	d.inflight.Add(1)
	go d.execute(cb, f, work)
	return nil
}

// resolve maps the descriptor set of c to memory ranges. Caller holds d.mu.
func (d *Device) resolve(c command) (dispatch, bool) {
	if _, ok := lookup[pipeline](d, c.pipeline); !ok {
		d.violate("vkQueueSubmit: pipeline %d destroyed before submission", c.pipeline)
		return dispatch{}, false
	}
	set, ok := lookup[descriptorSet](d, c.set)
	if !ok {
		d.violate("vkQueueSubmit: descriptor set %d destroyed before submission", c.set)
		return dispatch{}, false
	}
	dp := dispatch{grid: c.grid}
	for binding, w := range set.writes {
		b, ok := lookup[buffer](d, w.Buffer)
		if !ok || !b.bound {
			d.violate("vkQueueSubmit: binding %d references an unbound buffer", binding)
			return dispatch{}, false
		}
		m, ok := lookup[memory](d, b.memory)
		if !ok {
			d.violate("vkQueueSubmit: binding %d references freed memory", binding)
			return dispatch{}, false
		}
		dp.bindings = append(dp.bindings, boundRange{
			binding: binding,
			typ:     w.Type,
			mem:     m,
			offset:  w.Offset,
			size:    w.Range,
		})
	}
	return dp, true
}

func (d *Device) execute(cb *commandBuffer, f *fence, work []dispatch) {
	defer d.inflight.Done()

	if d.cfg.FenceDelay > 0 {
		time.Sleep(d.cfg.FenceDelay)
	}

	switch d.cfg.Fault {
	case FaultHang:
		return
	case FaultDeviceLost:
		d.mu.Lock()
		d.lost.Store(true)
		cb.state = cbExecutable
		d.mu.Unlock()
		f.signal(compute.StatusDeviceLost)
		return
	}

	for _, dp := range work {
		d.run(dp)
	}

	d.mu.Lock()
	cb.state = cbExecutable
	d.mu.Unlock()
	f.signal(compute.StatusSuccess)
}

// run executes one dispatch. Bindings are copied into device-private
// scratch, the kernel runs over every work-group, and storage bindings
// are copied back. Host access is excluded during both copies.
func (d *Device) run(dp dispatch) {
	kernel := d.driver.cfg.Kernel
	if kernel == nil {
		return
	}

	var maxBinding uint32
	for _, b := range dp.bindings {
		maxBinding = max(maxBinding, b.binding)
	}
	scratch := make([][]byte, maxBinding+1)
	for _, b := range dp.bindings {
		buf := make([]byte, b.size)
		b.mem.access.Lock()
		copy(buf, b.mem.data[b.offset:b.offset+b.size])
		b.mem.access.Unlock()
		scratch[b.binding] = buf
	}

	local := d.driver.cfg.WorkGroupSize
	gx, gy, gz := dp.grid[0], dp.grid[1], dp.grid[2]
	groups := int(gx) * int(gy) * int(gz)

	pool := parallel.NewWorkerPool(d.driver.cfg.Workers)
	defer pool.Close()

	pool.ForEach(groups, func(i int) {
		g := [3]uint32{
			uint32(i) % gx,        //nolint:gosec // i < groups
			(uint32(i) / gx) % gy, //nolint:gosec // i < groups
			uint32(i) / (gx * gy), //nolint:gosec // i < groups
		}
		for lz := range local[2] {
			for ly := range local[1] {
				for lx := range local[0] {
					inv := Invocation{
						WorkGroup: g,
						Local:     [3]uint32{lx, ly, lz},
						Global: [3]uint32{
							g[0]*local[0] + lx,
							g[1]*local[1] + ly,
							g[2]*local[2] + lz,
						},
					}
					kernel(inv, scratch)
				}
			}
		}
	})

	for _, b := range dp.bindings {
		if b.typ != compute.DescriptorStorageBuffer {
			continue
		}
		b.mem.access.Lock()
		copy(b.mem.data[b.offset:b.offset+b.size], scratch[b.binding])
		b.mem.access.Unlock()
	}
}
