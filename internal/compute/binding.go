package compute

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// Binding slots of the kernel interface.
const (
	SlotPixels uint32 = 0
	SlotSeed   uint32 = 1
)

// Layout returns the kernel's resource layout: the pixel storage buffer
// at slot 0 and the seed uniform buffer at slot 1, both compute-only.
func Layout() []LayoutSlot {
	return []LayoutSlot{
		{Binding: SlotPixels, Type: DescriptorStorageBuffer, Count: 1, Stage: gputypes.ShaderStageCompute},
		{Binding: SlotSeed, Type: DescriptorUniformBuffer, Count: 1, Stage: gputypes.ShaderStageCompute},
	}
}

// PoolSizes returns a pool capacity of exactly the descriptors of one set
// with the given layout, one entry per slot kind.
func PoolSizes(layout []LayoutSlot) []PoolSize {
	var sizes []PoolSize
	for _, slot := range layout {
		found := false
		for i := range sizes {
			if sizes[i].Type == slot.Type {
				sizes[i].Count += slot.Count
				found = true
				break
			}
		}
		if !found {
			sizes = append(sizes, PoolSize{Type: slot.Type, Count: slot.Count})
		}
	}
	return sizes
}

// Binding is the descriptor set layout, its pool and the single set
// allocated from it. It is never mutated after NewBinding returns.
type Binding struct {
	SetLayout Handle
	Pool      Handle
	Set       Handle
	Slots     []LayoutSlot
}

// NewBinding declares the layout, creates a pool sized for one set and
// wires the resource set's buffers into a freshly allocated set with a
// single batched update.
func NewBinding(scope *Scope, dev Device, res ResourceSet) (Binding, error) {
	slots := Layout()

	layout, err := dev.CreateDescriptorSetLayout(slots)
	if err != nil {
		return Binding{}, fmt.Errorf("create descriptor set layout: %w", err)
	}
	scope.Defer("descriptor set layout", func() { dev.DestroyDescriptorSetLayout(layout) })

	pool, err := dev.CreateDescriptorPool(1, PoolSizes(slots))
	if err != nil {
		return Binding{}, fmt.Errorf("create descriptor pool: %w", err)
	}
	scope.Defer("descriptor pool", func() { dev.DestroyDescriptorPool(pool) })

	set, err := AllocateSet(dev, pool, layout)
	if err != nil {
		return Binding{}, err
	}

	dev.UpdateDescriptorSets([]DescriptorWrite{
		{Set: set, Binding: SlotPixels, Type: DescriptorStorageBuffer, Buffer: res.Pixels.Handle, Range: res.Pixels.Size},
		{Set: set, Binding: SlotSeed, Type: DescriptorUniformBuffer, Buffer: res.Seed.Handle, Range: res.Seed.Size},
	})

	return Binding{SetLayout: layout, Pool: pool, Set: set, Slots: slots}, nil
}

// AllocateSet allocates one descriptor set from pool. Any failure is
// reported as pool exhaustion. Sets are returned to the driver when the
// pool is destroyed.
func AllocateSet(dev Device, pool, layout Handle) (Handle, error) {
	set, err := dev.AllocateDescriptorSet(pool, layout)
	if err != nil {
		return 0, &DescriptorExhaustionError{Err: err}
	}
	return set, nil
}
