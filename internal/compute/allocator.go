package compute

import (
	"fmt"
)

// FindMemoryType returns the index of the first memory type allowed by
// typeBits whose flags contain required and whose heap can hold size bytes.
func FindMemoryType(props MemoryProperties, typeBits uint32, required MemoryPropertyFlags, size uint64) (uint32, error) {
	for i, t := range props.Types {
		if i >= 32 || typeBits&(1<<i) == 0 {
			continue
		}
		if !t.Flags.Contains(required) {
			continue
		}
		if int(t.Heap) >= len(props.Heaps) || props.Heaps[t.Heap].Size < size {
			continue
		}
		return uint32(i), nil //nolint:gosec // i < 32
	}
	return 0, &NoSuitableMemoryTypeError{Required: required, Size: size, TypeBits: typeBits}
}

// Allocator allocates device memory by property class.
// It holds no state besides the device and its memory catalog.
type Allocator struct {
	dev   Device
	props MemoryProperties
}

// NewAllocator returns an allocator for the selected device.
func NewAllocator(dc DeviceContext) *Allocator {
	return &Allocator{dev: dc.Device, props: dc.Memory}
}

// Allocation is a device memory block.
type Allocation struct {
	Memory    Handle
	Size      uint64
	TypeIndex uint32
	Flags     MemoryPropertyFlags
}

// Allocate allocates memory for req with at least the required properties.
// The memory is owned by scope. Allocation is never retried.
func (a *Allocator) Allocate(scope *Scope, name string, req MemoryRequirements, required MemoryPropertyFlags) (Allocation, error) {
	index, err := FindMemoryType(a.props, req.TypeBits, required, req.Size)
	if err != nil {
		return Allocation{}, err
	}

	mem, err := a.dev.AllocateMemory(req.Size, index)
	if err != nil {
		return Allocation{}, fmt.Errorf("allocate %d bytes for %s: %w", req.Size, name, err)
	}
	scope.Defer(name+" memory", func() { a.dev.FreeMemory(mem) })

	slogger().Debug("compute: memory allocated",
		"object", name,
		"bytes", req.Size,
		"type", index,
		"flags", a.props.Types[index].Flags.String(),
	)

	return Allocation{
		Memory:    mem,
		Size:      req.Size,
		TypeIndex: index,
		Flags:     a.props.Types[index].Flags,
	}, nil
}
