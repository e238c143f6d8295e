package compute

import (
	"fmt"
)

// Buffer is a created, allocated and bound buffer.
type Buffer struct {
	Name   string
	Handle Handle
	Memory Allocation
	Size   uint64
	Usage  BufferUsage
}

// ResourceSet holds the two buffers of a run.
type ResourceSet struct {
	// Pixels is the output storage buffer, width*height*PixelSize bytes.
	Pixels Buffer
	// Seed is the uniform parameter buffer, SeedSize bytes.
	Seed Buffer
}

// ResourceSpec describes the buffers to create.
type ResourceSpec struct {
	Width, Height int
	// Memory is the property class both buffers are allocated from.
	// Zero means HostMapped.
	Memory MemoryPropertyFlags
}

// NewResourceSet creates, allocates and binds the pixel and seed buffers.
// A buffer is bound to its allocation exactly once, at offset zero, and
// only after the allocation succeeded.
func NewResourceSet(scope *Scope, dev Device, alloc *Allocator, want ResourceSpec) (ResourceSet, error) {
	size := BufferSize(want.Width, want.Height)
	if size == 0 {
		return ResourceSet{}, fmt.Errorf("%w: image size %dx%d", ErrInvalidJob, want.Width, want.Height)
	}
	props := want.Memory
	if props == 0 {
		props = HostMapped
	}

	pixels, err := newBuffer(scope, dev, alloc, "pixels", size, UsageStorage, props)
	if err != nil {
		return ResourceSet{}, err
	}
	seed, err := newBuffer(scope, dev, alloc, "seed", SeedSize, UsageUniform, props)
	if err != nil {
		return ResourceSet{}, err
	}
	return ResourceSet{Pixels: pixels, Seed: seed}, nil
}

func newBuffer(scope *Scope, dev Device, alloc *Allocator, name string, size uint64, usage BufferUsage, props MemoryPropertyFlags) (Buffer, error) {
	handle, err := dev.CreateBuffer(size, usage)
	if err != nil {
		return Buffer{}, fmt.Errorf("create %s buffer: %w", name, err)
	}
	scope.Defer(name+" buffer", func() { dev.DestroyBuffer(handle) })

	req := dev.BufferRequirements(handle)
	mem, err := alloc.Allocate(scope, name, req, props)
	if err != nil {
		return Buffer{}, err
	}

	if err := dev.BindBufferMemory(handle, mem.Memory, 0); err != nil {
		return Buffer{}, fmt.Errorf("bind %s buffer memory: %w", name, err)
	}

	slogger().Debug("compute: buffer ready", "object", name, "bytes", size, "usage", usage.String())

	return Buffer{Name: name, Handle: handle, Memory: mem, Size: size, Usage: usage}, nil
}
