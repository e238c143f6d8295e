package compute

import (
	"fmt"
)

// Sink consumes the row-major pixels of the output buffer. The slice
// aliases mapped device memory and must not be retained after Sink returns.
type Sink func(pixels []Pixel, width, height int) error

// Readback maps the pixel buffer, hands the pixels to sink and unmaps.
// It refuses to read unless the executor observed the completion fence.
func Readback(dev Device, exec *Executor, buf Buffer, width, height int, sink Sink) error {
	if exec.State() != StateCompleted {
		return fmt.Errorf("%w: readback in state %s", ErrInvalidState, exec.State())
	}
	want := BufferSize(width, height)
	if buf.Size != want {
		return fmt.Errorf("%w: buffer holds %d bytes, image needs %d", ErrInvalidJob, buf.Size, want)
	}

	data, err := dev.MapMemory(buf.Memory.Memory, 0, buf.Size)
	if err != nil {
		return fmt.Errorf("map %s buffer: %w", buf.Name, err)
	}
	defer dev.UnmapMemory(buf.Memory.Memory)

	pixels := pixelView(data)
	if len(pixels) != width*height {
		return fmt.Errorf("%w: mapped %d pixels, want %d", ErrInvalidJob, len(pixels), width*height)
	}
	return sink(pixels, width, height)
}
