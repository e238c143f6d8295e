package mandel

import (
	"fmt"
	"time"

	"github.com/gogpu/mandel/internal/export"
)

// Backend names.
const (
	// BackendVulkan renders on a Vulkan device.
	BackendVulkan = "vulkan"

	// BackendSim renders on the simulated device with the Go reference
	// kernel. It needs no GPU.
	BackendSim = "sim"
)

// Default render parameters.
const (
	DefaultWidth        = 3200
	DefaultHeight       = 2400
	DefaultGroupSize    = 32
	DefaultEntryPoint   = "main"
	DefaultOutput       = "mandelbrot.png"
	DefaultFenceTimeout = 10 * time.Second
)

// Config describes one render.
type Config struct {
	Width  int
	Height int

	// GroupSize is the work-group edge length the kernel was built for.
	GroupSize int

	// Kernel is a .spv or .wgsl file. Empty selects the built-in kernel.
	Kernel     string
	EntryPoint string

	// Output is the image file to write.
	Output string
	// Format overrides the format derived from Output's extension.
	Format string

	// Validation enables the driver's validation layer. Its messages are
	// logged; it never changes the image.
	Validation bool

	// FenceTimeout bounds the wait for the dispatch to complete. Zero means
	// DefaultFenceTimeout.
	FenceTimeout time.Duration

	// Backend is BackendVulkan or BackendSim.
	Backend string
}

// DefaultConfig returns a 3200x2400 render with 32x32 work-groups on
// Vulkan, written to mandelbrot.png.
func DefaultConfig() Config {
	return Config{
		Width:        DefaultWidth,
		Height:       DefaultHeight,
		GroupSize:    DefaultGroupSize,
		EntryPoint:   DefaultEntryPoint,
		Output:       DefaultOutput,
		FenceTimeout: DefaultFenceTimeout,
		Backend:      BackendVulkan,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch {
	case c.Width <= 0 || c.Height <= 0:
		return fmt.Errorf("%w: image size %dx%d", ErrInvalidConfig, c.Width, c.Height)
	case c.GroupSize <= 0:
		return fmt.Errorf("%w: group size %d", ErrInvalidConfig, c.GroupSize)
	case c.GroupSize*c.GroupSize > 1024:
		// maxComputeWorkGroupInvocations of desktop drivers.
		return fmt.Errorf("%w: group size %d exceeds 1024 invocations", ErrInvalidConfig, c.GroupSize)
	case c.FenceTimeout < 0:
		return fmt.Errorf("%w: negative fence timeout %v", ErrInvalidConfig, c.FenceTimeout)
	case c.Backend != BackendVulkan && c.Backend != BackendSim:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Backend)
	}
	if _, err := c.OutputFormat(); err != nil {
		return err
	}
	return nil
}

// OutputFormat returns Format when set, otherwise the format implied by
// the extension of Output.
func (c Config) OutputFormat() (export.Format, error) {
	if c.Format != "" {
		return export.ParseFormat(c.Format)
	}
	return export.FormatFromPath(c.Output)
}
