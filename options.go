package mandel

import "time"

// Option modifies a Config.
//
// Example:
//
//	cfg := mandel.NewConfig(
//	    mandel.WithSize(1600, 1200),
//	    mandel.WithOutput("small.png"),
//	)
type Option func(*Config)

// NewConfig returns DefaultConfig with opts applied in order.
func NewConfig(opts ...Option) Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithSize sets the image size in pixels.
func WithSize(width, height int) Option {
	return func(c *Config) {
		c.Width = width
		c.Height = height
	}
}

// WithGroupSize sets the work-group edge length. It must match the kernel.
func WithGroupSize(n int) Option {
	return func(c *Config) {
		c.GroupSize = n
	}
}

// WithKernel selects a .spv or .wgsl kernel file and its entry point.
// An empty entry point keeps the current one.
func WithKernel(path, entryPoint string) Option {
	return func(c *Config) {
		c.Kernel = path
		if entryPoint != "" {
			c.EntryPoint = entryPoint
		}
	}
}

// WithOutput sets the output file. The format follows the extension.
func WithOutput(path string) Option {
	return func(c *Config) {
		c.Output = path
	}
}

// WithFormat forces the output format ("png", "bmp" or "tiff").
func WithFormat(format string) Option {
	return func(c *Config) {
		c.Format = format
	}
}

// WithValidation enables the driver validation layer.
func WithValidation(enabled bool) Option {
	return func(c *Config) {
		c.Validation = enabled
	}
}

// WithFenceTimeout bounds the wait for the dispatch.
func WithFenceTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.FenceTimeout = d
	}
}

// WithBackend selects BackendVulkan or BackendSim.
func WithBackend(name string) Option {
	return func(c *Config) {
		c.Backend = name
	}
}
