package mandel

import (
	"errors"
	"testing"
	"time"

	"github.com/gogpu/mandel/internal/export"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Width != 3200 || cfg.Height != 2400 || cfg.GroupSize != 32 {
		t.Errorf("size = %dx%d/%d, want 3200x2400/32", cfg.Width, cfg.Height, cfg.GroupSize)
	}
	if cfg.EntryPoint != "main" || cfg.Output != "mandelbrot.png" || cfg.Backend != BackendVulkan {
		t.Errorf("DefaultConfig() = %+v", cfg)
	}
	if cfg.FenceTimeout != 10*time.Second || cfg.Validation {
		t.Errorf("FenceTimeout = %v, Validation = %v", cfg.FenceTimeout, cfg.Validation)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() = %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		opt     Option
		wantErr error
	}{
		{"valid", func(*Config) {}, nil},
		{"zero width", WithSize(0, 10), ErrInvalidConfig},
		{"negative height", WithSize(10, -1), ErrInvalidConfig},
		{"zero group", WithGroupSize(0), ErrInvalidConfig},
		{"oversized group", WithGroupSize(64), ErrInvalidConfig},
		{"negative timeout", WithFenceTimeout(-time.Second), ErrInvalidConfig},
		{"unknown backend", WithBackend("metal"), ErrUnknownBackend},
		{"unknown extension", WithOutput("out.gif"), ErrUnsupportedFormat},
		{"no extension", WithOutput("out"), ErrUnsupportedFormat},
		{"format override", func(c *Config) { c.Output = "out"; c.Format = "bmp" }, nil},
		{"bad format override", WithFormat("jpeg"), ErrUnsupportedFormat},
		{"sim backend", WithBackend(BackendSim), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewConfig(tt.opt).Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestOutputFormat(t *testing.T) {
	tests := []struct {
		output, format string
		want           export.Format
	}{
		{"a.png", "", export.FormatPNG},
		{"a.PNG", "", export.FormatPNG},
		{"a.tif", "", export.FormatTIFF},
		{"a.bmp", "", export.FormatBMP},
		{"a.png", "tiff", export.FormatTIFF},
	}
	for _, tt := range tests {
		cfg := Config{Output: tt.output, Format: tt.format}
		got, err := cfg.OutputFormat()
		if err != nil || got != tt.want {
			t.Errorf("OutputFormat(%q, %q) = %q, %v; want %q", tt.output, tt.format, got, err, tt.want)
		}
	}
}

func TestOptions(t *testing.T) {
	cfg := NewConfig(
		WithSize(640, 480),
		WithGroupSize(16),
		WithKernel("k.spv", "entry"),
		WithOutput("x.bmp"),
		WithFormat("png"),
		WithValidation(true),
		WithFenceTimeout(time.Minute),
		WithBackend(BackendSim),
	)
	want := Config{
		Width:        640,
		Height:       480,
		GroupSize:    16,
		Kernel:       "k.spv",
		EntryPoint:   "entry",
		Output:       "x.bmp",
		Format:       "png",
		Validation:   true,
		FenceTimeout: time.Minute,
		Backend:      BackendSim,
	}
	if cfg != want {
		t.Errorf("NewConfig() = %+v\nwant %+v", cfg, want)
	}

	// An empty entry point keeps the default.
	if got := NewConfig(WithKernel("k.wgsl", "")).EntryPoint; got != DefaultEntryPoint {
		t.Errorf("EntryPoint = %q, want %q", got, DefaultEntryPoint)
	}
}
