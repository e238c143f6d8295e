package mandel

import (
	"context"
	"fmt"

	"github.com/gogpu/mandel/internal/compute"
	"github.com/gogpu/mandel/internal/export"
	"github.com/gogpu/mandel/internal/kernel"
	"github.com/gogpu/mandel/internal/simgpu"
	"github.com/gogpu/mandel/internal/vulkan"
)

// Pixel is one rendered pixel: four float channels in [0, 1].
type Pixel = compute.Pixel

// Image is a rendered image. It implements image.Image.
type Image = export.FloatImage

// Report summarizes a render.
type Report = compute.Report

// DeviceSummary describes an enumerated device.
type DeviceSummary = compute.DeviceSummary

// Render renders cfg and writes the image to cfg.Output. The file is
// replaced atomically; a failed render leaves no partial output.
func Render(ctx context.Context, cfg Config) (Report, error) {
	if err := cfg.Validate(); err != nil {
		return Report{}, err
	}
	format, err := cfg.OutputFormat()
	if err != nil {
		return Report{}, err
	}

	// Encoding reads the mapped pixel memory directly.
	return render(ctx, cfg, func(px []compute.Pixel, width, height int) error {
		if err := export.WriteFile(cfg.Output, export.NewFloatImage(px, width, height), format); err != nil {
			return err
		}
		Logger().Info("mandel: image written", "path", cfg.Output, "format", string(format))
		return nil
	})
}

// RenderImage renders cfg and returns the pixels. Output and Format are
// ignored.
func RenderImage(ctx context.Context, cfg Config) (*Image, Report, error) {
	cfg.Format = string(export.FormatPNG)
	if err := cfg.Validate(); err != nil {
		return nil, Report{}, err
	}
	var img *Image
	rep, err := render(ctx, cfg, func(px []compute.Pixel, width, height int) error {
		img = export.NewFloatImage(append([]compute.Pixel(nil), px...), width, height)
		return nil
	})
	if err != nil {
		return nil, rep, err
	}
	return img, rep, nil
}

func render(ctx context.Context, cfg Config, sink compute.Sink) (Report, error) {
	code, err := kernel.Load(cfg.Kernel, kernel.Params{
		Width:     cfg.Width,
		Height:    cfg.Height,
		GroupSize: cfg.GroupSize,
	})
	if err != nil {
		return Report{}, err
	}

	drv, err := newDriver(cfg)
	if err != nil {
		return Report{}, err
	}
	Logger().Debug("mandel: render",
		"backend", drv.Name(),
		"size", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		"groupSize", cfg.GroupSize,
		"kernelWords", len(code),
	)

	return compute.Run(ctx, drv, compute.Job{
		Width:        cfg.Width,
		Height:       cfg.Height,
		GroupSize:    cfg.GroupSize,
		Code:         code,
		EntryPoint:   cfg.EntryPoint,
		Validation:   cfg.Validation,
		FenceTimeout: cfg.FenceTimeout,
	}, sink)
}

// Devices lists the devices of a backend and whether each can run a render.
func Devices(backend string, validation bool) ([]DeviceSummary, error) {
	drv, err := newDriver(Config{Backend: backend, Width: 1, Height: 1, GroupSize: 1})
	if err != nil {
		return nil, err
	}
	return compute.ListDevices(drv, validation)
}

func newDriver(cfg Config) (compute.Driver, error) {
	switch cfg.Backend {
	case BackendVulkan, "":
		return vulkan.New(), nil
	case BackendSim:
		g := uint32(cfg.GroupSize) //nolint:gosec // validated positive
		return simgpu.New(simgpu.Config{
			Kernel:        referenceKernel(cfg.Width, cfg.Height),
			WorkGroupSize: [3]uint32{g, g, 1},
			Logger:        Logger(),
		}), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}
