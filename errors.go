package mandel

import (
	"errors"

	"github.com/gogpu/mandel/internal/compute"
	"github.com/gogpu/mandel/internal/export"
	"github.com/gogpu/mandel/internal/kernel"
	"github.com/gogpu/mandel/internal/vulkan"
)

var (
	// ErrInvalidConfig is returned by Config.Validate.
	ErrInvalidConfig = errors.New("mandel: invalid config")

	// ErrUnknownBackend is returned for a backend name other than
	// "vulkan" or "sim".
	ErrUnknownBackend = errors.New("mandel: unknown backend")

	// ErrNoVulkan is returned when the Vulkan loader cannot be opened.
	ErrNoVulkan = vulkan.ErrUnavailable

	// ErrUnsupportedFormat is returned for output formats other than
	// PNG, BMP and TIFF.
	ErrUnsupportedFormat = export.ErrUnsupportedFormat

	// ErrInvalidKernel is returned for kernel files that are not SPIR-V.
	ErrInvalidKernel = kernel.ErrInvalidSPIRV

	// ErrTimeout and ErrDeviceLost classify a DeviceLostError.
	ErrTimeout    = compute.ErrTimeout
	ErrDeviceLost = compute.ErrDeviceLost
)

// Errors of the individual render stages. Match them with errors.As.
type (
	// NoCapableDeviceError: no device exposes a compute queue family.
	NoCapableDeviceError = compute.NoCapableDeviceError

	// NoSuitableMemoryTypeError: no memory type satisfies a buffer.
	NoSuitableMemoryTypeError = compute.NoSuitableMemoryTypeError

	// DescriptorExhaustionError: the descriptor pool cannot provide the set.
	DescriptorExhaustionError = compute.DescriptorExhaustionError

	// ShaderCompilationError: the driver rejected the kernel binary.
	ShaderCompilationError = compute.ShaderCompilationError

	// PipelineCreationError: the pipeline layout or pipeline failed.
	PipelineCreationError = compute.PipelineCreationError

	// DeviceLostError: the completion fence timed out or the device was lost.
	DeviceLostError = compute.DeviceLostError

	// DriverError is a failed driver call with its raw status.
	DriverError = compute.DriverError
)
