// Package mandel renders a Mandelbrot image with a single GPU compute
// dispatch.
//
// # Overview
//
// A render is offline and headless: one Vulkan device, one storage buffer
// holding a float RGBA value per pixel, one uniform seed, one dispatch.
// The host waits on a fence, maps the buffer and writes an image file.
// Nothing is drawn to a window.
//
// # Quick Start
//
//	import "github.com/gogpu/mandel"
//
//	cfg := mandel.NewConfig(mandel.WithOutput("fractal.png"))
//	rep, err := mandel.Render(context.Background(), cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(rep.Device.Name, rep.Grid)
//
// # Kernel
//
// The built-in kernel is WGSL compiled to SPIR-V with gogpu/naga. A
// precompiled .spv or another .wgsl file can be selected with WithKernel;
// it must declare a storage buffer of vec4<f32> at binding 0 and a
// uniform u32 seed at binding 1 of set 0. The seed changes with every
// render, so two renders of the same size differ in palette.
//
// # Backends
//
// BackendVulkan loads the system Vulkan loader at run time without cgo.
// BackendSim runs the same stages against a simulated device that
// executes a Go port of the built-in kernel; it needs no GPU.
//
// # Errors
//
// Every stage reports a distinct error type (NoCapableDeviceError,
// NoSuitableMemoryTypeError, DescriptorExhaustionError,
// ShaderCompilationError, PipelineCreationError, DeviceLostError). All
// device objects are released in reverse creation order on every path.
package mandel

// Version information
const (
	// Version is the current version of the module
	Version = "0.1.0"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 1

	// VersionPatch is the patch version
	VersionPatch = 0
)
