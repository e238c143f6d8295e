// Package compute runs a single compute dispatch on a GPU.
//
// A run is a strictly linear sequence of stages, each returning an
// immutable bundle consumed by the next:
//
//	Selector.Select  -> DeviceContext
//	NewResourceSet   -> ResourceSet   (pixel storage + seed uniform)
//	NewBinding       -> Binding       (2-slot layout, pool, set)
//	NewPipeline      -> Pipeline      (shader module, layout, pipeline)
//	NewExecutor      -> Executor      (command pool, command buffer, fence)
//	Readback         -> Sink
//
// Every created object is recorded on a Scope and released in reverse
// creation order when the run ends. Device access goes through the Device
// interface, implemented by the Vulkan driver (internal/vulkan) and by a
// simulated device (internal/simgpu).
package compute
