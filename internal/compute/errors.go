package compute

import (
	"errors"
	"fmt"
	"time"
)

// Status classes reported by drivers. A *DriverError unwraps to one of
// these when the driver status has a known meaning.
var (
	// ErrTimeout is returned when a wait elapsed before the fence signaled.
	ErrTimeout = errors.New("compute: timeout")

	// ErrDeviceLost is returned when the device stopped executing work.
	ErrDeviceLost = errors.New("compute: device lost")

	// ErrOutOfHostMemory is returned when the driver ran out of host memory.
	ErrOutOfHostMemory = errors.New("compute: out of host memory")

	// ErrOutOfDeviceMemory is returned when a heap is exhausted.
	ErrOutOfDeviceMemory = errors.New("compute: out of device memory")

	// ErrOutOfPoolMemory is returned when a descriptor pool is exhausted.
	ErrOutOfPoolMemory = errors.New("compute: out of descriptor pool memory")

	// ErrMemoryMapFailed is returned when memory cannot be mapped.
	ErrMemoryMapFailed = errors.New("compute: memory map failed")

	// ErrInitializationFailed is returned when the driver failed to initialize an object.
	ErrInitializationFailed = errors.New("compute: initialization failed")

	// ErrInvalidShader is returned when the driver rejects a kernel binary.
	ErrInvalidShader = errors.New("compute: invalid shader")
)

// Errors raised by the run itself.
var (
	// ErrInvalidState is returned when an executor operation is called
	// in a state that does not allow it.
	ErrInvalidState = errors.New("compute: invalid executor state")

	// ErrInvalidJob is returned when a job has invalid parameters.
	ErrInvalidJob = errors.New("compute: invalid job")
)

// DriverError is a failed driver call.
type DriverError struct {
	// Op is the API call, e.g. "vkCreateBuffer".
	Op string
	// Code is the raw driver status.
	Code int32
	// Err is the status class, or nil when the status has no known class.
	Err error
}

func (e *DriverError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v (status %d)", e.Op, e.Err, e.Code)
	}
	return fmt.Sprintf("%s failed with status %d", e.Op, e.Code)
}

func (e *DriverError) Unwrap() error { return e.Err }

// NoCapableDeviceError is returned when no enumerated device has a queue
// family that supports compute dispatch.
type NoCapableDeviceError struct {
	// Devices is the number of devices inspected.
	Devices int
}

func (e *NoCapableDeviceError) Error() string {
	if e.Devices == 0 {
		return "compute: no devices available"
	}
	return fmt.Sprintf("compute: none of %d devices has a compute queue family", e.Devices)
}

// NoSuitableMemoryTypeError is returned when no memory type of the device
// satisfies a requirement.
type NoSuitableMemoryTypeError struct {
	Required MemoryPropertyFlags
	Size     uint64
	TypeBits uint32
}

func (e *NoSuitableMemoryTypeError) Error() string {
	return fmt.Sprintf("compute: no memory type with %s for %d bytes (allowed types %#b)",
		e.Required, e.Size, e.TypeBits)
}

// DescriptorExhaustionError is returned when a descriptor pool cannot
// provide another set.
type DescriptorExhaustionError struct {
	Err error
}

func (e *DescriptorExhaustionError) Error() string {
	return fmt.Sprintf("compute: descriptor pool exhausted: %v", e.Err)
}

func (e *DescriptorExhaustionError) Unwrap() error { return e.Err }

// ShaderCompilationError is returned when the driver rejects the kernel binary.
type ShaderCompilationError struct {
	Err error
}

func (e *ShaderCompilationError) Error() string {
	return fmt.Sprintf("compute: shader module rejected: %v", e.Err)
}

func (e *ShaderCompilationError) Unwrap() error { return e.Err }

// PipelineCreationError is returned when the pipeline layout or the
// compute pipeline cannot be created.
type PipelineCreationError struct {
	Err error
}

func (e *PipelineCreationError) Error() string {
	return fmt.Sprintf("compute: pipeline creation failed: %v", e.Err)
}

func (e *PipelineCreationError) Unwrap() error { return e.Err }

// DeviceLostError is returned when the completion fence timed out or the
// device reported loss. A lost dispatch is never resumed.
type DeviceLostError struct {
	// Timeout is true when the fence wait elapsed without a signal.
	Timeout bool
	// Waited is the bounded wait that was configured.
	Waited time.Duration
	Err    error
}

func (e *DeviceLostError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("compute: device lost: fence not signaled after %v", e.Waited)
	}
	return fmt.Sprintf("compute: device lost: %v", e.Err)
}

func (e *DeviceLostError) Unwrap() error { return e.Err }
