package vulkan

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"unsafe"

	"github.com/go-webgpu/goffi/ffi"
	"github.com/gogpu/wgpu/hal/vulkan/vk"
)

// debugCallbackPtr is created once and lives for the process lifetime.
var (
	debugCallbackOnce sync.Once
	debugCallbackPtr  uintptr
)

// debugCallback receives validation layer messages. Every parameter is
// uintptr-sized as required by ffi.NewCallback.
func debugCallback(severity, types, callbackData, _ uintptr) uintptr {
	if callbackData == 0 {
		return vk.False
	}
	data := *(**vk.DebugUtilsMessengerCallbackDataEXT)(unsafe.Pointer(&callbackData))

	msg := "(no message)"
	if data.PMessage != 0 {
		msg = cStringFromPtr(data.PMessage)
	}

	attrs := []slog.Attr{slog.String("type", messageType(types))}
	if data.PMessageIdName != 0 {
		attrs = append(attrs, slog.String("id", cStringFromPtr(data.PMessageIdName)))
	}
	slogger().LogAttrs(context.Background(), severityLevel(severity), "vulkan: "+msg, attrs...)

	// VK_FALSE: the triggering call is not aborted.
	return vk.False
}

func severityLevel(severity uintptr) slog.Level {
	bits := vk.DebugUtilsMessageSeverityFlagBitsEXT(severity)
	switch {
	case bits&vk.DebugUtilsMessageSeverityErrorBitExt != 0:
		return slog.LevelError
	case bits&vk.DebugUtilsMessageSeverityWarningBitExt != 0:
		return slog.LevelWarn
	case bits&vk.DebugUtilsMessageSeverityInfoBitExt != 0:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

func messageType(types uintptr) string {
	bits := vk.DebugUtilsMessageTypeFlagBitsEXT(types)
	switch {
	case bits&vk.DebugUtilsMessageTypeValidationBitExt != 0:
		return "Validation"
	case bits&vk.DebugUtilsMessageTypePerformanceBitExt != 0:
		return "Performance"
	default:
		return "General"
	}
}

// createDebugMessenger registers debugCallback on the instance. A failure
// is logged and returns the null handle; validation output is then lost
// but the run proceeds.
func createDebugMessenger(inst *instance) vk.DebugUtilsMessengerEXT {
	debugCallbackOnce.Do(func() {
		debugCallbackPtr = ffi.NewCallback(debugCallback)
	})

	info := vk.DebugUtilsMessengerCreateInfoEXT{
		SType: vk.StructureTypeDebugUtilsMessengerCreateInfoExt,
		MessageSeverity: vk.DebugUtilsMessageSeverityFlagsEXT(
			vk.DebugUtilsMessageSeverityWarningBitExt |
				vk.DebugUtilsMessageSeverityErrorBitExt,
		),
		MessageType: vk.DebugUtilsMessageTypeFlagsEXT(
			vk.DebugUtilsMessageTypeGeneralBitExt |
				vk.DebugUtilsMessageTypeValidationBitExt |
				vk.DebugUtilsMessageTypePerformanceBitExt,
		),
		PfnUserCallback: debugCallbackPtr,
	}

	var messenger vk.DebugUtilsMessengerEXT
	if res := inst.cmds.CreateDebugUtilsMessengerEXT(inst.handle, &info, nil, &messenger); res != vk.Success {
		slogger().Warn("vulkan: debug messenger not created", "result", int32(res))
		return 0
	}
	runtime.KeepAlive(debugCallbackPtr)
	return messenger
}
