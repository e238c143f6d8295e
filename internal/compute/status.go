package compute

// Driver status codes. Values follow VkResult so that drivers can pass
// their raw status through unchanged.
const (
	StatusSuccess              int32 = 0
	StatusNotReady             int32 = 1
	StatusTimeout              int32 = 2
	StatusOutOfHostMemory      int32 = -1
	StatusOutOfDeviceMemory    int32 = -2
	StatusInitializationFailed int32 = -3
	StatusDeviceLost           int32 = -4
	StatusMemoryMapFailed      int32 = -5
	StatusFragmentedPool       int32 = -12
	StatusOutOfPoolMemory      int32 = -1000069000
	StatusInvalidShader        int32 = -1000012000
)

var statusClass = map[int32]error{
	StatusTimeout:              ErrTimeout,
	StatusOutOfHostMemory:      ErrOutOfHostMemory,
	StatusOutOfDeviceMemory:    ErrOutOfDeviceMemory,
	StatusInitializationFailed: ErrInitializationFailed,
	StatusDeviceLost:           ErrDeviceLost,
	StatusMemoryMapFailed:      ErrMemoryMapFailed,
	StatusFragmentedPool:       ErrOutOfPoolMemory,
	StatusOutOfPoolMemory:      ErrOutOfPoolMemory,
	StatusInvalidShader:        ErrInvalidShader,
}

// CheckStatus returns nil for StatusSuccess and a *DriverError for op
// otherwise.
func CheckStatus(op string, code int32) error {
	if code == StatusSuccess {
		return nil
	}
	return &DriverError{Op: op, Code: code, Err: statusClass[code]}
}
