package vulkan

import (
	"runtime"
	"unsafe"
)

// ptrFromUintptr converts an address returned by the driver to *byte
// without tripping go vet's unsafeptr check.
func ptrFromUintptr(ptr uintptr) *byte {
	return *(**byte)(unsafe.Pointer(&ptr))
}

// cStringFromPtr reads a NUL-terminated C string of at most 4096 bytes.
func cStringFromPtr(ptr uintptr) string {
	if ptr == 0 {
		return ""
	}
	const maxLen = 4096
	buf := unsafe.Slice(ptrFromUintptr(ptr), maxLen)
	for i, b := range buf {
		if b == 0 {
			return string(buf[:i])
		}
	}
	return string(buf)
}

// cStringToGo converts a fixed-size NUL-terminated array.
func cStringToGo(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// cStrings holds NUL-terminated strings and the pointer array that refers
// to them. Call keepAlive after the driver call that reads them.
type cStrings struct {
	strs []string
	ptrs []uintptr
}

// newCStrings appends a NUL to each name.
func newCStrings(names []string) *cStrings {
	c := &cStrings{
		strs: make([]string, len(names)),
		ptrs: make([]uintptr, len(names)),
	}
	for i, n := range names {
		c.strs[i] = n + "\x00"
		c.ptrs[i] = uintptr(unsafe.Pointer(unsafe.StringData(c.strs[i])))
	}
	return c
}

func (c *cStrings) count() uint32 { return uint32(len(c.ptrs)) } //nolint:gosec // a handful of names

// array returns the address of the pointer array, or 0 when empty.
func (c *cStrings) array() uintptr {
	if len(c.ptrs) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&c.ptrs[0]))
}

func (c *cStrings) keepAlive() {
	runtime.KeepAlive(c.strs)
	runtime.KeepAlive(c.ptrs)
}
