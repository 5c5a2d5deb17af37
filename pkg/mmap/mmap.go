// Package mmap maps a physical peripheral register window through /dev/mem.
package mmap

import (
	"fmt"
	"os"
	"syscall"
	"unsafe"
)

// Region is a memory mapped register window.
type Region struct {
	base   uintptr
	size   uintptr
	region []byte
}

// Open maps size bytes of physical address space starting at base.
// Needs read/write access to /dev/mem, so usually root.
func Open(base, size uintptr) (*Region, error) {
	f, err := os.OpenFile("/dev/mem", os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open /dev/mem: %v", err)
	}
	defer f.Close()

	region, err := syscall.Mmap(
		int(f.Fd()),
		int64(base),
		int(size),
		syscall.PROT_READ|syscall.PROT_WRITE,
		syscall.MAP_SHARED,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to mmap %#x: %v", base, err)
	}

	return &Region{
		base:   base,
		size:   size,
		region: region,
	}, nil
}

// Close unmaps the window.
func (r *Region) Close() error {
	return syscall.Munmap(r.region)
}

// Read32 reads the 32-bit register at the given byte offset.
func (r *Region) Read32(offset uintptr) uint32 {
	return *(*uint32)(unsafe.Pointer(&r.region[offset]))
}

// Write32 writes the 32-bit register at the given byte offset.
func (r *Region) Write32(offset uintptr, value uint32) {
	*(*uint32)(unsafe.Pointer(&r.region[offset])) = value
}
