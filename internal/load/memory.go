package load

import (
	"fmt"
	"math"
	"runtime"
)

const (
	MiB      = 1024 * 1024
	pageSize = 4096
	// memoryFillByte is written into every page of a touched block.
	memoryFillByte = 'a'
)

// MemoryBlock is a contiguous allocation held for the life of one request.
type MemoryBlock struct {
	buf []byte
}

// AllocateMemory allocates sizeMB mebibytes as one byte slice. With touch set, one byte
// per page is written so the block becomes resident instead of merely reserved.
// Allocation panics (e.g. an impossible length) are returned as errors.
func AllocateMemory(sizeMB int, touch bool) (block *MemoryBlock, err error) {
	if sizeMB < 0 {
		return nil, fmt.Errorf("memory size must not be negative, got %d MB", sizeMB)
	}
	if sizeMB > math.MaxInt/MiB {
		return nil, fmt.Errorf("memory size %d MB overflows the address space", sizeMB)
	}

	defer func() {
		if r := recover(); r != nil {
			block = nil
			err = fmt.Errorf("allocate %d MB: %v", sizeMB, r)
		}
	}()

	buf := make([]byte, sizeMB*MiB)
	if touch {
		for i := 0; i < len(buf); i += pageSize {
			buf[i] = memoryFillByte
		}
	}
	return &MemoryBlock{buf: buf}, nil
}

// Size reports the number of bytes actually held.
func (b *MemoryBlock) Size() int {
	if b == nil {
		return 0
	}
	return len(b.buf)
}

// Release drops the block so the collector can reclaim it. Safe on nil and repeated calls.
func (b *MemoryBlock) Release() {
	if b == nil {
		return
	}
	runtime.KeepAlive(b.buf)
	b.buf = nil
}
