package wali

import (
	"golang.org/x/sys/unix"
)

// pageSizeWasm is the page size WebAssembly memory.grow operates in.
const pageSizeWasm = wasmPageSize

// MMapState tracks the guest-visible mmap region maintained on top of linear
// memory.
type MMapState struct {
	nMMapPages     uint64
	pageSizeNative uint64
	baseSize       *uint32

	// mmapFn/munmapFn perform the native side effect; overridable in tests
	// so the bookkeeping logic can be exercised without a real mapping.
	mmapFn   func(addr, length uintptr, prot, flags, fd int, offset int64) (uintptr, error)
	munmapFn func(addr, length uintptr) error
}

// NewMMapState constructs mmap bookkeeping for a fresh instance.
func NewMMapState() *MMapState {
	return &MMapState{
		pageSizeNative: uint64(unix.Getpagesize()),
		mmapFn:         rawMmap,
		munmapFn:       rawMunmap,
	}
}

func ceilDiv(a, b uint64) uint64 {
	if a == 0 {
		return 0
	}
	return (a + b - 1) / b
}

func roundUp(n, multiple uint64) uint64 {
	return ceilDiv(n, multiple) * multiple
}

// Mmap grows linear memory as needed and maps length bytes immediately past
// the current mmap region. addr is ignored, matching the guest allocator's
// contract of always requesting MAP_FIXED at an address the host chooses.
// mem must already be installed on the context.
func (s *MMapState) Mmap(mem *Memory, length uint64, prot, flags int, fd int, offset int64) (WasmAddress, error) {
	if s.baseSize == nil {
		base := mem.Size()
		s.baseSize = &base
	}

	mappedBytes := s.nMMapPages * s.pageSizeNative
	available := uint64(mem.Size()) - (uint64(*s.baseSize) + mappedBytes)
	if available < length {
		deficit := length - available
		growPages := uint32(ceilDiv(deficit, pageSizeWasm))
		if growPages > 0 {
			if _, ok := mem.Grow(growPages); !ok {
				return WasmAddress{}, errMmapGrowFailed
			}
		}
	}

	// Read the base only after any growth above: some engines relocate the
	// backing buffer on grow, so the address computed here must reflect the
	// post-growth memory, not whatever was cached before it.
	hostBase := mem.Base().Uintptr()
	alignedEnd := roundUp(hostBase+uintptr(*s.baseSize)+uintptr(mappedBytes), s.pageSizeNative)

	// unix.Mmap's high-level wrapper always maps at an address the kernel
	// chooses and tracks the result in its own bookkeeping table, which is
	// incompatible with MAP_FIXED at a host-chosen address; go straight to
	// the raw syscall instead.
	mmapAddr, err := s.mmapFn(alignedEnd, uintptr(length), prot, unix.MAP_FIXED|flags, fd, offset)
	if err != nil {
		return WasmAddress{}, errMmapFailed
	}
	_ = mmapAddr

	s.nMMapPages += ceilDiv(length, s.pageSizeNative)

	result := HostAddress{ptr: alignedEnd}
	return result.WasmAddress(mem)
}

// Munmap unmaps size bytes at addr. Bookkeeping only shrinks when the freed
// region ends exactly at the current mapped end; an interior unmap leaves
// nMMapPages unchanged, matching the source runtime's allocator behavior
// (it only ever grows the mmap region from the end, so an interior unmap
// cannot move that end without a fuller free-list that it does not keep).
func (s *MMapState) Munmap(mem *Memory, addr WasmAddress, size uint64) error {
	hostAddr := addr.HostAddress(mem).Uintptr()
	hostBase := mem.Base().Uintptr()
	mappedBytes := s.nMMapPages * s.pageSizeNative
	currentEnd := hostBase + uintptr(orZero(s.baseSize)) + uintptr(mappedBytes)

	if err := s.munmapFn(hostAddr, uintptr(size)); err != nil {
		return errMunmapFailed
	}

	if hostAddr+uintptr(size) == currentEnd {
		freedPages := ceilDiv(size, s.pageSizeNative)
		if freedPages > s.nMMapPages {
			freedPages = s.nMMapPages
		}
		s.nMMapPages -= freedPages
	}
	return nil
}

// Brk always returns 0: a no-op indicating no heap extension is available
// via brk, forcing the guest allocator to fall back to mmap.
func (s *MMapState) Brk(uint32) int64 { return 0 }

func orZero(p *uint32) uint32 {
	if p == nil {
		return 0
	}
	return *p
}
