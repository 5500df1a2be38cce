package wali

import (
	"fmt"
	"unsafe"
)

// WasmAddress is a 32-bit offset into a module's linear memory. It is always
// in range for the Memory it was constructed against: 0 <= offset < size.
//
// WasmAddress values are immutable and are only ever produced by
// NewWasmAddress or by translating a HostAddress back with
// HostAddress.WasmAddress.
type WasmAddress struct {
	offset uint32
}

// boundsViolation is raised by NewWasmAddress when the guest supplies an
// offset outside the addressable linear memory. translatePointerArg
// (syscalls.go) and safeWasmAddress (syscalls_special.go) recover it and
// report the failure to the guest as -1; a call site that does not go through
// either of them lets the panic reach wazero, which surfaces it as a trap.
type boundsViolation struct {
	offset  int32
	memSize uint32
}

func (b *boundsViolation) Error() string {
	return fmt.Sprintf("wali: guest offset %d out of bounds for memory of size %d", b.offset, b.memSize)
}

// NewWasmAddress validates offset against mem and panics with a
// *boundsViolation if it is out of range. This is the infallible
// translation path used by every syscall argument and argv write.
func NewWasmAddress(offset int32, mem *Memory) WasmAddress {
	size := mem.Size()
	if offset < 0 || uint32(offset) >= size {
		panic(&boundsViolation{offset: offset, memSize: size})
	}
	return WasmAddress{offset: uint32(offset)}
}

// Offset returns the raw guest-relative offset.
func (w WasmAddress) Offset() uint32 { return w.offset }

// HostAddress computes the host virtual address backing w, by reading the
// address of the memory's first byte to derive a base pointer valid for at
// least one byte, then adding the offset.
func (w WasmAddress) HostAddress(mem *Memory) HostAddress {
	base := mem.Base()
	return HostAddress{ptr: base.ptr + uintptr(w.offset)}
}

// HostAddress is a host virtual address, typed distinctly from WasmAddress
// to prevent accidental arithmetic between guest offsets and host pointers.
type HostAddress struct {
	ptr uintptr
}

// WasmAddress translates h back to a guest offset relative to mem. This is
// the fallible direction used only for the return value of a native mmap.
func (h HostAddress) WasmAddress(mem *Memory) (WasmAddress, error) {
	base := mem.Base()
	if h.ptr < base.ptr {
		return WasmAddress{}, fmt.Errorf("wali: host address %#x precedes memory base %#x", h.ptr, base.ptr)
	}
	off := h.ptr - base.ptr
	if off >= uintptr(mem.Size()) {
		return WasmAddress{}, fmt.Errorf("wali: host address %#x translates to out-of-range offset %d", h.ptr, off)
	}
	return WasmAddress{offset: uint32(off)}, nil
}

// Uintptr returns the raw host pointer value, for passing to syscalls.
func (h HostAddress) Uintptr() uintptr { return h.ptr }

// Byte returns h as a *byte, for FFI calls expecting a byte pointer.
func (h HostAddress) Byte() *byte { return (*byte)(unsafe.Pointer(h.ptr)) }

// Uint32 returns h as a *uint32.
func (h HostAddress) Uint32() *uint32 { return (*uint32)(unsafe.Pointer(h.ptr)) }

// Uint64 returns h as a *uint64.
func (h HostAddress) Uint64() *uint64 { return (*uint64)(unsafe.Pointer(h.ptr)) }

// Pointer returns h as an unsafe.Pointer, for opaque FFI signatures.
func (h HostAddress) Pointer() unsafe.Pointer { return unsafe.Pointer(h.ptr) }

// addHostAddress offsets a HostAddress by n bytes. Used internally by the
// mmap bookkeeper to compute aligned region boundaries.
func addHostAddress(h HostAddress, n uintptr) HostAddress {
	return HostAddress{ptr: h.ptr + n}
}
