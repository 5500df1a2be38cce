package wali

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// addressOf returns the host address of the first byte of buf. buf must be
// non-empty; the caller (Memory.refresh) guarantees this.
func addressOf(buf []byte) uintptr {
	return uintptr(unsafe.Pointer(&buf[0]))
}

// addressOfUintptrSlice returns the host address of the first element of
// a, used to build the argv/envp vectors execve(2) expects.
func addressOfUintptrSlice(a []uintptr) uintptr {
	return uintptr(unsafe.Pointer(&a[0]))
}

// addressOfIovecSlice returns the host address of the first element of a,
// used to build the iovec array readv(2)/writev(2) expect. a must be
// non-empty; callers pass 0 directly for the empty case.
func addressOfIovecSlice(a []unix.Iovec) uintptr {
	return uintptr(unsafe.Pointer(&a[0]))
}
