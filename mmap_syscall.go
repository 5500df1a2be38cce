package wali

import "golang.org/x/sys/unix"

// rawMmap issues mmap(2) directly at a host-chosen address, which the
// golang.org/x/sys/unix.Mmap wrapper does not support (it always lets the
// kernel pick the address and tracks the result in its own table).
func rawMmap(addr, length uintptr, prot, flags, fd int, offset int64) (uintptr, error) {
	r1, _, errno := unix.Syscall6(unix.SYS_MMAP, addr, length,
		uintptr(prot), uintptr(flags), uintptr(fd), uintptr(offset))
	if errno != 0 {
		return 0, errno
	}
	return r1, nil
}

// rawMunmap is the raw-syscall counterpart to rawMmap, used instead of
// unix.Munmap since that wrapper also assumes its own mmap bookkeeping.
func rawMunmap(addr, length uintptr) error {
	_, _, errno := unix.Syscall(unix.SYS_MUNMAP, addr, length, 0)
	if errno != 0 {
		return errno
	}
	return nil
}
