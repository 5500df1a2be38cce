package wali

import (
	"context"
	"fmt"

	"golang.org/x/sys/unix"
)

// execveForward is the special execve forwarder: argv is a guest i32*
// null-terminated array of guest pointers, which must be walked and each
// entry translated before building a host-side null-terminated []uintptr
// to pass to the syscall. Environment is ignored (passed as an empty
// array); the guest's own envp is not forwarded.
func execveForward(ctx context.Context, ic *InstanceContext, pathOff, argvOff, _envpOff int32) int64 {
	mem, err := ic.Memory()
	if err != nil {
		return -1
	}

	pathAddr, err := safeWasmAddress(pathOff, mem)
	if err != nil {
		return -1
	}
	pathPtr := pathAddr.HostAddress(mem)

	hostArgv, err := translateNullTerminatedPtrArray(mem, argvOff)
	if err != nil {
		return -1
	}

	return execveSyscall(pathPtr.Uintptr(), hostArgv)
}

// translateNullTerminatedPtrArray walks a guest i32* null-terminated array
// of guest pointers at argvOff, translating each entry to a host pointer
// and terminating the built slice with a NULL, mirroring argv/envp layout
// expected by execve(2).
func translateNullTerminatedPtrArray(mem *Memory, arrOff int32) ([]uintptr, error) {
	var entries []uintptr
	i := int32(0)
	for {
		elemAddr, err := safeWasmAddress(arrOff+i*4, mem)
		if err != nil {
			return nil, err
		}
		elemPtr := elemAddr.HostAddress(mem).Uint32()
		guestPtr := int32(*elemPtr)
		if guestPtr == 0 {
			break
		}
		strAddr, err := safeWasmAddress(guestPtr, mem)
		if err != nil {
			return nil, err
		}
		entries = append(entries, strAddr.HostAddress(mem).Uintptr())
		i++
	}
	entries = append(entries, 0)
	return entries, nil
}

// safeWasmAddress is the fallible wrapper around NewWasmAddress used by
// the special forwarders, which (unlike the generic dispatcher) need to
// walk guest-side arrays of unknown length without risking a process-
// terminating panic on a malformed array.
func safeWasmAddress(offset int32, mem *Memory) (addr WasmAddress, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = r.(*boundsViolation)
		}
	}()
	addr = NewWasmAddress(offset, mem)
	return addr, nil
}

// execveSyscall issues the actual execve(2) call. Guest state after a
// successful call is undefined, since the host process image is replaced;
// a failing call returns -errno like any other forwarded syscall.
func execveSyscall(pathPtr uintptr, argv []uintptr) int64 {
	var emptyEnvp [1]uintptr // NULL-terminated empty environment
	r1, _, errno := unix.Syscall(unix.SYS_EXECVE, pathPtr, uintptr(argvBase(argv)), uintptr(argvBase(emptyEnvp[:])))
	if errno != 0 {
		return -int64(errno)
	}
	return int64(r1)
}

func argvBase(a []uintptr) uintptr {
	if len(a) == 0 {
		return 0
	}
	return addressOfUintptrSlice(a)
}

// getpidForward calls libc-equivalent getpid() directly rather than via
// the generic dispatcher, avoiding syscall-number divergence across libc
// versions.
func getpidForward() int64 {
	return int64(unix.Getpid())
}

// guestIovecSize is the width of one guest iovec: a 4-byte offset into
// linear memory (iov_base) followed by a 4-byte length (iov_len). The host's
// unix.Iovec is twice as wide (pointer-sized base, 8-byte len), so the two
// layouts never alias and every entry must be rebuilt, not just cast.
const guestIovecSize = 8

// readvForward and writevForward are the special readv(2)/writev(2)
// forwarders. The generic dispatcher translates only the guest pointer to
// the iovec array itself; it cannot see that each element of that array
// holds a further guest pointer (iov_base) needing its own translation. Both
// calls share translateIovecArray to rebuild a host-layout []unix.Iovec
// before issuing the real syscall.
func readvForward(ctx context.Context, ic *InstanceContext, fd, iovOff, iovcnt int32) int64 {
	return vectoredIOForward(ic, unix.SYS_READV, "readv", fd, iovOff, iovcnt)
}

func writevForward(ctx context.Context, ic *InstanceContext, fd, iovOff, iovcnt int32) int64 {
	return vectoredIOForward(ic, unix.SYS_WRITEV, "writev", fd, iovOff, iovcnt)
}

func vectoredIOForward(ic *InstanceContext, nr uintptr, name string, fd, iovOff, iovcnt int32) int64 {
	mem, err := ic.Memory()
	if err != nil {
		return -1
	}

	iovs, err := translateIovecArray(mem, iovOff, iovcnt)
	if err != nil {
		ic.Logger().Logf(LogScopeSyscall, "wali: syscall %s iovec translation failed: %v", name, err)
		return -1
	}

	var base uintptr
	if len(iovs) > 0 {
		base = addressOfIovecSlice(iovs)
	}
	r1, _, errno := unix.Syscall(nr, uintptr(fd), base, uintptr(len(iovs)))
	if errno != 0 {
		return -int64(errno)
	}
	return int64(r1)
}

// translateIovecArray walks iovcnt guest iovec entries starting at iovOff,
// translating each entry's iov_base offset into a host pointer and widening
// iov_len to the host's size_t, producing the []unix.Iovec readv(2)/writev(2)
// expect.
func translateIovecArray(mem *Memory, iovOff, iovcnt int32) ([]unix.Iovec, error) {
	if iovcnt < 0 {
		return nil, fmt.Errorf("wali: negative iovcnt %d", iovcnt)
	}

	iovs := make([]unix.Iovec, 0, iovcnt)
	for i := int32(0); i < iovcnt; i++ {
		entryOff := iovOff + i*guestIovecSize

		baseFieldAddr, err := safeWasmAddress(entryOff, mem)
		if err != nil {
			return nil, err
		}
		lenFieldAddr, err := safeWasmAddress(entryOff+4, mem)
		if err != nil {
			return nil, err
		}
		bufOff := int32(*baseFieldAddr.HostAddress(mem).Uint32())
		length := *lenFieldAddr.HostAddress(mem).Uint32()

		bufAddr, err := safeWasmAddress(bufOff, mem)
		if err != nil {
			return nil, err
		}

		var iov unix.Iovec
		iov.Base = bufAddr.HostAddress(mem).Byte()
		iov.SetLen(int(length))
		iovs = append(iovs, iov)
	}
	return iovs, nil
}
