package wali

import (
	"context"

	"github.com/tetratelabs/wazero/api"
	"golang.org/x/sys/unix"
)

// argKind classifies one positional argument of a cataloged syscall: a guest
// pointer requires translation before the syscall is issued, a scalar is
// passed through as-is.
type argKind int

const (
	argScalar argKind = iota
	argPointer
	// argOffset64 marks lseek's 64-bit offset, the one catalog entry whose
	// signature is (i32,i64,i32)->i64 rather than all-i32.
	argOffset64
)

// syscallEntry describes one catalog row: guest-visible name, the Linux
// syscall number it forwards to, and the shape of its arguments.
type syscallEntry struct {
	name string
	nr   uintptr
	args []argKind
}

// neutralCatalog is the architecture-neutral half of the forwarded syscall
// table. Architecture-specific entries live in syscalls_amd64.go / syscalls_other.go.
var neutralCatalog = []syscallEntry{
	{"read", unix.SYS_READ, []argKind{argScalar, argPointer, argScalar}},
	{"write", unix.SYS_WRITE, []argKind{argScalar, argPointer, argScalar}},
	{"close", unix.SYS_CLOSE, []argKind{argScalar}},
	{"fstat", unix.SYS_FSTAT, []argKind{argScalar, argPointer}},
	{"mprotect", unix.SYS_MPROTECT, []argKind{argPointer, argScalar, argScalar}},
	{"rt_sigprocmask", unix.SYS_RT_SIGPROCMASK, []argKind{argScalar, argPointer, argPointer, argScalar}},
	{"ioctl", unix.SYS_IOCTL, []argKind{argScalar, argScalar, argPointer}},
	{"nanosleep", unix.SYS_NANOSLEEP, []argKind{argPointer, argPointer}},
	{"socket", unix.SYS_SOCKET, []argKind{argScalar, argScalar, argScalar}},
	{"connect", unix.SYS_CONNECT, []argKind{argScalar, argPointer, argScalar}},
	{"accept", unix.SYS_ACCEPT, []argKind{argScalar, argPointer, argPointer}},
	{"sendto", unix.SYS_SENDTO, []argKind{argScalar, argPointer, argScalar, argScalar, argPointer, argScalar}},
	{"shutdown", unix.SYS_SHUTDOWN, []argKind{argScalar, argScalar}},
	{"bind", unix.SYS_BIND, []argKind{argScalar, argPointer, argScalar}},
	{"listen", unix.SYS_LISTEN, []argKind{argScalar, argScalar}},
	{"setsockopt", unix.SYS_SETSOCKOPT, []argKind{argScalar, argScalar, argScalar, argPointer, argScalar}},
	{"kill", unix.SYS_KILL, []argKind{argScalar, argScalar}},
	{"uname", unix.SYS_UNAME, []argKind{argPointer}},
	{"flock", unix.SYS_FLOCK, []argKind{argScalar, argScalar}},
	{"getcwd", unix.SYS_GETCWD, []argKind{argPointer, argScalar}},
	{"setpgid", unix.SYS_SETPGID, []argKind{argScalar, argScalar}},
	{"fstatfs", unix.SYS_FSTATFS, []argKind{argScalar, argPointer}},
	{"gettid", unix.SYS_GETTID, nil},
	{"futex", unix.SYS_FUTEX, []argKind{argPointer, argScalar, argScalar, argPointer, argPointer, argScalar}},
	{"getdents64", unix.SYS_GETDENTS64, []argKind{argScalar, argPointer, argScalar}},
	{"set_tid_address", unix.SYS_SET_TID_ADDRESS, []argKind{argPointer}},
	{"clock_gettime", unix.SYS_CLOCK_GETTIME, []argKind{argScalar, argPointer}},
	{"clock_nanosleep", unix.SYS_CLOCK_NANOSLEEP, []argKind{argScalar, argScalar, argPointer, argPointer}},
	{"utimensat", unix.SYS_UTIMENSAT, []argKind{argScalar, argPointer, argPointer, argScalar}},
	{"lseek", unix.SYS_LSEEK, []argKind{argScalar, argOffset64, argScalar}},

	// pread64/pwrite64/madvise/sigaltstack round out the positional-I/O
	// surface a libc guest expects; cataloged the same way as every other
	// entry (name -> number -> arg shape). readv/writev are NOT here: each
	// nested iovec holds its own guest pointer that this generic dispatcher
	// cannot see, so they are special forwarders in syscalls_special.go,
	// registered separately by registerVectoredIO (hostwiring.go).
	{"pread64", unix.SYS_PREAD64, []argKind{argScalar, argPointer, argScalar, argOffset64}},
	{"pwrite64", unix.SYS_PWRITE64, []argKind{argScalar, argPointer, argScalar, argOffset64}},
	{"madvise", unix.SYS_MADVISE, []argKind{argPointer, argScalar, argScalar}},
	{"sigaltstack", unix.SYS_SIGALTSTACK, []argKind{argPointer, argPointer}},
}

// valueTypesFor computes the WebAssembly param types for an entry: every
// declared argument is i32 except argOffset64, which is i64.
func valueTypesFor(e syscallEntry) []api.ValueType {
	types := make([]api.ValueType, len(e.args))
	for i, k := range e.args {
		if k == argOffset64 {
			types[i] = api.ValueTypeI64
		} else {
			types[i] = api.ValueTypeI32
		}
	}
	return types
}

// forwardSyscall translates a catalog entry's arguments and issues the
// underlying Linux syscall: log, translate pointer args, issue, return
// -errno on failure. It is wrapped as an api.GoModuleFunction by
// registerSyscalls (hostwiring.go).
func forwardSyscall(ctx context.Context, ic *InstanceContext, e syscallEntry, rawArgs []uint64) int64 {
	ic.Logger().Logf(LogScopeSyscall, "wali: syscall %s (tid=%d)", e.name, unixGettid())

	hostArgs := make([]uintptr, len(e.args))
	for i, kind := range e.args {
		switch kind {
		case argPointer:
			translated, err := translatePointerArg(ic, int32(uint32(rawArgs[i])))
			if err != nil {
				ic.Logger().Logf(LogScopeSyscall, "wali: syscall %s arg %d translation failed: %v", e.name, i, err)
				return -1
			}
			hostArgs[i] = translated
		case argOffset64:
			hostArgs[i] = uintptr(int64(rawArgs[i]))
		default:
			hostArgs[i] = uintptr(rawArgs[i])
		}
	}

	return issueSyscall(e.nr, hostArgs)
}

// translatePointerArg holds the context lock just long enough to obtain the
// memory handle, bounds-check and translate one pointer argument, then
// releases it before the caller issues the syscall.
func translatePointerArg(ic *InstanceContext, offset int32) (uintptr, error) {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	mem := ic.mem
	if mem == nil {
		return 0, errNoMemory
	}
	var host HostAddress
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = r.(*boundsViolation)
			}
		}()
		wasmAddr := NewWasmAddress(offset, mem)
		host = wasmAddr.HostAddress(mem)
	}()
	if err != nil {
		return 0, err
	}
	return host.Uintptr(), nil
}

// issueSyscall issues every entry through golang.org/x/sys/unix.Syscall6,
// padding unused argument slots with zero, matching the source's
// libc::syscall(number, ...) forwarding.
func issueSyscall(nr uintptr, args []uintptr) int64 {
	var a [6]uintptr
	copy(a[:], args)
	r1, _, errno := unix.Syscall6(nr, a[0], a[1], a[2], a[3], a[4], a[5])
	if errno != 0 {
		return -int64(errno)
	}
	return int64(r1)
}
