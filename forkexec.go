package wali

// unsafeProcessSyscalls lists the catalog entries whose host-side
// semantics are undefined with respect to the engine's own runtime state:
// forwarding fork and execve through raw syscalls duplicates or replaces
// the host process underneath the running WebAssembly engine, which the
// engine never expects. They are quarantined behind
// RunConfig.AllowUnsafeProcessSyscalls: when the flag is false, these names
// are never registered, so a guest importing them gets the same "unknown
// import" trap as an architecture-mismatched entry.
var unsafeProcessSyscalls = map[string]bool{
	"fork":       true,
	"execve":     true,
	"vfork":      true,
	"exit_group": false, // routed to __proc_exit unconditionally; never unsafe.
}

// isUnsafeProcessSyscall reports whether name is quarantined by default.
func isUnsafeProcessSyscall(name string) bool {
	return unsafeProcessSyscalls[name]
}
