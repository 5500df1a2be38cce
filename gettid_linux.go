package wali

import "golang.org/x/sys/unix"

// unixGettid returns the calling OS thread's id. Guest code observes this
// via gettid() (syscall 186) and via the tid argument passed to
// __wasm_thread_start_libc.
func unixGettid() int {
	return unix.Gettid()
}
