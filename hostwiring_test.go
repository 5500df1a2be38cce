package wali

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegisteredWaliNamesIncludesCoreHostFunctions(t *testing.T) {
	names := registeredWaliNames(NewRunConfig())
	for _, want := range []string{
		"__proc_exit", "__wasm_thread_spawn", "__cl_copy_argv",
		"exit_group", "getpid", "mmap", "munmap", "brk", "read", "write",
	} {
		require.True(t, names[want], "expected %s to be registered", want)
	}
}

func TestRegisteredWaliNamesQuarantinesProcessSyscallsByDefault(t *testing.T) {
	names := registeredWaliNames(NewRunConfig())
	require.False(t, names["execve"])
}

func TestRegisteredWaliNamesAllowsProcessSyscallsWhenEnabled(t *testing.T) {
	cfg := NewRunConfig().WithAllowUnsafeProcessSyscalls(true)
	names := registeredWaliNames(cfg)
	require.True(t, names["execve"])
}
