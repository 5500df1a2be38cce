package wali

import (
	"context"
	"os"
)

// callCtors implements __call_ctors: the guest libc invokes this before
// running, but the runtime has no host-side constructors to run, so it is
// logged and otherwise a no-op.
func callCtors(ctx context.Context, ic *InstanceContext) {
	ic.Logger().Logf(LogScopeArgv, "wali: __call_ctors")
}

// callDtors implements __call_dtors, the teardown counterpart of callCtors.
func callDtors(ctx context.Context, ic *InstanceContext) {
	ic.Logger().Logf(LogScopeArgv, "wali: __call_dtors")
}

// procExit implements __proc_exit: terminate the host process with the
// guest-supplied exit code. The host process lifetime equals the main
// instance's lifetime; this does not wait for spawned threads to join — it
// is the equivalent of calling _exit(2) directly.
func procExit(ctx context.Context, ic *InstanceContext, code int32) {
	ic.Logger().Logf(LogScopeArgv, "wali: __proc_exit(%d)", code)
	os.Exit(int(code))
}

// getInitEnvfile implements __get_init_envfile. The default behavior is
// the stub: return 0, indicating no env file is provided. When an EnvFile
// has been configured, it materializes the process environment into guest
// memory instead; see envfile.go.
func getInitEnvfile(ctx context.Context, ic *InstanceContext, ef *EnvFile, addr, size int32) int32 {
	if ef == nil {
		return 0
	}
	mem, err := ic.Memory()
	if err != nil {
		return 0
	}
	return ef.WriteTo(mem, addr, size)
}
