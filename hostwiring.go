package wali

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// registerHostFunctions populates builder with every host function a guest
// module can import: process control, argv access, thread spawning, and the
// forwarded syscall catalog, all bound to ic.
func registerHostFunctions(builder wazero.HostModuleBuilder, ic *InstanceContext, cfg *RunConfig) {
	registerControlFunctions(builder, ic, cfg)
	registerArgvFunctions(builder, ic)
	registerThreadFunctions(builder, ic)
	registerSyscalls(builder, ic, cfg)
}

func registerControlFunctions(builder wazero.HostModuleBuilder, ic *InstanceContext, cfg *RunConfig) {
	builder.NewFunctionBuilder().
		WithFunc(func(ctx context.Context) { callCtors(ctx, ic) }).
		Export("__call_ctors")

	builder.NewFunctionBuilder().
		WithFunc(func(ctx context.Context) { callDtors(ctx, ic) }).
		Export("__call_dtors")

	builder.NewFunctionBuilder().
		WithFunc(func(ctx context.Context, code int32) { procExit(ctx, ic, code) }).
		Export("__proc_exit")

	builder.NewFunctionBuilder().
		WithFunc(func(ctx context.Context, addr, size int32) int32 {
			return getInitEnvfile(ctx, ic, cfg.envFile, addr, size)
		}).
		Export("__get_init_envfile")
}

func registerArgvFunctions(builder wazero.HostModuleBuilder, ic *InstanceContext) {
	builder.NewFunctionBuilder().
		WithFunc(func(context.Context) int32 { return ic.Argv().Argc() }).
		Export("__cl_get_argc")

	builder.NewFunctionBuilder().
		WithFunc(func(ctx context.Context, i int32) int64 { return ic.Argv().ArgvLen(i) }).
		Export("__cl_get_argv_len")

	builder.NewFunctionBuilder().
		WithFunc(func(ctx context.Context, addr, i int32) int64 {
			mem, err := ic.Memory()
			if err != nil {
				return -1
			}
			wasmAddr, ok := safeWasmAddrOrFail(addr, mem)
			if !ok {
				return -1
			}
			return ic.Argv().CopyArgv(mem, wasmAddr, i)
		}).
		Export("__cl_copy_argv")
}

func safeWasmAddrOrFail(offset int32, mem *Memory) (WasmAddress, bool) {
	addr, err := safeWasmAddress(offset, mem)
	if err != nil {
		return WasmAddress{}, false
	}
	return addr, true
}

func registerThreadFunctions(builder wazero.HostModuleBuilder, ic *InstanceContext) {
	builder.NewFunctionBuilder().
		WithFunc(func(ctx context.Context, firstArg, secondArg int32) int32 {
			return ic.Thread().Spawn(ctx, ic, firstArg, secondArg)
		}).
		Export("__wasm_thread_spawn")
}

// registerSyscalls registers every catalog entry (neutralCatalog plus the
// architecture-specific amd64Catalog), the three special forwarders, and
// applies the fork/execve quarantine (forkexec.go).
func registerSyscalls(builder wazero.HostModuleBuilder, ic *InstanceContext, cfg *RunConfig) {
	all := append(append([]syscallEntry{}, neutralCatalog...), amd64Catalog...)
	for _, e := range all {
		e := e
		if isUnsafeProcessSyscall(e.name) && !cfg.allowUnsafeProcessSyscalls {
			continue
		}
		params := valueTypesFor(e)
		fn := api.GoModuleFunc(func(ctx context.Context, _ api.Module, stack []uint64) {
			result := forwardSyscall(ctx, ic, e, stack[:len(e.args)])
			stack[0] = uint64(result)
		})
		builder.NewFunctionBuilder().
			WithGoModuleFunction(fn, params, []api.ValueType{api.ValueTypeI64}).
			Export(e.name)
	}

	registerExecve(builder, ic, cfg)
	registerExitGroup(builder, ic)
	registerGetpid(builder)
	registerMMapFunctions(builder, ic)
	registerVectoredIO(builder, ic)
}

// registerVectoredIO wires readv/writev to the special iovec-translating
// forwarders in syscalls_special.go, rather than the generic dispatcher:
// each guest iovec nests a further guest pointer the dispatcher cannot see.
func registerVectoredIO(builder wazero.HostModuleBuilder, ic *InstanceContext) {
	builder.NewFunctionBuilder().
		WithFunc(func(ctx context.Context, fd, iov, iovcnt int32) int64 {
			return readvForward(ctx, ic, fd, iov, iovcnt)
		}).
		Export("readv")

	builder.NewFunctionBuilder().
		WithFunc(func(ctx context.Context, fd, iov, iovcnt int32) int64 {
			return writevForward(ctx, ic, fd, iov, iovcnt)
		}).
		Export("writev")
}

// registerMMapFunctions wires mmap/munmap/brk to the mmap bookkeeper
// (mmap.go). These are not simple catalog forwards — each one needs bespoke
// host-side logic — so they are registered directly rather than through the
// generic dispatcher.
func registerMMapFunctions(builder wazero.HostModuleBuilder, ic *InstanceContext) {
	builder.NewFunctionBuilder().
		WithFunc(func(ctx context.Context, addr, length, prot, flags, fd, offset int32) int32 {
			var result int32 = -1
			err := ic.WithMMap(func(mem *Memory, mmap *MMapState) error {
				wasmAddr, err := mmap.Mmap(mem, uint64(uint32(length)), int(prot), int(flags), int(fd), int64(offset))
				if err != nil {
					return err
				}
				result = int32(wasmAddr.Offset())
				return nil
			})
			if err != nil {
				ic.Logger().Logf(LogScopeMMap, "wali: mmap failed: %v", err)
				return -1
			}
			return result
		}).
		Export("mmap")

	builder.NewFunctionBuilder().
		WithFunc(func(ctx context.Context, addr, size int32) int32 {
			err := ic.WithMMap(func(mem *Memory, mmap *MMapState) error {
				wasmAddr, err := safeWasmAddress(addr, mem)
				if err != nil {
					return err
				}
				return mmap.Munmap(mem, wasmAddr, uint64(uint32(size)))
			})
			if err != nil {
				ic.Logger().Logf(LogScopeMMap, "wali: munmap failed: %v", err)
				return -1
			}
			return 0
		}).
		Export("munmap")

	builder.NewFunctionBuilder().
		WithFunc(func(ctx context.Context, addr int32) int64 {
			var result int64
			_ = ic.WithMMap(func(mem *Memory, mmap *MMapState) error {
				result = mmap.Brk(uint32(addr))
				return nil
			})
			return result
		}).
		Export("brk")
}

func registerExecve(builder wazero.HostModuleBuilder, ic *InstanceContext, cfg *RunConfig) {
	if isUnsafeProcessSyscall("execve") && !cfg.allowUnsafeProcessSyscalls {
		return
	}
	builder.NewFunctionBuilder().
		WithFunc(func(ctx context.Context, path, argv, envp int32) int64 {
			return execveForward(ctx, ic, path, argv, envp)
		}).
		Export("execve")
}

func registerExitGroup(builder wazero.HostModuleBuilder, ic *InstanceContext) {
	// exit_group routes to __proc_exit with identical semantics: terminate
	// the host process with the given exit code. It does not join spawned
	// threads first.
	builder.NewFunctionBuilder().
		WithFunc(func(ctx context.Context, code int32) { procExit(ctx, ic, code) }).
		Export("exit_group")
}

func registerGetpid(builder wazero.HostModuleBuilder) {
	builder.NewFunctionBuilder().
		WithFunc(func(context.Context) int64 { return getpidForward() }).
		Export("getpid")
}

// registeredWaliNames returns every export name registerHostFunctions would
// install under cfg, used to tell a genuinely unknown import apart from one
// merely quarantined by AllowUnsafeProcessSyscalls.
func registeredWaliNames(cfg *RunConfig) map[string]bool {
	names := map[string]bool{
		"__call_ctors": true, "__call_dtors": true,
		"__proc_exit": true, "__get_init_envfile": true,
		"__cl_get_argc": true, "__cl_get_argv_len": true, "__cl_copy_argv": true,
		"__wasm_thread_spawn": true,
		"exit_group":          true, "getpid": true,
		"mmap": true, "munmap": true, "brk": true,
		"readv": true, "writev": true,
	}
	all := append(append([]syscallEntry{}, neutralCatalog...), amd64Catalog...)
	for _, e := range all {
		if isUnsafeProcessSyscall(e.name) && !cfg.allowUnsafeProcessSyscalls {
			continue
		}
		names[e.name] = true
	}
	if !isUnsafeProcessSyscall("execve") || cfg.allowUnsafeProcessSyscalls {
		names["execve"] = true
	}
	return names
}

// registerUnknownImportTraps finds every function module imports under
// wasiModuleName that registerHostFunctions left unregistered and wires a
// stub that panics when called. wazero recovers a host function panic as a
// guest-visible trap, so an unresolved import fails at call time rather than
// at link time, matching the tolerant-loading policy documented for
// -unknown-imports-trap=y.
func registerUnknownImportTraps(builder wazero.HostModuleBuilder, module wazero.CompiledModule, cfg *RunConfig) {
	known := registeredWaliNames(cfg)
	seen := map[string]bool{}
	for _, fn := range module.ImportedFunctions() {
		modName, name, isImport := fn.Import()
		if !isImport || modName != wasiModuleName || known[name] || seen[name] {
			continue
		}
		seen[name] = true
		name := name
		builder.NewFunctionBuilder().
			WithGoModuleFunction(api.GoModuleFunc(func(context.Context, api.Module, []uint64) {
				panic(fmt.Sprintf("wali: call to unregistered import %q.%q", wasiModuleName, name))
			}), fn.ParamTypes(), fn.ResultTypes()).
			Export(name)
	}
}
