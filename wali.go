// Package wali implements the host-side runtime integration for
// WebAssembly modules compiled against the WALI (WebAssembly Linux
// Interface) ABI: it instantiates such a module over a shared linear
// memory, forwards its numbered syscalls to the host, and supports
// guest-initiated thread spawning across sibling instances of the same
// module.
package wali

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/tetratelabs/wazero"
)

const (
	wasiModuleName = "wali"
	envModuleName  = "env"
	memoryName     = "memory"
	startName      = "_start"
	initializeName = "_initialize"
)

// RunConfig assembles the inputs to Run, analogous to a common
// wazero.ModuleConfig.
type RunConfig struct {
	args                       []string
	stdout, stderr             io.Writer
	logger                     *Logger
	envFile                    *EnvFile
	allowUnsafeProcessSyscalls bool
	trapUnknownImports         bool
}

// NewRunConfig returns a RunConfig with conservative defaults: unregistered
// imports trap at call time rather than failing to link, no env file,
// fork/execve quarantined.
func NewRunConfig() *RunConfig {
	return &RunConfig{
		stdout:             os.Stdout,
		stderr:             os.Stderr,
		trapUnknownImports: true,
	}
}

// WithUnknownImportsTrap controls how module imports that the host never
// registers are handled. true (the default) installs a call-time trap stub
// for each one, so instantiation still succeeds and the guest only fails if
// it actually calls the missing import. false leaves them unresolved, so
// wazero's own InstantiateModule fails with a link-time error instead.
func (c *RunConfig) WithUnknownImportsTrap(trap bool) *RunConfig {
	c.trapUnknownImports = trap
	return c
}

// WithArgs sets the guest argv (excluding the command name).
func (c *RunConfig) WithArgs(args ...string) *RunConfig {
	c.args = args
	return c
}

// WithStdout records w on the config. Forwarded writes to fd 1 are raw
// syscalls on the host process's own fd 1 and do not pass through w.
func (c *RunConfig) WithStdout(w io.Writer) *RunConfig {
	c.stdout = w
	return c
}

// WithStderr sets the writer that receives WASMTIME_LOG-driven log output
// when no explicit Logger is installed. Forwarded writes to fd 2 are raw
// syscalls on the host process's own fd 2 and do not pass through w.
func (c *RunConfig) WithStderr(w io.Writer) *RunConfig {
	c.stderr = w
	return c
}

// WithLogger installs an explicit Logger, overriding WASMTIME_LOG
// detection.
func (c *RunConfig) WithLogger(l *Logger) *RunConfig {
	c.logger = l
	return c
}

// WithEnvFile enables the non-default env-file materialization path
// (envfile.go), overriding the documented __get_init_envfile stub.
func (c *RunConfig) WithEnvFile(ef *EnvFile) *RunConfig {
	c.envFile = ef
	return c
}

// WithAllowUnsafeProcessSyscalls un-quarantines fork/execve (forkexec.go).
// vfork has no forwarder and stays unregistered either way.
func (c *RunConfig) WithAllowUnsafeProcessSyscalls(allow bool) *RunConfig {
	c.allowUnsafeProcessSyscalls = allow
	return c
}

// Runner owns the wazero.Runtime and instance context for one WALI
// process. Construct via New, then call Start.
type Runner struct {
	rt     wazero.Runtime
	ic     *InstanceContext
	cfg    *RunConfig
	thread *ThreadManager
}

// New wires up a fresh runtime for module: it constructs the instance
// context, opens a linker (a wazero.Runtime acts as the single shared
// namespace here), registers every host function, scans module for its
// memory import, and precompiles the instance template. Start (below)
// instantiates and runs it.
func New(ctx context.Context, module []byte, cfg *RunConfig) (*Runner, error) {
	if cfg == nil {
		cfg = NewRunConfig()
	}
	logger := cfg.logger
	if logger == nil {
		logger = LoggerFromEnv(cfg.stderr)
	}

	ic := NewInstanceContext(cfg.args, logger)

	rt := wazero.NewRuntime(ctx)

	compiled, err := rt.CompileModule(ctx, module)
	if err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("wali: compiling module: %w", err)
	}

	memDef, err := findSharedMemoryImport(compiled)
	if err != nil {
		rt.Close(ctx)
		return nil, err
	}

	envBuilder := rt.NewHostModuleBuilder(envModuleName)
	envBuilder.ExportMemoryWithMax(memoryName, memDef.min, memDef.max)
	if _, err := envBuilder.Instantiate(ctx); err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("wali: defining shared memory: %w", err)
	}

	waliBuilder := rt.NewHostModuleBuilder(wasiModuleName)
	registerHostFunctions(waliBuilder, ic, cfg)
	if cfg.trapUnknownImports {
		registerUnknownImportTraps(waliBuilder, compiled, cfg)
	}
	if _, err := waliBuilder.Instantiate(ctx); err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("wali: registering host functions: %w", err)
	}

	if err := ic.Thread().Precompile(rt, compiled); err != nil {
		rt.Close(ctx)
		return nil, err
	}

	return &Runner{rt: rt, ic: ic, cfg: cfg, thread: ic.Thread()}, nil
}

// memoryImport describes the shared-memory import scanned from the guest
// module.
type memoryImport struct {
	min, max uint32
}

// findSharedMemoryImport requires a memory import in module "env" named
// "memory", failing if none is found. It matches on module and name only;
// whether the import is declared shared is not checked.
func findSharedMemoryImport(compiled wazero.CompiledModule) (memoryImport, error) {
	for _, m := range compiled.ImportedMemories() {
		if m.ModuleName() == envModuleName && m.Name() == memoryName {
			max, maxOK := m.Max()
			if !maxOK {
				max = memDefaultMaxPages
			}
			return memoryImport{min: m.Min(), max: max}, nil
		}
	}
	return memoryImport{}, fmt.Errorf("wali: module does not import a shared memory as (%s, %s)", envModuleName, memoryName)
}

// memDefaultMaxPages bounds growth when the guest module does not declare
// an explicit memory maximum; chosen generously since the mmap bookkeeper
// (mmap.go) is the component that actually decides how much to grow.
const memDefaultMaxPages = 65536 // 4 GiB, the WebAssembly 32-bit ceiling.

// Start instantiates the main instance and invokes _start (after
// _initialize, if exported). It returns the guest's exit code: 0 on normal
// _start return, or the code passed to __proc_exit by way of os.Exit — in
// which case Start itself never returns.
func (r *Runner) Start(ctx context.Context) (int, error) {
	mc := wazero.NewModuleConfig().WithName("main")
	mod, err := r.rt.InstantiateModule(ctx, r.thread.template, mc)
	if err != nil {
		return 1, fmt.Errorf("wali: instantiating main module: %w", err)
	}
	defer mod.Close(ctx)

	mem, err := newMemory(ctx, mod.Memory())
	if err != nil {
		return 1, fmt.Errorf("wali: reading installed memory: %w", err)
	}
	r.ic.SetMemory(mem)

	if init := mod.ExportedFunction(initializeName); init != nil {
		if _, err := init.Call(ctx); err != nil {
			return 1, fmt.Errorf("wali: _initialize: %w", err)
		}
	}

	start := mod.ExportedFunction(startName)
	if start == nil {
		return 1, fmt.Errorf("wali: module exports no %s function", startName)
	}
	if _, err := start.Call(ctx); err != nil {
		return 1, fmt.Errorf("wali: _start trapped: %w", err)
	}
	return 0, nil
}

// Close releases the runtime and everything it created.
func (r *Runner) Close(ctx context.Context) error {
	return r.rt.Close(ctx)
}

// Run is the convenience entry point combining New, Start, and Close, for
// callers (cmd/wali) that don't need the intermediate Runner.
func Run(ctx context.Context, module []byte, cfg *RunConfig) (int, error) {
	r, err := New(ctx, module, cfg)
	if err != nil {
		return 1, err
	}
	defer r.Close(ctx)
	return r.Start(ctx)
}

// CheckCompiles compiles module and immediately releases the result,
// reporting only whether compilation succeeded. It backs the "wali compile"
// subcommand, which exists to validate a module ahead of running it without
// wiring host functions or instantiating anything.
func CheckCompiles(ctx context.Context, module []byte) error {
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	compiled, err := rt.CompileModule(ctx, module)
	if err != nil {
		return fmt.Errorf("wali: compiling module: %w", err)
	}
	return compiled.Close(ctx)
}
