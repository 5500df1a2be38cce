package wali

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// threadEntryName is the exported guest function invoked on a spawned
// thread.
const threadEntryName = "__wasm_thread_start_libc"

// ThreadManager owns the precompiled instance template and the monotonic
// thread counter used to name spawned sibling instances. The template is
// read-only once installed and may be shared freely across goroutines; the
// counter
// is independent of InstanceContext's coarse lock, since naming a new OS
// thread never needs to observe argv or mmap state.
type ThreadManager struct {
	runtime     wazero.Runtime
	template    wazero.CompiledModule
	threadCount atomic.Uint32
}

// NewThreadManager returns an empty manager; Precompile must be called
// once before Spawn is usable.
func NewThreadManager() *ThreadManager {
	return &ThreadManager{}
}

// Precompile stores rt and the linked, compiled guest module as the
// template reused for every spawned sibling instance. It is an error to
// call this more than once.
func (t *ThreadManager) Precompile(rt wazero.Runtime, template wazero.CompiledModule) error {
	if t.template != nil {
		return errPrecompiled
	}
	t.runtime = rt
	t.template = template
	return nil
}

// Spawn implements __wasm_thread_spawn: it instantiates a
// sibling module from the precompiled template on a new OS thread, bound
// to the same shared memory via the runtime's existing "env" module, then
// invokes __wasm_thread_start_libc(tid, secondArg) and waits only long
// enough to learn the new thread's OS id before returning it to the guest.
func (t *ThreadManager) Spawn(ctx context.Context, ic *InstanceContext, firstArg, secondArg int32) int32 {
	if t.template == nil {
		ic.Logger().Logf(LogScopeThread, "wali: thread spawn requested before precompilation")
		return -1
	}

	n := t.threadCount.Add(1)
	tidCh := make(chan int32, 1)

	go func() {
		// Pin this goroutine to its OS thread for the lifetime of the
		// sibling instance: guest code assumes gettid() is stable across
		// the thread's execution, and futex(2) operates on OS thread
		// identity.
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		tid := int32(unixGettid())
		tidCh <- tid

		defer func() {
			if r := recover(); r != nil {
				ic.Logger().Logf(LogScopeThread, "wali: thread %d panicked: %v", tid, r)
			}
		}()

		name := fmt.Sprintf("wali-thread-%d", n)
		cfg := wazero.NewModuleConfig().WithName(name)

		mod, err := t.runtime.InstantiateModule(ctx, t.template, cfg)
		if err != nil {
			ic.Logger().Logf(LogScopeThread, "wali: thread %d instantiate failed: %v", tid, err)
			return
		}
		defer mod.Close(ctx)

		entry := mod.ExportedFunction(threadEntryName)
		if entry == nil {
			ic.Logger().Logf(LogScopeThread, "wali: thread %d missing %s export", tid, threadEntryName)
			return
		}

		_, err = entry.Call(ctx, api.EncodeI32(tid), api.EncodeI32(secondArg))
		if err != nil {
			ic.Logger().Logf(LogScopeThread, "wali: thread %d exited with error: %v", tid, err)
		} else {
			ic.Logger().Logf(LogScopeThread, "wali: thread %d exited normally", tid)
		}
	}()

	// Unlike a clone(2)-based thread creation model, a goroutine cannot fail
	// to start short of runtime exhaustion (which panics the process
	// instead of returning an error); the rendezvous below therefore
	// always completes, leaving no observable "spawn failed" case to
	// surface to the guest.
	return <-tidCh
}
