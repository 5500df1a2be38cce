package wali

import (
	"fmt"
	"sync"
)

// InstanceContext is the per-instance shared state: a single coarse mutex
// guards the mmap state and the (initially absent) memory handle; the
// arguments are immutable and the thread manager keeps its own atomic
// counter, so neither is read under the lock. It is shared across
// the main instance and every spawned sibling via ordinary Go pointer
// semantics — ref-counting is unnecessary because the Go garbage collector
// already keeps it alive for as long as any goroutine holds the pointer.
//
// The lock must never be held across a blocking syscall:
// callers acquire it only to read or mutate the small fields below, then
// release it before issuing any syscall or invoking guest code.
type InstanceContext struct {
	mu sync.Mutex

	argv   *ArgvStore
	mmap   *MMapState
	thread *ThreadManager
	mem    *Memory

	logger *Logger
}

// NewInstanceContext builds a fresh context for one WALI process.
func NewInstanceContext(args []string, logger *Logger) *InstanceContext {
	return &InstanceContext{
		argv:   NewArgvStore(args),
		mmap:   NewMMapState(),
		thread: NewThreadManager(),
		logger: logger,
	}
}

// Logger returns the shared logger, never nil.
func (c *InstanceContext) Logger() *Logger {
	if c.logger == nil {
		return NewLogger(nil, LogScopeNone)
	}
	return c.logger
}

// Argv returns the argument store. Immutable after construction, so no
// lock is required to read it.
func (c *InstanceContext) Argv() *ArgvStore { return c.argv }

// SetMemory installs the instance's shared linear memory handle. Called
// once, by the orchestrator, after the memory is defined on the linker.
func (c *InstanceContext) SetMemory(mem *Memory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mem = mem
}

// Memory returns the installed memory handle, or an error if called before
// SetMemory.
func (c *InstanceContext) Memory() (*Memory, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mem == nil {
		return nil, errNoMemory
	}
	return c.mem, nil
}

// WithMMap runs fn with exclusive access to the mmap bookkeeping, holding
// the context lock for the duration. fn must not perform a blocking
// syscall; mmap.go's Mmap/Munmap only call Memory.Grow and the mmap/munmap
// syscalls themselves, both of which are expected to be fast.
func (c *InstanceContext) WithMMap(fn func(mem *Memory, mmap *MMapState) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mem == nil {
		return errNoMemory
	}
	return fn(c.mem, c.mmap)
}

// Thread returns the thread manager. Its own counter is independent of the
// coarse lock (see thread.go): naming a new OS thread never needs to
// observe argv or mmap state.
func (c *InstanceContext) Thread() *ThreadManager { return c.thread }

// String renders a short debug summary, used by logging call sites.
func (c *InstanceContext) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fmt.Sprintf("InstanceContext{argc=%d, mmapPages=%d, memInstalled=%t}",
		len(c.argv.args), c.mmap.nMMapPages, c.mem != nil)
}
