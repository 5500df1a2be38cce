package wali

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero/api"
)

// wasmPageSize is the size in bytes of one WebAssembly page.
const wasmPageSize = 65536

// Memory wraps the single shared api.Memory of an instance, exposing the
// stable base host address and the current byte size a guest syscall needs
// to translate its pointer arguments.
//
// Memory is safe for concurrent use: Size and Base are read under the
// instance context's lock (context.go), and Grow is only ever called while
// that lock is held.
type Memory struct {
	mem  api.Memory
	ctx  context.Context
	base HostAddress
	size uint32
}

// newMemory derives the initial base address and size from mem.
func newMemory(ctx context.Context, mem api.Memory) (*Memory, error) {
	m := &Memory{mem: mem, ctx: ctx}
	if err := m.refresh(); err != nil {
		return nil, err
	}
	return m, nil
}

// refresh re-derives the base address and size after a grow. The base is
// derived by reading exactly one byte's address, ensuring the pointer is
// valid for at least one byte.
func (m *Memory) refresh() error {
	size := m.mem.Size(m.ctx)
	if size == 0 {
		// A zero-length memory has no addressable byte; defer base capture
		// until the first grow.
		m.size = 0
		return nil
	}
	buf, ok := m.mem.Read(m.ctx, 0, 1)
	if !ok || len(buf) == 0 {
		return fmt.Errorf("wali: failed to read byte 0 of a %d-byte memory", size)
	}
	m.base = HostAddress{ptr: addressOf(buf)}
	m.size = size
	return nil
}

// Base returns the stable host address of byte offset 0.
func (m *Memory) Base() HostAddress { return m.base }

// Size returns the current memory size in bytes.
func (m *Memory) Size() uint32 { return m.size }

// Grow increases the memory by deltaPages WebAssembly pages, refreshing the
// cached base and size. It returns the previous size in pages, and false if
// the engine refused the growth (e.g. exceeding the configured maximum).
func (m *Memory) Grow(deltaPages uint32) (previousPages uint32, ok bool) {
	previousPages, ok = m.mem.Grow(m.ctx, deltaPages)
	if !ok {
		return previousPages, false
	}
	if err := m.refresh(); err != nil {
		// The engine already committed the growth; a refresh failure here
		// indicates a host bug, not a guest error, so this is not folded
		// into the ok=false path.
		panic(err)
	}
	return previousPages, true
}

// Raw returns the write-through byte slice for the whole memory, for callers
// that need direct slice access. The memory writer and the syscall
// forwarders do not use it; they go through HostAddress pointers.
func (m *Memory) Raw() []byte {
	buf, _ := m.mem.Read(m.ctx, 0, m.size)
	return buf
}
