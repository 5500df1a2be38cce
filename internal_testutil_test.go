package wali

import (
	"context"

	"github.com/tetratelabs/wazero/api"
)

// fakeMemory is a minimal api.Memory backed by a plain Go byte slice,
// standing in for a real wazero-managed linear memory in unit tests that
// exercise the translator, mmap bookkeeper, and argv store without
// needing an actual compiled WebAssembly module.
type fakeMemory struct {
	buf        []byte
	maxPages   uint32
	growCalled int
}

func newFakeMemory(initialPages, maxPages uint32) *fakeMemory {
	return &fakeMemory{buf: make([]byte, initialPages*wasmPageSize), maxPages: maxPages}
}

func (f *fakeMemory) Size(context.Context) uint32 { return uint32(len(f.buf)) }

func (f *fakeMemory) Grow(_ context.Context, deltaPages uint32) (uint32, bool) {
	prevPages := uint32(len(f.buf)) / wasmPageSize
	newPages := prevPages + deltaPages
	if newPages > f.maxPages {
		return prevPages, false
	}
	grown := make([]byte, newPages*wasmPageSize)
	copy(grown, f.buf)
	f.buf = grown
	f.growCalled++
	return prevPages, true
}

func (f *fakeMemory) ReadByte(_ context.Context, offset uint32) (byte, bool) {
	if offset >= uint32(len(f.buf)) {
		return 0, false
	}
	return f.buf[offset], true
}

func (f *fakeMemory) ReadUint16Le(context.Context, uint32) (uint16, bool)   { return 0, false }
func (f *fakeMemory) ReadUint32Le(context.Context, uint32) (uint32, bool)   { return 0, false }
func (f *fakeMemory) ReadFloat32Le(context.Context, uint32) (float32, bool) { return 0, false }
func (f *fakeMemory) ReadUint64Le(context.Context, uint32) (uint64, bool)   { return 0, false }
func (f *fakeMemory) ReadFloat64Le(context.Context, uint32) (float64, bool) { return 0, false }

func (f *fakeMemory) Read(_ context.Context, offset, byteCount uint32) ([]byte, bool) {
	if uint64(offset)+uint64(byteCount) > uint64(len(f.buf)) {
		return nil, false
	}
	return f.buf[offset : offset+byteCount], true
}

func (f *fakeMemory) WriteByte(_ context.Context, offset uint32, v byte) bool {
	if offset >= uint32(len(f.buf)) {
		return false
	}
	f.buf[offset] = v
	return true
}

func (f *fakeMemory) WriteUint16Le(context.Context, uint32, uint16) bool   { return false }
func (f *fakeMemory) WriteUint32Le(context.Context, uint32, uint32) bool   { return false }
func (f *fakeMemory) WriteFloat32Le(context.Context, uint32, float32) bool { return false }
func (f *fakeMemory) WriteUint64Le(context.Context, uint32, uint64) bool   { return false }
func (f *fakeMemory) WriteFloat64Le(context.Context, uint32, float64) bool { return false }

func (f *fakeMemory) Write(_ context.Context, offset uint32, v []byte) bool {
	if uint64(offset)+uint64(len(v)) > uint64(len(f.buf)) {
		return false
	}
	copy(f.buf[offset:], v)
	return true
}

var _ api.Memory = (*fakeMemory)(nil)

// newTestMemory builds a *Memory over a fakeMemory, for tests exercising
// the translator, memory writer, and mmap bookkeeper directly.
func newTestMemory(t testingT, initialPages, maxPages uint32) (*Memory, *fakeMemory) {
	fm := newFakeMemory(initialPages, maxPages)
	mem, err := newMemory(context.Background(), fm)
	if err != nil {
		t.Fatalf("newMemory: %v", err)
	}
	return mem, fm
}

// testingT is the subset of *testing.T this helper needs, avoiding an
// import of "testing" in non-test build contexts (this file is itself a
// _test.go, but keeping the signature narrow matches the established
// testutil style of minimal helper interfaces).
type testingT interface {
	Fatalf(format string, args ...interface{})
}
