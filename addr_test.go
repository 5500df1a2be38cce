package wali

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWasmAddressRoundTrip(t *testing.T) {
	mem, _ := newTestMemory(t, 1, 10)

	for _, offset := range []int32{0, 1, 100, int32(mem.Size()) - 1} {
		addr := NewWasmAddress(offset, mem)
		host := addr.HostAddress(mem)
		back, err := host.WasmAddress(mem)
		require.NoError(t, err)
		require.Equal(t, uint32(offset), back.Offset())
	}
}

func TestWasmAddressNewPanicsOutOfBounds(t *testing.T) {
	mem, _ := newTestMemory(t, 1, 10)

	require.Panics(t, func() { NewWasmAddress(-1, mem) })
	require.Panics(t, func() { NewWasmAddress(int32(mem.Size()), mem) })
}

func TestHostAddressWasmAddressRejectsOutOfRange(t *testing.T) {
	mem, _ := newTestMemory(t, 1, 10)

	farAddr := HostAddress{ptr: mem.Base().Uintptr() + uintptr(mem.Size())*2}
	_, err := farAddr.WasmAddress(mem)
	require.Error(t, err)
}
