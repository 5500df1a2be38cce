package wali

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestArgvStoreEncodesNullTerminated(t *testing.T) {
	s := NewArgvStore([]string{"hello", "world"})

	require.EqualValues(t, 2, s.Argc())
	require.EqualValues(t, 6, s.ArgvLen(0))
	require.EqualValues(t, 6, s.ArgvLen(1))
	require.EqualValues(t, -1, s.ArgvLen(2))
	require.EqualValues(t, -1, s.ArgvLen(-1))
}

func TestArgvStoreCopyArgv(t *testing.T) {
	mem, fake := newTestMemory(t, 1, 1)
	s := NewArgvStore([]string{"hi"})

	n := s.CopyArgv(mem, NewWasmAddress(10, mem), 0)
	require.EqualValues(t, 3, n)
	require.Equal(t, []byte("hi\x00"), fake.buf[10:13])
}

func TestArgvStoreCopyArgvOutOfRange(t *testing.T) {
	mem, _ := newTestMemory(t, 1, 1)
	s := NewArgvStore([]string{"hi"})

	require.EqualValues(t, -1, s.CopyArgv(mem, NewWasmAddress(10, mem), 1))
}
