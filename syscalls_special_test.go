package wali

import (
	"context"
	"encoding/binary"
	"io"
	"os"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

// writeGuestIovec encodes one guest iovec {i32 iov_base; i32 iov_len} at
// entryOff in buf.
func writeGuestIovec(buf []byte, entryOff, base, length int32) {
	binary.LittleEndian.PutUint32(buf[entryOff:], uint32(base))
	binary.LittleEndian.PutUint32(buf[entryOff+4:], uint32(length))
}

func TestTranslateIovecArrayTranslatesEachBase(t *testing.T) {
	mem, fm := newTestMemory(t, 1, 1)

	writeGuestIovec(fm.buf, 100, 200, 6)
	writeGuestIovec(fm.buf, 100+guestIovecSize, 300, 5)

	iovs, err := translateIovecArray(mem, 100, 2)
	require.NoError(t, err)
	require.Len(t, iovs, 2)

	base0 := mem.Base().Uintptr() + 200
	base1 := mem.Base().Uintptr() + 300
	require.EqualValues(t, base0, uintptr(unsafe.Pointer(iovs[0].Base)))
	require.EqualValues(t, base1, uintptr(unsafe.Pointer(iovs[1].Base)))
	require.EqualValues(t, 6, iovs[0].Len)
	require.EqualValues(t, 5, iovs[1].Len)
}

func TestTranslateIovecArrayRejectsNegativeCount(t *testing.T) {
	mem, _ := newTestMemory(t, 1, 1)
	_, err := translateIovecArray(mem, 0, -1)
	require.Error(t, err)
}

func TestWritevForwardGathersIovecsIntoRealFD(t *testing.T) {
	mem, fm := newTestMemory(t, 1, 1)
	ic := NewInstanceContext(nil, nil)
	ic.SetMemory(mem)

	copy(fm.buf[200:], "hello ")
	copy(fm.buf[300:], "world\n")
	writeGuestIovec(fm.buf, 100, 200, 6)
	writeGuestIovec(fm.buf, 100+guestIovecSize, 300, 6)

	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()

	n := writevForward(context.Background(), ic, int32(w.Fd()), 100, 2)
	require.NoError(t, w.Close())
	require.EqualValues(t, 12, n)

	got := make([]byte, 12)
	_, err = io.ReadFull(r, got)
	require.NoError(t, err)
	require.Equal(t, "hello world\n", string(got))
}

func TestReadvForwardScattersRealFDIntoIovecs(t *testing.T) {
	mem, fm := newTestMemory(t, 1, 1)
	ic := NewInstanceContext(nil, nil)
	ic.SetMemory(mem)

	writeGuestIovec(fm.buf, 100, 200, 6)
	writeGuestIovec(fm.buf, 100+guestIovecSize, 300, 6)

	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()

	go func() {
		_, _ = w.Write([]byte("hello world\n"))
		_ = w.Close()
	}()

	n := readvForward(context.Background(), ic, int32(r.Fd()), 100, 2)
	require.EqualValues(t, 12, n)
	require.Equal(t, "hello ", string(fm.buf[200:206]))
	require.Equal(t, "world\n", string(fm.buf[300:306]))
}
