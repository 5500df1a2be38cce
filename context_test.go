package wali

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInstanceContextMemoryErrorsBeforeInstall(t *testing.T) {
	ic := NewInstanceContext([]string{"a"}, nil)

	_, err := ic.Memory()
	require.ErrorIs(t, err, errNoMemory)

	err = ic.WithMMap(func(*Memory, *MMapState) error { return nil })
	require.ErrorIs(t, err, errNoMemory)
}

func TestInstanceContextMemoryAfterInstall(t *testing.T) {
	ic := NewInstanceContext([]string{"a"}, nil)
	mem, _ := newTestMemory(t, 1, 1)
	ic.SetMemory(mem)

	got, err := ic.Memory()
	require.NoError(t, err)
	require.Same(t, mem, got)

	called := false
	err = ic.WithMMap(func(m *Memory, s *MMapState) error {
		called = true
		require.Same(t, mem, m)
		return nil
	})
	require.NoError(t, err)
	require.True(t, called)
}

func TestInstanceContextLoggerNeverNil(t *testing.T) {
	ic := NewInstanceContext(nil, nil)
	require.NotNil(t, ic.Logger())
	require.False(t, ic.Logger().Enabled(LogScopeSyscall))
}

func TestInstanceContextString(t *testing.T) {
	ic := NewInstanceContext([]string{"a", "b"}, nil)
	require.Contains(t, ic.String(), "argc=2")
	require.Contains(t, ic.String(), "memInstalled=false")
}
