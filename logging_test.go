package wali

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLogScopeBitsAreDistinct(t *testing.T) {
	require.EqualValues(t, 1, LogScopeSyscall)
	require.EqualValues(t, 2, LogScopeThread)
	require.EqualValues(t, 4, LogScopeMMap)
	require.EqualValues(t, 8, LogScopeArgv)
	require.Equal(t, LogScopeSyscall|LogScopeThread|LogScopeMMap|LogScopeArgv, LogScopeAll)
}

func TestLoggerLogfRespectsScope(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf, LogScopeMMap)

	l.Logf(LogScopeSyscall, "should not appear")
	require.Empty(t, buf.String())

	l.Logf(LogScopeMMap, "mmap happened: %d", 42)
	require.Equal(t, "mmap happened: 42\n", buf.String())
}

func TestNilLoggerIsSafe(t *testing.T) {
	var l *Logger
	require.False(t, l.Enabled(LogScopeSyscall))
	require.NotPanics(t, func() { l.Logf(LogScopeSyscall, "ignored") })
}

func TestLoggerFromEnvHonorsWasmtimeLog(t *testing.T) {
	t.Setenv("WASMTIME_LOG", "")
	require.False(t, LoggerFromEnv(nil).Enabled(LogScopeSyscall))

	t.Setenv("WASMTIME_LOG", "1")
	require.True(t, LoggerFromEnv(nil).Enabled(LogScopeThread))
}

func TestParseLogScopesEmptyIsNone(t *testing.T) {
	scopes, err := ParseLogScopes("")
	require.NoError(t, err)
	require.Equal(t, LogScopeNone, scopes)
}

func TestParseLogScopesCombinesNames(t *testing.T) {
	scopes, err := ParseLogScopes("mmap, argv")
	require.NoError(t, err)
	require.Equal(t, LogScopeMMap|LogScopeArgv, scopes)
}

func TestParseLogScopesAll(t *testing.T) {
	scopes, err := ParseLogScopes("all")
	require.NoError(t, err)
	require.Equal(t, LogScopeAll, scopes)
}

func TestParseLogScopesRejectsUnknownName(t *testing.T) {
	_, err := ParseLogScopes("bogus")
	require.Error(t, err)
}
