package wali

import "strings"

// EnvFile materializes the host process environment into a guest-readable
// buffer for __get_init_envfile. It is opt-in (RunConfig.WithEnvFile) so that
// the default behavior remains the stub of returning 0, meaning no env file
// provided.
//
// Each "KEY=VALUE" pair occupies its own NUL-terminated line, concatenated
// in order, with no trailing terminator beyond the final entry's own NUL.
type EnvFile struct {
	encoded []byte
}

// NewEnvFile builds an EnvFile from a set of "KEY=VALUE" pairs.
func NewEnvFile(pairs []string) *EnvFile {
	var b strings.Builder
	for _, p := range pairs {
		b.WriteString(p)
		b.WriteByte(0)
	}
	return &EnvFile{encoded: []byte(b.String())}
}

// WriteTo writes up to size bytes of the encoded environment into mem at
// addr, returning the number of bytes written. An encoding longer than size
// is truncated to size bytes; no separate length accessor is exposed to the
// guest.
func (e *EnvFile) WriteTo(mem *Memory, addr, size int32) int32 {
	data := e.encoded
	if int32(len(data)) > size {
		data = data[:size]
	}
	wasmAddr := NewWasmAddress(addr, mem)
	n := WriteBytes(mem, wasmAddr, data)
	return int32(n)
}
