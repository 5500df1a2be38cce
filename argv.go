package wali

// ArgvStore holds the guest-visible command-line arguments.
// Index 0 of the process argv (the command name) is never stored here; it is
// stripped by the orchestrator before construction.
type ArgvStore struct {
	args    []string
	encoded [][]byte // each arg, null-terminated, cached at construction
}

// NewArgvStore builds the null-terminated encodings once, since Args is
// immutable for the lifetime of the instance.
func NewArgvStore(args []string) *ArgvStore {
	encoded := make([][]byte, len(args))
	for i, a := range args {
		buf := make([]byte, len(a)+1)
		copy(buf, a)
		buf[len(a)] = 0
		encoded[i] = buf
	}
	return &ArgvStore{args: args, encoded: encoded}
}

// Argc implements __cl_get_argc.
func (s *ArgvStore) Argc() int32 { return int32(len(s.args)) }

// ArgvLen implements __cl_get_argv_len: the byte length of the
// null-terminated encoding of argument i, or -1 if i is out of range.
func (s *ArgvStore) ArgvLen(i int32) int64 {
	if i < 0 || int(i) >= len(s.encoded) {
		return -1
	}
	return int64(len(s.encoded[i]))
}

// CopyArgv implements __cl_copy_argv: writes argument i's null-terminated
// encoding into mem starting at addr, returning the byte count written, or
// -1 if i is out of range.
func (s *ArgvStore) CopyArgv(mem *Memory, addr WasmAddress, i int32) int64 {
	if i < 0 || int(i) >= len(s.encoded) {
		return -1
	}
	n := WriteBytes(mem, addr, s.encoded[i])
	return int64(n)
}
