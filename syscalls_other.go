//go:build !amd64

package wali

// amd64Catalog is empty on non-amd64 builds: the x86_64-only syscall entries
// are never registered, so the linker traps on them like any other unknown
// import.
var amd64Catalog []syscallEntry
