//go:build amd64

package wali

import "golang.org/x/sys/unix"

// amd64Catalog holds the x86_64-only syscall entries. Non-amd64 builds omit
// these registrations entirely (syscalls_other.go); guests requesting them
// there get the "unknown import" trap from the linker instead.
var amd64Catalog = []syscallEntry{
	{"open", unix.SYS_OPEN, []argKind{argPointer, argScalar, argScalar}},
	{"stat", unix.SYS_STAT, []argKind{argPointer, argPointer}},
	{"lstat", unix.SYS_LSTAT, []argKind{argPointer, argPointer}},
	{"access", unix.SYS_ACCESS, []argKind{argPointer, argScalar}},
	{"pipe", unix.SYS_PIPE, []argKind{argPointer}},
	{"dup", unix.SYS_DUP, []argKind{argScalar}},
	{"dup2", unix.SYS_DUP2, []argKind{argScalar, argScalar}},
	{"alarm", unix.SYS_ALARM, []argKind{argScalar}},
	{"fork", unix.SYS_FORK, nil},
	{"fcntl", unix.SYS_FCNTL, []argKind{argScalar, argScalar, argScalar}},
	{"dup3", unix.SYS_DUP3, []argKind{argScalar, argScalar, argScalar}},
}
