//go:build linux

package supervisor

import "syscall"

// makeSignaledStatus builds a syscall.WaitStatus as if the process had
// been terminated by sig, for tests that don't want to actually spawn
// and kill a child.
func makeSignaledStatus(sig syscall.Signal) syscall.WaitStatus {
	return syscall.WaitStatus(uint32(sig))
}
