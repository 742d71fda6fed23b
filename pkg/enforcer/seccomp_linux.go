//go:build linux

package enforcer

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Classic seccomp-BPF, hand-assembled: no third-party seccomp library
// in the dependency surface this module draws from exposes raw
// SECCOMP_MODE_FILTER (the one candidate generates JSON profiles for a
// VM jailer, not BPF programs — see the grounding notes for this
// package). The program evaluates struct seccomp_data at offset 0
// (syscall number on this architecture) against a denylist, returning
// EPERM for a match and SECCOMP_RET_ALLOW otherwise.
const (
	bpfLd  = 0x00
	bpfJmp = 0x05
	bpfRet = 0x06

	bpfW   = 0x00
	bpfAbs = 0x20

	bpfJeq = 0x10

	seccompRetKill   = 0x00000000
	seccompRetErrno  = 0x00050000
	seccompRetAllow  = 0x7fff0000
	seccompDataOff   = 0 // syscall number field, little-endian archs
	epermErrno       = 1
)

func buildNetworkDenyFilter(syscallNames []string) (unix.SockFprog, error) {
	nums := make([]uint32, 0, len(syscallNames))
	for _, name := range syscallNames {
		num, ok := syscallNumber(name)
		if !ok {
			return unix.SockFprog{}, fmt.Errorf("unknown syscall %q for this architecture", name)
		}
		nums = append(nums, num)
	}

	var insns []unix.SockFilter
	n := len(nums)

	// Load the syscall number into the accumulator.
	insns = append(insns, stmt(bpfLd|bpfW|bpfAbs, seccompDataOff))

	// One comparison per denied syscall, in instructions [1, n]. On a
	// match, jump forward past the remaining comparisons and the
	// allow instruction into the deny block (all deny instructions are
	// identical, so any one of them is a correct target); on no match,
	// fall through to the next comparison or to allow.
	for i, num := range nums {
		jt := uint8(n - i)
		insns = append(insns, jump(bpfJmp|bpfJeq, num, jt, 0))
	}
	insns = append(insns, stmt(bpfRet, seccompRetAllow))
	for range nums {
		insns = append(insns, stmt(bpfRet, seccompRetErrno|epermErrno))
	}

	prog := unix.SockFprog{
		Len:    uint16(len(insns)),
		Filter: &insns[0],
	}
	return prog, nil
}

func stmt(code uint16, k uint32) unix.SockFilter {
	return unix.SockFilter{Code: code, Jt: 0, Jf: 0, K: k}
}

func jump(code uint16, k uint32, jt, jf uint8) unix.SockFilter {
	return unix.SockFilter{Code: code, Jt: jt, Jf: jf, K: k}
}

func installSeccompFilter(prog unix.SockFprog) error {
	_, _, errno := unix.Syscall(unix.SYS_PRCTL, unix.PR_SET_SECCOMP, unix.SECCOMP_MODE_FILTER, uintptr(unsafe.Pointer(&prog)))
	if errno != 0 {
		return errno
	}
	return nil
}
