//go:build linux

package enforcer

import (
	"fmt"
	"os"
	"os/exec"

	"golang.org/x/sys/unix"

	"github.com/KamalSDhami/zencube/pkg/policy"
)

// deniedNetworkSyscalls are the outbound socket-family syscalls the
// network filter denies with EPERM when disable_network is set.
// Everything else default-allows.
var deniedNetworkSyscalls = []string{
	"socket", "connect", "sendto", "sendmsg", "recvfrom", "recvmsg",
}

// Enforce installs p on the current process. It must run exactly once,
// between fork and exec, in the re-exec'd child branch (see
// cmd/zencube's shim). Resource-limit and exec failures are fatal;
// chroot failure is fatal only when chroot was actually attempted with
// privilege; seccomp install failure is always non-fatal.
func Enforce(p policy.Policy) (Coverage, error) {
	var cov Coverage

	if err := applyRlimits(p, &cov); err != nil {
		return cov, err
	}

	if p.HasJail() {
		if err := applyJail(p.JailPath, &cov); err != nil {
			return cov, err
		}
	}

	if p.DisableNetwork {
		applyNetworkFilter(&cov)
	}

	return cov, nil
}

func applyRlimits(p policy.Policy, cov *Coverage) error {
	if p.CPUSeconds > 0 {
		lim := uint64(p.CPUSeconds)
		if err := unix.Setrlimit(unix.RLIMIT_CPU, &unix.Rlimit{Cur: lim, Max: lim}); err != nil {
			return fmt.Errorf("set cpu limit: %w", err)
		}
		cov.CPULimit = true
	}
	if p.MemoryBytes > 0 {
		lim := uint64(p.MemoryBytes)
		if err := unix.Setrlimit(unix.RLIMIT_AS, &unix.Rlimit{Cur: lim, Max: lim}); err != nil {
			return fmt.Errorf("set memory limit: %w", err)
		}
		cov.MemoryLimit = true
	}
	if p.MaxProcesses > 0 {
		lim := uint64(p.MaxProcesses)
		if err := unix.Setrlimit(unix.RLIMIT_NPROC, &unix.Rlimit{Cur: lim, Max: lim}); err != nil {
			return fmt.Errorf("set process limit: %w", err)
		}
		cov.ProcessLimit = true
	}
	if p.FileBytes > 0 {
		lim := uint64(p.FileBytes)
		if err := unix.Setrlimit(unix.RLIMIT_FSIZE, &unix.Rlimit{Cur: lim, Max: lim}); err != nil {
			return fmt.Errorf("set file size limit: %w", err)
		}
		cov.FileLimit = true
	}
	return nil
}

// applyJail performs chdir-into-jail, chroot("."), chdir("/") in that
// order so relative paths in the target resolve inside the jail and no
// pre-chroot working directory survives as an escape vector. Lacking
// privilege to chroot is a warning, not a failure; a permitted attempt
// that fails outright is fatal.
func applyJail(path string, cov *Coverage) error {
	if err := unix.Chdir(path); err != nil {
		return fmt.Errorf("chdir into jail %q: %w", path, err)
	}

	if err := unix.Chroot("."); err != nil {
		if err == unix.EPERM {
			cov.Warnings = append(cov.Warnings, fmt.Sprintf("chroot skipped: insufficient privilege: %v", err))
			return nil
		}
		return fmt.Errorf("chroot %q: %w", path, err)
	}

	if err := unix.Chdir("/"); err != nil {
		return fmt.Errorf("chdir to jail root: %w", err)
	}

	cov.Jail = true
	return nil
}

// applyNetworkFilter sets no-new-privileges then installs a classic
// seccomp-BPF program denying the outbound socket-family syscalls.
// Failure here is never fatal: the child proceeds without the
// restriction and the caller's Coverage reflects the gap.
func applyNetworkFilter(cov *Coverage) {
	if err := unix.Prctl(unix.PR_SET_NO_NEW_PRIVS, 1, 0, 0, 0); err != nil {
		cov.Warnings = append(cov.Warnings, fmt.Sprintf("no_new_privs failed: %v", err))
		return
	}

	prog, err := buildNetworkDenyFilter(deniedNetworkSyscalls)
	if err != nil {
		cov.Warnings = append(cov.Warnings, fmt.Sprintf("seccomp filter build failed: %v", err))
		return
	}

	if err := installSeccompFilter(prog); err != nil {
		cov.Warnings = append(cov.Warnings, fmt.Sprintf("seccomp install failed: %v", err))
		return
	}

	cov.NetworkFilter = true
}

// ExecTarget replaces the current process image with argv[0], found
// via PATH, passing argv unchanged. On success it never returns; on
// failure the caller must treat it as fatal.
func ExecTarget(argv []string) error {
	resolved, err := exec.LookPath(argv[0])
	if err != nil {
		return fmt.Errorf("resolve target %q: %w", argv[0], err)
	}
	env := os.Environ()
	if err := unix.Exec(resolved, argv, env); err != nil {
		return fmt.Errorf("exec %q: %w", resolved, err)
	}
	return nil
}
