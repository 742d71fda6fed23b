package supervisor

import (
	"fmt"
	"syscall"

	"github.com/KamalSDhami/zencube/pkg/policy"
)

// classify fills in the derived fields of run from the raw wait
// status, and derives the Result's violation flags. The signal-based
// attribution mirrors the sandbox's own heuristics: SIGXCPU means the
// CPU limit was hit, SIGXFSZ means the file-size limit was hit, and an
// uncatchable SIGKILL is attributed to the memory limit only when one
// was actually requested (this is a best-effort heuristic, not a
// certainty — the kernel's OOM/rlimit kill path gives no other signal).
func classify(run *ChildRun, status syscall.WaitStatus, p policy.Policy) (Flags, error) {
	run.RawStatus = int(status)

	switch {
	case status.Exited():
		run.ExitedNormally = true
		run.ExitCode = status.ExitStatus()
		return Flags{}, nil

	case status.Signaled():
		run.TerminatedBySignal = true
		sig := status.Signal()
		run.SignalNumber = int(sig)
		run.CoreDumped = status.CoreDump()

		var flags Flags
		switch sig {
		case syscall.SIGXCPU:
			flags.CPULimitExceeded = true
		case syscall.SIGXFSZ:
			flags.FileSizeLimitExceeded = true
		case syscall.SIGKILL:
			if p.MemoryBytes > 0 {
				flags.MemoryLimitExceeded = true
			}
		}
		return flags, nil

	case status.Stopped():
		return Flags{}, fmt.Errorf("child stopped unexpectedly by signal %v", status.StopSignal())

	default:
		return Flags{}, fmt.Errorf("child ended with unrecognised wait status %d", int(status))
	}
}

func signalName(n int) string {
	sig := syscall.Signal(n)
	return sig.String()
}
