package supervisor

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/KamalSDhami/zencube/pkg/enforcer"
	"github.com/KamalSDhami/zencube/pkg/hermes"
	"github.com/KamalSDhami/zencube/pkg/policy"
)

// ShimSentinel is the hidden argv[1] the Supervisor re-execs itself
// with. Go's runtime is multi-threaded, so a raw fork() followed by
// arbitrary Go code is unsafe; instead the Supervisor re-execs its own
// binary, and the re-exec'd process — recognising this sentinel —
// becomes the "child branch": it runs the Enforcer, reports Coverage
// over the status pipe, and finally replaces itself with the target
// via exec. This never runs Go code in a genuinely forked,
// single-threaded address space, while still satisfying the ordering
// invariant that every restriction installs before the target image
// replaces the shim.
const ShimSentinel = "__zencube_shim__"

// statusPipeFD is the well-known extra file descriptor the shim
// inherits to report Coverage back to the parent before its final exec.
const statusPipeFD = 3

// Supervisor runs one supervised execution of a Policy.
type Supervisor struct {
	SelfPath string // path to the current binary, used for the re-exec
	Logger   hermes.Logger

	// OnChildStarted, if set, is invoked once the child PID is known
	// (immediately after Start, before waiting) so a caller can
	// publish the PID to an attached Monitor per spec §4.4.
	OnChildStarted func(pid int)
}

// New builds a Supervisor that re-execs the currently running binary.
func New(logger hermes.Logger) (*Supervisor, error) {
	self, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("resolve own executable path: %w", err)
	}
	return &Supervisor{SelfPath: self, Logger: logger}, nil
}

// Run spawns p's target under the shim, waits for termination, and
// returns the Result.
func (s *Supervisor) Run(ctx context.Context, p policy.Policy) (*Result, error) {
	s.Logger.Info(ctx, "policy active", map[string]any{"policy": p.String()})

	encoded, err := encodePolicy(p)
	if err != nil {
		return nil, fmt.Errorf("encode policy for shim: %w", err)
	}

	statusReader, statusWriter, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("create status pipe: %w", err)
	}

	cmd := exec.Command(s.SelfPath, ShimSentinel, encoded)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.ExtraFiles = []*os.File{statusWriter}

	run := &ChildRun{}
	run.StartMonotonic = time.Now()

	if err := cmd.Start(); err != nil {
		statusReader.Close()
		statusWriter.Close()
		return nil, fmt.Errorf("start child: %w", err)
	}
	run.PID = cmd.Process.Pid
	statusWriter.Close() // parent's copy; shim's copy stays open until it reports

	s.Logger.Info(ctx, "child started", map[string]any{"pid": run.PID})
	if s.OnChildStarted != nil {
		s.OnChildStarted(run.PID)
	}

	coverage, covErr := readCoverage(statusReader)

	waitErr := cmd.Wait()
	run.EndMonotonic = time.Now()

	var flags Flags
	if waitErr != nil {
		if exitErr, ok := waitErr.(*exec.ExitError); ok {
			status, ok := exitErr.Sys().(syscall.WaitStatus)
			if !ok {
				return nil, fmt.Errorf("wait on child: unrecognised status type")
			}
			flags, err = classify(run, status, p)
			if err != nil {
				return nil, err
			}
		} else {
			return nil, fmt.Errorf("wait on child: %w", waitErr)
		}
	} else {
		status, ok := cmd.ProcessState.Sys().(syscall.WaitStatus)
		if !ok {
			return nil, fmt.Errorf("wait on child: unrecognised status type")
		}
		flags, err = classify(run, status, p)
		if err != nil {
			return nil, err
		}
	}

	if covErr != nil {
		s.Logger.Error(ctx, "failed to read restriction coverage from shim", map[string]any{"error": covErr})
	}

	result := buildResult(run, flags, p, coverage)
	s.logOutcome(ctx, result)
	return result, nil
}

func (s *Supervisor) logOutcome(ctx context.Context, r *Result) {
	if r.ExitCode != nil {
		s.Logger.Info(ctx, "process exited normally", map[string]any{
			"pid": r.PID, "exit_code": *r.ExitCode, "elapsed_seconds": r.ElapsedSeconds,
		})
		return
	}
	fields := map[string]any{
		"pid": r.PID, "elapsed_seconds": r.ElapsedSeconds,
	}
	if r.SignalNumber != nil {
		fields["signal_number"] = *r.SignalNumber
		fields["signal_name"] = *r.SignalName
	}
	if r.Flags.CPULimitExceeded {
		s.Logger.Error(ctx, "resource limit violated: CPU time limit exceeded", fields)
	} else if r.Flags.FileSizeLimitExceeded {
		s.Logger.Error(ctx, "resource limit violated: file size limit exceeded", fields)
	} else if r.Flags.MemoryLimitExceeded {
		s.Logger.Error(ctx, "process killed, possibly by memory limit", fields)
	} else {
		s.Logger.Error(ctx, "process terminated by signal", fields)
	}
}

func buildResult(run *ChildRun, flags Flags, p policy.Policy, cov enforcer.Coverage) *Result {
	res := &Result{
		PID:                   run.PID,
		ElapsedSeconds:        run.ElapsedSeconds(),
		Flags:                 flags,
		RestrictionsRequested: p,
		RestrictionsInstalled: cov,
	}
	if run.ExitedNormally {
		code := run.ExitCode
		res.ExitCode = &code
		res.Success = code == 0 && !anyFlag(flags)
	} else {
		num := run.SignalNumber
		name := signalName(num)
		res.SignalNumber = &num
		res.SignalName = &name
		res.Success = false
	}
	return res
}

func anyFlag(f Flags) bool {
	return f.CPULimitExceeded || f.MemoryLimitExceeded || f.FileSizeLimitExceeded || f.TimeoutExceeded
}

// SupervisorExitCode returns the process exit code the Supervisor itself should
// use: the child's own exit code on normal termination, a fixed
// failure code otherwise.
func (r *Result) SupervisorExitCode() int {
	if r.ExitCode != nil {
		return *r.ExitCode
	}
	return 1
}

func encodePolicy(p policy.Policy) (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

func decodePolicy(encoded string) (policy.Policy, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return policy.Policy{}, err
	}
	var p policy.Policy
	if err := json.Unmarshal(raw, &p); err != nil {
		return policy.Policy{}, err
	}
	return p, nil
}

func readCoverage(r *os.File) (enforcer.Coverage, error) {
	defer r.Close()
	var cov enforcer.Coverage
	dec := json.NewDecoder(r)
	if err := dec.Decode(&cov); err != nil {
		return enforcer.Coverage{}, fmt.Errorf("decode coverage: %w", err)
	}
	return cov, nil
}

// RunShim is the child branch: it decodes the Policy passed by the
// parent, runs the Enforcer, reports Coverage over the inherited
// status pipe, and execs the target. It never returns on success.
func RunShim(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("shim: missing encoded policy")
	}
	p, err := decodePolicy(args[1])
	if err != nil {
		return fmt.Errorf("shim: decode policy: %w", err)
	}

	cov, enfErr := enforcer.Enforce(p)

	statusFile := os.NewFile(statusPipeFD, "status-pipe")
	if statusFile != nil {
		if encErr := json.NewEncoder(statusFile).Encode(cov); encErr != nil {
			fmt.Fprintf(os.Stderr, "zencube shim: failed to report coverage: %v\n", encErr)
		}
		statusFile.Close()
	}

	if enfErr != nil {
		return fmt.Errorf("shim: enforce policy: %w", enfErr)
	}

	if err := enforcer.ExecTarget(p.TargetArgv); err != nil {
		return fmt.Errorf("shim: exec target: %w", err)
	}
	return nil // unreachable on success
}
