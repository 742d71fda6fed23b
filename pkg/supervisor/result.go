// Package supervisor implements the top-level control loop: parse
// args into a Policy, spawn the child via the re-exec shim, wait,
// classify the exit, and emit a Result.
package supervisor

import (
	"time"

	"github.com/KamalSDhami/zencube/pkg/enforcer"
	"github.com/KamalSDhami/zencube/pkg/policy"
)

// Flags are the limit-violation flags derived from policy + termination.
type Flags struct {
	CPULimitExceeded      bool `json:"cpu_limit_exceeded"`
	MemoryLimitExceeded   bool `json:"memory_limit_exceeded"`
	FileSizeLimitExceeded bool `json:"file_size_limit_exceeded"`
	TimeoutExceeded       bool `json:"timeout_exceeded"`
}

// ChildRun is the bookkeeping the Supervisor accumulates for one
// supervised execution, from just before fork to just after wait
// returns.
type ChildRun struct {
	PID                int
	StartMonotonic     time.Time
	EndMonotonic       time.Time
	RawStatus          int
	ExitedNormally     bool
	ExitCode           int
	TerminatedBySignal bool
	SignalNumber       int
	CoreDumped         bool
}

// ElapsedSeconds reports the bracketed wall time, or -1 if either
// timestamp is zero (clock read failure is reported as unavailable,
// never fabricated).
func (c ChildRun) ElapsedSeconds() float64 {
	if c.StartMonotonic.IsZero() || c.EndMonotonic.IsZero() {
		return -1
	}
	return c.EndMonotonic.Sub(c.StartMonotonic).Seconds()
}

// Result is the Supervisor's structured output.
type Result struct {
	PID                   int               `json:"pid"`
	ElapsedSeconds        float64           `json:"elapsed_seconds"`
	ExitCode              *int              `json:"exit_code"`
	SignalNumber          *int              `json:"signal_number"`
	SignalName            *string           `json:"signal_name"`
	Flags                 Flags             `json:"flags"`
	RestrictionsRequested policy.Policy     `json:"restrictions_requested"`
	RestrictionsInstalled enforcer.Coverage `json:"restrictions_installed"`
	Success               bool              `json:"success"`
}
