package main

import (
	"fmt"
	"os"
	"time"

	"github.com/KamalSDhami/zencube/pkg/policy"
	"github.com/KamalSDhami/zencube/pkg/supervisor"
)

// timestampedLine prints a "[zencube HH:MM:SS] message" line, the same
// bracket-and-clock-time shape the reference sandbox's own log_message
// uses for every line after the initial banner.
func timestampedLine(format string, args ...any) {
	fmt.Printf("[zencube %s] "+format+"\n", append([]any{time.Now().Format("15:04:05")}, args...)...)
}

// printPolicySummary renders the active resource limits, or reports
// that none were requested, before the child is spawned.
func printPolicySummary(p policy.Policy) {
	if p.CPUSeconds == 0 && p.MemoryBytes == 0 && p.MaxProcesses == 0 &&
		p.FileBytes == 0 && !p.HasJail() && !p.DisableNetwork {
		fmt.Println("[zencube] No resource limits applied (unlimited)")
		return
	}
	fmt.Println("[zencube] Active resource limits:")
	if p.CPUSeconds > 0 {
		fmt.Printf("  CPU Time: %d seconds\n", p.CPUSeconds)
	}
	if p.MemoryBytes > 0 {
		fmt.Printf("  Memory: %d MB\n", p.MemoryBytes/(1<<20))
	}
	if p.MaxProcesses > 0 {
		fmt.Printf("  Processes: %d\n", p.MaxProcesses)
	}
	if p.FileBytes > 0 {
		fmt.Printf("  File Size: %d MB\n", p.FileBytes/(1<<20))
	}
	if p.HasJail() {
		fmt.Printf("  Jail: %s\n", p.JailPath)
	}
	if p.DisableNetwork {
		fmt.Println("  Network: disabled")
	}
}

// printStartingCommand announces the target argv, unbracketed by a
// timestamp to match the reference log_command's plain "[Sandbox]
// Starting command: ..." line.
func printStartingCommand(argv []string) {
	fmt.Print("[zencube] Starting command:")
	for _, a := range argv {
		fmt.Print(" " + a)
	}
	fmt.Println()
}

// printChildPID announces the freshly spawned child's PID.
func printChildPID(pid int) {
	timestampedLine("Child PID: %d", pid)
}

// printTerminalBlock renders the final normal-exit or signal block,
// mirroring the reference sandbox's own post-waitpid reporting:
// exit status or signal name, the resource-limit-violation call-outs,
// and elapsed time. Core dumps are not reported.
func printTerminalBlock(r *supervisor.Result) {
	if r.ExitCode != nil {
		timestampedLine("Process exited normally with status %d", *r.ExitCode)
		timestampedLine("Execution time: %.3f seconds", r.ElapsedSeconds)
		return
	}

	timestampedLine("Process terminated by signal %d (%s)", *r.SignalNumber, *r.SignalName)
	switch {
	case r.Flags.CPULimitExceeded:
		timestampedLine("⚠️  RESOURCE LIMIT VIOLATED: CPU time limit exceeded")
		timestampedLine("The process used more CPU time than allowed (%d seconds)", r.RestrictionsRequested.CPUSeconds)
	case r.Flags.MemoryLimitExceeded:
		timestampedLine("⚠️  Process was killed (possibly by memory limit)")
		timestampedLine("Memory limit was set to %d MB", r.RestrictionsRequested.MemoryBytes/(1<<20))
	case r.Flags.FileSizeLimitExceeded:
		timestampedLine("⚠️  RESOURCE LIMIT VIOLATED: File size limit exceeded")
		timestampedLine("File size limit was set to %d MB", r.RestrictionsRequested.FileBytes/(1<<20))
	}
	timestampedLine("Execution time before termination: %.3f seconds", r.ElapsedSeconds)
	if r.RestrictionsInstalled.Jail {
		timestampedLine("Jail was active at: %s", r.RestrictionsRequested.JailPath)
	}
	for _, w := range r.RestrictionsInstalled.Warnings {
		fmt.Fprintf(os.Stderr, "[zencube] Warning: %s\n", w)
	}
}
