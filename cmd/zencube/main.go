// Command zencube launches a target command as an isolated, resource
// limited child and reports a structured outcome.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/KamalSDhami/zencube/pkg/config"
	"github.com/KamalSDhami/zencube/pkg/hermes"
	"github.com/KamalSDhami/zencube/pkg/policy"
	"github.com/KamalSDhami/zencube/pkg/supervisor"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == supervisor.ShimSentinel {
		if err := supervisor.RunShim(os.Args[1:]); err != nil {
			fmt.Fprintf(os.Stderr, "zencube: %v\n", err)
			os.Exit(1)
		}
		// RunShim only returns on failure; exec replaces the image on success.
		os.Exit(1)
	}

	os.Exit(run(os.Args))
}

func run(argv []string) int {
	program := filepath.Base(argv[0])
	structured := false
	args := argv[1:]

	if len(args) > 0 && args[0] == "--json" {
		structured = true
		args = args[1:]
	}

	p, err := policy.Parse(args)
	if errors.Is(err, policy.ErrHelpRequested) {
		fmt.Print(policy.Usage(program))
		return 0
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "zencube: %v\n\n", err)
		fmt.Fprint(os.Stderr, policy.Usage(program))
		return 2
	}

	logger := hermes.NewZapAdapter()
	defer logger.Sync()

	sup, err := supervisor.New(logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "zencube: %v\n", err)
		return 2
	}

	cfg := config.Load()
	ctx := context.Background()

	if !structured {
		printPolicySummary(p)
		printStartingCommand(p.TargetArgv)
	}

	var monitorCmd *exec.Cmd
	sup.OnChildStarted = func(pid int) {
		if !structured {
			printChildPID(pid)
		}
		if cfg.MonitorEnable {
			monitorCmd = spawnMonitor(cfg, pid, uuid.NewString())
		}
	}

	result, err := sup.Run(ctx, p)
	if err != nil {
		fmt.Fprintf(os.Stderr, "zencube: %v\n", err)
		return 2
	}

	if monitorCmd != nil {
		_ = monitorCmd.Process.Signal(os.Interrupt)
	}

	emitResult(result, structured)
	return result.SupervisorExitCode()
}

// spawnMonitor starts a detached `zencube-monitor attach` companion
// once the child PID is known. It is best-effort: the Supervisor's own
// result never depends on the Monitor succeeding.
func spawnMonitor(cfg *config.Config, pid int, runID string) *exec.Cmd {
	self, err := os.Executable()
	if err != nil {
		return nil
	}
	monitorPath := filepath.Join(filepath.Dir(self), "zencube-monitor")
	if _, err := os.Stat(monitorPath); err != nil {
		return nil
	}

	cmd := exec.Command(monitorPath, "attach",
		"--pid", fmt.Sprintf("%d", pid),
		"--run-id", runID,
		"--log-dir", cfg.MonitorLogDir,
		"--interval", fmt.Sprintf("%.2f", cfg.MonitorIntervalSec),
	)
	if err := cmd.Start(); err != nil {
		return nil
	}
	return cmd
}

func emitResult(r *supervisor.Result, structured bool) {
	if structured {
		enc := json.NewEncoder(os.Stdout)
		enc.Encode(r)
		return
	}
	// Human mode: policy summary, "Starting command", and the PID line
	// were already printed by run() before/at spawn; this is the
	// terminal block describing how the child ended.
	printTerminalBlock(r)
}
