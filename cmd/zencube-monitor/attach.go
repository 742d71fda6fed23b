package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/KamalSDhami/zencube/pkg/config"
	"github.com/KamalSDhami/zencube/pkg/monitor"
)

var (
	attachPID      int
	attachRunID    string
	attachInterval float64
	attachLogDir   string
)

var attachCmd = &cobra.Command{
	Use:   "attach",
	Short: "Attach to a PID and sample it until it exits",
	RunE:  runAttach,
}

func init() {
	attachCmd.Flags().IntVar(&attachPID, "pid", 0, "PID to attach to (required)")
	attachCmd.Flags().StringVar(&attachRunID, "run-id", "", "run identifier tying this session to a supervisor result")
	attachCmd.Flags().Float64Var(&attachInterval, "interval", 1.0, "sample interval in seconds")
	attachCmd.Flags().StringVar(&attachLogDir, "log-dir", "", "monitor log directory")
	attachCmd.MarkFlagRequired("pid")

	viper.BindPFlag("monitor.interval", attachCmd.Flags().Lookup("interval"))
	viper.BindPFlag("monitor.log_dir", attachCmd.Flags().Lookup("log-dir"))

	rootCmd.AddCommand(attachCmd)
}

func runAttach(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	interval := clampInterval(viper.GetFloat64("monitor.interval"))
	logDir := viper.GetString("monitor.log_dir")
	if logDir == "" {
		logDir = cfg.MonitorLogDir
	}
	runID := attachRunID
	if runID == "" {
		runID = fmt.Sprintf("run-%d", attachPID)
	}

	session, err := monitor.Attach(logDir, attachPID, runID, time.Duration(interval*float64(time.Second)))
	if err != nil {
		return fmt.Errorf("attach to pid %d: %w", attachPID, err)
	}

	if cfg.MetricsEnabled {
		session.Metrics = monitor.NewMetricsBridge(cfg.MetricsPort)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return session.Run(ctx)
}

func clampInterval(v float64) float64 {
	if v < 0.2 {
		return 0.2
	}
	if v > 5.0 {
		return 5.0
	}
	return v
}
