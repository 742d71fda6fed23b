package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/KamalSDhami/zencube/pkg/monitor"
)

var (
	rotateKeep    int
	rotateDryRun  bool
	rotateExclude []string
)

var rotateCmd = &cobra.Command{
	Use:   "rotate [log-dir]",
	Short: "Compress aging monitor logs into the archive subdirectory",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRotate,
}

func init() {
	rotateCmd.Flags().IntVar(&rotateKeep, "keep", monitor.DefaultRetention, "number of newest logs to leave uncompressed")
	rotateCmd.Flags().BoolVar(&rotateDryRun, "dry-run", false, "report what would be archived without touching files")
	rotateCmd.Flags().StringArrayVar(&rotateExclude, "exclude", nil, "log paths to never archive (an actively-written log, for instance)")

	viper.BindPFlag("rotate.keep", rotateCmd.Flags().Lookup("keep"))

	rootCmd.AddCommand(rotateCmd)
}

func runRotate(cmd *cobra.Command, args []string) error {
	dir := defaultMonitorLogDir()
	if len(args) == 1 {
		dir = args[0]
	}

	result, err := monitor.Rotate(dir, viper.GetInt("rotate.keep"), rotateDryRun, rotateExclude)
	if err != nil {
		return fmt.Errorf("rotate %q: %w", dir, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "kept=%d archived=%d skipped=%d\n", result.Kept, result.Archived, len(result.Skipped))
	for _, s := range result.Skipped {
		fmt.Fprintf(cmd.OutOrStdout(), "skipped: %s\n", s)
	}
	return nil
}
