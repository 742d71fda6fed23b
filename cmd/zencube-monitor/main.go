// Command zencube-monitor samples a supervised process's resource
// usage and writes an append-only JSONL log, independent of the
// zencube supervisor's own policy decisions.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/KamalSDhami/zencube/pkg/config"
)

func main() {
	viper.SetEnvPrefix("zencube")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "zencube-monitor",
	Short: "Attach to a supervised process and record its resource usage",
}

func defaultMonitorLogDir() string {
	return config.Load().MonitorLogDir
}
