package cmd

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/runger/suggestd/internal/config"
	"github.com/runger/suggestd/internal/ipc"
	"github.com/runger/suggestd/internal/server"
)

var statusMetrics bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show suggestd status",
	Long: `Show the current status of the suggestd daemon.

Examples:
  suggestctl status
  suggestctl status --metrics`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusMetrics, "metrics", false, "include the counter snapshot")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	paths := config.DefaultPaths()
	if !server.IsRunning(paths.PIDFile()) && !ipc.SocketExists() {
		fmt.Println("daemon: not running")
		return nil
	}

	client := ipc.NewClient()
	ctx, cancel := context.WithTimeout(context.Background(), ipc.ControlTimeout)
	defer cancel()

	status, err := client.Status(ctx)
	if err != nil {
		return err
	}
	fmt.Println("daemon: running")
	fmt.Printf("  pid:           %d\n", status.PID)
	fmt.Printf("  uptime:        %ds\n", status.UptimeSeconds)
	fmt.Printf("  requests:      %d\n", status.Requests)
	fmt.Printf("  avg latency:   %.1fms\n", status.AvgLatencyMs)
	fmt.Printf("  algorithms:    %d bound\n", len(status.Algorithms))

	if statusMetrics {
		snapshot, err := client.Metrics(ctx)
		if err != nil {
			return err
		}
		keys := make([]string, 0, len(snapshot))
		for k := range snapshot {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Println("metrics:")
		for _, k := range keys {
			fmt.Printf("  %-22s %d\n", k, snapshot[k])
		}
	}
	return nil
}
