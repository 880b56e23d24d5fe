package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/runger/suggestd/internal/ipc"
)

var shutdownCmd = &cobra.Command{
	Use:   "shutdown",
	Short: "Stop the suggestd daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !ipc.SocketExists() {
			fmt.Println("daemon: not running")
			return nil
		}
		client := ipc.NewClient()
		ctx, cancel := context.WithTimeout(context.Background(), ipc.ControlTimeout)
		defer cancel()
		if err := client.Shutdown(ctx); err != nil {
			return err
		}
		fmt.Println("shutdown requested")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(shutdownCmd)
}
