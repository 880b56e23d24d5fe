// Package cmd implements the suggestctl command-line interface.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "suggestctl",
	Short: "control and query the suggestd daemon",
	Long: `suggestctl talks to a running suggestd daemon over its Unix socket:
  - query ranked suggestions for an input
  - inspect daemon status and metrics
  - request a graceful shutdown`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
