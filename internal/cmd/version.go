package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is set at build time
var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the suggestctl version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("suggestctl", Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
