package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the iscsitgtd version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("iscsitgtd %s (commit %s, built %s)\n", Version, Commit, Date)
	},
}
