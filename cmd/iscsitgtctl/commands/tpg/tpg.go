// Package tpg implements target portal group management commands for iscsitgtctl.
package tpg

import (
	"github.com/spf13/cobra"
)

// Cmd is the parent command for TPG management.
var Cmd = &cobra.Command{
	Use:   "tpg",
	Short: "Target portal group management",
	Long: `Manage target portal groups (TPGs) belonging to a target.

Examples:
  # List TPGs on a target
  iscsitgtctl tpg list iqn.2026-01.com.example:storage.disk1

  # Add a TPG
  iscsitgtctl tpg add iqn.2026-01.com.example:storage.disk1 --tag 1

  # Enable a TPG
  iscsitgtctl tpg enable 1

  # Delete a TPG
  iscsitgtctl tpg delete 1`,
}

func init() {
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(addCmd)
	Cmd.AddCommand(enableCmd)
	Cmd.AddCommand(deleteCmd)
}
