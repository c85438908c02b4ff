// Package target implements target management commands for iscsitgtctl.
package target

import (
	"github.com/spf13/cobra"
)

// Cmd is the parent command for target management.
var Cmd = &cobra.Command{
	Use:   "target",
	Short: "Target management",
	Long: `Manage iSCSI targets on the control plane.

Target commands allow you to register, list, inspect, and remove
iSCSI target names (IQNs). These operations require admin privileges.

Examples:
  # List all targets
  iscsitgtctl target list

  # Register a target
  iscsitgtctl target add iqn.2026-01.com.example:storage.disk1

  # Remove a target
  iscsitgtctl target delete iqn.2026-01.com.example:storage.disk1`,
}

func init() {
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(getCmd)
	Cmd.AddCommand(addCmd)
	Cmd.AddCommand(deleteCmd)
}
