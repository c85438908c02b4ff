// Package portal implements portal management commands for iscsitgtctl.
package portal

import (
	"github.com/spf13/cobra"
)

// Cmd is the parent command for portal management.
var Cmd = &cobra.Command{
	Use:   "portal",
	Short: "Portal management",
	Long: `Manage listening portals bound to a target portal group.

Examples:
  # List portals on a TPG
  iscsitgtctl portal list 1

  # Add a portal
  iscsitgtctl portal add 1 --address 0.0.0.0 --port 3260

  # Remove a portal
  iscsitgtctl portal delete 1 --address 0.0.0.0:3260`,
}

func init() {
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(addCmd)
	Cmd.AddCommand(deleteCmd)
}
