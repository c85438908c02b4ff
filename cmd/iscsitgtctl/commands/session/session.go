// Package session implements session/connection query commands for iscsitgtctl.
package session

import (
	"github.com/spf13/cobra"
)

// Cmd is the parent command for session queries.
var Cmd = &cobra.Command{
	Use:   "session",
	Short: "Live session and connection queries",
	Long: `Query and manage live iSCSI sessions on the target.

Examples:
  # List live sessions
  iscsitgtctl session list

  # Show process-wide session counters
  iscsitgtctl session stats

  # Show live connections
  iscsitgtctl session connections

  # Show recent audit history for a session
  iscsitgtctl session history isid123:tsih456

  # Force one connection of a session offline
  iscsitgtctl session offline isid123:tsih456 --cid 0`,
}

func init() {
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(statsCmd)
	Cmd.AddCommand(connectionsCmd)
	Cmd.AddCommand(historyCmd)
	Cmd.AddCommand(offlineCmd)
}
