// Package nodeacl implements node ACL management commands for iscsitgtctl.
package nodeacl

import (
	"github.com/spf13/cobra"
)

// Cmd is the parent command for node ACL management.
var Cmd = &cobra.Command{
	Use:   "node-acl",
	Short: "Node ACL management",
	Long: `Manage per-initiator access control entries on a target portal group.

Examples:
  # List ACLs on a TPG
  iscsitgtctl node-acl list 1

  # Grant an initiator access
  iscsitgtctl node-acl set 1 --initiator iqn.1994-05.com.redhat:client1

  # Revoke an initiator's access
  iscsitgtctl node-acl delete 1 --initiator iqn.1994-05.com.redhat:client1`,
}

func init() {
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(setCmd)
	Cmd.AddCommand(deleteCmd)
}
