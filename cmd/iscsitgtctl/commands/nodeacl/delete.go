package nodeacl

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/marmos91/iscsitgt/cmd/iscsitgtctl/cmdutil"
)

var (
	deleteInitiator string
	deleteForce     bool
)

var deleteCmd = &cobra.Command{
	Use:   "delete <tpg-id>",
	Short: "Revoke an initiator's ACL from a TPG",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func init() {
	deleteCmd.Flags().StringVar(&deleteInitiator, "initiator", "", "initiator IQN to revoke (required)")
	deleteCmd.Flags().BoolVarP(&deleteForce, "force", "f", false, "skip confirmation prompt")
	_ = deleteCmd.MarkFlagRequired("initiator")
}

func runDelete(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid TPG id: %w", err)
	}

	client, err := cmdutil.GetAuthenticatedClient()
	if err != nil {
		return err
	}

	return cmdutil.RunDeleteWithConfirmation("node ACL", deleteInitiator, deleteForce, func() error {
		if err := client.DeleteNodeACL(uint(id), deleteInitiator); err != nil {
			return fmt.Errorf("failed to delete node ACL: %w", err)
		}
		return nil
	})
}
