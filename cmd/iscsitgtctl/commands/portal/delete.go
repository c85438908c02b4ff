package portal

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/marmos91/iscsitgt/cmd/iscsitgtctl/cmdutil"
)

var (
	deleteAddress string
	deleteForce   bool
)

var deleteCmd = &cobra.Command{
	Use:   "delete <tpg-id>",
	Short: "Remove a portal from a TPG",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func init() {
	deleteCmd.Flags().StringVar(&deleteAddress, "address", "", "portal address to remove (required)")
	deleteCmd.Flags().BoolVarP(&deleteForce, "force", "f", false, "skip confirmation prompt")
	_ = deleteCmd.MarkFlagRequired("address")
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

	return cmdutil.RunDeleteWithConfirmation("portal", deleteAddress, deleteForce, func() error {
		if err := client.DeletePortal(uint(id), deleteAddress); err != nil {
			return fmt.Errorf("failed to delete portal: %w", err)
		}
		return nil
	})
}
