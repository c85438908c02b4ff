package target

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/iscsitgt/cmd/iscsitgtctl/cmdutil"
)

var deleteForce bool

var deleteCmd = &cobra.Command{
	Use:   "delete <iqn>",
	Short: "Remove a target",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func init() {
	deleteCmd.Flags().BoolVarP(&deleteForce, "force", "f", false, "skip confirmation prompt")
}

func runDelete(cmd *cobra.Command, args []string) error {
	client, err := cmdutil.GetAuthenticatedClient()
	if err != nil {
		return err
	}

	iqn := args[0]
	return cmdutil.RunDeleteWithConfirmation("target", iqn, deleteForce, func() error {
		if err := client.DeleteTarget(iqn); err != nil {
			return fmt.Errorf("failed to delete target: %w", err)
		}
		return nil
	})
}
