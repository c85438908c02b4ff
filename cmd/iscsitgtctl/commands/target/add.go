package target

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/iscsitgt/cmd/iscsitgtctl/cmdutil"
)

var addCmd = &cobra.Command{
	Use:   "add <iqn>",
	Short: "Register a new target",
	Long: `Register a new iSCSI target name (IQN) on the control plane.

Examples:
  iscsitgtctl target add iqn.2026-01.com.example:storage.disk1`,
	Args: cobra.ExactArgs(1),
	RunE: runAdd,
}

func runAdd(cmd *cobra.Command, args []string) error {
	client, err := cmdutil.GetAuthenticatedClient()
	if err != nil {
		return err
	}

	t, err := client.CreateTarget(args[0])
	if err != nil {
		return fmt.Errorf("failed to create target: %w", err)
	}

	return cmdutil.PrintResourceWithSuccess(os.Stdout, t, fmt.Sprintf("Target '%s' registered successfully", t.IQN))
}
