package target

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/iscsitgt/cmd/iscsitgtctl/cmdutil"
)

var getCmd = &cobra.Command{
	Use:   "get <iqn>",
	Short: "Get target details",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

func runGet(cmd *cobra.Command, args []string) error {
	client, err := cmdutil.GetAuthenticatedClient()
	if err != nil {
		return err
	}

	t, err := client.GetTarget(args[0])
	if err != nil {
		return fmt.Errorf("failed to get target: %w", err)
	}

	return cmdutil.PrintResource(os.Stdout, t, TargetList{*t})
}
