package tpg

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/iscsitgt/cmd/iscsitgtctl/cmdutil"
)

var addTag uint16

var addCmd = &cobra.Command{
	Use:   "add <target-iqn>",
	Short: "Add a TPG to a target",
	Args:  cobra.ExactArgs(1),
	RunE:  runAdd,
}

func init() {
	addCmd.Flags().Uint16Var(&addTag, "tag", 1, "TPG tag")
}

func runAdd(cmd *cobra.Command, args []string) error {
	client, err := cmdutil.GetAuthenticatedClient()
	if err != nil {
		return err
	}

	t, err := client.CreateTPG(args[0], addTag)
	if err != nil {
		return fmt.Errorf("failed to create TPG: %w", err)
	}

	return cmdutil.PrintResourceWithSuccess(os.Stdout, t, fmt.Sprintf("TPG %d (tag %d) created on '%s'", t.ID, t.Tag, args[0]))
}
