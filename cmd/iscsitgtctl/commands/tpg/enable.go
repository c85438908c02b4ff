package tpg

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/marmos91/iscsitgt/cmd/iscsitgtctl/cmdutil"
)

var disable bool

var enableCmd = &cobra.Command{
	Use:   "enable <tpg-id>",
	Short: "Enable or disable a TPG",
	Args:  cobra.ExactArgs(1),
	RunE:  runEnable,
}

func init() {
	enableCmd.Flags().BoolVar(&disable, "disable", false, "disable the TPG instead of enabling it")
}

func runEnable(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid TPG id: %w", err)
	}

	client, err := cmdutil.GetAuthenticatedClient()
	if err != nil {
		return err
	}

	enabled := !disable
	if err := client.EnableTPG(uint(id), enabled); err != nil {
		return fmt.Errorf("failed to update TPG: %w", err)
	}

	state := "enabled"
	if !enabled {
		state = "disabled"
	}
	cmdutil.PrintSuccess(fmt.Sprintf("TPG %d %s", id, state))
	return nil
}
