package session

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/iscsitgt/cmd/iscsitgtctl/cmdutil"
	"github.com/marmos91/iscsitgt/internal/cli/prompt"
)

var (
	offlineCID    uint16
	offlineReason string
	offlineForce  bool
)

var offlineCmd = &cobra.Command{
	Use:   "offline <session-key>",
	Short: "Force one connection of a session offline",
	Long: `Close one connection of a live session, driving it through the
normal connection-loss recovery path rather than a clean logout.

Examples:
  iscsitgtctl session offline isid123:tsih456 --cid 0 --reason maintenance`,
	Args: cobra.ExactArgs(1),
	RunE: runOffline,
}

func init() {
	offlineCmd.Flags().Uint16Var(&offlineCID, "cid", 0, "connection ID to close")
	offlineCmd.Flags().StringVar(&offlineReason, "reason", "", "operator-supplied reason, recorded in the audit log")
	offlineCmd.Flags().BoolVarP(&offlineForce, "force", "f", false, "skip confirmation prompt")
}

func runOffline(cmd *cobra.Command, args []string) error {
	key := args[0]

	confirmed, err := prompt.ConfirmWithForce(fmt.Sprintf("Force connection %d of session '%s' offline?", offlineCID, key), offlineForce)
	if err != nil {
		return cmdutil.HandleAbort(err)
	}
	if !confirmed {
		fmt.Println("Aborted.")
		return nil
	}

	client, err := cmdutil.GetAuthenticatedClient()
	if err != nil {
		return err
	}

	if err := client.ForceOffline(key, offlineCID, offlineReason); err != nil {
		return fmt.Errorf("failed to force connection offline: %w", err)
	}

	cmdutil.PrintSuccess(fmt.Sprintf("Connection %d of session '%s' forced offline", offlineCID, key))
	return nil
}
