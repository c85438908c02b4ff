package target

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/iscsitgt/cmd/iscsitgtctl/cmdutil"
	"github.com/marmos91/iscsitgt/pkg/apiclient"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all targets",
	Long: `List all targets registered on the control plane.

Examples:
  iscsitgtctl target list
  iscsitgtctl target list -o json`,
	RunE: runList,
}

// TargetList is a list of targets for table rendering.
type TargetList []apiclient.Target

// Headers implements TableRenderer.
func (tl TargetList) Headers() []string {
	return []string{"IQN", "TPGS"}
}

// Rows implements TableRenderer.
func (tl TargetList) Rows() [][]string {
	rows := make([][]string, 0, len(tl))
	for _, t := range tl {
		rows = append(rows, []string{t.IQN, fmt.Sprintf("%d", t.TPGs)})
	}
	return rows
}

func runList(cmd *cobra.Command, args []string) error {
	client, err := cmdutil.GetAuthenticatedClient()
	if err != nil {
		return err
	}

	targets, err := client.ListTargets()
	if err != nil {
		return fmt.Errorf("failed to list targets: %w", err)
	}

	return cmdutil.PrintOutput(os.Stdout, targets, len(targets) == 0, "No targets found.", TargetList(targets))
}
