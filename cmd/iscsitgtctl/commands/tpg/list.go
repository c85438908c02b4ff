package tpg

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/iscsitgt/cmd/iscsitgtctl/cmdutil"
	"github.com/marmos91/iscsitgt/pkg/apiclient"
)

var listCmd = &cobra.Command{
	Use:   "list <target-iqn>",
	Short: "List TPGs on a target",
	Args:  cobra.ExactArgs(1),
	RunE:  runList,
}

// TPGList is a list of TPGs for table rendering.
type TPGList []apiclient.TPG

// Headers implements TableRenderer.
func (tl TPGList) Headers() []string {
	return []string{"ID", "TAG", "ENABLED"}
}

// Rows implements TableRenderer.
func (tl TPGList) Rows() [][]string {
	rows := make([][]string, 0, len(tl))
	for _, t := range tl {
		rows = append(rows, []string{fmt.Sprintf("%d", t.ID), fmt.Sprintf("%d", t.Tag), cmdutil.BoolToYesNo(t.Enabled)})
	}
	return rows
}

func runList(cmd *cobra.Command, args []string) error {
	client, err := cmdutil.GetAuthenticatedClient()
	if err != nil {
		return err
	}

	tpgs, err := client.ListTPGs(args[0])
	if err != nil {
		return fmt.Errorf("failed to list TPGs: %w", err)
	}

	return cmdutil.PrintOutput(os.Stdout, tpgs, len(tpgs) == 0, "No TPGs found.", TPGList(tpgs))
}
