package nodeacl

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/marmos91/iscsitgt/cmd/iscsitgtctl/cmdutil"
	"github.com/marmos91/iscsitgt/pkg/apiclient"
)

var listCmd = &cobra.Command{
	Use:   "list <tpg-id>",
	Short: "List node ACLs on a TPG",
	Args:  cobra.ExactArgs(1),
	RunE:  runList,
}

// ACLList is a list of node ACLs for table rendering.
type ACLList []apiclient.NodeACL

// Headers implements TableRenderer.
func (al ACLList) Headers() []string {
	return []string{"INITIATOR", "AUTH REQUIRED", "LUN MAP", "CMDSN WINDOW"}
}

// Rows implements TableRenderer.
func (al ACLList) Rows() [][]string {
	rows := make([][]string, 0, len(al))
	for _, a := range al {
		rows = append(rows, []string{
			a.InitiatorIQN,
			cmdutil.BoolToYesNo(a.AuthRequired),
			cmdutil.EmptyOr(a.LUNMap, "-"),
			fmt.Sprintf("%d", a.CmdSNWindow),
		})
	}
	return rows
}

func runList(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid TPG id: %w", err)
	}

	client, err := cmdutil.GetAuthenticatedClient()
	if err != nil {
		return err
	}

	acls, err := client.ListNodeACLs(uint(id))
	if err != nil {
		return fmt.Errorf("failed to list node ACLs: %w", err)
	}

	return cmdutil.PrintOutput(os.Stdout, acls, len(acls) == 0, "No node ACLs found.", ACLList(acls))
}
