package session

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/iscsitgt/cmd/iscsitgtctl/cmdutil"
	"github.com/marmos91/iscsitgt/pkg/apiclient"
)

var connectionsCmd = &cobra.Command{
	Use:   "connections",
	Short: "List connections across all live sessions",
	RunE:  runConnections,
}

// ConnectionList is a list of connections for table rendering.
type ConnectionList []apiclient.ConnectionSummary

// Headers implements TableRenderer.
func (cl ConnectionList) Headers() []string {
	return []string{"SESSION KEY", "CID", "STATE"}
}

// Rows implements TableRenderer.
func (cl ConnectionList) Rows() [][]string {
	rows := make([][]string, 0, len(cl))
	for _, c := range cl {
		rows = append(rows, []string{c.SessionKey, fmt.Sprintf("%d", c.CID), fmt.Sprintf("%d", c.State)})
	}
	return rows
}

func runConnections(cmd *cobra.Command, args []string) error {
	client, err := cmdutil.GetAuthenticatedClient()
	if err != nil {
		return err
	}

	conns, err := client.ConnectionStats()
	if err != nil {
		return fmt.Errorf("failed to get connection stats: %w", err)
	}

	return cmdutil.PrintOutput(os.Stdout, conns, len(conns) == 0, "No live connections.", ConnectionList(conns))
}
