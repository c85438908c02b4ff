package session

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/iscsitgt/cmd/iscsitgtctl/cmdutil"
	"github.com/marmos91/iscsitgt/pkg/apiclient"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List live sessions",
	RunE:  runList,
}

// SessionList is a list of sessions for table rendering.
type SessionList []apiclient.SessionSummary

// Headers implements TableRenderer.
func (sl SessionList) Headers() []string {
	return []string{"KEY", "INITIATOR", "TSIH", "STATE", "CONNECTIONS", "ERL"}
}

// Rows implements TableRenderer.
func (sl SessionList) Rows() [][]string {
	rows := make([][]string, 0, len(sl))
	for _, s := range sl {
		rows = append(rows, []string{
			s.Key, s.InitiatorName, fmt.Sprintf("%d", s.TSIH),
			fmt.Sprintf("%d", s.State), fmt.Sprintf("%d", s.ConnectionCount), fmt.Sprintf("%d", s.ErrorRecoveryLevel),
		})
	}
	return rows
}

func runList(cmd *cobra.Command, args []string) error {
	client, err := cmdutil.GetAuthenticatedClient()
	if err != nil {
		return err
	}

	sessions, err := client.ListSessions()
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	return cmdutil.PrintOutput(os.Stdout, sessions, len(sessions) == 0, "No live sessions.", SessionList(sessions))
}
