package session

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/iscsitgt/cmd/iscsitgtctl/cmdutil"
	"github.com/marmos91/iscsitgt/pkg/apiclient"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history <session-key>",
	Short: "Show recent audit events for a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 100, "maximum number of events to return")
}

// EventList is a list of audit events for table rendering.
type EventList []apiclient.AuditEvent

// Headers implements TableRenderer.
func (el EventList) Headers() []string {
	return []string{"TIMESTAMP", "KIND", "CID", "REASON", "DETAIL"}
}

// Rows implements TableRenderer.
func (el EventList) Rows() [][]string {
	rows := make([][]string, 0, len(el))
	for _, e := range el {
		rows = append(rows, []string{
			e.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
			e.Kind, fmt.Sprintf("%d", e.CID),
			cmdutil.EmptyOr(e.Reason, "-"), cmdutil.EmptyOr(e.Detail, "-"),
		})
	}
	return rows
}

func runHistory(cmd *cobra.Command, args []string) error {
	client, err := cmdutil.GetAuthenticatedClient()
	if err != nil {
		return err
	}

	events, err := client.SessionHistory(args[0], historyLimit)
	if err != nil {
		return fmt.Errorf("failed to get session history: %w", err)
	}

	return cmdutil.PrintOutput(os.Stdout, events, len(events) == 0, "No history found.", EventList(events))
}
