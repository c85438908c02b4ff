package session

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/iscsitgt/cmd/iscsitgtctl/cmdutil"
	"github.com/marmos91/iscsitgt/internal/cli/output"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show process-wide session counters",
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	client, err := cmdutil.GetAuthenticatedClient()
	if err != nil {
		return err
	}

	stats, err := client.SessionStats()
	if err != nil {
		return fmt.Errorf("failed to get session stats: %w", err)
	}

	format, err := cmdutil.GetOutputFormatParsed()
	if err != nil {
		return err
	}
	if format != output.FormatTable {
		return cmdutil.PrintResource(os.Stdout, stats, nil)
	}

	return output.SimpleTable(os.Stdout, [][2]string{
		{"Active sessions", fmt.Sprintf("%d", stats.ActiveSessions)},
		{"Login attempts", fmt.Sprintf("%d", stats.LoginAttempts)},
		{"Login success", fmt.Sprintf("%d", stats.LoginSuccess)},
		{"Login failure", fmt.Sprintf("%d", stats.LoginFailure)},
		{"Header digest errors", fmt.Sprintf("%d", stats.HeaderDigestErrors)},
		{"Data digest errors", fmt.Sprintf("%d", stats.DataDigestErrors)},
		{"Sampled at", stats.SampledAt.Format("2006-01-02T15:04:05Z07:00")},
	})
}
