package portal

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
	Short: "List portals bound to a TPG",
	Args:  cobra.ExactArgs(1),
	RunE:  runList,
}

// PortalList is a list of portals for table rendering.
type PortalList []apiclient.Portal

// Headers implements TableRenderer.
func (pl PortalList) Headers() []string {
	return []string{"ID", "ADDRESS", "PORT", "TRANSPORT", "EXTERNAL"}
}

// Rows implements TableRenderer.
func (pl PortalList) Rows() [][]string {
	rows := make([][]string, 0, len(pl))
	for _, p := range pl {
		external := "-"
		if p.ExternalAddress != "" {
			external = fmt.Sprintf("%s:%d", p.ExternalAddress, p.ExternalPort)
		}
		rows = append(rows, []string{fmt.Sprintf("%d", p.ID), p.Address, fmt.Sprintf("%d", p.Port), cmdutil.EmptyOr(p.Transport, "tcp"), external})
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

	portals, err := client.ListPortals(uint(id))
	if err != nil {
		return fmt.Errorf("failed to list portals: %w", err)
	}

	return cmdutil.PrintOutput(os.Stdout, portals, len(portals) == 0, "No portals found.", PortalList(portals))
}
