package portal

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/marmos91/iscsitgt/cmd/iscsitgtctl/cmdutil"
	"github.com/marmos91/iscsitgt/pkg/apiclient"
)

var (
	addAddress         string
	addPort            int
	addTransport       string
	addExternalAddress string
	addExternalPort    int
)

var addCmd = &cobra.Command{
	Use:   "add <tpg-id>",
	Short: "Bind a new portal to a TPG",
	Args:  cobra.ExactArgs(1),
	RunE:  runAdd,
}

func init() {
	addCmd.Flags().StringVar(&addAddress, "address", "", "listen address (required)")
	addCmd.Flags().IntVar(&addPort, "port", 3260, "listen port")
	addCmd.Flags().StringVar(&addTransport, "transport", "tcp", "transport (tcp)")
	addCmd.Flags().StringVar(&addExternalAddress, "external-address", "", "address advertised to initiators, if different from --address")
	addCmd.Flags().IntVar(&addExternalPort, "external-port", 0, "port advertised to initiators, if different from --port")
	_ = addCmd.MarkFlagRequired("address")
}

func runAdd(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid TPG id: %w", err)
	}

	client, err := cmdutil.GetAuthenticatedClient()
	if err != nil {
		return err
	}

	p, err := client.AddPortal(uint(id), apiclient.AddPortalRequest{
		Address:         addAddress,
		Port:            addPort,
		Transport:       addTransport,
		ExternalAddress: addExternalAddress,
		ExternalPort:    addExternalPort,
	})
	if err != nil {
		return fmt.Errorf("failed to add portal: %w", err)
	}

	return cmdutil.PrintResourceWithSuccess(os.Stdout, p, fmt.Sprintf("Portal %s:%d added to TPG %d", p.Address, p.Port, id))
}
