package nodeacl

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/marmos91/iscsitgt/cmd/iscsitgtctl/cmdutil"
	"github.com/marmos91/iscsitgt/pkg/apiclient"
)

var (
	setInitiator   string
	setAuthRequire bool
	setLUNMap      string
	setCmdSNWindow uint32
)

var setCmd = &cobra.Command{
	Use:   "set <tpg-id>",
	Short: "Create or update a node ACL on a TPG",
	Args:  cobra.ExactArgs(1),
	RunE:  runSet,
}

func init() {
	setCmd.Flags().StringVar(&setInitiator, "initiator", "", "initiator IQN (required)")
	setCmd.Flags().BoolVar(&setAuthRequire, "auth-required", false, "require CHAP authentication for this initiator")
	setCmd.Flags().StringVar(&setLUNMap, "lun-map", "", "LUN mapping expression for this initiator")
	setCmd.Flags().Uint32Var(&setCmdSNWindow, "cmdsn-window", 32, "CmdSN window size for this initiator")
	_ = setCmd.MarkFlagRequired("initiator")
}

func runSet(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid TPG id: %w", err)
	}

	client, err := cmdutil.GetAuthenticatedClient()
	if err != nil {
		return err
	}

	acl, err := client.SetNodeACL(uint(id), apiclient.SetNodeACLRequest{
		InitiatorIQN: setInitiator,
		AuthRequired: setAuthRequire,
		LUNMap:       setLUNMap,
		CmdSNWindow:  setCmdSNWindow,
	})
	if err != nil {
		return fmt.Errorf("failed to set node ACL: %w", err)
	}

	return cmdutil.PrintResourceWithSuccess(os.Stdout, acl, fmt.Sprintf("Node ACL for '%s' set on TPG %d", acl.InitiatorIQN, id))
}
