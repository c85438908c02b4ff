// Package commands implements the CLI commands for the iscsitgtctl client.
package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/iscsitgt/cmd/iscsitgtctl/cmdutil"
	nodeaclcmd "github.com/marmos91/iscsitgt/cmd/iscsitgtctl/commands/nodeacl"
	portalcmd "github.com/marmos91/iscsitgt/cmd/iscsitgtctl/commands/portal"
	sessioncmd "github.com/marmos91/iscsitgt/cmd/iscsitgtctl/commands/session"
	targetcmd "github.com/marmos91/iscsitgt/cmd/iscsitgtctl/commands/target"
	tpgcmd "github.com/marmos91/iscsitgt/cmd/iscsitgtctl/commands/tpg"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "iscsitgtctl",
	Short: "iSCSI target control - remote management client",
	Long: `iscsitgtctl is the command-line client for managing iscsitgtd servers remotely.

Use this tool to manage targets, target portal groups, portals, node ACLs,
and live sessions through the control-plane REST API.

Use "iscsitgtctl [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cmdutil.Flags.ServerURL, _ = cmd.Flags().GetString("server")
		cmdutil.Flags.Token, _ = cmd.Flags().GetString("token")
		cmdutil.Flags.Output, _ = cmd.Flags().GetString("output")
		cmdutil.Flags.NoColor, _ = cmd.Flags().GetBool("no-color")
		cmdutil.Flags.Verbose, _ = cmd.Flags().GetBool("verbose")
	},
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().String("server", "", "Server URL (overrides stored credential)")
	rootCmd.PersistentFlags().String("token", "", "Bearer token (overrides stored credential)")
	rootCmd.PersistentFlags().StringP("output", "o", "table", "Output format (table|json|yaml)")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(passwdCmd)
	rootCmd.AddCommand(targetcmd.Cmd)
	rootCmd.AddCommand(tpgcmd.Cmd)
	rootCmd.AddCommand(portalcmd.Cmd)
	rootCmd.AddCommand(nodeaclcmd.Cmd)
	rootCmd.AddCommand(sessioncmd.Cmd)
	rootCmd.AddCommand(completionCmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// PrintErr prints an error message to stderr.
func PrintErr(format string, args ...any) {
	rootCmd.PrintErrf(format+"\n", args...)
}

// Exit prints an error and exits with code 1.
func Exit(format string, args ...any) {
	PrintErr(format, args...)
	os.Exit(1)
}
