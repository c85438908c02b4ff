// Package commands implements the iscsitgtd daemon's CLI surface.
package commands

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time via -ldflags.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "iscsitgtd",
	Short: "iscsitgtd - software iSCSI target daemon",
	Long: `iscsitgtd is a software iSCSI target: it terminates iSCSI sessions from
remote initiators, negotiates connection parameters per RFC 3720, and maps
SCSI commands onto backing storage. A REST control plane manages targets,
portal groups, and node ACLs alongside the data-path daemon.

Use "iscsitgtd [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called once from main.main().
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command, for testing.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/iscsitgt/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(startCmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// GetConfigFile returns the config file path from the global --config flag.
func GetConfigFile() string {
	return cfgFile
}

// Exit prints an error to stderr and exits with status 1.
func Exit(format string, args ...any) {
	rootCmd.PrintErrf(format+"\n", args...)
	os.Exit(1)
}
