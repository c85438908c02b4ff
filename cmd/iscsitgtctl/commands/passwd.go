package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/marmos91/iscsitgt/internal/cli/prompt"
	"github.com/marmos91/iscsitgt/internal/config"
)

var passwdConfigFile string

var passwdCmd = &cobra.Command{
	Use:   "passwd",
	Short: "Set the bootstrap admin password in a daemon config file",
	Long: `Set the bootstrap admin password hash in an iscsitgtd configuration file.

There is no multi-operator account store: the control plane authenticates
a single bootstrap admin account defined in the daemon's config. This
command prompts for a new password, bcrypt-hashes it, and writes the
hash into the config file in place.

Examples:
  # Update the default config file
  iscsitgtctl passwd

  # Update a specific config file
  iscsitgtctl passwd --config /etc/iscsitgt/config.yaml`,
	RunE: runPasswd,
}

func init() {
	passwdCmd.Flags().StringVar(&passwdConfigFile, "config", "", "config file (default: $XDG_CONFIG_HOME/iscsitgt/config.yaml)")
}

func runPasswd(cmd *cobra.Command, args []string) error {
	path := passwdConfigFile
	if path == "" {
		path = config.GetDefaultConfigPath()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	password, err := prompt.PasswordWithConfirmation("New admin password", "Confirm password", 8)
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	cfg.ControlPlane.AdminPasswordHash = string(hash)

	if err := config.SaveConfig(cfg, path); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Printf("Admin password updated in %s\n", path)
	fmt.Println("Restart iscsitgtd for the change to take effect.")

	return nil
}
