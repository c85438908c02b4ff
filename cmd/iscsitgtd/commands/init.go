package commands

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/iscsitgt/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a sample configuration file",
	Long: `Write a sample iscsitgtd configuration file.

By default the file is created at $XDG_CONFIG_HOME/iscsitgt/config.yaml.
Use --config to specify a custom path.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	path := GetConfigFile()
	if path == "" {
		path = config.GetDefaultConfigPath()
	}

	if _, err := os.Stat(path); !initForce && err == nil {
		return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
	}

	cfg := config.GetDefaultConfig()

	key, err := randomHex(32)
	if err != nil {
		return fmt.Errorf("failed to generate JWT signing key: %w", err)
	}
	cfg.ControlPlane.JWTSigningKey = key
	cfg.ControlPlane.AdminUsername = "admin"

	if err := config.SaveConfig(cfg, path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Printf("Configuration file created at: %s\n", path)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Set an admin password hash with: iscsitgtctl passwd")
	fmt.Println("  2. Start the daemon with: iscsitgtd start")
	fmt.Println("\nA random JWT signing key was generated for development use.")
	fmt.Println("For production, generate your own and set it via environment override:")
	fmt.Println("    export ISCSITGT_CONTROLPLANE_JWT_SIGNING_KEY=$(openssl rand -hex 32)")

	return nil
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
