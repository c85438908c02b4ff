package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/iscsitgt/cmd/iscsitgtctl/cmdutil"
	"github.com/marmos91/iscsitgt/internal/cli/credentials"
	"github.com/marmos91/iscsitgt/internal/cli/health"
	"github.com/marmos91/iscsitgt/internal/cli/output"
	"github.com/marmos91/iscsitgt/internal/cli/timeutil"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	Long: `Display the status of the connected iscsitgtd control plane.

This command checks the server's liveness probe and displays status,
uptime, and service information.

Examples:
  iscsitgtctl status
  iscsitgtctl status -o json`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

// DaemonStatus represents the daemon status for display.
type DaemonStatus struct {
	Server    string `json:"server" yaml:"server"`
	Status    string `json:"status" yaml:"status"`
	Healthy   bool   `json:"healthy" yaml:"healthy"`
	Service   string `json:"service,omitempty" yaml:"service,omitempty"`
	StartedAt string `json:"started_at,omitempty" yaml:"started_at,omitempty"`
	Uptime    string `json:"uptime,omitempty" yaml:"uptime,omitempty"`
	Error     string `json:"error,omitempty" yaml:"error,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	store, err := credentials.NewStore()
	if err != nil {
		return fmt.Errorf("failed to initialize credential store: %w", err)
	}

	ctx, err := store.GetCurrentContext()
	if err != nil {
		return fmt.Errorf("not logged in. Run 'iscsitgtctl login' first")
	}

	serverURL := ctx.ServerURL
	if serverURL == "" {
		return fmt.Errorf("no server configured. Run 'iscsitgtctl login' first")
	}

	status := DaemonStatus{
		Server:  serverURL,
		Status:  "unreachable",
		Healthy: false,
	}

	healthURL := serverURL + "/health"
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(healthURL)
	if err != nil {
		status.Error = err.Error()
	} else {
		defer func() { _ = resp.Body.Close() }()

		var healthResp health.Response
		if err := json.NewDecoder(resp.Body).Decode(&healthResp); err == nil {
			status.Status = healthResp.Status
			status.Healthy = healthResp.Status == "healthy"
			status.Service = healthResp.Data.Service
			status.StartedAt = healthResp.Data.StartedAt
			status.Uptime = healthResp.Data.Uptime
			if healthResp.Error != "" {
				status.Error = healthResp.Error
			}
		} else {
			status.Status = "unknown"
			status.Error = "failed to parse health response"
		}
	}

	format, err := cmdutil.GetOutputFormatParsed()
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, status)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, status)
	default:
		printStatusTable(status)
	}

	return nil
}

func printStatusTable(status DaemonStatus) {
	fmt.Println()
	fmt.Println("iscsitgtd Server Status")
	fmt.Println("========================")
	fmt.Println()
	fmt.Printf("  Server:     %s\n", status.Server)

	if status.Healthy {
		fmt.Printf("  Status:     \033[32m● %s\033[0m\n", status.Status)
	} else if status.Status == "unreachable" {
		fmt.Printf("  Status:     \033[31m○ %s\033[0m\n", status.Status)
	} else {
		fmt.Printf("  Status:     \033[33m● %s\033[0m\n", status.Status)
	}

	if status.Service != "" {
		fmt.Printf("  Service:    %s\n", status.Service)
	}
	if status.StartedAt != "" {
		fmt.Printf("  Started:    %s\n", timeutil.FormatTime(status.StartedAt))
	}
	if status.Uptime != "" {
		fmt.Printf("  Uptime:     %s\n", timeutil.FormatUptime(status.Uptime))
	}
	if status.Error != "" {
		fmt.Printf("  Error:      %s\n", status.Error)
	}
	fmt.Println()
}
