// Command iscsitgtctl is the remote management client for iscsitgtd.
package main

import (
	"github.com/marmos91/iscsitgt/cmd/iscsitgtctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		commands.Exit("Error: %v", err)
	}
}
