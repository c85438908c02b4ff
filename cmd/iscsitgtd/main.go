// Command iscsitgtd runs the software iSCSI target daemon.
package main

import (
	"github.com/marmos91/iscsitgt/cmd/iscsitgtd/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		commands.Exit("Error: %v", err)
	}
}
