// Package config implements configuration subcommands.
package config

import (
	"github.com/spf13/cobra"
)

// Cmd is the config subcommand.
var Cmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration inspection",
	Long: `Inspect the configuration backplane resolves from the environment.

Subcommands:
  show      Display the resolved configuration with secrets redacted`,
}

func init() {
	Cmd.AddCommand(showCmd)
}
