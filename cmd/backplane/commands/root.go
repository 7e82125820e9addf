// Package commands implements the backplane CLI.
package commands

import (
	"github.com/spf13/cobra"

	configcmd "github.com/marmos91/backplane/cmd/backplane/commands/config"
	"github.com/marmos91/backplane/pkg/config"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	// Global flags.
	envFile string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "backplane",
	Short: "Backplane - backend lifecycle orchestrator",
	Long: `Backplane brings up the PostgreSQL, Redis, Neo4j and Elasticsearch
connections a service depends on, reports their health, and tears them down
in reverse order on shutdown.

PostgreSQL and Neo4j are required: startup aborts if either is unreachable.
Redis and Elasticsearch are optional: failures are logged and the process
continues in a degraded state.

Configuration comes from environment variables, optionally layered over a
dotenv file (default: .env.$APP_ENV).

Use "backplane [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", config.DefaultEnvFile(), "dotenv file layered under the environment")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(configcmd.Cmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
