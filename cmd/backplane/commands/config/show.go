package config

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/backplane/internal/cli/output"
	"github.com/marmos91/backplane/pkg/config"
)

var showOutput string

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the resolved configuration",
	Long: `Display the configuration backplane would start with. Passwords,
API keys and the password in DATABASE_URL are masked.

By default outputs YAML format. Use --output to change format.

Examples:
  # Show the resolved config as YAML
  backplane config show

  # Show as JSON, resolved from a specific dotenv file
  backplane config show --output json --env-file .env.production`,
	RunE: runConfigShow,
}

func init() {
	showCmd.Flags().StringVarP(&showOutput, "output", "o", "yaml", "Output format (yaml|json)")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	envFile, _ := cmd.Flags().GetString("env-file")

	cfg, _, err := config.LoadEnv(envFile)
	if err != nil {
		return err
	}

	format, err := output.ParseFormat(showOutput)
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, cfg.Redacted())
	default:
		return output.PrintYAML(os.Stdout, cfg.Redacted())
	}
}
