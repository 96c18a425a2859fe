package main

import (
	"os"

	"github.com/facultyindex/facultyindex/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func init() {
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long: `Show the configuration after defaults, the config file and environment
overrides are applied. The API key is masked.`,
	Args: cobra.NoArgs,
	RunE: runConfig,
}

func runConfig(cmd *cobra.Command, args []string) error {
	shown := *appConfig
	if shown.S2.APIKey != "" {
		shown.S2.APIKey = "********"
	}

	if humanOutput {
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(shown); err != nil {
			return err
		}
		if err := enc.Close(); err != nil {
			return err
		}
		outputHuman("\n%s\n", config.HelpfulConfigMessage())
		return nil
	}
	return outputJSON(shown)
}
