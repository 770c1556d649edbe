package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func getConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Prints the effective configuration as YAML",
		Long: `Prints the configuration taxtag would run with, after merging the
config file, TAXTAG_* environment variables and built-in defaults.
The output can be redirected to a file and used with --config.

Examples:
  taxtag config
  taxtag config > ~/.config/taxtag/taxtag.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := yaml.Marshal(getConfig())
			if err != nil {
				return fmt.Errorf("failed to render configuration: %w", err)
			}
			fmt.Print(string(out))
			return nil
		},
	}
	return cmd
}
