package main

import (
	"fmt"
	"log/slog"

	"github.com/gnames/taxtag/internal/ioconfig"
	pkgconfig "github.com/gnames/taxtag/pkg/config"
	"github.com/gnames/taxtag/pkg/logger"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	cfg     *pkgconfig.Config
)

func getRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "taxtag",
		Short: "taxtag writes taxonomy metadata to observation photos",
		Long: `taxtag resolves the full taxonomic ancestry of an observation or a
taxon and writes it into image metadata: plain keywords, structured
taxonomy:{rank}={name} keywords, hierarchical keyword trees, and
Darwin Core XMP terms. Embedded metadata goes through exiftool when
it is available; XMP sidecar files are handled natively.

Taxonomy lookups hit a local SQLite cache first ('taxtag setup'
imports a bundled snapshot into it) and fall back to the remote API
for anything missing. Fetched records are cached, so repeated tagging
of related species works offline.

Configuration precedence (highest to lowest):
  1. CLI flags
  2. Environment variables (TAXTAG_*)
  3. Config file (taxtag.yaml)
  4. Built-in defaults

Environment Variables:
  Nested fields use underscores (db.path → TAXTAG_DB_PATH).

  Examples:
    TAXTAG_DB_PATH            SQLite database location
    TAXTAG_API_BASE_URL       Remote taxonomy service
    TAXTAG_LOG_LEVEL          Log level (debug/info/warn/error)

  See 'go doc github.com/gnames/taxtag/pkg/config' for complete list.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Auto-generate config file on first run if it doesn't exist
			if cfgFile == "" {
				exists, err := ioconfig.ConfigFileExists()
				if err != nil {
					return fmt.Errorf("failed to check config file: %w", err)
				}

				if !exists {
					generatedPath, err := ioconfig.GenerateDefaultConfig()
					if err != nil {
						// Only warn, don't fail - can use defaults
						fmt.Printf("Warning: could not generate config file: %v\n", err)
					} else {
						fmt.Printf("Generated default config at: %s\n", generatedPath)
					}
				}
			}

			result, err := ioconfig.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			cfg = result

			slog.SetDefault(logger.New(&cfg.Log))
			return nil
		},
	}

	// Persistent flags available to all subcommands
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: ./taxtag.yaml or ~/.config/taxtag/taxtag.yaml)")

	// Override version flag to use -V (consistent with other gn projects)
	rootCmd.Flags().BoolP("version", "V", false, "version for taxtag")

	rootCmd.AddCommand(getSetupCmd())
	rootCmd.AddCommand(getTagCmd())
	rootCmd.AddCommand(getRefreshCmd())
	rootCmd.AddCommand(getSearchCmd())
	rootCmd.AddCommand(getConfigCmd())

	return rootCmd
}

// getConfig returns the loaded configuration (for use in subcommands)
func getConfig() *pkgconfig.Config {
	return cfg
}
