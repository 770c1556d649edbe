package main

import (
	"fmt"
	"log/slog"

	"github.com/gnames/gn"
	"github.com/gnames/taxtag/internal/iostore"
	"github.com/spf13/cobra"
)

func getSetupCmd() *cobra.Command {
	var snapshotPath string

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Imports a taxonomy snapshot into the local database",
		Long: `Imports a bundled taxonomy snapshot (tar.gz with taxon.csv and
taxon_fts.csv) into the local SQLite database, creating the database
if needed.

The import is idempotent: re-running with a snapshot that was already
loaded is a no-op, so 'taxtag setup' is safe to call on every start.

Examples:
  taxtag setup --snapshot taxonomy.tar.gz
  taxtag setup   (uses db.snapshot_path from the config file)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := getConfig()
			ctx := cmd.Context()

			path := snapshotPath
			if path == "" {
				path = cfg.DB.SnapshotPath
			}
			if path == "" {
				return fmt.Errorf(
					"no snapshot given: use --snapshot or set db.snapshot_path",
				)
			}

			store, err := iostore.New(cfg)
			if err != nil {
				gn.PrintErrorMessage(err)
				return err
			}
			defer store.Close()

			slog.Info("Starting snapshot import", "snapshot", path)
			if err = store.BulkLoad(ctx, path); err != nil {
				gn.PrintErrorMessage(err)
				return err
			}

			gn.Message(`
<em>✓ Taxonomy database is ready.</em>
Searches and tagging of cached taxa now work offline. Re-run
<em>taxtag setup</em> anytime after a snapshot update.
`)
			return nil
		},
	}

	cmd.Flags().StringVarP(&snapshotPath, "snapshot", "s", "",
		"taxonomy snapshot file (tar.gz)")
	return cmd
}
