package main

import (
	"fmt"
	"strings"

	"github.com/gnames/gn"
	"github.com/gnames/taxtag/internal/ioresolver"
	"github.com/gnames/taxtag/internal/iostore"
	"github.com/gnames/taxtag/pkg/taxon"
	"github.com/spf13/cobra"
)

func getSearchCmd() *cobra.Command {
	var (
		limit     int
		language  string
		localOnly bool
	)

	cmd := &cobra.Command{
		Use:   "search QUERY...",
		Short: "Searches taxa by scientific or common name",
		Long: `Searches the local taxonomy database by name prefix, ranked by how
often the taxon is observed. Both scientific and common names match.
When the local database has no match, the remote service is queried
instead (disable with --local).

Examples:
  taxtag search dirona
  taxtag search sea slug --limit 5`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := getConfig()
			ctx := cmd.Context()
			query := strings.Join(args, " ")
			if language == "" {
				language = cfg.DB.Language
			}

			store, err := iostore.New(cfg)
			if err != nil {
				gn.PrintErrorMessage(err)
				return err
			}
			defer store.Close()

			var found int
			for t, err := range store.SearchName(ctx, query, language, limit) {
				if err != nil {
					gn.PrintErrorMessage(err)
					return err
				}
				printTaxon(t)
				found++
			}
			if found > 0 || localOnly {
				return nil
			}

			api := ioresolver.NewClient(&cfg.API)
			taxa, err := api.SearchTaxa(ctx, query, limit)
			if err != nil {
				gn.PrintErrorMessage(err)
				return err
			}
			for _, t := range taxa {
				printTaxon(t)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", 10, "maximum number of results")
	cmd.Flags().StringVar(&language, "language", "",
		"common name language (default from config)")
	cmd.Flags().BoolVar(&localOnly, "local", false,
		"search the local database only")
	return cmd
}

func printTaxon(t *taxon.Taxon) {
	common := t.PreferredCommonName
	if common != "" {
		common = " (" + common + ")"
	}
	fmt.Printf("%9d  %-14s %-12s %s%s\n",
		t.ID, taxon.IconicName(t.IconicTaxonID), t.Rank, t.Name, common)
}
