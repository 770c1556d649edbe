package main

import (
	"fmt"

	"github.com/gnames/gn"
	"github.com/spf13/cobra"
)

func getTagCmd() *cobra.Command {
	var (
		obsID   int64
		taxonID int64
	)

	cmd := &cobra.Command{
		Use:   "tag [flags] FILE...",
		Short: "Writes taxonomy metadata to image files",
		Long: `Resolves the full taxonomic ancestry of an observation (-o) or a
taxon (-t) and merges the resulting tags into the given images and
their XMP sidecars. Existing unrelated metadata is preserved, and
re-running the command is a no-op.

With -o, Darwin Core observation terms (location, date, observer,
license and so on) are written alongside the taxonomy keywords.

Examples:
  taxtag tag -o 45524803 photo1.jpg photo2.jpg
  taxtag tag -t 48978 photo.cr2`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (obsID == 0) == (taxonID == 0) {
				return fmt.Errorf(
					"exactly one of --observation or --taxon is required",
				)
			}
			ctx := cmd.Context()

			p, err := newPipeline(getConfig())
			if err != nil {
				gn.PrintErrorMessage(err)
				return err
			}
			defer p.Close()

			tags, err := p.tagsFor(ctx, obsID, taxonID)
			if err != nil {
				gn.PrintErrorMessage(err)
				return err
			}

			results := p.writer.WriteBatch(ctx, args, tags, p.writeOpts)
			return reportResults(results)
		},
	}

	cmd.Flags().Int64VarP(&obsID, "observation", "o", 0, "observation id")
	cmd.Flags().Int64VarP(&taxonID, "taxon", "t", 0, "taxon id")
	return cmd
}
