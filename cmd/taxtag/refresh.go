package main

import (
	"context"
	"log/slog"

	"github.com/gnames/gn"
	"github.com/gnames/taxtag/internal/iowriter"
	"github.com/gnames/taxtag/pkg/taxtag"
	"github.com/spf13/cobra"
)

func getRefreshCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refresh FILE...",
		Short: "Re-resolves and rewrites tags of already-tagged images",
		Long: `Recovers the observation or taxon identity from tags written by a
previous run, re-resolves the taxonomy (picking up renames, rank
changes and updated common names), and rewrites the tags.

Files without a recognizable taxonomy tag are skipped.

Examples:
  taxtag refresh photos/*.jpg`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			p, err := newPipeline(getConfig())
			if err != nil {
				gn.PrintErrorMessage(err)
				return err
			}
			defer p.Close()

			results := make([]taxtag.FileResult, 0, len(args))
			for _, path := range args {
				res := taxtag.FileResult{Path: path}
				res.Written, res.Err = refreshFile(ctx, p, path)
				if res.Err == nil && res.Written == 0 {
					slog.Debug("No taxonomy tags, skipping", "path", path)
					continue
				}
				results = append(results, res)
			}
			return reportResults(results)
		},
	}
	return cmd
}

// refreshFile re-tags one image from its own embedded or sidecar
// tags. Returns 0 written tags when no identity was recoverable.
func refreshFile(
	ctx context.Context,
	p *pipeline,
	path string,
) (int, error) {
	existing, err := p.images.ReadTags(path)
	if err != nil {
		return 0, err
	}
	if sidecar := iowriter.SidecarPath(path); sidecar != path {
		tags, err := p.sidecars.ReadTags(sidecar)
		if err != nil {
			return 0, err
		}
		existing = existing.Merge(tags)
	}

	ref := p.codec.FromExistingTags(existing)
	if ref.TaxonID == 0 && ref.ObservationID == 0 {
		return 0, nil
	}

	tags, err := p.tagsFor(ctx, ref.ObservationID, ref.TaxonID)
	if err != nil {
		return 0, err
	}
	return p.writer.Write(ctx, path, tags, p.writeOpts)
}
