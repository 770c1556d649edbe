package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gnames/taxtag/internal/iocodec"
	"github.com/gnames/taxtag/internal/ioresolver"
	"github.com/gnames/taxtag/internal/iostore"
	"github.com/gnames/taxtag/internal/iowriter"
	"github.com/gnames/taxtag/pkg/config"
	"github.com/gnames/taxtag/pkg/taxon"
	"github.com/gnames/taxtag/pkg/taxtag"
)

// pipeline wires the tagging components together for the CLI:
// store -> resolver -> codec -> writer.
type pipeline struct {
	cfg      *config.Config
	store    taxtag.Store
	resolver taxtag.Resolver
	codec    taxtag.Codec
	writer   taxtag.Writer
	images   taxtag.MetadataReadWriter
	sidecars taxtag.MetadataReadWriter

	writeOpts taxtag.WriteOptions
}

// newPipeline assembles the tagging pipeline. When exiftool is not on
// PATH, embedded metadata is skipped and tagging degrades to XMP
// sidecars, with sidecar creation forced on so writes still land
// somewhere.
func newPipeline(cfg *config.Config) (*pipeline, error) {
	store, err := iostore.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open taxonomy store: %w", err)
	}

	createSidecar := cfg.Tagging.CreateSidecar
	images, err := iowriter.NewExiftoolReadWriter()
	if err != nil {
		slog.Warn("exiftool not found, writing XMP sidecars only")
		images = iowriter.NewNullReadWriter()
		createSidecar = true
	}

	api := ioresolver.NewClient(&cfg.API)
	return &pipeline{
		cfg:       cfg,
		store:     store,
		resolver:  ioresolver.New(store, api),
		codec:     iocodec.New(),
		writer:    iowriter.New(images, cfg.JobsNumber),
		images:    images,
		sidecars:  iowriter.NewSidecarReadWriter(),
		writeOpts: taxtag.WriteOptions{CreateSidecar: createSidecar},
	}, nil
}

func (p *pipeline) Close() error {
	return p.store.Close()
}

// tagsFor resolves the ancestor chain for an observation or a taxon
// and renders the full tag set. A partial chain (remote gap) is still
// tagged, with a warning.
func (p *pipeline) tagsFor(
	ctx context.Context,
	obsID, taxonID int64,
) (taxtag.TagSet, error) {
	var obs *taxon.Observation
	var chain []*taxon.Taxon
	var err error

	if obsID != 0 {
		obs, chain, err = p.resolver.ResolveObservation(ctx, obsID)
	} else {
		chain, err = p.resolver.ResolveAncestors(ctx, taxonID)
	}
	if err != nil {
		if len(chain) == 0 {
			return nil, err
		}
		slog.Warn("Tagging with a partial ancestor chain", "error", err)
	}

	t := p.cfg.Tagging
	tags := p.codec.ToKeywords(chain, taxtag.KeywordOptions{
		Basic:         t.Basic,
		Structured:    t.Structured,
		Hierarchical:  t.Hierarchical,
		CommonNames:   t.CommonNames,
		ObservationID: obsID,
	})
	if obs != nil {
		tags = tags.Merge(p.codec.ToDarwinCore(obs, chain))
	}
	return tags, nil
}

// reportResults prints per-file outcomes and returns an error when
// any file failed.
func reportResults(results []taxtag.FileResult) error {
	var failed int
	for _, res := range results {
		if res.Err != nil {
			failed++
			fmt.Printf("FAIL %s: %v\n", res.Path, res.Err)
			continue
		}
		fmt.Printf("ok   %s (%d tags)\n", res.Path, res.Written)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(results))
	}
	return nil
}
