package iowriter

import (
	"context"
	"log/slog"

	"github.com/gnames/taxtag/pkg/taxtag"
	"golang.org/x/sync/errgroup"
)

// WriteBatch tags many files with a bounded worker pool. Each file is
// independent: a failure is captured in its FileResult and never
// aborts the rest of the batch. Cancellation is cooperative and takes
// effect between files, never mid-write of a single file.
func (w *writer) WriteBatch(
	ctx context.Context,
	imagePaths []string,
	tags taxtag.TagSet,
	opts taxtag.WriteOptions,
) []taxtag.FileResult {
	results := make([]taxtag.FileResult, len(imagePaths))

	g := new(errgroup.Group)
	g.SetLimit(w.jobs)

	for i, path := range imagePaths {
		// Stop handing out work once the run is cancelled; files
		// already in flight finish their write.
		if err := ctx.Err(); err != nil {
			for j := i; j < len(imagePaths); j++ {
				results[j] = taxtag.FileResult{
					Path: imagePaths[j],
					Err:  err,
				}
			}
			break
		}

		g.Go(func() error {
			n, err := w.Write(context.WithoutCancel(ctx), path, tags, opts)
			if err != nil {
				slog.Warn("Tagging failed", "path", path, "error", err)
			}
			results[i] = taxtag.FileResult{Path: path, Written: n, Err: err}
			return nil
		})
	}

	g.Wait()
	return results
}
