// Package iowriter implements the taxtag.Writer contract: merging
// computed tag sets into image files and XMP sidecars. The embedded
// EXIF/IPTC/XMP half goes through a pluggable
// taxtag.MetadataReadWriter; the sidecar half is handled natively
// since sidecars are plain XMP XML.
package iowriter

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gnames/taxtag/pkg/taxtag"
)

// writer implements taxtag.Writer.
type writer struct {
	images   taxtag.MetadataReadWriter
	sidecars taxtag.MetadataReadWriter
	jobs     int
}

// New creates a Writer. images handles embedded metadata of image
// files; jobs bounds batch parallelism.
func New(images taxtag.MetadataReadWriter, jobs int) taxtag.Writer {
	if jobs < 1 {
		jobs = 1
	}
	return &writer{
		images:   images,
		sidecars: NewSidecarReadWriter(),
		jobs:     jobs,
	}
}

// Write merges tags into one image and, when present or requested,
// its sidecar. Existing unrelated tags are preserved; within each
// namespace the new value replaces the old one for the same key. The
// read-merge-write of each file is scoped: the backend opens and
// closes the file per call, so handles are released on all paths.
func (w *writer) Write(
	ctx context.Context,
	imagePath string,
	tags taxtag.TagSet,
	opts taxtag.WriteOptions,
) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if !supportedFormat(imagePath) {
		return 0, UnsupportedFormatError(imagePath)
	}

	existing, err := w.images.ReadTags(imagePath)
	if err != nil {
		return 0, ReadError(imagePath, err)
	}
	merged := existing.Merge(tags).SortTaxonomy()
	if err = w.images.WriteTags(imagePath, merged); err != nil {
		return 0, WriteError(imagePath, err)
	}
	slog.Debug("Wrote tags", "path", imagePath, "tags", len(merged))

	if err = w.writeSidecar(imagePath, tags, opts); err != nil {
		return len(merged), err
	}
	return len(merged), nil
}

// writeSidecar merges tags into the image's sidecar. A missing
// sidecar is created only when opts.CreateSidecar asks for it;
// otherwise its absence is silently accepted.
func (w *writer) writeSidecar(
	imagePath string,
	tags taxtag.TagSet,
	opts taxtag.WriteOptions,
) error {
	path := SidecarPath(imagePath)
	exists := fileExists(path)
	if !exists && !opts.CreateSidecar {
		return nil
	}

	var existing taxtag.TagSet
	if exists {
		var err error
		existing, err = w.sidecars.ReadTags(path)
		if err != nil {
			return SidecarError(path, err)
		}
	}

	merged := existing.Merge(tags).SortTaxonomy()
	if err := w.sidecars.WriteTags(path, merged); err != nil {
		return SidecarError(path, err)
	}
	slog.Debug("Wrote sidecar", "path", path, "tags", len(merged))
	return nil
}

// SidecarPath returns the sidecar location for an image. The default
// is <base>.xmp; the alternate <base>.<ext>.xmp form is used only
// when such a file already exists.
func SidecarPath(imagePath string) string {
	if strings.EqualFold(filepath.Ext(imagePath), ".xmp") {
		return imagePath
	}
	alt := imagePath + ".xmp"
	if fileExists(alt) {
		return alt
	}
	ext := filepath.Ext(imagePath)
	return strings.TrimSuffix(imagePath, ext) + ".xmp"
}

// supportedExts are the image (and sidecar) formats accepted for
// tagging. Anything else fails fast with UnsupportedFormatError
// instead of producing a confusing backend error.
var supportedExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".tif": true,
	".tiff": true, ".dng": true, ".heic": true, ".webp": true,
	".cr2": true, ".cr3": true, ".nef": true, ".arw": true,
	".orf": true, ".raf": true, ".rw2": true, ".xmp": true,
}

func supportedFormat(path string) bool {
	return supportedExts[strings.ToLower(filepath.Ext(path))]
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
