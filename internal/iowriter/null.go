package iowriter

import "github.com/gnames/taxtag/pkg/taxtag"

// nullReadWriter is the embedded-metadata backend used when no real
// one is available (no exiftool on PATH). Reads see no tags and
// writes go nowhere, so tagging degrades to sidecars only.
type nullReadWriter struct{}

// NewNullReadWriter returns a MetadataReadWriter that ignores
// embedded metadata entirely.
func NewNullReadWriter() taxtag.MetadataReadWriter {
	return nullReadWriter{}
}

func (nullReadWriter) ReadTags(string) (taxtag.TagSet, error) { return nil, nil }

func (nullReadWriter) WriteTags(string, taxtag.TagSet) error { return nil }
