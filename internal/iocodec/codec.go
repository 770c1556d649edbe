// Package iocodec implements the bidirectional mapping between
// taxon/observation object graphs and the embedded tag vocabularies:
// plain keywords, structured keywords (taxonomy:{rank}={name}),
// hierarchical keywords (pipe-delimited ancestor paths), and Darwin
// Core XMP properties.
//
// Despite the io prefix the codec itself is pure; the prefix keeps
// the implementation-package convention uniform.
package iocodec

import (
	"github.com/gnames/taxtag/pkg/taxtag"
)

type codec struct{}

// New creates the Codec.
func New() taxtag.Codec {
	return codec{}
}
