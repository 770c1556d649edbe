// Package taxtag defines the contracts between the taxtag core
// components. Implementations live in internal/io* packages; this
// package has no I/O dependencies.
//
// The core pipeline is:
//
//	Resolver -> []*taxon.Taxon (ancestor chain) + *taxon.Observation
//	Codec    -> TagSet
//	Writer   -> image files and XMP sidecars
//
// backed by a Store that keeps a local SQLite taxonomy cache and an
// APIClient that fills gaps from the remote service.
package taxtag

import (
	"context"
	"iter"

	"github.com/gnames/taxtag/pkg/taxon"
)

// Store is the local persistent taxonomy cache: a single SQLite file
// with a taxon table and an FTS5-indexed name table. All writes are
// serialized internally; concurrent reads are safe.
type Store interface {
	// GetTaxon returns the taxon with the given id, or an error with
	// code NotFoundError when the id is not cached locally.
	GetTaxon(ctx context.Context, id int64) (*taxon.Taxon, error)

	// UpsertTaxon inserts a taxon or merges it field-wise into an
	// existing row (see taxon.Merge). Constraint violations surface
	// as StorageError.
	UpsertTaxon(ctx context.Context, t *taxon.Taxon) error

	// SearchName performs a name-prefix search over the FTS index,
	// ranked by popularity and then lexical closeness. The returned
	// sequence is lazy, finite, and restartable: each range over it
	// re-runs the query.
	SearchName(ctx context.Context, q, language string, limit int) iter.Seq2[*taxon.Taxon, error]

	// BulkLoad imports a bundled snapshot (tar.gz with taxon.csv and
	// taxon_fts.csv) into the store. Idempotent: re-running with a
	// snapshot whose schema version is already loaded is a no-op.
	BulkLoad(ctx context.Context, snapshotPath string) error

	// Close releases the underlying database handle.
	Close() error
}

// APIClient is the remote taxonomy service boundary. All methods are
// opaque fallible network calls; implementations retry transient
// failures a bounded, configurable number of times before giving up
// with RemoteError.
type APIClient interface {
	// TaxonByID fetches a taxon record. The remote service embeds the
	// full ancestor list in the response, so the second return value
	// carries any ancestors that came along.
	TaxonByID(ctx context.Context, id int64) (*taxon.Taxon, []*taxon.Taxon, error)

	// ObservationByID fetches an observation record.
	ObservationByID(ctx context.Context, id int64) (*taxon.Observation, error)

	// SearchTaxa performs a remote name autocomplete query.
	SearchTaxa(ctx context.Context, q string, limit int) ([]*taxon.Taxon, error)
}

// Resolver builds complete ancestor chains, consulting the Store
// first and fetching gaps from the APIClient.
type Resolver interface {
	// ResolveAncestors returns the chain root..self for a taxon id.
	// When an ancestor fetch fails but the requested taxon itself is
	// available, the partial chain is returned together with a
	// RemoteError so callers can degrade to best-effort tagging.
	ResolveAncestors(ctx context.Context, taxonID int64) ([]*taxon.Taxon, error)

	// ResolveObservation fetches an observation and resolves the
	// ancestor chain of its identified taxon. Fails with
	// NotFoundError when the observation or its taxon no longer
	// exists remotely.
	ResolveObservation(ctx context.Context, obsID int64) (*taxon.Observation, []*taxon.Taxon, error)
}

// KeywordOptions selects which keyword namespaces the Codec emits.
type KeywordOptions struct {
	Basic        bool
	Structured   bool
	Hierarchical bool
	CommonNames  bool

	// ObservationID, when non-zero, adds observation identity
	// keywords alongside the taxon identity keywords.
	ObservationID int64
}

// Codec converts between ancestor chains / observations and embedded
// tag vocabularies.
type Codec interface {
	// ToKeywords renders an ancestor chain as keyword tags in the
	// namespaces selected by opts.
	ToKeywords(chain []*taxon.Taxon, opts KeywordOptions) TagSet

	// ToDarwinCore renders an observation plus its taxonomy as
	// dwc-namespaced tags. Absent observation fields are omitted.
	ToDarwinCore(obs *taxon.Observation, chain []*taxon.Taxon) TagSet

	// FromExistingTags scans previously written tags and recovers
	// whatever identity fragment it can find. Malformed tags are
	// skipped. The result is Empty when no recognizable taxonomy
	// tag exists at all.
	FromExistingTags(tags TagSet) IdentityRef
}

// IdentityRef is a partial identity recovered from existing tags.
// Zero fields mean "not found".
type IdentityRef struct {
	TaxonID       int64
	ObservationID int64
	MinRank       taxon.Rank
	MinRankName   string
}

// Empty reports whether nothing recognizable was recovered.
func (r IdentityRef) Empty() bool {
	return r.TaxonID == 0 && r.ObservationID == 0 && r.MinRankName == ""
}

// WriteOptions controls Tag Writer behavior.
type WriteOptions struct {
	// CreateSidecar creates a new .xmp sidecar when none exists.
	// Without it, an absent sidecar is silently accepted.
	CreateSidecar bool
}

// FileResult reports the outcome of writing one file in a batch.
type FileResult struct {
	Path    string
	Written int
	Err     error
}

// Writer merges computed tag sets into image files and sidecars.
type Writer interface {
	// Write merges tags into one image (and its sidecar, when present
	// or requested). Within each namespace tags are deduplicated by
	// key; unrelated existing tags are preserved.
	Write(ctx context.Context, imagePath string, tags TagSet, opts WriteOptions) (int, error)

	// WriteBatch tags many files, possibly in parallel. Per-file
	// failures are reported in the results and never abort the rest
	// of the batch. Cancellation is honored between files.
	WriteBatch(ctx context.Context, imagePaths []string, tags TagSet, opts WriteOptions) []FileResult
}

// MetadataReadWriter is the embedded-metadata I/O collaborator: it
// reads and writes the combined EXIF/IPTC/XMP tag set of a file.
// taxtag ships an XMP sidecar implementation and an exiftool-backed
// one; a GUI embedding taxtag may supply its own.
type MetadataReadWriter interface {
	ReadTags(path string) (TagSet, error)
	WriteTags(path string, tags TagSet) error
}
