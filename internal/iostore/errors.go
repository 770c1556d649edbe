package iostore

import (
	"fmt"

	"github.com/gnames/gn"
	"github.com/gnames/taxtag/pkg/errcode"
)

// ConnectionError is returned when the database file cannot be opened.
func ConnectionError(path string, err error) error {
	msg := `Could not open the taxonomy database

<em>Path:</em> %s

<em>How to fix:</em>
  1. Check that the directory exists and is writable
  2. Check that no other process holds an exclusive lock`

	return &gn.Error{
		Code: errcode.StoreConnectionError,
		Msg:  msg,
		Vars: []any{path},
		Err:  fmt.Errorf("cannot open taxonomy db %s: %w", path, err),
	}
}

// SchemaError is returned when schema creation or verification fails.
func SchemaError(stmt string, err error) error {
	return &gn.Error{
		Code: errcode.StoreSchemaError,
		Msg:  "Could not prepare the taxonomy database schema",
		Err:  fmt.Errorf("schema statement failed (%.40s...): %w", stmt, err),
	}
}

// SchemaVersionError is returned when an existing database was built
// with an incompatible schema version.
func SchemaVersionError(found, want string) error {
	msg := `Taxonomy database schema version mismatch

<em>Found:</em> %s
<em>Expected:</em> %s

<em>How to fix:</em> move the database file aside and run
<em>taxtag setup</em> to rebuild it from the bundled snapshot.`

	return &gn.Error{
		Code: errcode.StoreSchemaError,
		Msg:  msg,
		Vars: []any{found, want},
		Err:  fmt.Errorf("schema version %s, want %s", found, want),
	}
}

// QueryError is returned for unexpected query failures.
func QueryError(table string, err error) error {
	return &gn.Error{
		Code: errcode.StoreQueryError,
		Msg:  "Taxonomy database query failed",
		Err:  fmt.Errorf("query on %s: %w", table, err),
	}
}

// ConstraintError is returned when a taxon violates store invariants.
func ConstraintError(id int64, err error) error {
	return &gn.Error{
		Code: errcode.StoreConstraintError,
		Msg:  "Taxon record rejected by the store",
		Err:  fmt.Errorf("taxon %d: %w", id, err),
	}
}

// NotFoundError is returned when a taxon id has no local row.
func NotFoundError(id int64) error {
	return &gn.Error{
		Code: errcode.TaxonNotFoundError,
		Msg:  "Taxon %d is not in the local cache",
		Vars: []any{id},
		Err:  fmt.Errorf("taxon %d not found", id),
	}
}

// SearchError is returned when an FTS query fails.
func SearchError(q string, err error) error {
	return &gn.Error{
		Code: errcode.StoreSearchError,
		Msg:  "Name search failed",
		Err:  fmt.Errorf("fts query %q: %w", q, err),
	}
}

// BulkLoadError is returned when snapshot import fails partway. The
// import runs in a transaction, so existing cached data is intact.
func BulkLoadError(path string, err error) error {
	msg := `Could not import the taxonomy snapshot

<em>Snapshot:</em> %s

The local database was not modified.`

	return &gn.Error{
		Code: errcode.StoreBulkLoadError,
		Msg:  msg,
		Vars: []any{path},
		Err:  fmt.Errorf("bulk load %s: %w", path, err),
	}
}

// SnapshotFormatError is returned when the snapshot archive does not
// contain the expected CSV exports.
func SnapshotFormatError(path string, err error) error {
	return &gn.Error{
		Code: errcode.StoreSnapshotFormatError,
		Msg:  "Snapshot archive %s is not in the expected format (tar.gz with taxon.csv and taxon_fts.csv)",
		Vars: []any{path},
		Err:  fmt.Errorf("snapshot format %s: %w", path, err),
	}
}
