package iostore

import (
	"database/sql"
	"errors"

	"github.com/gnames/taxtag/pkg/config"
)

// ddl creates the taxon table, the FTS5 name index, and the meta
// table used for schema/snapshot versioning. Statements are
// idempotent so opening an existing database is a no-op.
var ddl = []string{
	`CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS taxon (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		rank TEXT NOT NULL,
		preferred_common_name TEXT NOT NULL DEFAULT '',
		parent_id INTEGER,
		ancestor_ids TEXT NOT NULL DEFAULT '',
		child_ids TEXT NOT NULL DEFAULT '',
		iconic_taxon_id INTEGER NOT NULL DEFAULT 0,
		observations_count INTEGER,
		leaf_taxa_count INTEGER,
		partial INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_taxon_parent ON taxon (parent_id)`,
	`CREATE VIRTUAL TABLE IF NOT EXISTS taxon_fts USING fts5 (
		name,
		taxon_id UNINDEXED,
		taxon_rank UNINDEXED,
		count_rank UNINDEXED,
		language_code UNINDEXED
	)`,
}

func (s *store) ensureSchema() error {
	for _, stmt := range ddl {
		if _, err := s.db.Exec(stmt); err != nil {
			return SchemaError(stmt, err)
		}
	}

	// Record the schema version on first creation only; a version
	// mismatch on an existing file is surfaced, not silently fixed,
	// so cached data is never lost to an automatic migration.
	var v string
	err := s.db.QueryRow(
		`SELECT value FROM meta WHERE key = 'schema_version'`).Scan(&v)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = s.db.Exec(
			`INSERT INTO meta (key, value) VALUES ('schema_version', ?)`,
			config.SchemaVersion)
		if err != nil {
			return SchemaError("record schema version", err)
		}
	case err != nil:
		return SchemaError("read schema version", err)
	case v != config.SchemaVersion:
		return SchemaVersionError(v, config.SchemaVersion)
	}
	return nil
}

// metaValue reads one key from the meta table; missing keys return "".
func (s *store) metaValue(key string) (string, error) {
	var v string
	err := s.db.QueryRow(
		`SELECT value FROM meta WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", QueryError("meta", err)
	}
	return v, nil
}
