package iostore

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/gnames/taxtag/pkg/taxon"
)

const taxonCols = `id, name, rank, preferred_common_name, parent_id,
	ancestor_ids, child_ids, iconic_taxon_id, observations_count,
	leaf_taxa_count, partial`

// GetTaxon returns the locally cached taxon for an id.
func (s *store) GetTaxon(
	ctx context.Context,
	id int64,
) (*taxon.Taxon, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+taxonCols+` FROM taxon WHERE id = ?`, id)
	t, err := scanTaxon(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NotFoundError(id)
	}
	if err != nil {
		return nil, QueryError("taxon", err)
	}
	return t, nil
}

// UpsertTaxon inserts or field-wise merges a taxon row. The merge
// policy lives in taxon.Merge; this method only handles persistence.
func (s *store) UpsertTaxon(ctx context.Context, t *taxon.Taxon) error {
	if t == nil {
		return ConstraintError(0, errors.New("nil taxon"))
	}
	if err := t.Validate(); err != nil {
		return ConstraintError(t.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return QueryError("taxon", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT `+taxonCols+` FROM taxon WHERE id = ?`, t.ID)
	existing, err := scanTaxon(row)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		existing = nil
	case err != nil:
		return QueryError("taxon", err)
	}

	merged := taxon.Merge(existing, t)
	if err = writeTaxon(ctx, tx, merged); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return QueryError("taxon", err)
	}
	return nil
}

func writeTaxon(ctx context.Context, tx *sql.Tx, t *taxon.Taxon) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO taxon (`+taxonCols+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			rank = excluded.rank,
			preferred_common_name = excluded.preferred_common_name,
			parent_id = excluded.parent_id,
			ancestor_ids = excluded.ancestor_ids,
			child_ids = excluded.child_ids,
			iconic_taxon_id = excluded.iconic_taxon_id,
			observations_count = excluded.observations_count,
			leaf_taxa_count = excluded.leaf_taxa_count,
			partial = excluded.partial`,
		t.ID, t.Name, t.Rank.String(), t.PreferredCommonName,
		nullableID(t.ParentID), joinIDs(t.AncestorIDs),
		joinIDs(t.ChildIDs), t.IconicTaxonID,
		nullableID(t.ObservationCount), nullableID(t.LeafCount),
		boolToInt(t.Partial))
	if err != nil {
		return ConstraintError(t.ID, err)
	}
	return nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTaxon(row rowScanner) (*taxon.Taxon, error) {
	var (
		t          taxon.Taxon
		rank       string
		parentID   sql.NullInt64
		obsCount   sql.NullInt64
		leafCount  sql.NullInt64
		ancestors  string
		children   string
		partialInt int
	)
	err := row.Scan(&t.ID, &t.Name, &rank, &t.PreferredCommonName,
		&parentID, &ancestors, &children, &t.IconicTaxonID,
		&obsCount, &leafCount, &partialInt)
	if err != nil {
		return nil, err
	}

	t.Rank, err = taxon.ParseRank(rank)
	if err != nil {
		return nil, err
	}
	if parentID.Valid {
		t.ParentID = &parentID.Int64
	}
	if obsCount.Valid {
		t.ObservationCount = &obsCount.Int64
	}
	if leafCount.Valid {
		t.LeafCount = &leafCount.Int64
	}
	t.AncestorIDs = splitIDs(ancestors)
	t.ChildIDs = splitIDs(children)
	t.Partial = partialInt != 0
	return &t, nil
}

// Ancestor and child id lists are stored denormalized as
// comma-joined text, matching the remote API representation.

func joinIDs(ids []int64) string {
	if len(ids) == 0 {
		return ""
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

func splitIDs(s string) []int64 {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	res := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			continue
		}
		res = append(res, id)
	}
	return res
}

func nullableID(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
