package iostore

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/dustin/go-humanize"
	"github.com/gnames/gnfmt"
	"github.com/gnames/gnlib"
	"github.com/gnames/gnparser"
	"github.com/gnames/taxtag/pkg/taxon"
)

// Snapshot archive members. The bundled snapshot is a tar.gz holding
// two CSV exports in the same shape as the live tables.
const (
	taxonCSV = "taxon.csv"
	ftsCSV   = "taxon_fts.csv"
)

// maxBatchRows keeps the widest multi-row insert (10 parameters per
// taxon row) under SQLite's bound-parameter limit of 32766.
const maxBatchRows = 3_000

// BulkLoad imports the bundled taxonomy snapshot. The import is
// idempotent: when the meta table already records this snapshot under
// the current schema version, the call is a no-op. All rows are
// written inside one transaction, so a failed import leaves existing
// cached data untouched.
func (s *store) BulkLoad(ctx context.Context, snapshotPath string) error {
	info, err := os.Stat(snapshotPath)
	if err != nil {
		return BulkLoadError(snapshotPath, err)
	}

	stamp := fmt.Sprintf("%s:%d", filepath.Base(snapshotPath), info.Size())
	loaded, err := s.metaValue("snapshot")
	if err != nil {
		return err
	}
	if loaded == stamp {
		slog.Info("Snapshot already imported, skipping",
			"snapshot", snapshotPath)
		return nil
	}

	start := time.Now()
	slog.Info("Importing taxonomy snapshot", "snapshot", snapshotPath)

	f, err := os.Open(snapshotPath)
	if err != nil {
		return BulkLoadError(snapshotPath, err)
	}
	defer f.Close()

	bar := newProgressBar(info.Size(), "Importing snapshot")
	defer bar.Finish()

	gz, err := gzip.NewReader(bar.NewProxyReader(f))
	if err != nil {
		return SnapshotFormatError(snapshotPath, err)
	}
	defer gz.Close()

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return BulkLoadError(snapshotPath, err)
	}
	defer tx.Rollback()

	// Snapshot data replaces prior snapshot data wholesale; the FTS
	// index is derived, so it is rebuilt rather than merged.
	if _, err = tx.ExecContext(ctx, `DELETE FROM taxon_fts`); err != nil {
		return BulkLoadError(snapshotPath, err)
	}

	var taxonRows, ftsRows int
	var seen []string
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return SnapshotFormatError(snapshotPath, err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}

		switch filepath.Base(hdr.Name) {
		case taxonCSV:
			taxonRows, err = s.loadTaxa(ctx, tx, tr)
		case ftsCSV:
			ftsRows, err = s.loadFTS(ctx, tx, tr)
		default:
			continue
		}
		if err != nil {
			return BulkLoadError(snapshotPath, err)
		}
		seen = append(seen, filepath.Base(hdr.Name))
	}

	if len(seen) < 2 {
		return SnapshotFormatError(snapshotPath,
			fmt.Errorf("archive members found: %v", seen))
	}

	if err = setMetaValueTx(ctx, tx, "snapshot", stamp); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return BulkLoadError(snapshotPath, err)
	}

	slog.Info("Snapshot import complete",
		"taxa", humanize.Comma(int64(taxonRows)),
		"fts_rows", humanize.Comma(int64(ftsRows)),
		"duration", gnfmt.TimeString(time.Since(start).Seconds()),
	)
	return nil
}

// loadTaxa streams taxon.csv rows into the taxon table with multi-row
// inserts flushed every cfg.DB.BatchSize rows. Snapshot rows are
// marked partial: photo URLs and some statistics need a remote
// refresh before they are complete.
func (s *store) loadTaxa(
	ctx context.Context,
	tx *sql.Tx,
	r io.Reader,
) (int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 10
	cr.ReuseRecord = true

	// header
	if _, err := cr.Read(); err != nil {
		return 0, fmt.Errorf("read %s header: %w", taxonCSV, err)
	}

	const rowParams = 10
	batch := s.batchSize()
	args := make([]any, 0, batch*rowParams)

	flush := func() error {
		q := `INSERT INTO taxon (` + taxonCols + `) VALUES ` +
			valuesClause(len(args)/rowParams,
				"(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)") +
			` ON CONFLICT (id) DO NOTHING`
		_, err := tx.ExecContext(ctx, q, args...)
		args = args[:0]
		return err
	}

	var n int
	for {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return n, fmt.Errorf("read %s row %d: %w", taxonCSV, n+2, err)
		}

		t, err := taxonFromCSV(rec)
		if err != nil {
			// Malformed snapshot rows are logged and skipped; they
			// never abort the import.
			slog.Warn("Skipping malformed taxon row",
				"row", n+2, "error", err)
			continue
		}

		args = append(args,
			t.ID, t.Name, t.Rank.String(), t.PreferredCommonName,
			nullableID(t.ParentID), joinIDs(t.AncestorIDs),
			joinIDs(t.ChildIDs), t.IconicTaxonID,
			nullableID(t.ObservationCount), nullableID(t.LeafCount))
		n++
		if len(args) == batch*rowParams {
			if err = flush(); err != nil {
				return n, err
			}
		}
	}
	if len(args) > 0 {
		if err := flush(); err != nil {
			return n, err
		}
	}
	return n, nil
}

// loadFTS streams taxon_fts.csv rows into the FTS5 index, flushed in
// the same batches as loadTaxa. Scientific names (empty language
// code) are normalized to their canonical form with gnparser so that
// author strings and annotations do not pollute prefix matching.
func (s *store) loadFTS(
	ctx context.Context,
	tx *sql.Tx,
	r io.Reader,
) (int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 5
	cr.ReuseRecord = true

	if _, err := cr.Read(); err != nil {
		return 0, fmt.Errorf("read %s header: %w", ftsCSV, err)
	}

	const rowParams = 5
	batch := s.batchSize()
	args := make([]any, 0, batch*rowParams)

	flush := func() error {
		q := `INSERT INTO taxon_fts
			(name, taxon_id, taxon_rank, count_rank, language_code)
		 VALUES ` + valuesClause(len(args)/rowParams, "(?, ?, ?, ?, ?)")
		_, err := tx.ExecContext(ctx, q, args...)
		args = args[:0]
		return err
	}

	gnp := gnparser.New(gnparser.NewConfig())

	var n int
	for {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return n, fmt.Errorf("read %s row %d: %w", ftsCSV, n+2, err)
		}

		name, lang := rec[0], rec[4]
		if lang == "" {
			name = canonicalName(gnp, name)
		} else {
			// Vernacular names in community exports sometimes carry
			// broken UTF-8 sequences.
			name = gnlib.FixUtf8(name)
		}

		args = append(args, name, rec[1], rec[2], rec[3], lang)
		n++
		if len(args) == batch*rowParams {
			if err = flush(); err != nil {
				return n, err
			}
		}
	}
	if len(args) > 0 {
		if err := flush(); err != nil {
			return n, err
		}
	}
	return n, nil
}

// batchSize clamps the configured bulk-load batch: at least one row,
// and few enough rows per statement to respect maxBatchRows.
func (s *store) batchSize() int {
	b := s.cfg.DB.BatchSize
	if b < 1 {
		b = 1
	}
	if b > maxBatchRows {
		b = maxBatchRows
	}
	return b
}

// valuesClause repeats one parameter tuple for a multi-row insert.
func valuesClause(rows int, tuple string) string {
	tuples := make([]string, rows)
	for i := range tuples {
		tuples[i] = tuple
	}
	return strings.Join(tuples, ", ")
}

// canonicalName returns the canonical simple form of a scientific
// name, or the input unchanged when parsing fails.
func canonicalName(gnp gnparser.GNparser, name string) string {
	parsed := gnp.ParseName(name)
	if !parsed.Parsed || parsed.Canonical == nil {
		return name
	}
	return parsed.Canonical.Simple
}

func taxonFromCSV(rec []string) (*taxon.Taxon, error) {
	// id,name,rank,preferred_common_name,parent_id,ancestor_ids,
	// child_ids,iconic_taxon_id,observations_count,leaf_taxa_count
	id, err := strconv.ParseInt(rec[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bad id %q", rec[0])
	}
	rank, err := taxon.ParseRank(rec[2])
	if err != nil {
		return nil, err
	}

	t := &taxon.Taxon{
		ID:                  id,
		Name:                strings.TrimSpace(rec[1]),
		Rank:                rank,
		PreferredCommonName: gnlib.FixUtf8(strings.TrimSpace(rec[3])),
		AncestorIDs:         splitIDs(rec[5]),
		ChildIDs:            splitIDs(rec[6]),
		Partial:             true,
	}
	if rec[4] != "" {
		pid, err := strconv.ParseInt(rec[4], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad parent_id %q", rec[4])
		}
		t.ParentID = &pid
	}
	if rec[7] != "" {
		t.IconicTaxonID, _ = strconv.ParseInt(rec[7], 10, 64)
	}
	if rec[8] != "" {
		if v, err := strconv.ParseInt(rec[8], 10, 64); err == nil {
			t.ObservationCount = &v
		}
	}
	if rec[9] != "" {
		if v, err := strconv.ParseInt(rec[9], 10, 64); err == nil {
			t.LeafCount = &v
		}
	}
	if err = t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func setMetaValueTx(
	ctx context.Context,
	tx *sql.Tx,
	key, value string,
) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO meta (key, value) VALUES (?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		key, value)
	if err != nil {
		return QueryError("meta", err)
	}
	return nil
}

// newProgressBar creates a progress bar with consistent settings.
func newProgressBar(total int64, prefix string) *pb.ProgressBar {
	bar := pb.Full.Start64(total)
	bar.Set("prefix", prefix+" ")
	bar.Set(pb.Bytes, true)
	bar.Set(pb.CleanOnFinish, true)
	return bar
}
