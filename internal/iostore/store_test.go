package iostore_test

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/gnames/taxtag/internal/iostore"
	"github.com/gnames/taxtag/pkg/config"
	"github.com/gnames/taxtag/pkg/errcode"
	"github.com/gnames/taxtag/pkg/taxon"
	"github.com/gnames/taxtag/pkg/taxtag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v int64) *int64 { return &v }

func newTestStore(t *testing.T) taxtag.Store {
	t.Helper()
	cfg := config.New()
	cfg.Update([]config.Option{
		config.OptDBPath(filepath.Join(t.TempDir(), "taxtag.db")),
	})
	s, err := iostore.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGetTaxonNotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.GetTaxon(ctx, 48978)
	require.Error(t, err)
	assert.Equal(t, errcode.TaxonNotFoundError, errcode.Code(err))
	assert.True(t, errcode.IsNotFound(err))
}

func TestUpsertRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	in := &taxon.Taxon{
		ID:                  48978,
		Name:                "Dirona picta",
		Rank:                taxon.Species,
		PreferredCommonName: "Painted Dirona",
		ParentID:            ptr(51279),
		AncestorIDs:         []int64{48460, 1, 47115, 47114, 51279},
		IconicTaxonID:       47115,
		ObservationCount:    ptr(1234),
	}
	require.NoError(t, s.UpsertTaxon(ctx, in))

	got, err := s.GetTaxon(ctx, 48978)
	require.NoError(t, err)
	assert.Equal(t, in.Name, got.Name)
	assert.Equal(t, taxon.Species, got.Rank)
	assert.Equal(t, in.AncestorIDs, got.AncestorIDs)
	require.NotNil(t, got.ParentID)
	assert.Equal(t, int64(51279), *got.ParentID)
	require.NotNil(t, got.ObservationCount)
	assert.Equal(t, int64(1234), *got.ObservationCount)
	assert.Nil(t, got.LeafCount)
}

func TestUpsertRejectsInvalid(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.UpsertTaxon(ctx, &taxon.Taxon{ID: 0, Name: "x", Rank: taxon.Genus})
	require.Error(t, err)
	assert.Equal(t, errcode.StoreConstraintError, errcode.Code(err))
}

// A second upsert for the same id must merge field-wise, never
// clobber cached statistics with nulls.
func TestUpsertMerges(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertTaxon(ctx, &taxon.Taxon{
		ID:               47115,
		Name:             "Mollusca",
		Rank:             taxon.Phylum,
		ObservationCount: ptr(1000),
		LeafCount:        ptr(50),
		Partial:          true,
	}))
	require.NoError(t, s.UpsertTaxon(ctx, &taxon.Taxon{
		ID:                  47115,
		Name:                "Mollusca",
		Rank:                taxon.Phylum,
		PreferredCommonName: "Molluscs",
		ObservationCount:    ptr(2000),
	}))

	got, err := s.GetTaxon(ctx, 47115)
	require.NoError(t, err)
	assert.Equal(t, "Molluscs", got.PreferredCommonName)
	assert.False(t, got.Partial)
	require.NotNil(t, got.ObservationCount)
	assert.Equal(t, int64(2000), *got.ObservationCount)
	require.NotNil(t, got.LeafCount)
	assert.Equal(t, int64(50), *got.LeafCount, "nil incoming stat keeps local value")
}

// writeSnapshot builds a tar.gz snapshot archive in the same shape as
// the bundled taxonomy export.
func writeSnapshot(t *testing.T, taxonRows, ftsRows []string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "snapshot.tar.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)

	files := []struct {
		name   string
		header string
		rows   []string
	}{
		{
			name:   "taxon.csv",
			header: "id,name,rank,preferred_common_name,parent_id,ancestor_ids,child_ids,iconic_taxon_id,observations_count,leaf_taxa_count",
			rows:   taxonRows,
		},
		{
			name:   "taxon_fts.csv",
			header: "name,taxon_id,taxon_rank,count_rank,language_code",
			rows:   ftsRows,
		},
	}
	for _, file := range files {
		body := file.header + "\n"
		for _, r := range file.rows {
			body += r + "\n"
		}
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name: file.name,
			Mode: 0644,
			Size: int64(len(body)),
		}))
		_, err = tw.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return path
}

func defaultSnapshot(t *testing.T) string {
	t.Helper()
	return writeSnapshot(t,
		[]string{
			`1,Animalia,kingdom,Animals,,,"47115,2",1,5000000,800000`,
			`47115,Mollusca,phylum,Molluscs,1,1,,47115,400000,50000`,
			`51280,Dirona,genus,,47115,"1,47115",,47115,3000,4`,
			`48978,Dirona picta,species,Painted Dirona,51280,"1,47115,51280",,47115,2000,`,
		},
		[]string{
			`Animalia,1,kingdom,1000,`,
			`Mollusca,47115,phylum,800,`,
			`Molluscs,47115,phylum,800,english`,
			`Dirona,51280,genus,300,`,
			`Dirona picta,48978,species,200,`,
			`Painted Dirona,48978,species,200,english`,
		},
	)
}

func TestBulkLoad(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	snapshot := defaultSnapshot(t)

	require.NoError(t, s.BulkLoad(ctx, snapshot))

	t.Run("taxa are queryable offline", func(t *testing.T) {
		got, err := s.GetTaxon(ctx, 48978)
		require.NoError(t, err)
		assert.Equal(t, "Dirona picta", got.Name)
		assert.Equal(t, []int64{1, 47115, 51280}, got.AncestorIDs)
		assert.True(t, got.Partial, "snapshot rows are marked partial")
		require.NotNil(t, got.ObservationCount)
		assert.Equal(t, int64(2000), *got.ObservationCount)
		assert.Nil(t, got.LeafCount, "empty csv field stays null")
	})

	t.Run("reload of the same snapshot is a no-op", func(t *testing.T) {
		// Make a change the reload would revert if it actually ran.
		require.NoError(t, s.UpsertTaxon(ctx, &taxon.Taxon{
			ID: 51280, Name: "Dirona", Rank: taxon.Genus,
			PreferredCommonName: "dironas",
		}))
		require.NoError(t, s.BulkLoad(ctx, snapshot))

		got, err := s.GetTaxon(ctx, 51280)
		require.NoError(t, err)
		assert.Equal(t, "dironas", got.PreferredCommonName)
	})
}

// A batch size smaller than the snapshot exercises both the full
// flushes and the tail flush; nothing may be dropped either way.
func TestBulkLoadBatching(t *testing.T) {
	cfg := config.New()
	cfg.Update([]config.Option{
		config.OptDBPath(filepath.Join(t.TempDir(), "taxtag.db")),
		config.OptBatchSize(3),
	})
	s, err := iostore.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	require.NoError(t, s.BulkLoad(ctx, defaultSnapshot(t)))

	for _, id := range []int64{1, 47115, 51280, 48978} {
		_, err = s.GetTaxon(ctx, id)
		assert.NoError(t, err, "taxon %d", id)
	}

	var found int
	for _, err := range s.SearchName(ctx, "dirona", "english", 10) {
		require.NoError(t, err)
		found++
	}
	assert.Equal(t, 2, found, "all FTS rows survive batched inserts")
}

func TestBulkLoadSkipsMalformedRows(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	snapshot := writeSnapshot(t,
		[]string{
			`1,Animalia,kingdom,Animals,,,,1,,`,
			`oops,No Id,species,,,,,,,`,
			`3,,species,,,,,,,`,
			`47115,Mollusca,phylum,Molluscs,1,1,,47115,,`,
		},
		[]string{`Animalia,1,kingdom,1000,`},
	)
	require.NoError(t, s.BulkLoad(ctx, snapshot))

	_, err := s.GetTaxon(ctx, 47115)
	assert.NoError(t, err, "rows after a malformed one still load")
	_, err = s.GetTaxon(ctx, 3)
	assert.True(t, errcode.IsNotFound(err))
}

func TestBulkLoadRejectsIncompleteArchive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Archive without taxon_fts.csv.
	path := filepath.Join(t.TempDir(), "bad.tar.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)
	body := "id,name,rank,preferred_common_name,parent_id,ancestor_ids,child_ids,iconic_taxon_id,observations_count,leaf_taxa_count\n"
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name: "taxon.csv", Mode: 0644, Size: int64(len(body)),
	}))
	_, err = tw.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	err = s.BulkLoad(ctx, path)
	require.Error(t, err)
	assert.Equal(t, errcode.StoreSnapshotFormatError, errcode.Code(err))

	_, err = s.GetTaxon(ctx, 1)
	assert.True(t, errcode.IsNotFound(err),
		"failed import leaves no partial data behind")
}

func TestSearchName(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.BulkLoad(ctx, defaultSnapshot(t)))

	collect := func(q string, limit int) []int64 {
		var ids []int64
		for tx, err := range s.SearchName(ctx, q, "english", limit) {
			require.NoError(t, err)
			ids = append(ids, tx.ID)
		}
		return ids
	}

	t.Run("prefix match ranked by popularity", func(t *testing.T) {
		assert.Equal(t, []int64{51280, 48978}, collect("dirona", 10))
	})

	t.Run("common names match", func(t *testing.T) {
		assert.Equal(t, []int64{48978}, collect("painted", 10))
	})

	t.Run("multi-token query", func(t *testing.T) {
		assert.Equal(t, []int64{48978}, collect("dirona pic", 10))
	})

	t.Run("limit", func(t *testing.T) {
		assert.Len(t, collect("dirona", 1), 1)
	})

	t.Run("no match", func(t *testing.T) {
		assert.Empty(t, collect("zzzz", 10))
	})

	t.Run("fts operators are neutralized", func(t *testing.T) {
		for _, err := range s.SearchName(ctx, "dirona AND NOT (picta)", "english", 10) {
			require.NoError(t, err)
		}
	})

	t.Run("sequence is restartable", func(t *testing.T) {
		seq := s.SearchName(ctx, "dirona", "english", 10)
		var first, second int
		for _, err := range seq {
			require.NoError(t, err)
			first++
		}
		for _, err := range seq {
			require.NoError(t, err)
			second++
		}
		assert.Equal(t, first, second)
	})

	t.Run("early break stops the scan", func(t *testing.T) {
		var n int
		for _, err := range s.SearchName(ctx, "dirona", "english", 10) {
			require.NoError(t, err)
			n++
			break
		}
		assert.Equal(t, 1, n)
	})
}

func TestSchemaVersionMismatch(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "taxtag.db")
	cfg := config.New()
	cfg.Update([]config.Option{config.OptDBPath(dbPath)})

	s, err := iostore.New(cfg)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	orig := config.SchemaVersion
	config.SchemaVersion = "999"
	defer func() { config.SchemaVersion = orig }()

	_, err = iostore.New(cfg)
	require.Error(t, err)
	assert.Equal(t, errcode.StoreSchemaError, errcode.Code(err))
}
