package ioresolver_test

import (
	"context"
	"iter"
	"sync"
	"testing"

	"github.com/gnames/taxtag/internal/ioresolver"
	"github.com/gnames/taxtag/internal/iostore"
	"github.com/gnames/taxtag/pkg/errcode"
	"github.com/gnames/taxtag/pkg/taxon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory Store with the same merge semantics as
// the SQLite one.
type fakeStore struct {
	mu   sync.Mutex
	taxa map[int64]*taxon.Taxon
}

func newFakeStore(taxa ...*taxon.Taxon) *fakeStore {
	s := &fakeStore{taxa: make(map[int64]*taxon.Taxon)}
	for _, t := range taxa {
		s.taxa[t.ID] = t
	}
	return s
}

func (s *fakeStore) GetTaxon(_ context.Context, id int64) (*taxon.Taxon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.taxa[id]
	if !ok {
		return nil, iostore.NotFoundError(id)
	}
	return t, nil
}

func (s *fakeStore) UpsertTaxon(_ context.Context, t *taxon.Taxon) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.taxa[t.ID] = taxon.Merge(s.taxa[t.ID], t)
	return nil
}

func (s *fakeStore) SearchName(
	_ context.Context, _, _ string, _ int,
) iter.Seq2[*taxon.Taxon, error] {
	return func(yield func(*taxon.Taxon, error) bool) {}
}

func (s *fakeStore) BulkLoad(context.Context, string) error { return nil }
func (s *fakeStore) Close() error                           { return nil }

// fakeAPI serves canned taxa with their ancestors and counts calls.
type fakeAPI struct {
	taxa     map[int64]*taxon.Taxon
	obs      map[int64]*taxon.Observation
	err      error
	taxonReq []int64
	obsReq   []int64
}

func (a *fakeAPI) TaxonByID(
	_ context.Context, id int64,
) (*taxon.Taxon, []*taxon.Taxon, error) {
	a.taxonReq = append(a.taxonReq, id)
	if a.err != nil {
		return nil, nil, a.err
	}
	t, ok := a.taxa[id]
	if !ok {
		return nil, nil, ioresolver.TaxonNotFoundError(id)
	}
	var ancestors []*taxon.Taxon
	for _, aid := range t.AncestorIDs {
		if at, ok := a.taxa[aid]; ok {
			ancestors = append(ancestors, at)
		}
	}
	return t, ancestors, nil
}

func (a *fakeAPI) ObservationByID(
	_ context.Context, id int64,
) (*taxon.Observation, error) {
	a.obsReq = append(a.obsReq, id)
	if a.err != nil {
		return nil, a.err
	}
	obs, ok := a.obs[id]
	if !ok {
		return nil, ioresolver.ObservationNotFoundError(id)
	}
	return obs, nil
}

func (a *fakeAPI) SearchTaxa(
	_ context.Context, _ string, _ int,
) ([]*taxon.Taxon, error) {
	return nil, a.err
}

func chainIDs(chain []*taxon.Taxon) []int64 {
	ids := make([]int64, len(chain))
	for i, t := range chain {
		ids[i] = t.ID
	}
	return ids
}

func dironaTaxa() []*taxon.Taxon {
	return []*taxon.Taxon{
		{ID: 1, Name: "Animalia", Rank: taxon.Kingdom},
		{ID: 47115, Name: "Mollusca", Rank: taxon.Phylum,
			AncestorIDs: []int64{1}},
		{ID: 51280, Name: "Dirona", Rank: taxon.Genus,
			AncestorIDs: []int64{1, 47115}},
		{ID: 48978, Name: "Dirona picta", Rank: taxon.Species,
			PreferredCommonName: "Painted Dirona",
			AncestorIDs:         []int64{1, 47115, 51280}},
	}
}

func TestResolveFullyLocal(t *testing.T) {
	store := newFakeStore(dironaTaxa()...)
	api := &fakeAPI{}
	r := ioresolver.New(store, api)

	chain, err := r.ResolveAncestors(context.Background(), 48978)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 47115, 51280, 48978}, chainIDs(chain))
	assert.Empty(t, api.taxonReq, "local cache suffices, no remote calls")
}

func TestResolveFetchesMissingLeaf(t *testing.T) {
	store := newFakeStore()
	api := &fakeAPI{taxa: make(map[int64]*taxon.Taxon)}
	for _, tx := range dironaTaxa() {
		api.taxa[tx.ID] = tx
	}
	r := ioresolver.New(store, api)

	chain, err := r.ResolveAncestors(context.Background(), 48978)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 47115, 51280, 48978}, chainIDs(chain))
	assert.Equal(t, []int64{48978}, api.taxonReq,
		"one fetch brings the taxon and its whole ancestry")

	cached, err := store.GetTaxon(context.Background(), 51280)
	require.NoError(t, err)
	assert.Equal(t, "Dirona", cached.Name, "fetched taxa are cached")
}

func TestResolveMergePreservesStats(t *testing.T) {
	count := int64(400000)
	store := newFakeStore(&taxon.Taxon{
		ID: 47115, Name: "Mollusca", Rank: taxon.Phylum,
		AncestorIDs: []int64{1}, ObservationCount: &count, Partial: true,
	})
	api := &fakeAPI{taxa: map[int64]*taxon.Taxon{
		1: {ID: 1, Name: "Animalia", Rank: taxon.Kingdom},
		47115: {ID: 47115, Name: "Mollusca", Rank: taxon.Phylum,
			PreferredCommonName: "Molluscs", AncestorIDs: []int64{1}},
	}}
	r := ioresolver.New(store, api)

	_, err := r.ResolveAncestors(context.Background(), 47115)
	require.NoError(t, err)

	merged, err := store.GetTaxon(context.Background(), 47115)
	require.NoError(t, err)
	assert.Equal(t, "Molluscs", merged.PreferredCommonName)
	require.NotNil(t, merged.ObservationCount,
		"remote record without stats must not clear cached stats")
	assert.Equal(t, count, *merged.ObservationCount)
}

func TestResolveDegradesOnChainGap(t *testing.T) {
	// The leaf is cached, one ancestor is unknown both locally and
	// remotely. The partial chain is returned with the error.
	store := newFakeStore(
		&taxon.Taxon{ID: 1, Name: "Animalia", Rank: taxon.Kingdom},
		&taxon.Taxon{ID: 48978, Name: "Dirona picta", Rank: taxon.Species,
			AncestorIDs: []int64{1, 51280}},
	)
	api := &fakeAPI{taxa: map[int64]*taxon.Taxon{
		48978: {ID: 48978, Name: "Dirona picta", Rank: taxon.Species,
			AncestorIDs: []int64{1, 51280}},
	}}
	r := ioresolver.New(store, api)

	chain, err := r.ResolveAncestors(context.Background(), 48978)
	require.Error(t, err)
	assert.True(t, errcode.IsRemote(err) || errcode.IsNotFound(err))
	assert.Equal(t, []int64{1, 48978}, chainIDs(chain),
		"known part of the chain is still usable")
}

func TestResolveUnknownTaxon(t *testing.T) {
	r := ioresolver.New(newFakeStore(), &fakeAPI{})

	chain, err := r.ResolveAncestors(context.Background(), 999)
	require.Error(t, err)
	assert.True(t, errcode.IsNotFound(err))
	assert.Empty(t, chain)
}

func TestResolveOfflineWithCache(t *testing.T) {
	// Everything needed is local; the remote is down. Tagging must
	// still work.
	store := newFakeStore(dironaTaxa()...)
	api := &fakeAPI{err: ioresolver.RequestError("x", assert.AnError)}
	r := ioresolver.New(store, api)

	chain, err := r.ResolveAncestors(context.Background(), 48978)
	require.NoError(t, err)
	assert.Len(t, chain, 4)
}

func TestResolveObservation(t *testing.T) {
	store := newFakeStore(dironaTaxa()...)
	obs := &taxon.Observation{ID: 45524803, TaxonID: 48978}
	api := &fakeAPI{obs: map[int64]*taxon.Observation{45524803: obs}}
	r := ioresolver.New(store, api)
	ctx := context.Background()

	got, chain, err := r.ResolveObservation(ctx, 45524803)
	require.NoError(t, err)
	assert.Equal(t, "48978", got.DwCValue(taxon.TermTaxonID))
	assert.Len(t, chain, 4)

	_, _, err = r.ResolveObservation(ctx, 45524803)
	require.NoError(t, err)
	assert.Equal(t, []int64{45524803}, api.obsReq,
		"repeated resolution reuses the cached observation")
}

func TestResolveObservationNotFound(t *testing.T) {
	r := ioresolver.New(newFakeStore(), &fakeAPI{})

	_, _, err := r.ResolveObservation(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, errcode.ObservationNotFoundError, errcode.Code(err))
}
