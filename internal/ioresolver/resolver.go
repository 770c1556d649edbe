package ioresolver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gnames/taxtag/pkg/errcode"
	"github.com/gnames/taxtag/pkg/taxon"
	"github.com/gnames/taxtag/pkg/taxtag"
	gocache "github.com/patrickmn/go-cache"
)

// obsCacheTTL bounds how long a fetched observation is reused within
// a run. Observations are transient and never hit the store.
const obsCacheTTL = 10 * time.Minute

// resolver implements taxtag.Resolver: store first, remote for gaps,
// merges back through the store so precomputed stats survive.
type resolver struct {
	store    taxtag.Store
	api      taxtag.APIClient
	obsCache *gocache.Cache
}

// New creates a Resolver over an explicit store handle and API
// client. Multiple isolated resolvers may coexist, each with its own
// store, which is what the tests do.
func New(store taxtag.Store, api taxtag.APIClient) taxtag.Resolver {
	return &resolver{
		store:    store,
		api:      api,
		obsCache: gocache.New(obsCacheTTL, obsCacheTTL),
	}
}

// ResolveAncestors returns the full chain root..self for a taxon id.
//
// The loop below re-checks the chain after every fetch instead of
// assuming the remote returned exactly the missing ids: a fetch for
// one taxon brings its whole ancestor list, and a merged record may
// reveal ancestors that were unknown before. Iterations are bounded,
// so a remote source that keeps revealing new ids cannot loop forever.
func (r *resolver) ResolveAncestors(
	ctx context.Context,
	taxonID int64,
) ([]*taxon.Taxon, error) {
	fetched := make(map[int64]bool)
	for {
		chain, missing, err := r.chainFromStore(ctx, taxonID)
		if err != nil {
			return nil, err
		}
		if len(missing) == 0 {
			return chain, nil
		}

		// Pick the first missing id that has not been asked for yet.
		// When every missing id was already fetched and gaps remain,
		// the remote source simply does not have them.
		var next int64
		for _, id := range missing {
			if !fetched[id] {
				next = id
				break
			}
		}
		if next == 0 {
			return r.degraded(ctx, taxonID,
				ChainGapError(taxonID, missing))
		}

		slog.Debug("Fetching missing taxa",
			"taxon", taxonID, "missing", missing, "next", next)
		fetched[next] = true
		if err = r.fetchAndMerge(ctx, next); err != nil {
			if errcode.IsNotFound(err) && next == taxonID {
				return nil, err
			}
			// A fetch failed; degrade to whatever is local.
			return r.degraded(ctx, taxonID, err)
		}
	}
}

// ResolveObservation fetches an observation and resolves the chain of
// its identified taxon. The returned chain may be partial when the
// remote fetch of an ancestor failed; in that case the RemoteError is
// returned alongside the data so the caller can degrade gracefully.
func (r *resolver) ResolveObservation(
	ctx context.Context,
	obsID int64,
) (*taxon.Observation, []*taxon.Taxon, error) {
	obs, err := r.observation(ctx, obsID)
	if err != nil {
		return nil, nil, err
	}

	obs.SetDwC(taxon.TermTaxonID, fmt.Sprintf("%d", obs.TaxonID))

	chain, err := r.ResolveAncestors(ctx, obs.TaxonID)
	if err != nil && len(chain) == 0 {
		return nil, nil, err
	}
	return obs, chain, err
}

func (r *resolver) observation(
	ctx context.Context,
	obsID int64,
) (*taxon.Observation, error) {
	key := fmt.Sprintf("%d", obsID)
	if cached, ok := r.obsCache.Get(key); ok {
		return cached.(*taxon.Observation), nil
	}

	obs, err := r.api.ObservationByID(ctx, obsID)
	if err != nil {
		return nil, err
	}
	r.obsCache.Set(key, obs, gocache.DefaultExpiration)
	return obs, nil
}

// chainFromStore assembles as much of the chain as the local store
// holds and reports which ids are still missing. Missing ids are
// returned self-first: fetching the leaf taxon brings all of its
// ancestors in one round trip.
func (r *resolver) chainFromStore(
	ctx context.Context,
	taxonID int64,
) (chain []*taxon.Taxon, missing []int64, err error) {
	self, err := r.store.GetTaxon(ctx, taxonID)
	if err != nil {
		if errcode.IsNotFound(err) {
			return nil, []int64{taxonID}, nil
		}
		return nil, nil, err
	}

	for _, aid := range self.AncestorIDs {
		a, err := r.store.GetTaxon(ctx, aid)
		if err != nil {
			if errcode.IsNotFound(err) {
				missing = append(missing, aid)
				continue
			}
			return nil, nil, err
		}
		chain = append(chain, a)
	}
	chain = append(chain, self)

	if len(missing) > 0 {
		// Ask for the leaf again rather than individual ancestors:
		// one request returns the taxon plus its whole ancestry.
		missing = append([]int64{taxonID}, missing...)
	}
	return chain, missing, nil
}

// fetchAndMerge fetches one taxon remotely and upserts it together
// with any ancestors the response carried. Merging goes through the
// store so the non-clobbering statistics policy applies.
func (r *resolver) fetchAndMerge(ctx context.Context, id int64) error {
	t, ancestors, err := r.api.TaxonByID(ctx, id)
	if err != nil {
		return err
	}

	for _, a := range ancestors {
		if err = r.store.UpsertTaxon(ctx, a); err != nil {
			return err
		}
	}
	return r.store.UpsertTaxon(ctx, t)
}

// degraded returns the partial chain for a taxon whose ancestors
// could not all be fetched: taxonomy-only, best effort. The remote
// error is passed through so callers know the chain may have gaps.
func (r *resolver) degraded(
	ctx context.Context,
	taxonID int64,
	remoteErr error,
) ([]*taxon.Taxon, error) {
	chain, _, err := r.chainFromStore(ctx, taxonID)
	if err != nil || len(chain) == 0 {
		return nil, remoteErr
	}
	slog.Warn("Remote fetch failed, using partial ancestor chain",
		"taxon", taxonID, "chain_length", len(chain), "error", remoteErr)
	return chain, remoteErr
}
