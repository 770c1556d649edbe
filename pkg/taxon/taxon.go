// Package taxon provides the domain entities of taxtag: taxa with
// their place in the taxonomic hierarchy, observations, and the
// field-wise merge rules used when local cached data meets fresh
// remote data.
//
// This is a pure package: no I/O, no global state.
package taxon

import "fmt"

// Taxon is a node in the biological classification hierarchy.
//
// AncestorIDs are ordered root..parent. Statistics fields
// (ObservationCount, LeafCount) use pointers so that a missing value
// in a partial remote response is distinguishable from zero.
type Taxon struct {
	ID                  int64
	Name                string
	Rank                Rank
	PreferredCommonName string
	ParentID            *int64
	AncestorIDs         []int64
	ChildIDs            []int64
	IconicTaxonID       int64
	ObservationCount    *int64
	LeafCount           *int64

	// Partial marks rows that came from the bundled snapshot, which
	// omits photo URLs and some statistics. A partial row is
	// considered stale relative to any full remote record.
	Partial bool
}

// FullName returns "Name (Common Name)" when a common name is known.
func (t *Taxon) FullName() string {
	if t.PreferredCommonName == "" {
		return t.Name
	}
	return fmt.Sprintf("%s (%s)", t.Name, t.PreferredCommonName)
}

// Validate checks invariants that must hold before a taxon is stored.
func (t *Taxon) Validate() error {
	if t.ID <= 0 {
		return fmt.Errorf("taxon id must be positive, got %d", t.ID)
	}
	if t.Name == "" {
		return fmt.Errorf("taxon %d has no name", t.ID)
	}
	if _, ok := rankNames[t.Rank]; !ok {
		return fmt.Errorf("taxon %d has invalid rank %d", t.ID, int(t.Rank))
	}
	return nil
}

// Merge combines a locally cached taxon with an incoming record for
// the same id and returns the merged result. The rule is field-wise:
//
//   - mutable fields (name, rank, common name, parent, ancestors,
//     children, iconic taxon) take the incoming value when present;
//   - statistics fields keep the local value unless the incoming
//     record carries a non-nil value. A non-nil local statistic is
//     never replaced by nil, so bundled precomputed stats survive
//     partial API responses.
//
// Neither argument is mutated.
func Merge(local, incoming *Taxon) *Taxon {
	if local == nil {
		cp := *incoming
		return &cp
	}
	if incoming == nil {
		cp := *local
		return &cp
	}

	res := *local

	if incoming.Name != "" {
		res.Name = incoming.Name
	}
	if incoming.Rank != RankUnknown {
		res.Rank = incoming.Rank
	}
	if incoming.PreferredCommonName != "" {
		res.PreferredCommonName = incoming.PreferredCommonName
	}
	if incoming.ParentID != nil {
		res.ParentID = incoming.ParentID
	}
	if len(incoming.AncestorIDs) > 0 {
		res.AncestorIDs = incoming.AncestorIDs
	}
	if len(incoming.ChildIDs) > 0 {
		res.ChildIDs = incoming.ChildIDs
	}
	if incoming.IconicTaxonID != 0 {
		res.IconicTaxonID = incoming.IconicTaxonID
	}

	if incoming.ObservationCount != nil {
		res.ObservationCount = incoming.ObservationCount
	}
	if incoming.LeafCount != nil {
		res.LeafCount = incoming.LeafCount
	}

	// A full remote record clears the partial flag; merging one
	// partial row into another keeps it.
	if !incoming.Partial {
		res.Partial = false
	}

	return &res
}
