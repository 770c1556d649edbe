package taxon

import (
	"fmt"
	"strings"
)

// Rank is a level in the taxonomic hierarchy. Ranks are totally
// ordered from Kingdom (highest) down to Form (lowest), following the
// rank set used by iNaturalist.
type Rank int

const (
	RankUnknown Rank = iota
	Kingdom
	Phylum
	Subphylum
	Superclass
	Class
	Subclass
	Infraclass
	Subterclass
	Superorder
	Order
	Suborder
	Infraorder
	Superfamily
	Family
	Subfamily
	Tribe
	Subtribe
	Genus
	Subgenus
	Section
	Complex
	Species
	Hybrid
	Subspecies
	Variety
	Form
)

var rankNames = map[Rank]string{
	Kingdom:     "kingdom",
	Phylum:      "phylum",
	Subphylum:   "subphylum",
	Superclass:  "superclass",
	Class:       "class",
	Subclass:    "subclass",
	Infraclass:  "infraclass",
	Subterclass: "subterclass",
	Superorder:  "superorder",
	Order:       "order",
	Suborder:    "suborder",
	Infraorder:  "infraorder",
	Superfamily: "superfamily",
	Family:      "family",
	Subfamily:   "subfamily",
	Tribe:       "tribe",
	Subtribe:    "subtribe",
	Genus:       "genus",
	Subgenus:    "subgenus",
	Section:     "section",
	Complex:     "complex",
	Species:     "species",
	Hybrid:      "hybrid",
	Subspecies:  "subspecies",
	Variety:     "variety",
	Form:        "form",
}

var ranksByName = func() map[string]Rank {
	res := make(map[string]Rank, len(rankNames))
	for r, name := range rankNames {
		res[name] = r
	}
	return res
}()

// CommonRanks is the subset of ranks used for basic keywords and for
// per-rank Darwin Core terms. Intermediate ranks like subphylum or
// tribe have no dwc term and make noisy keywords, so they are
// skipped in those places.
var CommonRanks = []Rank{
	Kingdom, Phylum, Class, Order, Family, Genus, Species,
	Subspecies, Variety, Form,
}

// String returns the lower-case rank name, or "unknown".
func (r Rank) String() string {
	if name, ok := rankNames[r]; ok {
		return name
	}
	return "unknown"
}

// IsCommon reports whether the rank belongs to CommonRanks.
func (r Rank) IsCommon() bool {
	for _, cr := range CommonRanks {
		if r == cr {
			return true
		}
	}
	return false
}

// ParseRank converts a rank name to a Rank. Matching is
// case-insensitive and tolerates surrounding whitespace.
func ParseRank(s string) (Rank, error) {
	r, ok := ranksByName[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return RankUnknown, fmt.Errorf("unknown rank %q", s)
	}
	return r, nil
}
