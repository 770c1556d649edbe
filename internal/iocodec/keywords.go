package iocodec

import (
	"strconv"
	"strings"

	"github.com/gnames/taxtag/pkg/taxon"
	"github.com/gnames/taxtag/pkg/taxtag"
)

// commonNameIgnoreTerms filters out common names that make poor
// keywords ("beetles, weevils and allies" and similar catch-alls).
var commonNameIgnoreTerms = []string{",", " and ", "allies", "relatives", "typical"}

// ToKeywords renders an ancestor chain (root..self) as keyword tags.
//
// Structured keywords cover every rank of the chain. A chain of
// depth N yields N hierarchical entries, each one level deeper, the
// last being the full root-to-leaf path. Identity keywords
// (inat:taxon_id, dwc:taxonID) ride along with the structured
// namespace so a later refresh can recover the taxon without
// re-parsing rank names.
func (codec) ToKeywords(
	chain []*taxon.Taxon,
	opts taxtag.KeywordOptions,
) taxtag.TagSet {
	var res taxtag.TagSet
	if len(chain) == 0 {
		return res
	}
	leaf := chain[len(chain)-1]

	if opts.Basic && opts.CommonNames {
		for _, kw := range commonKeywords(chain) {
			res = append(res, taxtag.Tag{
				Namespace: taxtag.NamespaceKeyword,
				Key:       kw,
			})
		}
	}

	if opts.Structured {
		for _, t := range chain {
			res = append(res, taxtag.Tag{
				Namespace: taxtag.NamespaceStructured,
				Key:       t.Rank.String(),
				Value:     t.Name,
			})
		}
		res = append(res,
			taxtag.Tag{
				Namespace: taxtag.NamespaceStructured,
				Key:       "inat:taxon_id",
				Value:     strconv.FormatInt(leaf.ID, 10),
			},
			taxtag.Tag{
				Namespace: taxtag.NamespaceStructured,
				Key:       "dwc:taxonID",
				Value:     strconv.FormatInt(leaf.ID, 10),
			},
		)
		if opts.ObservationID != 0 {
			obsID := strconv.FormatInt(opts.ObservationID, 10)
			res = append(res,
				taxtag.Tag{
					Namespace: taxtag.NamespaceStructured,
					Key:       "inat:observation_id",
					Value:     obsID,
				},
				taxtag.Tag{
					Namespace: taxtag.NamespaceStructured,
					Key:       "dwc:catalogNumber",
					Value:     obsID,
				},
			)
		}
	}

	if opts.Hierarchical {
		names := make([]string, len(chain))
		for i, t := range chain {
			names[i] = t.Name
		}
		for _, path := range hierarchicalPaths(names) {
			res = append(res, taxtag.Tag{
				Namespace: taxtag.NamespaceHierarchical,
				Key:       path,
			})
		}
		if opts.CommonNames {
			for _, path := range hierarchicalPaths(commonKeywords(chain)) {
				res = append(res, taxtag.Tag{
					Namespace: taxtag.NamespaceHierarchical,
					Key:       path,
				})
			}
		}
	}

	return res
}

// commonKeywords returns preferred common names of the chain filtered
// to common ranks and cleaned of ignore terms.
func commonKeywords(chain []*taxon.Taxon) []string {
	var res []string
	for _, t := range chain {
		name := t.PreferredCommonName
		if name == "" || !t.Rank.IsCommon() {
			continue
		}
		if hasIgnoreTerm(name) {
			continue
		}
		res = append(res, name)
	}
	return res
}

func hasIgnoreTerm(kw string) bool {
	lower := strings.ToLower(kw)
	for _, term := range commonNameIgnoreTerms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

// hierarchicalPaths translates an ordered name list into
// pipe-delimited paths, one per prefix: [a b c] -> [a a|b a|b|c].
func hierarchicalPaths(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	res := make([]string, len(names))
	res[0] = names[0]
	for i := 1; i < len(names); i++ {
		res[i] = res[i-1] + "|" + names[i]
	}
	return res
}
