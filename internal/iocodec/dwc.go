package iocodec

import (
	"strconv"

	"github.com/gnames/taxtag/pkg/taxon"
	"github.com/gnames/taxtag/pkg/taxtag"
)

// dwcTermOrder fixes the emission order of observation terms so that
// generated tag sets are stable across runs.
var dwcTermOrder = []taxon.Term{
	taxon.TermOccurrenceID,
	taxon.TermCatalogNumber,
	taxon.TermBasisOfRecord,
	taxon.TermEventDate,
	taxon.TermRecordedBy,
	taxon.TermIdentifiedBy,
	taxon.TermLocality,
	taxon.TermCountryCode,
	taxon.TermStateProvince,
	taxon.TermDecimalLatitude,
	taxon.TermDecimalLongitude,
	taxon.TermInstitutionCode,
	taxon.TermModified,
	taxon.TermLicense,
}

// ToDarwinCore renders an observation plus its taxonomy as Darwin
// Core tags. Fields absent on the observation are omitted, never
// emitted as empty strings. The taxonomy part maps every rank present
// in the chain to its dwc term (dwc:kingdom .. dwc:subspecies) and
// describes the leaf with scientificName/taxonRank/vernacularName.
func (codec) ToDarwinCore(
	obs *taxon.Observation,
	chain []*taxon.Taxon,
) taxtag.TagSet {
	var res taxtag.TagSet

	add := func(term taxon.Term, v string) {
		if v == "" {
			return
		}
		res = append(res, taxtag.Tag{
			Namespace: taxtag.NamespaceDarwinCore,
			Key:       string(term),
			Value:     v,
		})
	}

	for _, term := range dwcTermOrder {
		add(term, obs.DwCValue(term))
	}

	if len(chain) > 0 {
		leaf := chain[len(chain)-1]
		add(taxon.TermTaxonID, strconv.FormatInt(leaf.ID, 10))
		add(taxon.TermScientificName, leaf.Name)
		add(taxon.TermTaxonRank, leaf.Rank.String())
		add(taxon.TermVernacularName, leaf.PreferredCommonName)

		for _, t := range chain {
			// Only ranks with a dwc term of their own (kingdom,
			// phylum, class, order, family, genus...) are emitted.
			if t.Rank.IsCommon() && t.Rank != taxon.Species {
				add(taxon.Term("dwc:"+t.Rank.String()), t.Name)
			}
		}
	}

	return res
}
