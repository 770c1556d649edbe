package iocodec_test

import (
	"testing"

	"github.com/gnames/taxtag/internal/iocodec"
	"github.com/gnames/taxtag/pkg/taxon"
	"github.com/gnames/taxtag/pkg/taxtag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// insectChain is a 4-level chain with an intermediate rank
// (subphylum) to verify depth handling beyond the common ranks.
func insectChain() []*taxon.Taxon {
	return []*taxon.Taxon{
		{ID: 1, Name: "Animalia", Rank: taxon.Kingdom,
			PreferredCommonName: "Animals"},
		{ID: 47120, Name: "Arthropoda", Rank: taxon.Phylum,
			PreferredCommonName: "Arthropods"},
		{ID: 372739, Name: "Hexapoda", Rank: taxon.Subphylum,
			PreferredCommonName: "Hexapods"},
		{ID: 47158, Name: "Insecta", Rank: taxon.Class,
			PreferredCommonName: "Insects"},
	}
}

// dironaChain mirrors a real 13-level classification down to species.
func dironaChain() []*taxon.Taxon {
	return []*taxon.Taxon{
		{ID: 1, Name: "Animalia", Rank: taxon.Kingdom,
			PreferredCommonName: "Animals"},
		{ID: 47115, Name: "Mollusca", Rank: taxon.Phylum,
			PreferredCommonName: "Molluscs"},
		{ID: 47114, Name: "Gastropoda", Rank: taxon.Class,
			PreferredCommonName: "Snails and Slugs"},
		{ID: 475114, Name: "Heterobranchia", Rank: taxon.Subclass},
		{ID: 775798, Name: "Euthyneura", Rank: taxon.Infraclass},
		{ID: 775799, Name: "Ringipleura", Rank: taxon.Subterclass},
		{ID: 47113, Name: "Nudipleura", Rank: taxon.Superorder},
		{ID: 47008, Name: "Nudibranchia", Rank: taxon.Order,
			PreferredCommonName: "Nudibranchs"},
		{ID: 775801, Name: "Cladobranchia", Rank: taxon.Suborder},
		{ID: 175294, Name: "Aeolidioidea", Rank: taxon.Superfamily},
		{ID: 55620, Name: "Dironidae", Rank: taxon.Family},
		{ID: 51280, Name: "Dirona", Rank: taxon.Genus},
		{ID: 48978, Name: "Dirona picta", Rank: taxon.Species,
			PreferredCommonName: "Painted Dirona"},
	}
}

var allKeywords = taxtag.KeywordOptions{
	Basic:        true,
	Structured:   true,
	Hierarchical: true,
	CommonNames:  true,
}

func TestToKeywordsHierarchical(t *testing.T) {
	codec := iocodec.New()
	tags := codec.ToKeywords(insectChain(), taxtag.KeywordOptions{
		Hierarchical: true,
	})

	paths := tags.Filter(taxtag.NamespaceHierarchical).Strings()
	require.Len(t, paths, 4, "a chain of depth N yields N entries")
	assert.Equal(t, []string{
		"Animalia",
		"Animalia|Arthropoda",
		"Animalia|Arthropoda|Hexapoda",
		"Animalia|Arthropoda|Hexapoda|Insecta",
	}, paths)
}

func TestToKeywordsStructured(t *testing.T) {
	codec := iocodec.New()
	tags := codec.ToKeywords(insectChain(), taxtag.KeywordOptions{
		Structured:    true,
		ObservationID: 45524803,
	})

	str := tags.Filter(taxtag.NamespaceStructured).Strings()
	assert.Contains(t, str, "taxonomy:kingdom=Animalia")
	assert.Contains(t, str, "taxonomy:subphylum=Hexapoda",
		"intermediate ranks get structured keywords too")
	assert.Contains(t, str, "taxonomy:class=Insecta")
	assert.Contains(t, str, "inat:taxon_id=47158")
	assert.Contains(t, str, "dwc:taxonID=47158")
	assert.Contains(t, str, "inat:observation_id=45524803")
	assert.Contains(t, str, "dwc:catalogNumber=45524803")
}

func TestToKeywordsCommonNames(t *testing.T) {
	codec := iocodec.New()
	chain := []*taxon.Taxon{
		{ID: 1, Name: "Animalia", Rank: taxon.Kingdom,
			PreferredCommonName: "Animals"},
		{ID: 47201, Name: "Hymenoptera", Rank: taxon.Order,
			PreferredCommonName: "Ants, Bees, Wasps and Sawflies"},
		{ID: 372739, Name: "Hexapoda", Rank: taxon.Subphylum,
			PreferredCommonName: "Hexapods"},
		{ID: 47158, Name: "Insecta", Rank: taxon.Class,
			PreferredCommonName: "Insects"},
	}
	tags := codec.ToKeywords(chain, taxtag.KeywordOptions{
		Basic:       true,
		CommonNames: true,
	})

	kws := tags.Filter(taxtag.NamespaceKeyword).Strings()
	assert.Contains(t, kws, "Animals")
	assert.Contains(t, kws, "Insects")
	assert.NotContains(t, kws, `"Ants, Bees, Wasps and Sawflies"`,
		"catch-all common names are filtered")
	assert.NotContains(t, kws, "Hexapods",
		"basic keywords stick to common ranks")
}

func TestToKeywordsEmptyChain(t *testing.T) {
	codec := iocodec.New()
	assert.Empty(t, codec.ToKeywords(nil, allKeywords))
}

func TestToKeywordsDisabledNamespaces(t *testing.T) {
	codec := iocodec.New()
	tags := codec.ToKeywords(insectChain(), taxtag.KeywordOptions{})
	assert.Empty(t, tags)
}

func TestToDarwinCore(t *testing.T) {
	codec := iocodec.New()
	obs := &taxon.Observation{ID: 45524803, TaxonID: 48978}
	obs.SetDwC(taxon.TermCatalogNumber, "45524803")
	obs.SetDwC(taxon.TermEventDate, "2020-05-09T10:48:19-07:00")
	obs.SetDwC(taxon.TermLocality, "Port Orchard, WA, USA")
	obs.SetDwC(taxon.TermRecordedBy, "jkfoon")

	tags := codec.ToDarwinCore(obs, dironaChain())
	byKey := make(map[string]string, len(tags))
	for _, tag := range tags {
		assert.Equal(t, taxtag.NamespaceDarwinCore, tag.Namespace)
		byKey[tag.Key] = tag.Value
	}

	assert.Equal(t, "45524803", byKey["dwc:catalogNumber"])
	assert.Equal(t, "Port Orchard, WA, USA", byKey["dwc:locality"])
	assert.Equal(t, "48978", byKey["dwc:taxonID"])
	assert.Equal(t, "Dirona picta", byKey["dwc:scientificName"])
	assert.Equal(t, "species", byKey["dwc:taxonRank"])
	assert.Equal(t, "Painted Dirona", byKey["dwc:vernacularName"])
	assert.Equal(t, "Animalia", byKey["dwc:kingdom"])
	assert.Equal(t, "Dironidae", byKey["dwc:family"])
	assert.Equal(t, "Dirona", byKey["dwc:genus"])

	_, ok := byKey["dwc:decimalLatitude"]
	assert.False(t, ok, "absent observation fields are omitted")
	_, ok = byKey["dwc:species"]
	assert.False(t, ok, "species is covered by scientificName")
	_, ok = byKey["dwc:superfamily"]
	assert.False(t, ok, "ranks without a dwc term are skipped")
}

func TestIdentityRoundTrip(t *testing.T) {
	codec := iocodec.New()
	chain := dironaChain()

	tags := codec.ToKeywords(chain, taxtag.KeywordOptions{
		Basic: true, Structured: true, Hierarchical: true,
		CommonNames: true, ObservationID: 45524803,
	})

	ref := codec.FromExistingTags(tags)
	assert.Equal(t, int64(48978), ref.TaxonID)
	assert.Equal(t, int64(45524803), ref.ObservationID)
	assert.Equal(t, taxon.Species, ref.MinRank)
	assert.Equal(t, "Dirona picta", ref.MinRankName)
}

func TestFromExistingTags(t *testing.T) {
	codec := iocodec.New()

	tests := []struct {
		msg  string
		tags taxtag.TagSet
		ref  taxtag.IdentityRef
	}{
		{
			msg:  "no tags",
			tags: nil,
			ref:  taxtag.IdentityRef{},
		},
		{
			msg: "unrelated keywords",
			tags: taxtag.TagSet{
				{Namespace: taxtag.NamespaceKeyword, Key: "vacation 2024"},
				{Namespace: taxtag.NamespaceKeyword, Key: "beach"},
			},
			ref: taxtag.IdentityRef{},
		},
		{
			msg: "plain keyword with taxon id",
			tags: taxtag.TagSet{
				{Namespace: taxtag.NamespaceKeyword, Key: "taxon_id=48978"},
			},
			ref: taxtag.IdentityRef{TaxonID: 48978},
		},
		{
			msg: "dwc catalog number recovers the observation",
			tags: taxtag.TagSet{
				{Namespace: taxtag.NamespaceDarwinCore,
					Key: "dwc:catalogNumber", Value: "45524803"},
			},
			ref: taxtag.IdentityRef{ObservationID: 45524803},
		},
		{
			msg: "first id wins over later disagreeing ids",
			tags: taxtag.TagSet{
				{Namespace: taxtag.NamespaceStructured,
					Key: "inat:taxon_id", Value: "48978"},
				{Namespace: taxtag.NamespaceDarwinCore,
					Key: "dwc:taxonID", Value: "11111"},
			},
			ref: taxtag.IdentityRef{TaxonID: 48978},
		},
		{
			msg: "most specific rank wins",
			tags: taxtag.TagSet{
				{Namespace: taxtag.NamespaceKeyword,
					Key: "taxonomy:kingdom=Animalia"},
				{Namespace: taxtag.NamespaceKeyword,
					Key: `"taxonomy:species=Dirona picta"`},
				{Namespace: taxtag.NamespaceKeyword,
					Key: "taxonomy:genus=Dirona"},
			},
			ref: taxtag.IdentityRef{
				MinRank:     taxon.Species,
				MinRankName: "Dirona picta",
			},
		},
		{
			msg: "malformed values are tolerated",
			tags: taxtag.TagSet{
				{Namespace: taxtag.NamespaceKeyword, Key: "taxon_id=abc"},
				{Namespace: taxtag.NamespaceKeyword, Key: "taxon_id=-5"},
				{Namespace: taxtag.NamespaceKeyword, Key: "a=b=c"},
				{Namespace: taxtag.NamespaceKeyword, Key: "taxonomy:genus=Dirona"},
			},
			ref: taxtag.IdentityRef{
				MinRank:     taxon.Genus,
				MinRankName: "Dirona",
			},
		},
		{
			msg: "unknown structured keys are ignored",
			tags: taxtag.TagSet{
				{Namespace: taxtag.NamespaceStructured,
					Key: "weather", Value: "sunny"},
			},
			ref: taxtag.IdentityRef{},
		},
	}

	for _, v := range tests {
		ref := codec.FromExistingTags(v.tags)
		assert.Equal(t, v.ref, ref, v.msg)
		assert.Equal(t, v.ref.Empty(), ref.Empty(), v.msg)
	}
}
