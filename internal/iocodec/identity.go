package iocodec

import (
	"strconv"
	"strings"

	"github.com/gnames/taxtag/pkg/taxon"
	"github.com/gnames/taxtag/pkg/taxtag"
)

// FromExistingTags scans previously written tags and reconstructs
// whatever identity fragment they still carry. Each recognized tag
// format is an explicit variant with its own match rule; tags that
// match no variant, or match one but carry a malformed value, are
// skipped rather than failing the whole scan. The zero IdentityRef
// comes back only when nothing recognizable was found.
func (codec) FromExistingTags(tags taxtag.TagSet) taxtag.IdentityRef {
	var ref taxtag.IdentityRef

	for _, t := range tags {
		for _, v := range identityVariants {
			if v.match(t, &ref) {
				break
			}
		}
	}
	return ref
}

// identityVariant is one recognized tag-key format. match inspects a
// tag and, on success, folds its contribution into ref and returns
// true so later variants do not re-interpret the same tag.
type identityVariant struct {
	name  string
	match func(t taxtag.Tag, ref *taxtag.IdentityRef) bool
}

// Variants are ordered from most to least specific. Earlier values
// win: once an id is set, later matches never overwrite it, so the
// explicit taxon-id keyword beats an id recovered from a dwc term.
var identityVariants = []identityVariant{
	{name: "taxon-id keyword", match: matchTaxonID},
	{name: "observation-id keyword", match: matchObservationID},
	{name: "structured rank keyword", match: matchRankKeyword},
}

// taxonIDKeys and observationIDKeys are the simplified key spellings
// recognized for explicit ids, after normalization (lower-cased,
// underscores removed, namespace prefix kept).
var taxonIDKeys = map[string]bool{
	"taxonid":      true,
	"inat:taxonid": true,
	"dwc:taxonid":  true,
}

var observationIDKeys = map[string]bool{
	"observationid":      true,
	"inat:observationid": true,
	"catalognumber":      true,
	"dwc:catalognumber":  true,
}

func matchTaxonID(t taxtag.Tag, ref *taxtag.IdentityRef) bool {
	key, value, ok := keyValue(t)
	if !ok || !taxonIDKeys[normalizeKey(key)] {
		return false
	}
	id, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || id <= 0 {
		// Recognized key, unusable value: claim the tag so no other
		// variant guesses at it, but contribute nothing.
		return true
	}
	if ref.TaxonID == 0 {
		ref.TaxonID = id
	}
	return true
}

func matchObservationID(t taxtag.Tag, ref *taxtag.IdentityRef) bool {
	key, value, ok := keyValue(t)
	if !ok || !observationIDKeys[normalizeKey(key)] {
		return false
	}
	id, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || id <= 0 {
		return true
	}
	if ref.ObservationID == 0 {
		ref.ObservationID = id
	}
	return true
}

// matchRankKeyword recognizes "taxonomy:{rank}={name}" (and the bare
// "{rank}={name}" form some tools write) and keeps the most specific
// rank seen. A name without an id is still enough identity for a
// refresh to re-resolve through name search.
func matchRankKeyword(t taxtag.Tag, ref *taxtag.IdentityRef) bool {
	key, value, ok := keyValue(t)
	if !ok {
		return false
	}
	key = normalizeKey(key)
	key = strings.TrimPrefix(key, "taxonomy:")

	rank, err := taxon.ParseRank(key)
	if err != nil {
		return false
	}
	name := strings.TrimSpace(taxtag.Unquote(value))
	if name == "" {
		return true
	}
	if rank > ref.MinRank {
		ref.MinRank = rank
		ref.MinRankName = name
	}
	return true
}

// keyValue splits a tag into its key-value parts. Structured and dwc
// tags carry them directly; plain keywords are parsed from their
// string form, tolerating the quoting applied on write.
func keyValue(t taxtag.Tag) (string, string, bool) {
	switch t.Namespace {
	case taxtag.NamespaceStructured, taxtag.NamespaceDarwinCore:
		if t.Key == "" || t.Value == "" {
			return "", "", false
		}
		return t.Key, strings.Trim(t.Value, `"`), true
	case taxtag.NamespaceKeyword:
		kw := taxtag.Unquote(strings.TrimSpace(t.Key))
		i := strings.Index(kw, "=")
		// Exactly one "=" with a non-empty right side qualifies.
		if i <= 0 || i == len(kw)-1 || strings.Count(kw, "=") != 1 {
			return "", "", false
		}
		return kw[:i], strings.Trim(kw[i+1:], `"`), true
	}
	return "", "", false
}

// normalizeKey reduces formatting variations in similarly named keys:
// "dwc:taxonID" and "Taxon_Id" both normalize to recognized forms.
func normalizeKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	key = strings.ReplaceAll(key, "_", "")
	return key
}
