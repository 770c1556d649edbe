package taxtag

import (
	"sort"
	"strings"

	"github.com/gnames/taxtag/pkg/taxon"
)

// Namespace identifies the tag vocabulary a Tag belongs to.
type Namespace int

const (
	// NamespaceKeyword is a plain flat keyword.
	NamespaceKeyword Namespace = iota
	// NamespaceStructured is a key-value keyword such as
	// "taxonomy:genus=Dirona" or "inat:taxon_id=48978".
	NamespaceStructured
	// NamespaceHierarchical is a pipe-delimited ancestor path used by
	// viewers to render a keyword tree.
	NamespaceHierarchical
	// NamespaceDarwinCore is a dwc/dcterms XMP property.
	NamespaceDarwinCore
)

func (n Namespace) String() string {
	switch n {
	case NamespaceKeyword:
		return "keyword"
	case NamespaceStructured:
		return "structured"
	case NamespaceHierarchical:
		return "hierarchical"
	case NamespaceDarwinCore:
		return "dwc"
	}
	return "unknown"
}

// Tag is one (namespace, key, value) triple.
//
// Key semantics per namespace:
//   - keyword: the keyword itself, Value empty
//   - structured: the rank name ("genus") or an explicit prefixed key
//     ("inat:taxon_id"); Value is the right-hand side
//   - hierarchical: the full pipe-delimited path, Value empty
//   - dwc: the term with namespace prefix ("dwc:locality")
type Tag struct {
	Namespace Namespace
	Key       string
	Value     string
}

// String renders the tag in its embedded keyword form.
func (t Tag) String() string {
	switch t.Namespace {
	case NamespaceStructured:
		key := t.Key
		if !strings.Contains(key, ":") {
			key = "taxonomy:" + key
		}
		return Quote(key + "=" + t.Value)
	case NamespaceDarwinCore:
		return t.Key + `="` + t.Value + `"`
	default:
		return Quote(t.Key)
	}
}

// TagSet is an ordered sequence of tags. Tag sets are ephemeral:
// recomputed each run and never persisted outside the target file.
type TagSet []Tag

// Merge combines the receiver with incoming tags. Within each
// namespace tags are deduplicated by key; an incoming value replaces
// the existing value for the same key, unrelated tags keep their
// positions, and previously unseen keys are appended in incoming
// order. Merging the same set twice is a no-op.
func (ts TagSet) Merge(incoming TagSet) TagSet {
	type nsKey struct {
		ns  Namespace
		key string
	}

	idx := make(map[nsKey]int, len(ts))
	res := make(TagSet, len(ts))
	copy(res, ts)
	for i, t := range res {
		idx[nsKey{t.Namespace, t.Key}] = i
	}

	for _, t := range incoming {
		k := nsKey{t.Namespace, t.Key}
		if i, ok := idx[k]; ok {
			res[i].Value = t.Value
			continue
		}
		idx[k] = len(res)
		res = append(res, t)
	}
	return res
}

// SortTaxonomy stably reorders structured rank keywords from the
// broadest rank down. Tags read back from a file arrive in whatever
// order the previous writer left them; every tag that is not a rank
// keyword keeps its position.
func (ts TagSet) SortTaxonomy() TagSet {
	res := make(TagSet, len(ts))
	copy(res, ts)

	var pos []int
	for i, t := range res {
		if t.Namespace != NamespaceStructured {
			continue
		}
		if _, err := taxon.ParseRank(t.Key); err == nil {
			pos = append(pos, i)
		}
	}
	if len(pos) < 2 {
		return res
	}

	ranked := make(TagSet, len(pos))
	for i, p := range pos {
		ranked[i] = res[p]
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		ri, _ := taxon.ParseRank(ranked[i].Key)
		rj, _ := taxon.ParseRank(ranked[j].Key)
		return ri < rj
	})
	for i, p := range pos {
		res[p] = ranked[i]
	}
	return res
}

// Filter returns the tags belonging to one namespace, in order.
func (ts TagSet) Filter(ns Namespace) TagSet {
	var res TagSet
	for _, t := range ts {
		if t.Namespace == ns {
			res = append(res, t)
		}
	}
	return res
}

// Strings renders the whole set as embedded keyword strings.
func (ts TagSet) Strings() []string {
	res := make([]string, len(ts))
	for i, t := range ts {
		res[i] = t.String()
	}
	return res
}

// Quote surrounds a keyword in double quotes when it contains
// whitespace, matching the convention of keyword-aware viewers.
func Quote(s string) string {
	if strings.ContainsAny(s, " \t") && !strings.HasPrefix(s, `"`) {
		return `"` + s + `"`
	}
	return s
}

// Unquote strips the quoting applied by Quote.
func Unquote(s string) string {
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		return s[1 : len(s)-1]
	}
	return s
}
