package iowriter

import (
	"fmt"
	"os"
	"strings"

	"github.com/beevik/etree"
	"github.com/gnames/taxtag/pkg/taxtag"
)

// XMP namespace URIs written into new sidecar files.
const (
	nsX       = "adobe:ns:meta/"
	nsRDF     = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	nsDC      = "http://purl.org/dc/elements/1.1/"
	nsLR      = "http://ns.adobe.com/lightroom/1.0/"
	nsDWC     = "http://rs.tdwg.org/dwc/terms/"
	nsDCTerms = "http://purl.org/dc/terms/"
)

// sidecarReadWriter reads and writes XMP sidecar files. Keywords go
// into dc:subject, hierarchical keywords into lr:hierarchicalSubject,
// Darwin Core terms into dwc:/dcterms: properties. Elements outside
// these properties are preserved untouched.
type sidecarReadWriter struct{}

// NewSidecarReadWriter creates the XMP sidecar metadata backend.
func NewSidecarReadWriter() taxtag.MetadataReadWriter {
	return sidecarReadWriter{}
}

// ReadTags parses an existing sidecar into a TagSet. A missing file
// yields an empty set; a malformed file is an error.
func (sidecarReadWriter) ReadTags(path string) (taxtag.TagSet, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromFile(path); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	desc := findDescription(doc)
	if desc == nil {
		return nil, nil
	}

	var res taxtag.TagSet

	for _, li := range bagItems(desc, "subject") {
		res = append(res, classifySubject(li))
	}
	for _, li := range bagItems(desc, "hierarchicalSubject") {
		res = append(res, taxtag.Tag{
			Namespace: taxtag.NamespaceHierarchical,
			Key:       li,
		})
	}

	for _, child := range desc.ChildElements() {
		space := strings.ToLower(child.Space)
		if space != "dwc" && space != "dcterms" {
			continue
		}
		if v := strings.TrimSpace(child.Text()); v != "" {
			res = append(res, taxtag.Tag{
				Namespace: taxtag.NamespaceDarwinCore,
				Key:       space + ":" + child.Tag,
				Value:     v,
			})
		}
	}
	return res, nil
}

// WriteTags writes the merged tag set into the sidecar, creating the
// file when absent. Only dc:subject, lr:hierarchicalSubject, and
// dwc/dcterms properties are rewritten; anything else already in the
// file stays as it was.
func (sidecarReadWriter) WriteTags(path string, tags taxtag.TagSet) error {
	doc := etree.NewDocument()
	if err := doc.ReadFromFile(path); err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		doc = newSidecarDocument()
	}

	desc := findDescription(doc)
	if desc == nil {
		return fmt.Errorf("no rdf:Description element in %s", path)
	}
	ensureNamespaces(desc)

	// Rewrite managed properties from scratch.
	removeProperty(desc, "subject")
	removeProperty(desc, "hierarchicalSubject")
	for _, child := range desc.ChildElements() {
		space := strings.ToLower(child.Space)
		if space == "dwc" || space == "dcterms" {
			desc.RemoveChild(child)
		}
	}

	var subjects, hierarchical []string
	for _, t := range tags {
		switch t.Namespace {
		case taxtag.NamespaceKeyword, taxtag.NamespaceStructured:
			subjects = append(subjects, t.String())
		case taxtag.NamespaceHierarchical:
			hierarchical = append(hierarchical, t.Key)
		case taxtag.NamespaceDarwinCore:
			space, term, ok := strings.Cut(t.Key, ":")
			if !ok {
				space, term = "dwc", t.Key
			}
			el := desc.CreateElement(space + ":" + term)
			el.SetText(t.Value)
		}
	}
	writeBag(desc, "dc:subject", subjects)
	writeBag(desc, "lr:hierarchicalSubject", hierarchical)

	doc.Indent(2)
	return doc.WriteToFile(path)
}

func newSidecarDocument() *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xpacket", `begin="" id="W5M0MpCehiHzreSzNTczkc9d"`)

	meta := doc.CreateElement("x:xmpmeta")
	meta.CreateAttr("xmlns:x", nsX)

	rdf := meta.CreateElement("rdf:RDF")
	rdf.CreateAttr("xmlns:rdf", nsRDF)

	desc := rdf.CreateElement("rdf:Description")
	desc.CreateAttr("rdf:about", "")
	desc.CreateAttr("xmlns:dc", nsDC)
	desc.CreateAttr("xmlns:lr", nsLR)
	desc.CreateAttr("xmlns:dwc", nsDWC)
	desc.CreateAttr("xmlns:dcterms", nsDCTerms)

	return doc
}

// ensureNamespaces declares the prefixes of managed properties on an
// rdf:Description that predates taxtag.
func ensureNamespaces(desc *etree.Element) {
	for attr, uri := range map[string]string{
		"xmlns:dc":      nsDC,
		"xmlns:lr":      nsLR,
		"xmlns:dwc":     nsDWC,
		"xmlns:dcterms": nsDCTerms,
	} {
		if desc.SelectAttr(attr) == nil {
			desc.CreateAttr(attr, uri)
		}
	}
}

func findDescription(doc *etree.Document) *etree.Element {
	var walk func(el *etree.Element) *etree.Element
	walk = func(el *etree.Element) *etree.Element {
		if el.Space == "rdf" && el.Tag == "Description" {
			return el
		}
		for _, child := range el.ChildElements() {
			if found := walk(child); found != nil {
				return found
			}
		}
		return nil
	}
	if root := doc.Root(); root != nil {
		return walk(root)
	}
	return nil
}

// bagItems returns the rdf:li values of a bag-valued property.
func bagItems(desc *etree.Element, tag string) []string {
	var res []string
	var collect func(el *etree.Element)
	collect = func(el *etree.Element) {
		if el.Tag == "li" {
			if v := strings.TrimSpace(el.Text()); v != "" {
				res = append(res, v)
			}
			return
		}
		for _, child := range el.ChildElements() {
			collect(child)
		}
	}
	for _, prop := range desc.ChildElements() {
		if prop.Tag == tag {
			collect(prop)
		}
	}
	return res
}

func removeProperty(desc *etree.Element, tag string) {
	for _, prop := range desc.ChildElements() {
		if prop.Tag == tag {
			desc.RemoveChild(prop)
		}
	}
}

func writeBag(desc *etree.Element, name string, values []string) {
	if len(values) == 0 {
		return
	}
	prop := desc.CreateElement(name)
	bag := prop.CreateElement("rdf:Bag")
	for _, v := range values {
		bag.CreateElement("rdf:li").SetText(v)
	}
}

// classifySubject decides which namespace a dc:subject entry belongs
// to when reading it back: key-value keywords were written by the
// structured namespace, everything else is a plain keyword.
func classifySubject(kw string) taxtag.Tag {
	raw := taxtag.Unquote(kw)
	if i := strings.Index(raw, "="); i > 0 && strings.Count(raw, "=") == 1 {
		key, value := raw[:i], raw[i+1:]
		if value != "" {
			key = strings.TrimPrefix(key, "taxonomy:")
			return taxtag.Tag{
				Namespace: taxtag.NamespaceStructured,
				Key:       key,
				Value:     value,
			}
		}
	}
	return taxtag.Tag{Namespace: taxtag.NamespaceKeyword, Key: raw}
}
