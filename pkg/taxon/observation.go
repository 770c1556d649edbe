package taxon

// Term is a Darwin Core term name, including its namespace prefix
// (e.g. "dwc:locality", "dcterms:modified").
type Term string

// Darwin Core terms relevant to image tagging. The full DwC
// vocabulary is much larger; these are the terms an observation
// record populates.
const (
	TermOccurrenceID     Term = "dwc:occurrenceID"
	TermCatalogNumber    Term = "dwc:catalogNumber"
	TermTaxonID          Term = "dwc:taxonID"
	TermEventDate        Term = "dwc:eventDate"
	TermRecordedBy       Term = "dwc:recordedBy"
	TermIdentifiedBy     Term = "dwc:identifiedBy"
	TermLocality         Term = "dwc:locality"
	TermDecimalLatitude  Term = "dwc:decimalLatitude"
	TermDecimalLongitude Term = "dwc:decimalLongitude"
	TermCountryCode      Term = "dwc:countryCode"
	TermStateProvince    Term = "dwc:stateProvince"
	TermScientificName   Term = "dwc:scientificName"
	TermTaxonRank        Term = "dwc:taxonRank"
	TermVernacularName   Term = "dwc:vernacularName"
	TermBasisOfRecord    Term = "dwc:basisOfRecord"
	TermInstitutionCode  Term = "dwc:institutionCode"
	TermModified         Term = "dcterms:modified"
	TermLicense          Term = "dcterms:license"
)

// Observation is a single occurrence record identified to a taxon.
// Observations are created per tagging run and never persisted, in
// contrast to Taxon rows which live in the local store.
type Observation struct {
	ID        int64
	TaxonID   int64
	DwC       map[Term]string
	PhotoURLs []string
}

// DwCValue returns the value of a Darwin Core term, or "" when the
// term is not populated.
func (o *Observation) DwCValue(t Term) string {
	if o == nil || o.DwC == nil {
		return ""
	}
	return o.DwC[t]
}

// SetDwC sets a Darwin Core term, ignoring empty values so that
// absent fields stay absent.
func (o *Observation) SetDwC(t Term, v string) {
	if v == "" {
		return
	}
	if o.DwC == nil {
		o.DwC = make(map[Term]string)
	}
	o.DwC[t] = v
}
