package taxon

// IconicTaxa maps the ids of iNaturalist's broad "iconic" categories
// to their names. Used for display grouping in search results.
var IconicTaxa = map[int64]string{
	0:     "Unknown",
	1:     "Animalia",
	3:     "Aves",
	20978: "Amphibia",
	26036: "Reptilia",
	40151: "Mammalia",
	47115: "Mollusca",
	47119: "Arachnida",
	47126: "Plantae",
	47158: "Insecta",
	47170: "Fungi",
	47178: "Actinopterygii",
	48222: "Chromista",
	67333: "Protozoa",
}

// IconicName returns the iconic category name for an id, or "Unknown".
func IconicName(id int64) string {
	if name, ok := IconicTaxa[id]; ok {
		return name
	}
	return "Unknown"
}
