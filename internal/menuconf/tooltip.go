package menuconf

import "strings"

// Metadata sources accepted by Tooltip.
const (
	SourceOGC   = "ogc"
	SourceLayer = "layer"
	SourceNote  = "note"
)

// Tooltip renders the hover text of a layer entry. sources gives the
// precedence: the first source with a title or abstract wins for each part.
// Values are rich text already and are not escaped.
func Tooltip(l *MenuLayerConfig, sources []string) string {
	var title, abstract string
	for _, src := range sources {
		var t, a string
		switch strings.ToLower(src) {
		case SourceOGC:
			t, a = l.MetadataTitle, l.MetadataAbstract
		case SourceLayer:
			t, a = l.Title, l.Abstract
		case SourceNote:
			a = l.LayerNotes
		}
		if title == "" {
			title = t
		}
		if abstract == "" {
			abstract = a
		}
	}

	switch {
	case abstract != "" && title == "":
		return "<p>" + abstract + "</p>"
	case abstract != "" || title != "":
		return "<b>" + title + "</b><br/>" + abstract
	default:
		return ""
	}
}
