// Package render turns the selected items into the wikitext of the display page.
package render

import "strings"

// Image is an illustrative file for one of the selected items.
type Image struct {
	ItemID string `json:"item_id"`
	File   string `json:"file"`
}

const (
	noImageHeader = "<nowiki />\n"
	imageHeader   = `<span style="float: {{dir|{{{lang|{{int:lang}}}}}|left|right}}; padding-top: 0.5em; padding-{{dir|{{{lang|{{int:lang}}}}}|right|left}}: 0.5em;">[[File:%FILE%|100px]]</span>` + "\n"
	picturedMark  = " ({{I18n|pictured}})"
	footer        = `<span style="clear: {{dir|{{{lang|{{int:lang}}}}}|left|right}};"></span><noinclude>[[Category:Wikidata:Main Page]]</noinclude>`
)

// Wikitext renders itemIDs as a bullet list in the given order. When image
// is non-nil the file is floated next to the list and the matching entry is
// marked as pictured; otherwise a placeholder header is emitted.
func Wikitext(itemIDs []string, image *Image) string {
	var b strings.Builder

	pictured := ""
	if image == nil {
		b.WriteString(noImageHeader)
	} else {
		pictured = image.ItemID
		b.WriteString(strings.Replace(imageHeader, "%FILE%", image.File, 1))
	}

	for i, id := range itemIDs {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("* {{Q|")
		b.WriteString(id)
		b.WriteString("}}")
		if image != nil && id == pictured {
			b.WriteString(picturedMark)
		}
	}

	b.WriteString(footer)
	return b.String()
}
