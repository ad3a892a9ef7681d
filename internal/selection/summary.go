package selection

import (
	"regexp"
	"strings"
)

// summaryPattern splits an autogenerated "/* token */ free text" summary.
// The token capture is non-greedy so it ends at the first " */".
var summaryPattern = regexp.MustCompile(`^\s*/\* (.+?) \*/ ?(.*)`)

// ParsedSummary is the result of splitting a raw edit summary.
// Matched is false when the summary carries no magic token; both text
// fields are empty in that case.
type ParsedSummary struct {
	MagicToken string
	FreeText   string
	Matched    bool
}

// ParseSummary extracts the magic token and the free text from raw.
func ParseSummary(raw string) ParsedSummary {
	if raw == "" {
		return ParsedSummary{}
	}
	m := summaryPattern.FindStringSubmatch(raw)
	if m == nil || strings.Contains(m[1], "*/") {
		return ParsedSummary{}
	}
	return ParsedSummary{MagicToken: m[1], FreeText: m[2], Matched: true}
}
