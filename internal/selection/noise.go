package selection

import "strings"

// DefaultAutomatedMarker marks change tags set by OAuth consumers and
// similar automated editing tools.
const DefaultAutomatedMarker = "OAuth"

// FilterAutomated drops every record that carries a change tag whose name
// contains marker. Matching is a case-sensitive substring test. The order of
// the surviving records is preserved.
func FilterAutomated(records []EditRecord, tags []ChangeTag, marker string) []EditRecord {
	ignored := make(map[int64]struct{})
	for _, t := range tags {
		if strings.Contains(t.Name, marker) {
			ignored[t.RecordID] = struct{}{}
		}
	}

	out := make([]EditRecord, 0, len(records))
	for _, r := range records {
		if _, skip := ignored[r.RecordID]; skip {
			continue
		}
		out = append(out, r)
	}
	return out
}
