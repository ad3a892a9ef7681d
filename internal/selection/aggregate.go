package selection

import "sort"

// DefaultMinActors is the default minimum number of distinct contributors.
const DefaultMinActors = 3

// actionKey identifies a distinct action within an item. Records without a
// magic token all share the zero key.
type actionKey struct {
	token   string
	matched bool
}

// Aggregate groups records by item and counts distinct contributors and
// distinct actions. Items with fewer than minActors contributors are dropped
// before summaries are parsed. Rows are emitted in ascending item id order.
func Aggregate(records []EditRecord, minActors int) []ItemAggregate {
	byItem := make(map[string][]EditRecord)
	for _, r := range records {
		byItem[r.ItemID] = append(byItem[r.ItemID], r)
	}

	ids := make([]string, 0, len(byItem))
	for id := range byItem {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []ItemAggregate
	for _, id := range ids {
		group := byItem[id]

		actors := make(map[int64]struct{})
		for _, r := range group {
			actors[r.ContributorID] = struct{}{}
		}
		if len(actors) < minActors {
			continue
		}

		actions := make(map[actionKey]struct{})
		for _, r := range group {
			p := ParseSummary(r.RawSummary)
			actions[actionKey{token: p.MagicToken, matched: p.Matched}] = struct{}{}
		}

		out = append(out, ItemAggregate{
			ItemID:           id,
			ContributorCount: len(actors),
			ActionCount:      len(actions),
		})
	}
	return out
}
