package selection

import "sort"

// Rank orders items by action count, then contributor count, both
// descending. Ties keep their input order. The input slice is not modified.
func Rank(items []ItemAggregate) []ItemAggregate {
	ranked := make([]ItemAggregate, len(items))
	copy(ranked, items)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].ActionCount != ranked[j].ActionCount {
			return ranked[i].ActionCount > ranked[j].ActionCount
		}
		return ranked[i].ContributorCount > ranked[j].ContributorCount
	})
	return ranked
}
