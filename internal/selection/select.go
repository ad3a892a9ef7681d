package selection

// DefaultLimit is the number of items shown on the display page.
const DefaultLimit = 7

// Truncate returns at most the first k items.
func Truncate(items []ItemAggregate, k int) []ItemAggregate {
	if k < 0 {
		k = 0
	}
	if len(items) <= k {
		return items
	}
	return items[:k]
}
