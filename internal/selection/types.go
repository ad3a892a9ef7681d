package selection

// EditRecord is one edit taken from the recent-changes log.
type EditRecord struct {
	RecordID      int64
	ItemID        string
	RawSummary    string
	ContributorID int64
}

// ChangeTag associates a tag name with an edit record.
type ChangeTag struct {
	RecordID int64
	Name     string
}

// ItemAggregate holds the per-item counts the ranking is based on.
type ItemAggregate struct {
	ItemID           string `json:"item_id"`
	ContributorCount int    `json:"contributor_count"`
	ActionCount      int    `json:"action_count"`
}

// IDs returns the item identifiers of items in order.
func IDs(items []ItemAggregate) []string {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ItemID
	}
	return ids
}
