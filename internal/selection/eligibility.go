package selection

import (
	"context"
	"log/slog"
)

// DefaultBlocklist holds the sandbox and tour items, which are edited
// constantly for testing purposes.
var DefaultBlocklist = []string{
	"Q4115189",
	"Q13406268",
	"Q15397819",
	"Q16943273",
	"Q17339402",
	"Q85409596",
	"Q85409446",
	"Q85409310",
	"Q85409163",
	"Q85408938",
	"Q85408509",
}

// Reason names the exclusion set that removed an item.
type Reason string

const (
	ReasonBlocklist Reason = "blocklist"
	ReasonDisplayed Reason = "displayed"
	ReasonTechnical Reason = "technical"
)

// Classifier reports whether an item is a technical or structural entry
// (disambiguation page, template, category, ...). Implementations resolve
// query failures themselves; a failed lookup reports false.
type Classifier interface {
	IsTechnical(ctx context.Context, itemID string) bool
}

// Eligibility combines the static blocklist, the currently displayed items
// and the technical-item classifier.
type Eligibility struct {
	blocklist  map[string]struct{}
	displayed  map[string]struct{}
	classifier Classifier
}

// NewEligibility builds an Eligibility. A nil classifier never excludes.
func NewEligibility(blocklist, displayed []string, classifier Classifier) *Eligibility {
	return &Eligibility{
		blocklist:  toSet(blocklist),
		displayed:  toSet(displayed),
		classifier: classifier,
	}
}

// Excluded reports whether itemID must not be selected and why. The set
// lookups run first so the classifier is only consulted for items that
// survive them.
func (e *Eligibility) Excluded(ctx context.Context, itemID string) (Reason, bool) {
	if _, ok := e.blocklist[itemID]; ok {
		return ReasonBlocklist, true
	}
	if _, ok := e.displayed[itemID]; ok {
		return ReasonDisplayed, true
	}
	if e.classifier != nil && e.classifier.IsTechnical(ctx, itemID) {
		return ReasonTechnical, true
	}
	return "", false
}

// Filter removes excluded items from ranked, keeping order. When limit is
// positive, filtering stops as soon as limit eligible items are found; the
// result then equals Truncate(Filter(ranked, 0), limit) while sparing the
// classifier calls for the tail.
func (e *Eligibility) Filter(ctx context.Context, ranked []ItemAggregate, limit int) []ItemAggregate {
	out := make([]ItemAggregate, 0, len(ranked))
	for _, it := range ranked {
		if limit > 0 && len(out) >= limit {
			break
		}
		if reason, excluded := e.Excluded(ctx, it.ItemID); excluded {
			slog.Debug("selection: item excluded", "item", it.ItemID, "reason", reason)
			continue
		}
		out = append(out, it)
	}
	return out
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
