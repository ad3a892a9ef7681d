package wdqs

import (
	"context"
	"fmt"
	"log/slog"
)

// DefaultTechnicalClasses are the class paths checked, in order, to decide
// whether an item is a technical entry rather than content.
var DefaultTechnicalClasses = []string{
	"wdt:P31/wdt:P279* wd:Q4167410",  // Wikimedia disambiguation page
	"wdt:P31/wdt:P279* wd:Q11266439", // Wikimedia template
	"wdt:P31/wdt:P279* wd:Q4167836",  // Wikimedia category
}

// Asker answers SPARQL ASK queries.
type Asker interface {
	Ask(ctx context.Context, query string) (bool, error)
}

// TechnicalClassifier resolves technical items by asking one question per
// class path and stopping at the first positive answer.
type TechnicalClassifier struct {
	asker   Asker
	classes []string
}

// NewTechnicalClassifier returns a classifier over classes. A nil or empty
// classes slice selects DefaultTechnicalClasses.
func NewTechnicalClassifier(asker Asker, classes []string) *TechnicalClassifier {
	if len(classes) == 0 {
		classes = DefaultTechnicalClasses
	}
	return &TechnicalClassifier{asker: asker, classes: classes}
}

// IsTechnical reports whether itemID belongs to any technical class. A
// failed query counts as "not in this class": the item stays eligible when
// the query service misbehaves.
func (c *TechnicalClassifier) IsTechnical(ctx context.Context, itemID string) bool {
	for _, class := range c.classes {
		query := fmt.Sprintf("ASK { wd:%s %s }", itemID, class)
		ok, err := c.asker.Ask(ctx, query)
		if err != nil {
			slog.Warn("wdqs: classification query failed, treating as false",
				"item", itemID, "class", class, "error", err)
			continue
		}
		if ok {
			return true
		}
	}
	return false
}
