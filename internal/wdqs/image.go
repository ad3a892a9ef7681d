package wdqs

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/kalambet/popular/internal/render"
)

const (
	entityPrefix   = "http://www.wikidata.org/entity/"
	filePathPrefix = "http://commons.wikimedia.org/wiki/Special:FilePath/"
)

// Selecter runs SPARQL SELECT queries.
type Selecter interface {
	Select(ctx context.Context, query string) ([]Binding, error)
}

// ImageFinder looks up an illustrative image (P18) for a set of items.
type ImageFinder struct {
	selecter Selecter
}

// NewImageFinder returns an ImageFinder backed by s.
func NewImageFinder(s Selecter) *ImageFinder {
	return &ImageFinder{selecter: s}
}

// FindImage returns the first item, in result order, that has an image. The
// query service samples one image per item, so the file can vary between
// runs. Query failures are reported as "no image".
func (f *ImageFinder) FindImage(ctx context.Context, itemIDs []string) (*render.Image, bool) {
	if len(itemIDs) == 0 {
		return nil, false
	}

	rows, err := f.selecter.Select(ctx, imageQuery(itemIDs))
	if err != nil {
		slog.Warn("wdqs: image lookup failed", "error", err)
		return nil, false
	}

	for _, row := range rows {
		raw := row["img"]
		if raw == "" {
			continue
		}
		file := strings.TrimPrefix(raw, filePathPrefix)
		if decoded, err := url.PathUnescape(file); err == nil {
			file = decoded
		}
		return &render.Image{
			ItemID: strings.TrimPrefix(row["item"], entityPrefix),
			File:   file,
		}, true
	}
	return nil, false
}

func imageQuery(itemIDs []string) string {
	return fmt.Sprintf(`SELECT ?item (SAMPLE(?image) AS ?img) WHERE {
  VALUES ?item { wd:%s }
  OPTIONAL { ?item wdt:P18 ?image }
} GROUP BY ?item`, strings.Join(itemIDs, " wd:"))
}
