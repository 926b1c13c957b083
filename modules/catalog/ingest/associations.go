package ingest

import (
	"time"

	"github.com/iota-uz/bgcatalog/modules/catalog/domain/entities/gamelink"
	"github.com/iota-uz/bgcatalog/modules/catalog/domain/entities/lookup"
)

// BuildLinks returns one link per lookup of an accepted outcome, grouped by category.
// Skipped outcomes produce no links.
func BuildLinks(out Outcome, now time.Time) map[lookup.Category][]gamelink.Link {
	if out.Skipped {
		return nil
	}
	links := make(map[lookup.Category][]gamelink.Link, 2)
	for _, c := range lookup.Categories() {
		tags := out.Tags(c)
		if len(tags) == 0 {
			continue
		}
		ls := make([]gamelink.Link, 0, len(tags))
		for _, l := range tags {
			ls = append(ls, gamelink.New(c, out.Game.ID(), l, now))
		}
		links[c] = ls
	}
	return links
}
