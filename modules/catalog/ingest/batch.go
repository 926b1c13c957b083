package ingest

import (
	"github.com/iota-uz/bgcatalog/modules/catalog/domain/aggregates/boardgame"
	"github.com/iota-uz/bgcatalog/modules/catalog/domain/entities/gamelink"
	"github.com/iota-uz/bgcatalog/modules/catalog/domain/entities/lookup"
)

// Batch accumulates everything a run will write. Nothing in it is visible to
// the store until Persister.Persist commits it.
type Batch struct {
	Games      []boardgame.BoardGame
	NewLookups map[lookup.Category][]*lookup.Lookup
	Links      map[lookup.Category][]gamelink.Link
	Skipped    map[SkipReason]int64
}

func NewBatch() *Batch {
	return &Batch{
		NewLookups: make(map[lookup.Category][]*lookup.Lookup, 2),
		Links:      make(map[lookup.Category][]gamelink.Link, 2),
		Skipped:    make(map[SkipReason]int64, len(SkipReasons())),
	}
}

// Add records a reconciled outcome together with its links.
func (b *Batch) Add(out Outcome, links map[lookup.Category][]gamelink.Link) {
	if out.Skipped {
		b.Skip(out.Reason)
		return
	}
	b.Games = append(b.Games, out.Game)
	for c, created := range out.Created {
		b.NewLookups[c] = append(b.NewLookups[c], created...)
	}
	for c, ls := range links {
		b.Links[c] = append(b.Links[c], ls...)
	}
}

func (b *Batch) Skip(reason SkipReason) {
	b.Skipped[reason]++
}

func (b *Batch) SkippedRows() int64 {
	var n int64
	for _, v := range b.Skipped {
		n += v
	}
	return n
}

func (b *Batch) Accepted() int64 {
	return int64(len(b.Games))
}

func (b *Batch) LinkCount(c lookup.Category) int {
	return len(b.Links[c])
}

// Empty reports whether the batch has nothing to write.
func (b *Batch) Empty() bool {
	if len(b.Games) > 0 {
		return false
	}
	for _, c := range lookup.Categories() {
		if len(b.NewLookups[c]) > 0 || len(b.Links[c]) > 0 {
			return false
		}
	}
	return true
}
