package ingest

import (
	"context"
	"fmt"

	"github.com/iota-uz/bgcatalog/modules/catalog/domain/entities/lookup"
)

// GameIDSource lists the ids of every stored board game.
type GameIDSource interface {
	IDs(ctx context.Context) ([]int64, error)
}

// LookupSource lists the stored lookups of a category.
type LookupSource interface {
	List(ctx context.Context, category lookup.Category) ([]*lookup.Lookup, error)
}

// Indexes is the in-memory view of existing state for one run. The reconciler
// extends it as it accepts rows; it is never shared between runs.
type Indexes struct {
	gameIDs map[int64]struct{}
	lookups map[lookup.Category]*LookupIndex
}

func NewIndexes() *Indexes {
	idx := &Indexes{
		gameIDs: make(map[int64]struct{}),
		lookups: make(map[lookup.Category]*LookupIndex, 2),
	}
	for _, c := range lookup.Categories() {
		idx.lookups[c] = newLookupIndex(0)
	}
	return idx
}

// LoadIndexes reads the stored game ids and every lookup of both categories.
func LoadIndexes(ctx context.Context, games GameIDSource, lookups LookupSource) (*Indexes, error) {
	ids, err := games.IDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: board game ids: %w", ErrLoadState, err)
	}

	idx := NewIndexes()
	for _, id := range ids {
		idx.gameIDs[id] = struct{}{}
	}

	for _, c := range lookup.Categories() {
		items, err := lookups.List(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadState, c, err)
		}
		li := newLookupIndex(len(items))
		for _, l := range items {
			li.Put(l)
		}
		idx.lookups[c] = li
	}
	return idx, nil
}

func (i *Indexes) HasGame(id int64) bool {
	_, ok := i.gameIDs[id]
	return ok
}

func (i *Indexes) AddGame(id int64) {
	i.gameIDs[id] = struct{}{}
}

func (i *Indexes) GameCount() int {
	return len(i.gameIDs)
}

// Lookups returns the index of a category. It panics on an unknown category.
func (i *Indexes) Lookups(c lookup.Category) *LookupIndex {
	li, ok := i.lookups[c]
	if !ok {
		panic(fmt.Sprintf("ingest: no lookup index for category %q", c))
	}
	return li
}

// LookupIndex maps case-folded names to lookups.
type LookupIndex struct {
	byKey map[string]*lookup.Lookup
}

func newLookupIndex(size int) *LookupIndex {
	return &LookupIndex{byKey: make(map[string]*lookup.Lookup, size)}
}

func (li *LookupIndex) Get(name string) (*lookup.Lookup, bool) {
	l, ok := li.byKey[lookup.Key(name)]
	return l, ok
}

// Put indexes l unless a lookup with the same key is already present.
// It reports whether l was added.
func (li *LookupIndex) Put(l *lookup.Lookup) bool {
	key := l.Key()
	if _, ok := li.byKey[key]; ok {
		return false
	}
	li.byKey[key] = l
	return true
}

func (li *LookupIndex) Len() int {
	return len(li.byKey)
}
