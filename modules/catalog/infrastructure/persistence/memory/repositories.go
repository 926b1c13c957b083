package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/iota-uz/bgcatalog/modules/catalog/domain/aggregates/boardgame"
	"github.com/iota-uz/bgcatalog/modules/catalog/domain/entities/gamelink"
	"github.com/iota-uz/bgcatalog/modules/catalog/domain/entities/lookup"
)

var (
	_ boardgame.Repository = (*BoardGameRepository)(nil)
	_ lookup.Repository    = (*LookupRepository)(nil)
	_ gamelink.Repository  = (*LinkRepository)(nil)
)

type BoardGameRepository struct {
	store *Store
}

func NewBoardGameRepository(s *Store) *BoardGameRepository {
	return &BoardGameRepository{store: s}
}

func (r *BoardGameRepository) IDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	r.store.read(ctx, func(st *memoryState) {
		ids = make([]int64, 0, len(st.games))
		for id := range st.games {
			ids = append(ids, id)
		}
	})
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (r *BoardGameRepository) GetByID(ctx context.Context, id int64) (boardgame.BoardGame, error) {
	var (
		g  boardgame.BoardGame
		ok bool
	)
	r.store.read(ctx, func(st *memoryState) {
		g, ok = st.games[id]
	})
	if !ok {
		return boardgame.BoardGame{}, fmt.Errorf("id %d: %w", id, boardgame.ErrNotFound)
	}
	return g, nil
}

func (r *BoardGameRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	r.store.read(ctx, func(st *memoryState) {
		n = int64(len(st.games))
	})
	return n, nil
}

func (r *BoardGameRepository) CreateMany(ctx context.Context, games []boardgame.BoardGame) error {
	return r.store.write(ctx, func(st *memoryState) error {
		if !st.explicitIDs {
			return ErrExplicitIDsNotAllowed
		}
		for _, g := range games {
			if _, exists := st.games[g.ID()]; exists {
				return fmt.Errorf("id %d: %w", g.ID(), boardgame.ErrDuplicateID)
			}
			st.games[g.ID()] = g
		}
		return nil
	})
}

func (r *BoardGameRepository) AllowExplicitIDs(ctx context.Context) (boardgame.ReleaseFunc, error) {
	err := r.store.mutate(ctx, func(st *memoryState) error {
		st.explicitIDs = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context) error {
		r.store.noteRelease(ctx)
		return r.store.mutate(ctx, func(st *memoryState) error {
			st.explicitIDs = false
			return nil
		})
	}, nil
}

type LookupRepository struct {
	store *Store
}

func NewLookupRepository(s *Store) *LookupRepository {
	return &LookupRepository{store: s}
}

func (r *LookupRepository) List(ctx context.Context, category lookup.Category) ([]*lookup.Lookup, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("%w: %q", lookup.ErrUnknownCategory, category)
	}
	var out []*lookup.Lookup
	r.store.read(ctx, func(st *memoryState) {
		rows := st.lookups[category]
		out = make([]*lookup.Lookup, 0, len(rows))
		for _, row := range rows {
			out = append(out, lookup.Hydrate(row.id, row.name, row.createdAt, row.updatedAt))
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out, nil
}

func (r *LookupRepository) Count(ctx context.Context, category lookup.Category) (int64, error) {
	if !category.Valid() {
		return 0, fmt.Errorf("%w: %q", lookup.ErrUnknownCategory, category)
	}
	var n int64
	r.store.read(ctx, func(st *memoryState) {
		n = int64(len(st.lookups[category]))
	})
	return n, nil
}

// CreateMany assigns ids to the lookups only when every insert succeeds.
func (r *LookupRepository) CreateMany(ctx context.Context, category lookup.Category, lookups []*lookup.Lookup) error {
	if !category.Valid() {
		return fmt.Errorf("%w: %q", lookup.ErrUnknownCategory, category)
	}
	ids := make([]int64, len(lookups))
	err := r.store.write(ctx, func(st *memoryState) error {
		keys := make(map[string]struct{}, len(st.lookups[category]))
		for _, row := range st.lookups[category] {
			keys[lookup.Key(row.name)] = struct{}{}
		}
		for i, l := range lookups {
			if _, dup := keys[l.Key()]; dup {
				return fmt.Errorf("%s %q: %w", category, l.Name(), lookup.ErrDuplicateName)
			}
			keys[l.Key()] = struct{}{}
			id := st.nextLookup[category]
			st.nextLookup[category] = id + 1
			st.lookups[category][id] = lookupRow{id: id, name: l.Name(), createdAt: l.CreatedAt(), updatedAt: l.UpdatedAt()}
			ids[i] = id
		}
		return nil
	})
	if err != nil {
		return err
	}
	for i, l := range lookups {
		l.SetID(ids[i])
	}
	return nil
}

type LinkRepository struct {
	store *Store
}

func NewLinkRepository(s *Store) *LinkRepository {
	return &LinkRepository{store: s}
}

func (r *LinkRepository) Count(ctx context.Context, category lookup.Category) (int64, error) {
	if !category.Valid() {
		return 0, fmt.Errorf("%w: %q", lookup.ErrUnknownCategory, category)
	}
	var n int64
	r.store.read(ctx, func(st *memoryState) {
		n = int64(len(st.links[category]))
	})
	return n, nil
}

func (r *LinkRepository) CreateMany(ctx context.Context, category lookup.Category, links []gamelink.Link) error {
	if !category.Valid() {
		return fmt.Errorf("%w: %q", lookup.ErrUnknownCategory, category)
	}
	return r.store.write(ctx, func(st *memoryState) error {
		for _, l := range links {
			if _, ok := st.games[l.BoardGameID()]; !ok {
				return fmt.Errorf("link to board game %d: %w", l.BoardGameID(), boardgame.ErrNotFound)
			}
			if _, ok := st.lookups[category][l.LookupID()]; !ok {
				return fmt.Errorf("link to %s %d: not found", category, l.LookupID())
			}
			key := linkKey{boardGameID: l.BoardGameID(), lookupID: l.LookupID()}
			if _, dup := st.links[category][key]; dup {
				return fmt.Errorf("duplicate %s link (%d, %d)", category, key.boardGameID, key.lookupID)
			}
			st.links[category][key] = l.CreatedAt()
		}
		return nil
	})
}
