package persistence

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/iota-uz/bgcatalog/modules/catalog/domain/entities/gamelink"
	"github.com/iota-uz/bgcatalog/modules/catalog/domain/entities/lookup"
	"github.com/iota-uz/bgcatalog/pkg/composables"
)

type GameLinkRepository struct{}

func NewGameLinkRepository() gamelink.Repository {
	return &GameLinkRepository{}
}

func (r *GameLinkRepository) Count(ctx context.Context, category lookup.Category) (int64, error) {
	t, err := tablesFor(category)
	if err != nil {
		return 0, err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := tx.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, t.links)).Scan(&n); err != nil {
		return 0, errors.Wrapf(err, "failed to count %s", t.links)
	}
	return n, nil
}

// CreateMany copies the links; every referenced lookup must already have an id.
func (r *GameLinkRepository) CreateMany(ctx context.Context, category lookup.Category, links []gamelink.Link) error {
	if len(links) == 0 {
		return nil
	}
	t, err := tablesFor(category)
	if err != nil {
		return err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	_, err = tx.CopyFrom(ctx, pgx.Identifier{t.links}, []string{"board_game_id", t.fk, "created_at"},
		pgx.CopyFromSlice(len(links), func(i int) ([]any, error) {
			l := links[i]
			if l.LookupID() == 0 {
				return nil, fmt.Errorf("%s link for board game %d references an unsaved lookup", category, l.BoardGameID())
			}
			return []any{l.BoardGameID(), l.LookupID(), l.CreatedAt()}, nil
		}),
	)
	if err != nil {
		return errors.Wrapf(err, "failed to copy %s", t.links)
	}
	return nil
}
