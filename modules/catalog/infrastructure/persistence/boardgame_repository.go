package persistence

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iota-uz/bgcatalog/modules/catalog/domain/aggregates/boardgame"
	"github.com/iota-uz/bgcatalog/modules/catalog/infrastructure/persistence/models"
	"github.com/iota-uz/bgcatalog/pkg/composables"
)

const (
	boardGameFindQuery = `SELECT id, name, bgg_rank, complexity_average, max_players, min_age, min_players,
		owned_users, play_time, rating_average, users_rated, year_published, created_at, updated_at
		FROM board_games`

	// Explicit ids are accepted only while the column is GENERATED BY DEFAULT.
	allowExplicitIDsQuery   = `ALTER TABLE board_games ALTER COLUMN id SET GENERATED BY DEFAULT`
	restoreGeneratedIDQuery = `ALTER TABLE board_games ALTER COLUMN id SET GENERATED ALWAYS`
	resyncIDSequenceQuery   = `SELECT setval(pg_get_serial_sequence('board_games', 'id'),
		COALESCE((SELECT MAX(id) FROM board_games), 0) + 1, false)`
)

var boardGameCopyColumns = []string{
	"id", "name", "bgg_rank", "complexity_average", "max_players", "min_age", "min_players",
	"owned_users", "play_time", "rating_average", "users_rated", "year_published", "created_at", "updated_at",
}

type BoardGameRepository struct{}

func NewBoardGameRepository() boardgame.Repository {
	return &BoardGameRepository{}
}

func (r *BoardGameRepository) IDs(ctx context.Context) ([]int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, `SELECT id FROM board_games ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query board game ids")
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, errors.Wrap(err, "failed to collect board game ids")
	}
	return ids, nil
}

func (r *BoardGameRepository) GetByID(ctx context.Context, id int64) (boardgame.BoardGame, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return boardgame.BoardGame{}, err
	}
	rows, err := tx.Query(ctx, boardGameFindQuery+" WHERE id = $1", id)
	if err != nil {
		return boardgame.BoardGame{}, errors.Wrap(err, "failed to query board game")
	}
	g, err := pgx.CollectExactlyOneRow(rows, scanBoardGame)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return boardgame.BoardGame{}, fmt.Errorf("id %d: %w", id, boardgame.ErrNotFound)
		}
		return boardgame.BoardGame{}, errors.Wrap(err, "failed to scan board game")
	}
	return g, nil
}

func (r *BoardGameRepository) Count(ctx context.Context) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM board_games`).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "failed to count board games")
	}
	return n, nil
}

func (r *BoardGameRepository) CreateMany(ctx context.Context, games []boardgame.BoardGame) error {
	if len(games) == 0 {
		return nil
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	_, err = tx.CopyFrom(ctx, pgx.Identifier{"board_games"}, boardGameCopyColumns,
		pgx.CopyFromSlice(len(games), func(i int) ([]any, error) {
			g := games[i]
			s := g.Stats()
			return []any{
				g.ID(), g.Name(), s.Rank, toNumeric(s.ComplexityAverage), s.MaxPlayers, s.MinAge, s.MinPlayers,
				s.OwnedUsers, s.PlayTime, toNumeric(s.RatingAverage), s.UsersRated, s.YearPublished,
				g.CreatedAt(), g.UpdatedAt(),
			}, nil
		}),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %w", boardgame.ErrDuplicateID, err)
		}
		return errors.Wrap(err, "failed to copy board games")
	}
	return nil
}

// AllowExplicitIDs must run inside the transaction that inserts the games; the
// ALTER TABLE holds an exclusive lock on board_games until that transaction ends.
func (r *BoardGameRepository) AllowExplicitIDs(ctx context.Context) (boardgame.ReleaseFunc, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, allowExplicitIDsQuery); err != nil {
		return nil, errors.Wrap(err, "failed to allow explicit board game ids")
	}
	return func(ctx context.Context) error {
		tx, err := composables.UseTx(ctx)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, restoreGeneratedIDQuery); err != nil {
			return errors.Wrap(err, "failed to restore generated board game ids")
		}
		if _, err := tx.Exec(ctx, resyncIDSequenceQuery); err != nil {
			return errors.Wrap(err, "failed to resync board game id sequence")
		}
		return nil
	}, nil
}

func scanBoardGame(row pgx.CollectableRow) (boardgame.BoardGame, error) {
	var (
		m                  models.BoardGame
		complexity, rating pgtype.Numeric
	)
	if err := row.Scan(
		&m.ID, &m.Name, &m.Rank, &complexity, &m.MaxPlayers, &m.MinAge, &m.MinPlayers,
		&m.OwnedUsers, &m.PlayTime, &rating, &m.UsersRated, &m.YearPublished,
		&m.CreatedAt, &m.UpdatedAt,
	); err != nil {
		return boardgame.BoardGame{}, err
	}
	m.ComplexityAverage = fromNumeric(complexity)
	m.RatingAverage = fromNumeric(rating)
	return toDomainBoardGame(m), nil
}
