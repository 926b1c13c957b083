package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/bgcatalog/modules/catalog/domain/aggregates/boardgame"
	"github.com/iota-uz/bgcatalog/modules/catalog/domain/entities/gamelink"
	"github.com/iota-uz/bgcatalog/modules/catalog/domain/entities/lookup"
	"github.com/iota-uz/bgcatalog/modules/catalog/ingest"
)

var at = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestStore_RollbackDiscardsWrites(t *testing.T) {
	s := NewStore()
	lookups := NewLookupRepository(s)
	ctx := context.Background()

	l := lookup.New("Strategy", at)
	err := s.InTx(ctx, func(txCtx context.Context) error {
		require.NoError(t, lookups.CreateMany(txCtx, lookup.Domains, []*lookup.Lookup{l}))
		n, err := lookups.Count(txCtx, lookup.Domains)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n, "visible inside the transaction")
		return errors.New("abort")
	})
	require.Error(t, err)

	n, err := lookups.Count(ctx, lookup.Domains)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStore_SavepointRollbackKeepsOuterTx(t *testing.T) {
	s := NewStore()
	games := NewBoardGameRepository(s)
	ctx := context.Background()

	err := s.InTx(ctx, func(txCtx context.Context) error {
		release, err := games.AllowExplicitIDs(txCtx)
		require.NoError(t, err)

		spErr := s.InSavepoint(txCtx, func(spCtx context.Context) error {
			require.NoError(t, games.CreateMany(spCtx, []boardgame.BoardGame{boardgame.New(1, "A", boardgame.Stats{}, at)}))
			return errors.New("fail inside savepoint")
		})
		require.Error(t, spErr)

		n, err := games.Count(txCtx)
		require.NoError(t, err)
		assert.Zero(t, n)
		return release(txCtx)
	})
	require.NoError(t, err)
	assert.Equal(t, 1, s.Releases())
	assert.False(t, s.ExplicitIDsAllowed())
}

func TestBoardGameRepository_RequiresExplicitIDScope(t *testing.T) {
	s := NewStore()
	games := NewBoardGameRepository(s)

	err := games.CreateMany(context.Background(), []boardgame.BoardGame{boardgame.New(1, "A", boardgame.Stats{}, at)})
	require.ErrorIs(t, err, ErrExplicitIDsNotAllowed)
}

func TestBoardGameRepository_DuplicateID(t *testing.T) {
	s := NewStore()
	s.AddBoardGame(boardgame.New(1, "A", boardgame.Stats{}, at))
	games := NewBoardGameRepository(s)

	err := s.InTx(context.Background(), func(txCtx context.Context) error {
		if _, err := games.AllowExplicitIDs(txCtx); err != nil {
			return err
		}
		return games.CreateMany(txCtx, []boardgame.BoardGame{boardgame.New(1, "B", boardgame.Stats{}, at)})
	})
	require.ErrorIs(t, err, boardgame.ErrDuplicateID)

	g, err := games.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "A", g.Name())

	_, err = games.GetByID(context.Background(), 2)
	require.ErrorIs(t, err, boardgame.ErrNotFound)
}

func TestLookupRepository_CaseInsensitiveUniqueness(t *testing.T) {
	s := NewStore()
	s.AddLookup(lookup.Mechanics, "Dice Rolling", at)
	lookups := NewLookupRepository(s)

	l := lookup.New("DICE ROLLING", at)
	err := lookups.CreateMany(context.Background(), lookup.Mechanics, []*lookup.Lookup{l})
	require.ErrorIs(t, err, lookup.ErrDuplicateName)
	assert.False(t, l.IsPersisted())

	_, err = lookups.List(context.Background(), lookup.Category("themes"))
	require.ErrorIs(t, err, lookup.ErrUnknownCategory)
}

func TestLinkRepository_RejectsUnsavedLookup(t *testing.T) {
	s := NewStore()
	s.AddBoardGame(boardgame.New(1, "A", boardgame.Stats{}, at))
	links := NewLinkRepository(s)

	unsaved := lookup.New("Strategy", at)
	err := links.CreateMany(context.Background(), lookup.Domains, []gamelink.Link{gamelink.New(lookup.Domains, 1, unsaved, at)})
	require.Error(t, err)

	saved := s.AddLookup(lookup.Domains, "Strategy", at)
	require.NoError(t, links.CreateMany(context.Background(), lookup.Domains, []gamelink.Link{gamelink.New(lookup.Domains, 1, saved, at)}))
	assert.Equal(t, []string{"Strategy"}, s.LinkedNames(lookup.Domains, 1))
}

func TestStore_Lock(t *testing.T) {
	s := NewStore()
	unlock, err := s.Lock(context.Background())
	require.NoError(t, err)

	_, err = s.Lock(context.Background())
	require.ErrorIs(t, err, ingest.ErrRunInProgress)

	unlock()
	unlock2, err := s.Lock(context.Background())
	require.NoError(t, err)
	unlock2()
}
