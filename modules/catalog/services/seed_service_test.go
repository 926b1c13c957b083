package services_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/bgcatalog/modules/catalog/domain/aggregates/boardgame"
	"github.com/iota-uz/bgcatalog/modules/catalog/domain/entities/lookup"
	"github.com/iota-uz/bgcatalog/modules/catalog/infrastructure/persistence/memory"
	"github.com/iota-uz/bgcatalog/modules/catalog/ingest"
	"github.com/iota-uz/bgcatalog/modules/catalog/services"
)

const header = "ID;Name;Year Published;Min Players;Max Players;Play Time;Min Age;Users Rated;Rating Average;BGG Rank;Complexity Average;Owned Users;Mechanics;Domains"

var fixedNow = time.Date(2024, 5, 4, 10, 30, 0, 0, time.FixedZone("BRT", -3*60*60))

type harness struct {
	store   *memory.Store
	games   *memory.BoardGameRepository
	service *services.SeedService
	logs    *bytes.Buffer
}

func newHarness(t *testing.T) harness {
	t.Helper()
	s := memory.NewStore()
	games := memory.NewBoardGameRepository(s)

	logs := &bytes.Buffer{}
	logger := logrus.New()
	logger.SetOutput(logs)
	logger.SetLevel(logrus.DebugLevel)

	svc := services.NewSeedService(
		games,
		memory.NewLookupRepository(s),
		memory.NewLinkRepository(s),
		s,
		logger,
		services.WithClock(func() time.Time { return fixedNow }),
		services.WithRunLocker(s),
		services.WithRunID(func() uuid.UUID { return uuid.MustParse("6f1c1b1e-3d4f-4a5b-9c6d-7e8f9a0b1c2d") }),
	)
	return harness{store: s, games: games, service: svc, logs: logs}
}

func writeSource(t *testing.T, rows ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bgg_dataset.csv")
	content := header + "\n" + strings.Join(rows, "\n") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func opts(source string) services.SeedOptions {
	return services.SeedOptions{Source: source, Parser: ingest.DefaultParserConfig()}
}

func TestSeed_ImportsAndReportsTotals(t *testing.T) {
	h := newHarness(t)
	src := writeSource(t,
		"174430;Gloomhaven;2017;1;4;120;14;42055;8,79;1;3,86;68323;Action Queue, Hand Management;Strategy Games, Thematic Games",
		"161936;Pandemic Legacy: Season 1;2015;2;4;60;13;41643;8,61;2;2,84;65294;Action Points, Hand Management;Strategy Games",
		";Nameless;2000;;;;;;;;;;;",
		"224517;;2018;;;;;;;;;;;",
	)

	res, err := h.service.Seed(context.Background(), opts(src))
	require.NoError(t, err)

	assert.Equal(t, int64(2), res.BoardGames)
	assert.Equal(t, int64(2), res.Domains)
	assert.Equal(t, int64(3), res.Mechanics)
	assert.Equal(t, int64(2), res.SkippedRows)
	assert.Equal(t, int64(1), res.Skipped[ingest.SkipMissingID])
	assert.Equal(t, int64(1), res.Skipped[ingest.SkipMissingName])
	assert.Equal(t, int64(2), res.Accepted)
	assert.Equal(t, "6f1c1b1e-3d4f-4a5b-9c6d-7e8f9a0b1c2d", res.RunID.String())

	g, err := h.games.GetByID(context.Background(), 174430)
	require.NoError(t, err)
	assert.Equal(t, "8.79", g.Stats().RatingAverage.String())
	assert.Equal(t, fixedNow.UTC(), g.CreatedAt())

	other, err := h.games.GetByID(context.Background(), 161936)
	require.NoError(t, err)
	assert.Equal(t, g.CreatedAt(), other.CreatedAt(), "one timestamp per run")

	assert.Equal(t, []string{"Action Points", "Hand Management"}, h.store.LinkedNames(lookup.Mechanics, 161936))
	assert.Contains(t, h.logs.String(), "run-id=6f1c1b1e-3d4f-4a5b-9c6d-7e8f9a0b1c2d")
	assert.Contains(t, h.logs.String(), "seed run finished")
}

func TestSeed_SecondRunSkipsEverything(t *testing.T) {
	h := newHarness(t)
	src := writeSource(t,
		"1;Catan;1995;3;4;120;10;100;7,1;10;2,3;1000;Dice Rolling;Family Games",
		"2;Carcassonne;2000;2;5;45;7;100;7,4;20;1,9;1000;Tile Placement;Family Games",
	)

	first, err := h.service.Seed(context.Background(), opts(src))
	require.NoError(t, err)
	second, err := h.service.Seed(context.Background(), opts(src))
	require.NoError(t, err)

	assert.Equal(t, first.Accepted, second.SkippedRows)
	assert.Equal(t, int64(0), second.Accepted)
	assert.Equal(t, first.BoardGames, second.BoardGames)
	assert.Equal(t, first.Domains, second.Domains)
	assert.Equal(t, first.Mechanics, second.Mechanics)
}

func TestSeed_IDFilter(t *testing.T) {
	h := newHarness(t)
	src := writeSource(t,
		"100;A;;;;;;;;;;;;",
		"101;B;;;;;;;;;;;;",
		"102;C;;;;;;;;;;;;",
	)
	id := int64(100)
	o := opts(src)
	o.ID = &id

	res, err := h.service.Seed(context.Background(), o)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.BoardGames)
	assert.Equal(t, int64(2), res.Skipped[ingest.SkipFilteredOut])
}

func TestSeed_NumericFieldDefaultsToZero(t *testing.T) {
	h := newHarness(t)
	src := writeSource(t, "5;Azul;2017;2;4;45;8;100;n/a;;;;;")

	res, err := h.service.Seed(context.Background(), opts(src))
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.SkippedRows)

	g, err := h.games.GetByID(context.Background(), 5)
	require.NoError(t, err)
	assert.True(t, g.Stats().RatingAverage.IsZero())
}

func TestSeed_DryRunWritesNothing(t *testing.T) {
	h := newHarness(t)
	h.store.AddBoardGame(boardgame.New(9, "Existing", boardgame.Stats{}, fixedNow))
	src := writeSource(t, "1;Catan;;;;;;;;;;;Dice Rolling;Family Games, Strategy Games")

	o := opts(src)
	o.DryRun = true
	res, err := h.service.Seed(context.Background(), o)
	require.NoError(t, err)

	assert.True(t, res.DryRun)
	assert.Equal(t, int64(2), res.BoardGames)
	assert.Equal(t, int64(2), res.Domains)
	assert.Equal(t, int64(1), res.Mechanics)

	n, err := h.games.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestSeed_CommitFailureIsAtomic(t *testing.T) {
	h := newHarness(t)
	src := writeSource(t, "1;Catan;;;;;;;;;;;Dice Rolling;Family Games")
	h.store.FailNextCommit(errors.New("serialization failure"))

	_, err := h.service.Seed(context.Background(), opts(src))
	require.ErrorIs(t, err, ingest.ErrPersist)

	n, err := h.games.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 0, h.store.LinkCount(lookup.Domains))
	assert.Contains(t, h.logs.String(), "seed run failed")
}

func TestSeed_RunAfterFailedCommitStartsFromStoredState(t *testing.T) {
	h := newHarness(t)
	src := writeSource(t,
		"1;Catan;;;;;;;;;;;Dice Rolling;Family Games",
		"2;Can't Stop;;;;;;;;;;;Dice Rolling;Family Games",
	)
	h.store.FailNextCommit(errors.New("connection reset"))

	_, err := h.service.Seed(context.Background(), opts(src))
	require.ErrorIs(t, err, ingest.ErrPersist)

	res, err := h.service.Seed(context.Background(), opts(src))
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Accepted)
	assert.Zero(t, res.SkippedRows)
	assert.Equal(t, int64(2), res.BoardGames)
	assert.Equal(t, int64(1), res.Domains)
	assert.Equal(t, int64(1), res.Mechanics)
	assert.Equal(t, []string{"Family Games"}, h.store.LinkedNames(lookup.Domains, 2))
}

func TestSeed_Errors(t *testing.T) {
	h := newHarness(t)

	_, err := h.service.Seed(context.Background(), services.SeedOptions{Parser: ingest.DefaultParserConfig()})
	require.ErrorIs(t, err, services.ErrInvalidOptions)

	_, err = h.service.Seed(context.Background(), opts(filepath.Join(t.TempDir(), "missing.csv")))
	require.ErrorIs(t, err, ingest.ErrSource)

	bad := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(bad, []byte("Name;Rank\nx;1\n"), 0o644))
	_, err = h.service.Seed(context.Background(), opts(bad))
	require.ErrorIs(t, err, ingest.ErrMissingColumn)
}

func TestSeed_CancelledBeforeCommit(t *testing.T) {
	h := newHarness(t)
	src := writeSource(t, "1;Catan;;;;;;;;;;;;")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := h.service.Seed(ctx, opts(src))
	require.ErrorIs(t, err, context.Canceled)

	n, err := h.games.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSeed_RunInProgress(t *testing.T) {
	h := newHarness(t)
	src := writeSource(t, "1;Catan;;;;;;;;;;;;")

	unlock, err := h.store.Lock(context.Background())
	require.NoError(t, err)
	defer unlock()

	_, err = h.service.Seed(context.Background(), opts(src))
	require.ErrorIs(t, err, ingest.ErrRunInProgress)
}
