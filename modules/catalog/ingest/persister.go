package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iota-uz/bgcatalog/modules/catalog/domain/aggregates/boardgame"
	"github.com/iota-uz/bgcatalog/modules/catalog/domain/entities/gamelink"
	"github.com/iota-uz/bgcatalog/modules/catalog/domain/entities/lookup"
)

// Transactor runs fn in a transaction carried by the returned context.
// InSavepoint nests inside the transaction already in ctx; a failing fn rolls
// back to the savepoint only.
type Transactor interface {
	InTx(ctx context.Context, fn func(context.Context) error) error
	InSavepoint(ctx context.Context, fn func(context.Context) error) error
}

// Totals are store-wide row counts.
type Totals struct {
	BoardGames int64
	Domains    int64
	Mechanics  int64
}

func (t Totals) Lookups(c lookup.Category) int64 {
	switch c {
	case lookup.Domains:
		return t.Domains
	case lookup.Mechanics:
		return t.Mechanics
	}
	return 0
}

func (t *Totals) setLookups(c lookup.Category, n int64) {
	switch c {
	case lookup.Domains:
		t.Domains = n
	case lookup.Mechanics:
		t.Mechanics = n
	}
}

type Persister struct {
	tx      Transactor
	games   boardgame.Repository
	lookups lookup.Repository
	links   gamelink.Repository
}

func NewPersister(
	tx Transactor,
	games boardgame.Repository,
	lookups lookup.Repository,
	links gamelink.Repository,
) *Persister {
	return &Persister{tx: tx, games: games, lookups: lookups, links: links}
}

// Persist writes the batch in one transaction and returns the store totals
// after commit. On failure nothing of the batch is visible and the new lookups
// are left unsaved.
func (p *Persister) Persist(ctx context.Context, b *Batch) (Totals, error) {
	if b.Empty() {
		t, err := p.Totals(ctx)
		if err != nil {
			return Totals{}, err
		}
		observeCommitted(b)
		return t, nil
	}

	start := time.Now()
	err := p.tx.InTx(ctx, func(txCtx context.Context) error {
		release, err := p.games.AllowExplicitIDs(txCtx)
		if err != nil {
			return fmt.Errorf("allow explicit ids: %w", err)
		}
		writeErr := p.tx.InSavepoint(txCtx, func(spCtx context.Context) error {
			return p.write(spCtx, b)
		})
		if relErr := release(txCtx); relErr != nil {
			return errors.Join(writeErr, fmt.Errorf("restore id generation: %w", relErr))
		}
		return writeErr
	})

	m := getMetrics()
	if err != nil {
		m.persistDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		forgetIDs(b)
		return Totals{}, fmt.Errorf("%w: %w", ErrPersist, err)
	}
	m.persistDuration.WithLabelValues("ok").Observe(time.Since(start).Seconds())
	observeCommitted(b)
	return p.Totals(ctx)
}

// write stores lookups first so links can reference their ids.
func (p *Persister) write(ctx context.Context, b *Batch) error {
	for _, c := range lookup.Categories() {
		if created := b.NewLookups[c]; len(created) > 0 {
			if err := p.lookups.CreateMany(ctx, c, created); err != nil {
				return fmt.Errorf("create %s: %w", c, err)
			}
		}
	}
	if len(b.Games) > 0 {
		if err := p.games.CreateMany(ctx, b.Games); err != nil {
			return fmt.Errorf("create board games: %w", err)
		}
	}
	for _, c := range lookup.Categories() {
		if links := b.Links[c]; len(links) > 0 {
			if err := p.links.CreateMany(ctx, c, links); err != nil {
				return fmt.Errorf("create board game %s: %w", c, err)
			}
		}
	}
	return nil
}

// Totals counts stored games and lookups.
func (p *Persister) Totals(ctx context.Context) (Totals, error) {
	var t Totals
	n, err := p.games.Count(ctx)
	if err != nil {
		return Totals{}, fmt.Errorf("%w: count board games: %w", ErrPersist, err)
	}
	t.BoardGames = n
	for _, c := range lookup.Categories() {
		n, err := p.lookups.Count(ctx, c)
		if err != nil {
			return Totals{}, fmt.Errorf("%w: count %s: %w", ErrPersist, c, err)
		}
		t.setLookups(c, n)
	}
	return t, nil
}

func forgetIDs(b *Batch) {
	for _, created := range b.NewLookups {
		for _, l := range created {
			l.SetID(0)
		}
	}
}
