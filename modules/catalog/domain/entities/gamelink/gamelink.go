package gamelink

import (
	"context"
	"time"

	"github.com/iota-uz/bgcatalog/modules/catalog/domain/entities/lookup"
)

// Link associates one board game with one lookup of a category.
type Link struct {
	category    lookup.Category
	boardGameID int64
	lookup      *lookup.Lookup
	createdAt   time.Time
}

func New(category lookup.Category, boardGameID int64, l *lookup.Lookup, at time.Time) Link {
	return Link{
		category:    category,
		boardGameID: boardGameID,
		lookup:      l,
		createdAt:   at,
	}
}

func (l Link) Category() lookup.Category { return l.category }
func (l Link) BoardGameID() int64        { return l.boardGameID }
func (l Link) Lookup() *lookup.Lookup    { return l.lookup }
func (l Link) CreatedAt() time.Time      { return l.createdAt }

// LookupID is zero until the referenced lookup has been stored.
func (l Link) LookupID() int64 {
	if l.lookup == nil {
		return 0
	}
	return l.lookup.ID()
}

type Repository interface {
	Count(ctx context.Context, category lookup.Category) (int64, error)
	CreateMany(ctx context.Context, category lookup.Category, links []Link) error
}
