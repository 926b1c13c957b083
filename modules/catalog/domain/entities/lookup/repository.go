package lookup

import (
	"context"
	"errors"
)

var (
	ErrUnknownCategory = errors.New("unknown lookup category")
	ErrDuplicateName   = errors.New("lookup name already exists")
)

type Repository interface {
	List(ctx context.Context, category Category) ([]*Lookup, error)
	Count(ctx context.Context, category Category) (int64, error)
	// CreateMany inserts unsaved lookups and assigns their store-generated ids.
	CreateMany(ctx context.Context, category Category, lookups []*Lookup) error
}
