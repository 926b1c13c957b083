package persistence

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/iota-uz/bgcatalog/modules/catalog/domain/entities/lookup"
	"github.com/iota-uz/bgcatalog/modules/catalog/infrastructure/persistence/models"
	"github.com/iota-uz/bgcatalog/pkg/composables"
)

// LookupRepository serves both lookup categories; each has its own table.
type LookupRepository struct{}

func NewLookupRepository() lookup.Repository {
	return &LookupRepository{}
}

func (r *LookupRepository) List(ctx context.Context, category lookup.Category) ([]*lookup.Lookup, error) {
	t, err := tablesFor(category)
	if err != nil {
		return nil, err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, fmt.Sprintf(`SELECT id, name, created_at, updated_at FROM %s ORDER BY id`, t.lookups))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query %s", t.lookups)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*lookup.Lookup, error) {
		var m models.Lookup
		if err := row.Scan(&m.ID, &m.Name, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		return toDomainLookup(m), nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to scan %s", t.lookups)
	}
	return items, nil
}

func (r *LookupRepository) Count(ctx context.Context, category lookup.Category) (int64, error) {
	t, err := tablesFor(category)
	if err != nil {
		return 0, err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := tx.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, t.lookups)).Scan(&n); err != nil {
		return 0, errors.Wrapf(err, "failed to count %s", t.lookups)
	}
	return n, nil
}

// CreateMany inserts in one round trip and writes the generated ids back into
// the lookups once every row is in.
func (r *LookupRepository) CreateMany(ctx context.Context, category lookup.Category, lookups []*lookup.Lookup) error {
	if len(lookups) == 0 {
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

	query := fmt.Sprintf(`INSERT INTO %s (name, name_key, created_at, updated_at) VALUES ($1, $2, $3, $4) RETURNING id`, t.lookups)
	batch := &pgx.Batch{}
	for _, l := range lookups {
		batch.Queue(query, l.Name(), l.Key(), l.CreatedAt(), l.UpdatedAt())
	}

	br := tx.SendBatch(ctx, batch)
	ids := make([]int64, len(lookups))
	for i, l := range lookups {
		if err := br.QueryRow().Scan(&ids[i]); err != nil {
			_ = br.Close()
			if isUniqueViolation(err) {
				return fmt.Errorf("%s %q: %w: %w", category, l.Name(), lookup.ErrDuplicateName, err)
			}
			return errors.Wrapf(err, "failed to insert %s %q", category, l.Name())
		}
	}
	if err := br.Close(); err != nil {
		return errors.Wrapf(err, "failed to insert %s", category)
	}

	for i, l := range lookups {
		l.SetID(ids[i])
	}
	return nil
}
