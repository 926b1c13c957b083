package persistence

import (
	"context"
	"database/sql"
	"io/fs"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// Migrator applies the embedded catalog schema with goose.
type Migrator struct {
	db       *sql.DB
	provider *goose.Provider
}

func NewMigrator(pool *pgxpool.Pool) (*Migrator, error) {
	fsys, err := fs.Sub(MigrationFS, "schema")
	if err != nil {
		return nil, errors.Wrap(err, "failed to open embedded schema")
	}
	db := stdlib.OpenDBFromPool(pool)
	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to create migration provider")
	}
	return &Migrator{db: db, provider: provider}, nil
}

func (m *Migrator) Up(ctx context.Context) ([]*goose.MigrationResult, error) {
	res, err := m.provider.Up(ctx)
	if err != nil {
		return res, errors.Wrap(err, "failed to apply migrations")
	}
	return res, nil
}

func (m *Migrator) Status(ctx context.Context) ([]*goose.MigrationStatus, error) {
	res, err := m.provider.Status(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read migration status")
	}
	return res, nil
}

// Close releases the database/sql handle; the pool stays open.
func (m *Migrator) Close() error {
	return m.db.Close()
}
