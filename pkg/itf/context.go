package itf

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iota-uz/bgcatalog/modules/catalog/infrastructure/persistence"
	"github.com/iota-uz/bgcatalog/pkg/composables"
)

// TestEnvironment is a migrated database owned by one test.
type TestEnvironment struct {
	Ctx  context.Context
	Pool *pgxpool.Pool
}

// Setup creates a fresh database for tb, applies the catalog schema and returns
// a context carrying the pool. Everything is torn down with the test.
func Setup(tb testing.TB) *TestEnvironment {
	tb.Helper()
	RequirePostgres(tb)

	dbName := tb.Name()
	CreateDB(dbName)
	pool := NewPool(DbOpts(dbName))
	tb.Cleanup(pool.Close)

	ctx := context.Background()
	m, err := persistence.NewMigrator(pool)
	if err != nil {
		tb.Fatal(err)
	}
	defer func() { _ = m.Close() }()
	if _, err := m.Up(ctx); err != nil {
		tb.Fatal(err)
	}

	return &TestEnvironment{
		Ctx:  composables.WithPool(ctx, pool),
		Pool: pool,
	}
}

// Count returns the number of rows in table.
func (e *TestEnvironment) Count(tb testing.TB, table string) int64 {
	tb.Helper()
	var n int64
	if err := e.Pool.QueryRow(e.Ctx, "SELECT count(*)::bigint FROM "+table).Scan(&n); err != nil {
		tb.Fatal(err)
	}
	return n
}
