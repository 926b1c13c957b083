package composables

import (
	"context"
	"errors"

	"github.com/iota-uz/bgcatalog/pkg/constants"
	"github.com/iota-uz/bgcatalog/pkg/repo"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNoTx   = errors.New("no transaction found in context")
	ErrNoPool = errors.New("no database pool found in context")
)

func WithTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, constants.TxKey, tx)
}

func UseTx(ctx context.Context) (repo.Tx, error) {
	tx := ctx.Value(constants.TxKey)
	if tx == nil {
		return UsePool(ctx)
	}
	return tx.(repo.Tx), nil
}

func WithPool(ctx context.Context, pool *pgxpool.Pool) context.Context {
	return context.WithValue(ctx, constants.PoolKey, pool)
}

func UsePool(ctx context.Context) (*pgxpool.Pool, error) {
	pool := ctx.Value(constants.PoolKey)
	if pool == nil {
		return nil, ErrNoPool
	}
	return pool.(*pgxpool.Pool), nil
}

// InTx runs the given function in a transaction. ALWAYS creates a new transaction.
func InTx(ctx context.Context, fn func(context.Context) error) error {
	pool, err := UsePool(ctx)
	if err != nil {
		return err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}

	txCtx := WithTx(ctx, tx)
	if err := fn(txCtx); err != nil {
		if rErr := tx.Rollback(ctx); rErr != nil {
			return errors.Join(err, rErr)
		}
		return err
	}
	return tx.Commit(ctx)
}

// InSavepoint runs fn inside a savepoint of the transaction already stored in ctx.
// A failing fn rolls back to the savepoint and leaves the outer transaction usable.
func InSavepoint(ctx context.Context, fn func(context.Context) error) error {
	outer, ok := ctx.Value(constants.TxKey).(pgx.Tx)
	if !ok || outer == nil {
		return ErrNoTx
	}

	sp, err := outer.Begin(ctx)
	if err != nil {
		return err
	}

	if err := fn(WithTx(ctx, sp)); err != nil {
		if rErr := sp.Rollback(ctx); rErr != nil {
			return errors.Join(err, rErr)
		}
		return err
	}
	return sp.Commit(ctx)
}

// Transactor adapts the context helpers above to interfaces that expect methods.
type Transactor struct{}

func NewTransactor() Transactor {
	return Transactor{}
}

func (Transactor) InTx(ctx context.Context, fn func(context.Context) error) error {
	return InTx(ctx, fn)
}

func (Transactor) InSavepoint(ctx context.Context, fn func(context.Context) error) error {
	return InSavepoint(ctx, fn)
}
