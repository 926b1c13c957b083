package boardgame

import (
	"context"
	"errors"
)

var (
	ErrNotFound    = errors.New("board game not found")
	ErrDuplicateID = errors.New("board game id already exists")
)

// ReleaseFunc restores default id generation after AllowExplicitIDs.
type ReleaseFunc func(ctx context.Context) error

type Repository interface {
	IDs(ctx context.Context) ([]int64, error)
	GetByID(ctx context.Context, id int64) (BoardGame, error)
	Count(ctx context.Context) (int64, error)
	CreateMany(ctx context.Context, games []BoardGame) error
	// AllowExplicitIDs lets CreateMany store caller-supplied ids until the returned
	// ReleaseFunc runs. Both calls must share the transaction carried by ctx.
	AllowExplicitIDs(ctx context.Context) (ReleaseFunc, error)
}
