package boardgame

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Stats are the numeric attributes of a game. Absent source values are zero.
type Stats struct {
	Rank              int64
	ComplexityAverage decimal.Decimal
	MaxPlayers        int64
	MinAge            int64
	MinPlayers        int64
	OwnedUsers        int64
	PlayTime          int64
	RatingAverage     decimal.Decimal
	UsersRated        int64
	YearPublished     int64
}

type BoardGame struct {
	id        int64
	name      string
	stats     Stats
	createdAt time.Time
	updatedAt time.Time
}

// New builds a game with a caller-supplied id; ids are never generated by the store.
func New(id int64, name string, stats Stats, at time.Time) BoardGame {
	return BoardGame{
		id:        id,
		name:      name,
		stats:     stats,
		createdAt: at,
		updatedAt: at,
	}
}

func Hydrate(id int64, name string, stats Stats, createdAt, updatedAt time.Time) BoardGame {
	return BoardGame{
		id:        id,
		name:      name,
		stats:     stats,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

func (g BoardGame) ID() int64            { return g.id }
func (g BoardGame) Name() string         { return g.name }
func (g BoardGame) Stats() Stats         { return g.stats }
func (g BoardGame) CreatedAt() time.Time { return g.createdAt }
func (g BoardGame) UpdatedAt() time.Time { return g.updatedAt }
func (g BoardGame) IsZero() bool         { return g.id == 0 && strings.TrimSpace(g.name) == "" }
