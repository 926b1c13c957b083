package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type BoardGame struct {
	ID                int64
	Name              string
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
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Lookup is a row of the domains or mechanics table.
type Lookup struct {
	ID        int64
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}
