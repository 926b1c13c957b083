package persistence

import (
	"github.com/iota-uz/bgcatalog/modules/catalog/domain/aggregates/boardgame"
	"github.com/iota-uz/bgcatalog/modules/catalog/domain/entities/lookup"
	"github.com/iota-uz/bgcatalog/modules/catalog/infrastructure/persistence/models"
)

func toDomainBoardGame(m models.BoardGame) boardgame.BoardGame {
	return boardgame.Hydrate(m.ID, m.Name, boardgame.Stats{
		Rank:              m.Rank,
		ComplexityAverage: m.ComplexityAverage,
		MaxPlayers:        m.MaxPlayers,
		MinAge:            m.MinAge,
		MinPlayers:        m.MinPlayers,
		OwnedUsers:        m.OwnedUsers,
		PlayTime:          m.PlayTime,
		RatingAverage:     m.RatingAverage,
		UsersRated:        m.UsersRated,
		YearPublished:     m.YearPublished,
	}, m.CreatedAt, m.UpdatedAt)
}

func toDomainLookup(m models.Lookup) *lookup.Lookup {
	return lookup.Hydrate(m.ID, m.Name, m.CreatedAt, m.UpdatedAt)
}
