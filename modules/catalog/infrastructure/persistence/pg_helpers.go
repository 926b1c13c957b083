package persistence

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/iota-uz/bgcatalog/modules/catalog/domain/entities/lookup"
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func toNumeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}

// fromNumeric maps NULL and NaN to zero.
func fromNumeric(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.NaN || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}

type categoryTables struct {
	lookups string
	links   string
	fk      string
}

var tablesByCategory = map[lookup.Category]categoryTables{
	lookup.Domains:   {lookups: "domains", links: "board_games_domains", fk: "domain_id"},
	lookup.Mechanics: {lookups: "mechanics", links: "board_games_mechanics", fk: "mechanic_id"},
}

func tablesFor(c lookup.Category) (categoryTables, error) {
	t, ok := tablesByCategory[c]
	if !ok {
		return categoryTables{}, fmt.Errorf("%w: %q", lookup.ErrUnknownCategory, c)
	}
	return t, nil
}
