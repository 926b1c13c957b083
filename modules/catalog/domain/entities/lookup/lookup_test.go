package lookup_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/bgcatalog/modules/catalog/domain/entities/lookup"
)

func TestKey_CaseInsensitive(t *testing.T) {
	assert.Equal(t, lookup.Key("Strategy"), lookup.Key("STRATEGY"))
	assert.Equal(t, lookup.Key(" strategy "), lookup.Key("Strategy"))
	assert.NotEqual(t, lookup.Key("Strategy Games"), lookup.Key("Strategy"))
}

func TestParseCategory(t *testing.T) {
	c, err := lookup.ParseCategory(" Mechanics ")
	require.NoError(t, err)
	assert.Equal(t, lookup.Mechanics, c)

	_, err = lookup.ParseCategory("publishers")
	require.ErrorIs(t, err, lookup.ErrUnknownCategory)
}

func TestLookup_SetID(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	l := lookup.New("  Card Game ", now)
	assert.Equal(t, "Card Game", l.Name())
	assert.False(t, l.IsPersisted())
	assert.Equal(t, now, l.CreatedAt())
	assert.Equal(t, now, l.UpdatedAt())

	l.SetID(42)
	assert.True(t, l.IsPersisted())
	assert.Equal(t, int64(42), l.ID())
}
