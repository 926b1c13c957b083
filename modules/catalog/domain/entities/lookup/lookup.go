package lookup

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// Category is one of the two structurally identical lookup dimensions of a game.
type Category string

const (
	Domains   Category = "domains"
	Mechanics Category = "mechanics"
)

func Categories() []Category {
	return []Category{Domains, Mechanics}
}

func (c Category) Valid() bool {
	return c == Domains || c == Mechanics
}

func (c Category) String() string {
	return string(c)
}

func ParseCategory(v string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(v)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, v)
	}
	return c, nil
}

// Key is the case-insensitive identity of a lookup name.
func Key(name string) string {
	// cases.Caser is stateful; never share one across calls.
	return cases.Fold().String(strings.TrimSpace(name))
}

type Lookup struct {
	id        int64
	name      string
	createdAt time.Time
	updatedAt time.Time
}

func New(name string, at time.Time) *Lookup {
	return &Lookup{
		name:      strings.TrimSpace(name),
		createdAt: at,
		updatedAt: at,
	}
}

func Hydrate(id int64, name string, createdAt, updatedAt time.Time) *Lookup {
	return &Lookup{
		id:        id,
		name:      name,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

func (l *Lookup) ID() int64            { return l.id }
func (l *Lookup) Name() string         { return l.name }
func (l *Lookup) Key() string          { return Key(l.name) }
func (l *Lookup) CreatedAt() time.Time { return l.createdAt }
func (l *Lookup) UpdatedAt() time.Time { return l.updatedAt }
func (l *Lookup) IsPersisted() bool    { return l.id != 0 }

// SetID records the id assigned by the store. Links holding this pointer see it.
func (l *Lookup) SetID(id int64) {
	l.id = id
}
