package ingest

import (
	"strings"
	"time"

	"github.com/iota-uz/bgcatalog/modules/catalog/domain/aggregates/boardgame"
	"github.com/iota-uz/bgcatalog/modules/catalog/domain/entities/lookup"
	"github.com/shopspring/decimal"
)

type SkipReason string

const (
	SkipMissingID   SkipReason = "missing_id"
	SkipMissingName SkipReason = "missing_name"
	SkipDuplicateID SkipReason = "duplicate_id"
	SkipFilteredOut SkipReason = "filtered_out"
)

func SkipReasons() []SkipReason {
	return []SkipReason{SkipMissingID, SkipMissingName, SkipDuplicateID, SkipFilteredOut}
}

const tagSeparator = ","

// Outcome is the result of reconciling one record. When Skipped is false, Game
// is populated and Domains/Mechanics hold the lookups to link, reused or new.
type Outcome struct {
	Skipped bool
	Reason  SkipReason
	Line    int

	Game      boardgame.BoardGame
	Domains   []*lookup.Lookup
	Mechanics []*lookup.Lookup
	// Created lists the lookups this record introduced, per category.
	Created map[lookup.Category][]*lookup.Lookup
}

// Tags returns the lookups of a category.
func (o Outcome) Tags(c lookup.Category) []*lookup.Lookup {
	switch c {
	case lookup.Domains:
		return o.Domains
	case lookup.Mechanics:
		return o.Mechanics
	}
	return nil
}

type Reconciler struct {
	idx      *Indexes
	now      time.Time
	idFilter *int64
}

// NewReconciler binds a run's indexes, timestamp and optional id filter.
func NewReconciler(idx *Indexes, now time.Time, idFilter *int64) *Reconciler {
	return &Reconciler{idx: idx, now: now, idFilter: idFilter}
}

func (r *Reconciler) Reconcile(rec SourceRecord) Outcome {
	if reason, skip := r.check(rec); skip {
		return Outcome{Skipped: true, Reason: reason, Line: rec.Line}
	}

	id := *rec.ID
	out := Outcome{
		Line:    rec.Line,
		Game:    boardgame.New(id, *rec.Name, statsOf(rec), r.now),
		Created: make(map[lookup.Category][]*lookup.Lookup, 2),
	}
	out.Domains = r.resolve(lookup.Domains, rec.Domains, out.Created)
	out.Mechanics = r.resolve(lookup.Mechanics, rec.Mechanics, out.Created)

	r.idx.AddGame(id)
	return out
}

func (r *Reconciler) check(rec SourceRecord) (SkipReason, bool) {
	switch {
	case rec.ID == nil:
		return SkipMissingID, true
	case rec.Name == nil || strings.TrimSpace(*rec.Name) == "":
		return SkipMissingName, true
	case r.idx.HasGame(*rec.ID):
		return SkipDuplicateID, true
	case r.idFilter != nil && *r.idFilter != *rec.ID:
		return SkipFilteredOut, true
	}
	return "", false
}

func (r *Reconciler) resolve(c lookup.Category, raw string, created map[lookup.Category][]*lookup.Lookup) []*lookup.Lookup {
	names := splitTags(raw)
	if len(names) == 0 {
		return nil
	}

	li := r.idx.Lookups(c)
	out := make([]*lookup.Lookup, 0, len(names))
	for _, name := range names {
		l, ok := li.Get(name)
		if !ok {
			l = lookup.New(name, r.now)
			li.Put(l)
			created[c] = append(created[c], l)
		}
		out = append(out, l)
	}
	return out
}

// splitTags splits a comma-separated list, trims pieces, drops empty ones and
// keeps the first spelling of names that differ only in case.
func splitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, tagSeparator)
	seen := make(map[string]struct{}, len(parts))
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		key := lookup.Key(p)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		names = append(names, p)
	}
	return names
}

func statsOf(rec SourceRecord) boardgame.Stats {
	return boardgame.Stats{
		Rank:              intOrZero(rec.Rank),
		ComplexityAverage: decimalOrZero(rec.ComplexityAverage),
		MaxPlayers:        intOrZero(rec.MaxPlayers),
		MinAge:            intOrZero(rec.MinAge),
		MinPlayers:        intOrZero(rec.MinPlayers),
		OwnedUsers:        intOrZero(rec.OwnedUsers),
		PlayTime:          intOrZero(rec.PlayTime),
		RatingAverage:     decimalOrZero(rec.RatingAverage),
		UsersRated:        intOrZero(rec.UsersRated),
		YearPublished:     intOrZero(rec.YearPublished),
	}
}

func intOrZero(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}

func decimalOrZero(v *decimal.Decimal) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return *v
}
