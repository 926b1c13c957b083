// Package memory provides an in-memory implementation of the catalog
// repositories used by tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/iota-uz/bgcatalog/modules/catalog/domain/aggregates/boardgame"
	"github.com/iota-uz/bgcatalog/modules/catalog/domain/entities/lookup"
	"github.com/iota-uz/bgcatalog/modules/catalog/ingest"
)

var ErrExplicitIDsNotAllowed = errors.New("explicit board game ids are not allowed outside AllowExplicitIDs")

type lookupRow struct {
	id        int64
	name      string
	createdAt time.Time
	updatedAt time.Time
}

type linkKey struct {
	boardGameID int64
	lookupID    int64
}

type memoryState struct {
	games       map[int64]boardgame.BoardGame
	lookups     map[lookup.Category]map[int64]lookupRow
	nextLookup  map[lookup.Category]int64
	links       map[lookup.Category]map[linkKey]time.Time
	explicitIDs bool
}

func newMemoryState() memoryState {
	s := memoryState{
		games:      make(map[int64]boardgame.BoardGame),
		lookups:    make(map[lookup.Category]map[int64]lookupRow, 2),
		nextLookup: make(map[lookup.Category]int64, 2),
		links:      make(map[lookup.Category]map[linkKey]time.Time, 2),
	}
	for _, c := range lookup.Categories() {
		s.lookups[c] = make(map[int64]lookupRow)
		s.nextLookup[c] = 1
		s.links[c] = make(map[linkKey]time.Time)
	}
	return s
}

func (s memoryState) clone() memoryState {
	cp := memoryState{
		games:       make(map[int64]boardgame.BoardGame, len(s.games)),
		lookups:     make(map[lookup.Category]map[int64]lookupRow, len(s.lookups)),
		nextLookup:  make(map[lookup.Category]int64, len(s.nextLookup)),
		links:       make(map[lookup.Category]map[linkKey]time.Time, len(s.links)),
		explicitIDs: s.explicitIDs,
	}
	for k, v := range s.games {
		cp.games[k] = v
	}
	for c, rows := range s.lookups {
		m := make(map[int64]lookupRow, len(rows))
		for k, v := range rows {
			m[k] = v
		}
		cp.lookups[c] = m
	}
	for c, n := range s.nextLookup {
		cp.nextLookup[c] = n
	}
	for c, links := range s.links {
		m := make(map[linkKey]time.Time, len(links))
		for k, v := range links {
			m[k] = v
		}
		cp.links[c] = m
	}
	return cp
}

type txKey struct{}

// transaction is a working copy of the state; committing replaces the parent's state.
type transaction struct {
	state memoryState
}

// Store is a transactional in-memory catalog. Writes made inside InTx become
// visible only on commit.
type Store struct {
	mu    sync.Mutex
	state memoryState

	runMu sync.Mutex
	// failure injection, consumed on use
	commitErr error
	writeErr  error
	releases  int
}

func NewStore() *Store {
	return &Store{state: newMemoryState()}
}

// FailNextCommit makes the next InTx roll back with err after fn succeeds.
func (s *Store) FailNextCommit(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commitErr = err
}

// FailNextWrite makes the next CreateMany of any repository return err.
func (s *Store) FailNextWrite(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeErr = err
}

// Releases counts how many times explicit id insertion was switched off.
func (s *Store) Releases() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.releases
}

// ExplicitIDsAllowed reports the committed state of explicit id insertion.
func (s *Store) ExplicitIDsAllowed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.explicitIDs
}

func (s *Store) InTx(ctx context.Context, fn func(context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{state: s.state.clone()}
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	if s.commitErr != nil {
		err := s.commitErr
		s.commitErr = nil
		return fmt.Errorf("commit: %w", err)
	}
	s.state = tx.state
	return nil
}

func (s *Store) InSavepoint(ctx context.Context, fn func(context.Context) error) error {
	parent, ok := ctx.Value(txKey{}).(*transaction)
	if !ok {
		return errors.New("memory: savepoint outside of a transaction")
	}
	sp := &transaction{state: parent.state.clone()}
	if err := fn(context.WithValue(ctx, txKey{}, sp)); err != nil {
		return err
	}
	parent.state = sp.state
	return nil
}

// Lock serialises runs within the process. The second caller fails fast.
func (s *Store) Lock(_ context.Context) (func(), error) {
	if !s.runMu.TryLock() {
		return nil, ingest.ErrRunInProgress
	}
	return s.runMu.Unlock, nil
}

// read runs fn against the transaction state in ctx, or the committed state.
func (s *Store) read(ctx context.Context, fn func(*memoryState)) {
	if tx, ok := ctx.Value(txKey{}).(*transaction); ok {
		fn(&tx.state)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.state)
}

// write runs fn against the transaction state in ctx. Outside a transaction the
// committed state is changed directly and only if fn succeeds.
func (s *Store) write(ctx context.Context, fn func(*memoryState) error) error {
	if err := s.takeWriteErr(ctx); err != nil {
		return err
	}
	return s.mutate(ctx, fn)
}

// mutate is write without failure injection.
func (s *Store) mutate(ctx context.Context, fn func(*memoryState) error) error {
	if tx, ok := ctx.Value(txKey{}).(*transaction); ok {
		work := tx.state.clone()
		if err := fn(&work); err != nil {
			return err
		}
		tx.state = work
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.state.clone()
	if err := fn(&work); err != nil {
		return err
	}
	s.state = work
	return nil
}

func (s *Store) takeWriteErr(ctx context.Context) error {
	// InTx holds mu for the whole transaction.
	if _, inTx := ctx.Value(txKey{}).(*transaction); !inTx {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	err := s.writeErr
	s.writeErr = nil
	return err
}

func (s *Store) noteRelease(ctx context.Context) {
	if _, inTx := ctx.Value(txKey{}).(*transaction); !inTx {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	s.releases++
}

// AddBoardGame stores g directly, for arranging test state.
func (s *Store) AddBoardGame(g boardgame.BoardGame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.games[g.ID()] = g
}

// AddLookup stores a lookup directly and returns it with its assigned id.
func (s *Store) AddLookup(c lookup.Category, name string, at time.Time) *lookup.Lookup {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.state.nextLookup[c]
	s.state.nextLookup[c] = id + 1
	s.state.lookups[c][id] = lookupRow{id: id, name: name, createdAt: at, updatedAt: at}
	return lookup.Hydrate(id, name, at, at)
}

// LinkedNames returns the names of the lookups linked to a game, sorted.
func (s *Store) LinkedNames(c lookup.Category, boardGameID int64) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var names []string
	for k := range s.state.links[c] {
		if k.boardGameID == boardGameID {
			names = append(names, s.state.lookups[c][k.lookupID].name)
		}
	}
	sort.Strings(names)
	return names
}

// LinkCount returns the number of stored links of a category.
func (s *Store) LinkCount(c lookup.Category) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.links[c])
}
