package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/iota-uz/bgcatalog/modules/catalog/domain/aggregates/boardgame"
	"github.com/iota-uz/bgcatalog/modules/catalog/domain/entities/gamelink"
	"github.com/iota-uz/bgcatalog/modules/catalog/domain/entities/lookup"
	"github.com/iota-uz/bgcatalog/modules/catalog/ingest"
	"github.com/iota-uz/bgcatalog/pkg/constants"
)

var ErrInvalidOptions = errors.New("invalid seed options")

var tracer = otel.Tracer("bgcatalog-seed")

// SeedOptions selects the source and, optionally, the single id to ingest.
type SeedOptions struct {
	ID     *int64 `validate:"omitempty,gt=0"`
	Source string `validate:"required"`
	Parser ingest.ParserConfig
	// DryRun reconciles the whole source but writes nothing.
	DryRun bool
}

func (o SeedOptions) validate() error {
	if err := constants.Validate.Struct(o); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s failed on %q", ErrInvalidOptions, fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}
	return nil
}

type SeedResult struct {
	RunID      uuid.UUID
	BoardGames int64
	Domains    int64
	Mechanics  int64
	// SkippedRows is the total of Skipped.
	SkippedRows int64
	Skipped     map[ingest.SkipReason]int64
	Accepted    int64
	DryRun      bool
}

// RunLocker serialises runs against one store.
type RunLocker interface {
	Lock(ctx context.Context) (func(), error)
}

type SeedService struct {
	games     boardgame.Repository
	lookups   lookup.Repository
	persister *ingest.Persister
	locker    RunLocker
	logger    *logrus.Logger
	clock     func() time.Time
	newRunID  func() uuid.UUID
}

type Option func(*SeedService)

func WithClock(clock func() time.Time) Option {
	return func(s *SeedService) { s.clock = clock }
}

func WithRunLocker(l RunLocker) Option {
	return func(s *SeedService) { s.locker = l }
}

func WithRunID(fn func() uuid.UUID) Option {
	return func(s *SeedService) { s.newRunID = fn }
}

func NewSeedService(
	games boardgame.Repository,
	lookups lookup.Repository,
	links gamelink.Repository,
	tx ingest.Transactor,
	logger *logrus.Logger,
	opts ...Option,
) *SeedService {
	s := &SeedService{
		games:     games,
		lookups:   lookups,
		persister: ingest.NewPersister(tx, games, lookups, links),
		logger:    logger,
		clock:     time.Now,
		newRunID:  uuid.New,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logrus.New()
		s.logger.SetOutput(io.Discard)
	}
	return s
}

// Seed ingests the source in one batch. It returns either a full summary or a
// single error; a failed run leaves the store unchanged.
func (s *SeedService) Seed(ctx context.Context, opts SeedOptions) (SeedResult, error) {
	if err := opts.validate(); err != nil {
		return SeedResult{}, err
	}

	runID := s.newRunID()
	log := s.logger.WithFields(logrus.Fields{
		"run-id":  runID.String(),
		"source":  opts.Source,
		"dry-run": opts.DryRun,
	})
	if opts.ID != nil {
		log = log.WithField("id-filter", *opts.ID)
	}

	ctx, span := tracer.Start(ctx, "catalog.seed", trace.WithAttributes(
		attribute.String("seed.run_id", runID.String()),
		attribute.String("seed.source", opts.Source),
		attribute.Bool("seed.dry_run", opts.DryRun),
	))
	defer span.End()

	result, err := s.seed(ctx, runID, opts, log)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.WithError(err).Error("seed run failed")
		return SeedResult{}, err
	}
	span.SetAttributes(
		attribute.Int64("seed.accepted", result.Accepted),
		attribute.Int64("seed.skipped", result.SkippedRows),
	)
	log.WithFields(logrus.Fields{
		"accepted":    result.Accepted,
		"skipped":     result.SkippedRows,
		"board-games": result.BoardGames,
		"domains":     result.Domains,
		"mechanics":   result.Mechanics,
	}).Info("seed run finished")
	return result, nil
}

func (s *SeedService) seed(ctx context.Context, runID uuid.UUID, opts SeedOptions, log *logrus.Entry) (SeedResult, error) {
	if s.locker != nil {
		unlock, err := s.locker.Lock(ctx)
		if err != nil {
			return SeedResult{}, err
		}
		defer unlock()
	}

	src, err := ingest.Open(opts.Source, opts.Parser)
	if err != nil {
		return SeedResult{}, err
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			log.WithError(cerr).Warn("failed to close seed source")
		}
	}()

	idx, err := s.loadState(ctx)
	if err != nil {
		return SeedResult{}, err
	}
	log.WithField("known-games", idx.GameCount()).Info("seed run started")

	now := s.clock().UTC()
	rec := ingest.NewReconciler(idx, now, opts.ID)
	batch := ingest.NewBatch()
	for {
		if err := ctx.Err(); err != nil {
			return SeedResult{}, err
		}
		r, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return SeedResult{}, err
		}

		out := rec.Reconcile(r)
		if out.Skipped {
			log.WithFields(logrus.Fields{"line": out.Line, "reason": out.Reason}).Debug("row skipped")
		}
		batch.Add(out, ingest.BuildLinks(out, now))
	}

	var totals ingest.Totals
	if opts.DryRun {
		totals, err = s.project(ctx, batch)
	} else {
		totals, err = s.persist(ctx, batch)
	}
	if err != nil {
		return SeedResult{}, err
	}

	return SeedResult{
		RunID:       runID,
		BoardGames:  totals.BoardGames,
		Domains:     totals.Domains,
		Mechanics:   totals.Mechanics,
		SkippedRows: batch.SkippedRows(),
		Skipped:     batch.Skipped,
		Accepted:    batch.Accepted(),
		DryRun:      opts.DryRun,
	}, nil
}

func (s *SeedService) loadState(ctx context.Context) (*ingest.Indexes, error) {
	ctx, span := tracer.Start(ctx, "catalog.seed.load_state")
	defer span.End()
	return ingest.LoadIndexes(ctx, s.games, s.lookups)
}

func (s *SeedService) persist(ctx context.Context, b *ingest.Batch) (ingest.Totals, error) {
	ctx, span := tracer.Start(ctx, "catalog.seed.persist", trace.WithAttributes(
		attribute.Int64("seed.board_games", b.Accepted()),
		attribute.Int("seed.new_domains", len(b.NewLookups[lookup.Domains])),
		attribute.Int("seed.new_mechanics", len(b.NewLookups[lookup.Mechanics])),
	))
	defer span.End()
	return s.persister.Persist(ctx, b)
}

// project returns the totals the store would hold if the batch were committed.
func (s *SeedService) project(ctx context.Context, b *ingest.Batch) (ingest.Totals, error) {
	t, err := s.persister.Totals(ctx)
	if err != nil {
		return ingest.Totals{}, err
	}
	t.BoardGames += b.Accepted()
	t.Domains += int64(len(b.NewLookups[lookup.Domains]))
	t.Mechanics += int64(len(b.NewLookups[lookup.Mechanics]))
	return t, nil
}
