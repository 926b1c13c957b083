package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/iota-uz/bgcatalog/modules/catalog/infrastructure/persistence"
	"github.com/iota-uz/bgcatalog/modules/catalog/ingest"
	"github.com/iota-uz/bgcatalog/modules/catalog/services"
	"github.com/iota-uz/bgcatalog/pkg/composables"
	"github.com/iota-uz/bgcatalog/pkg/configuration"
	"github.com/iota-uz/bgcatalog/pkg/logging"
)

type seedOptions struct {
	input           string
	id              int64
	delimiter       string
	locale          string
	dryRun          bool
	metricsTextfile string

	parser   ingest.ParserConfig
	idFilter *int64
}

func newSeedCmd() *cobra.Command {
	var opts seedOptions

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Import board games, domains and mechanics from a BGG dataset export",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			conf := configuration.Use()
			defer conf.Unload()
			logger := conf.Logger()

			if conf.OpenTelemetry.Enabled {
				cleanup := logging.SetupTracing(ctx, conf.OpenTelemetry.ServiceName+"-seed", conf.OpenTelemetry.TempoURL)
				defer cleanup()
			}

			pool, err := connectDB(ctx, conf.Database.Opts)
			if err != nil {
				return err
			}
			defer pool.Close()

			return runSeed(ctx, cmd.OutOrStdout(), pool, logger, opts)
		},
	}

	cmd.Flags().StringVar(&opts.input, "input", "", "Dataset file, .csv or .xlsx (default: SEED_FILE)")
	cmd.Flags().Int64Var(&opts.id, "id", 0, "Import only the row with this BGG id")
	cmd.Flags().StringVar(&opts.delimiter, "delimiter", "", `Field delimiter, "\t" for tabs (default: SEED_DELIMITER)`)
	cmd.Flags().StringVar(&opts.locale, "locale", "", "Locale of numeric fields (default: SEED_LOCALE)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Reconcile and report totals without writing")
	cmd.Flags().StringVar(&opts.metricsTextfile, "metrics-textfile", "", "Write run metrics in Prometheus text format to this path")

	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		return opts.resolve(cmd.Flags().Changed("id"), configuration.Use().Seed)
	}

	return cmd
}

// resolve fills unset flags from configuration and builds the parser config.
func (o *seedOptions) resolve(idSet bool, defaults configuration.SeedOptions) error {
	o.input = strings.TrimSpace(o.input)
	if o.input == "" {
		o.input = defaults.File
	}
	if o.delimiter == "" {
		o.delimiter = defaults.Delimiter
	}
	if o.delimiter == `\t` {
		o.delimiter = "\t"
	}
	if strings.TrimSpace(o.locale) == "" {
		o.locale = defaults.Locale
	}

	if utf8.RuneCountInString(o.delimiter) != 1 {
		return withCode(exitUsage, fmt.Errorf("invalid --delimiter %q: expected a single character", o.delimiter))
	}
	d, _ := utf8.DecodeRuneInString(o.delimiter)
	o.parser = ingest.ParserConfig{
		Delimiter: d,
		Locale:    strings.TrimSpace(o.locale),
		Columns:   ingest.DefaultColumns(),
	}

	o.idFilter = nil
	if idSet {
		if o.id <= 0 {
			return withCode(exitUsage, fmt.Errorf("invalid --id %d: must be positive", o.id))
		}
		id := o.id
		o.idFilter = &id
	}
	return nil
}

func runSeed(ctx context.Context, out io.Writer, pool *pgxpool.Pool, logger *logrus.Logger, opts seedOptions) error {
	ctx = composables.WithPool(ctx, pool)

	svc := services.NewSeedService(
		persistence.NewBoardGameRepository(),
		persistence.NewLookupRepository(),
		persistence.NewGameLinkRepository(),
		composables.NewTransactor(),
		logger,
		services.WithRunLocker(persistence.NewAdvisoryLocker(pool)),
	)

	res, err := svc.Seed(ctx, services.SeedOptions{
		ID:     opts.idFilter,
		Source: opts.input,
		Parser: opts.parser,
		DryRun: opts.dryRun,
	})

	if opts.metricsTextfile != "" {
		if werr := prometheus.WriteToTextfile(opts.metricsTextfile, prometheus.DefaultGatherer); werr != nil {
			logger.WithError(werr).Warn("failed to write metrics textfile")
		}
	}

	if err != nil {
		return withCode(seedExitCode(err), err)
	}
	return writeJSONLine(out, newSeedSummary(res))
}

func seedExitCode(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalidOptions),
		errors.Is(err, ingest.ErrSource),
		errors.Is(err, ingest.ErrMissingColumn),
		errors.Is(err, ingest.ErrInvalidConfig):
		return exitValidation
	case errors.Is(err, ingest.ErrPersist):
		return exitDBWrite
	case errors.Is(err, ingest.ErrLoadState), errors.Is(err, ingest.ErrRunInProgress):
		return exitDB
	}
	return 1
}

type seedSummary struct {
	Status      string           `json:"status"`
	RunID       uuid.UUID        `json:"run_id"`
	DryRun      bool             `json:"dry_run"`
	BoardGames  int64            `json:"board_games"`
	Domains     int64            `json:"domains"`
	Mechanics   int64            `json:"mechanics"`
	Accepted    int64            `json:"accepted"`
	SkippedRows int64            `json:"skipped_rows"`
	Skipped     map[string]int64 `json:"skipped"`
}

func newSeedSummary(res services.SeedResult) seedSummary {
	skipped := make(map[string]int64, len(ingest.SkipReasons()))
	for _, reason := range ingest.SkipReasons() {
		skipped[string(reason)] = res.Skipped[reason]
	}
	return seedSummary{
		Status:      "ok",
		RunID:       res.RunID,
		DryRun:      res.DryRun,
		BoardGames:  res.BoardGames,
		Domains:     res.Domains,
		Mechanics:   res.Mechanics,
		Accepted:    res.Accepted,
		SkippedRows: res.SkippedRows,
		Skipped:     skipped,
	}
}
