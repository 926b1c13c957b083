package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"github.com/iota-uz/bgcatalog/modules/catalog/infrastructure/persistence"
	"github.com/iota-uz/bgcatalog/pkg/configuration"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the catalog schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd.Context(), func(ctx context.Context, m *persistence.Migrator) error {
				return migrateUp(ctx, cmd.OutOrStdout(), m)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd.Context(), func(ctx context.Context, m *persistence.Migrator) error {
				return migrateStatus(ctx, cmd.OutOrStdout(), m)
			})
		},
	})
	return cmd
}

func withMigrator(ctx context.Context, fn func(context.Context, *persistence.Migrator) error) error {
	conf := configuration.Use()
	defer conf.Unload()

	pool, err := connectDB(ctx, conf.Database.Opts)
	if err != nil {
		return err
	}
	defer pool.Close()

	m, err := persistence.NewMigrator(pool)
	if err != nil {
		return withCode(exitDB, err)
	}
	defer func() { _ = m.Close() }()
	return fn(ctx, m)
}

type migrationLine struct {
	Version    int64      `json:"version"`
	Source     string     `json:"source"`
	State      string     `json:"state"`
	AppliedAt  *time.Time `json:"applied_at,omitempty"`
	DurationMS int64      `json:"duration_ms,omitempty"`
}

func migrateUp(ctx context.Context, out io.Writer, m *persistence.Migrator) error {
	results, err := m.Up(ctx)
	if err != nil {
		return withCode(exitDBWrite, err)
	}
	for _, r := range results {
		if err := writeJSONLine(out, migrationLine{
			Version:    r.Source.Version,
			Source:     r.Source.Path,
			State:      "applied",
			DurationMS: r.Duration.Milliseconds(),
		}); err != nil {
			return err
		}
	}
	return nil
}

func migrateStatus(ctx context.Context, out io.Writer, m *persistence.Migrator) error {
	statuses, err := m.Status(ctx)
	if err != nil {
		return withCode(exitDB, err)
	}
	for _, s := range statuses {
		line := migrationLine{
			Version: s.Source.Version,
			Source:  s.Source.Path,
			State:   string(s.State),
		}
		if s.State == goose.StateApplied {
			at := s.AppliedAt.UTC()
			line.AppliedAt = &at
		}
		if err := writeJSONLine(out, line); err != nil {
			return fmt.Errorf("migration %d: %w", s.Source.Version, err)
		}
	}
	return nil
}
