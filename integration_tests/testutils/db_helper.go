//go:build integration

package testutils

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"

	syncmigrations "github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/infrastructure/repositories/migrations"
	teammatchmigrations "github.com/Black-And-White-Club/shuttle-sync/app/modules/teammatching/infrastructure/repositories/migrations"
)

// appTables are truncated between tests.
var appTables = []string{
	"sync_job_dependencies",
	"sync_jobs",
	"team_match_reviews",
	"team_external_links",
	"sync_teams",
	"sync_standings",
	"sync_games",
	"sync_encounters",
	"sync_entries",
	"sync_players",
	"sync_draws",
	"sync_sub_events",
	"sync_events",
}

// RunMigrations applies River's migrations and every module's bun migrations.
func RunMigrations(ctx context.Context, db *bun.DB, dsn string) error {
	if err := runRiverMigrations(ctx, dsn); err != nil {
		return fmt.Errorf("failed to run River migrations: %w", err)
	}

	orderedModules := []struct {
		name       string
		migrations *migrate.Migrations
	}{
		{"sync", syncmigrations.Migrations},
		{"teammatching", teammatchmigrations.Migrations},
	}
	for _, mod := range orderedModules {
		migrator := migrate.NewMigrator(db, mod.migrations,
			migrate.WithTableName("bun_migrations_"+mod.name),
			migrate.WithLocksTableName("bun_migration_locks_"+mod.name),
		)
		if err := migrator.Init(ctx); err != nil {
			return fmt.Errorf("failed to initialize %s migrations: %w", mod.name, err)
		}
		group, err := migrator.Migrate(ctx)
		if err != nil {
			return fmt.Errorf("failed to run %s migrations: %w", mod.name, err)
		}
		log.Printf("Ran %s migrations group #%d", mod.name, group.ID)
	}
	return nil
}

func runRiverMigrations(ctx context.Context, dsn string) error {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return fmt.Errorf("failed to create pgx pool for River migrations: %w", err)
	}
	defer pool.Close()

	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		return fmt.Errorf("failed to create River migrator: %w", err)
	}
	_, err = migrator.Migrate(ctx, rivermigrate.DirectionUp, &rivermigrate.MigrateOpts{})
	return err
}

// CleanupDatabase truncates all application tables and River jobs.
func CleanupDatabase(ctx context.Context, db *bun.DB) error {
	for _, table := range appTables {
		if _, err := db.ExecContext(ctx, "TRUNCATE TABLE "+table+" CASCADE"); err != nil {
			return fmt.Errorf("failed to truncate %s: %w", table, err)
		}
	}
	if _, err := db.ExecContext(ctx, "DELETE FROM river_job"); err != nil {
		return fmt.Errorf("failed to clean River jobs: %w", err)
	}
	return nil
}
