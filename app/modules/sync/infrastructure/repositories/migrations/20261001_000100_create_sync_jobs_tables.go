package syncmigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating sync job flow tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS sync_jobs (
					job_id VARCHAR(128) PRIMARY KEY,
					kind VARCHAR(32) NOT NULL,
					domain VARCHAR(16) NOT NULL,
					parent_id VARCHAR(128),
					options JSONB,
					payload JSONB NOT NULL,
					state VARCHAR(24) NOT NULL,
					progress INT NOT NULL DEFAULT 0,
					attempts INT NOT NULL DEFAULT 0,
					generation INT NOT NULL DEFAULT 0,
					last_error TEXT,
					total_units INT NOT NULL DEFAULT 0,
					completed_units INT NOT NULL DEFAULT 0,
					fail_parent_on_failure BOOLEAN NOT NULL DEFAULT FALSE,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					finished_at TIMESTAMPTZ
				);
				CREATE INDEX IF NOT EXISTS idx_sync_jobs_state ON sync_jobs(state);
				CREATE INDEX IF NOT EXISTS idx_sync_jobs_parent ON sync_jobs(parent_id);
				CREATE INDEX IF NOT EXISTS idx_sync_jobs_updated ON sync_jobs(updated_at DESC);

				CREATE TABLE IF NOT EXISTS sync_job_dependencies (
					job_id VARCHAR(128) NOT NULL REFERENCES sync_jobs(job_id) ON DELETE CASCADE,
					depends_on VARCHAR(128) NOT NULL,
					PRIMARY KEY (job_id, depends_on)
				);
				CREATE INDEX IF NOT EXISTS idx_sync_job_dependencies_on ON sync_job_dependencies(depends_on);
			`); err != nil {
				return fmt.Errorf("failed to create sync job tables: %w", err)
			}
			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping sync job flow tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				DROP TABLE IF EXISTS sync_job_dependencies;
				DROP TABLE IF EXISTS sync_jobs;
			`); err != nil {
				return fmt.Errorf("failed to drop sync job tables: %w", err)
			}
			return nil
		})
	})
}
