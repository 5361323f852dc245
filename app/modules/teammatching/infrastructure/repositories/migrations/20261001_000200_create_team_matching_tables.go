package teammatchmigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating team matching tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS sync_teams (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					club_name VARCHAR(200) NOT NULL,
					name VARCHAR(200) NOT NULL,
					normalized_name VARCHAR(200) NOT NULL,
					team_number INT,
					gender VARCHAR(4),
					strength INT,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
				CREATE INDEX IF NOT EXISTS idx_sync_teams_club_name ON sync_teams(lower(club_name));
				CREATE INDEX IF NOT EXISTS idx_sync_teams_normalized_name ON sync_teams(normalized_name);
			`); err != nil {
				return fmt.Errorf("failed to create sync_teams table: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS team_external_links (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					event_id UUID NOT NULL,
					external_code VARCHAR(64) NOT NULL,
					external_name TEXT NOT NULL,
					team_id UUID NOT NULL REFERENCES sync_teams(id) ON DELETE CASCADE,
					outcome VARCHAR(40) NOT NULL,
					score DOUBLE PRECISION NOT NULL,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					UNIQUE (event_id, external_code)
				);
			`); err != nil {
				return fmt.Errorf("failed to create team_external_links table: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS team_match_reviews (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					event_id UUID NOT NULL,
					external_code VARCHAR(64) NOT NULL,
					external_name TEXT NOT NULL,
					suggestions JSONB NOT NULL DEFAULT '[]',
					error TEXT,
					status VARCHAR(16) NOT NULL DEFAULT 'pending',
					resolved_team_id UUID REFERENCES sync_teams(id) ON DELETE SET NULL,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					resolved_at TIMESTAMPTZ,
					UNIQUE (event_id, external_code)
				);
				CREATE INDEX IF NOT EXISTS idx_team_match_reviews_status ON team_match_reviews(status, created_at);
			`); err != nil {
				return fmt.Errorf("failed to create team_match_reviews table: %w", err)
			}

			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Rolling back team matching tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				DROP TABLE IF EXISTS team_match_reviews;
				DROP TABLE IF EXISTS team_external_links;
				DROP TABLE IF EXISTS sync_teams;
			`); err != nil {
				return fmt.Errorf("failed to drop team matching tables: %w", err)
			}
			return nil
		})
	})
}
