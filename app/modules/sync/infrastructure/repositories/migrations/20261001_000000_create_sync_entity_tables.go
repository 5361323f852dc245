package syncmigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating sync entity tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS sync_events (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					kind VARCHAR(16) NOT NULL,
					external_code VARCHAR(64) NOT NULL UNIQUE,
					name TEXT NOT NULL,
					start_date TIMESTAMPTZ,
					end_date TIMESTAMPTZ,
					status VARCHAR(32) NOT NULL,
					country VARCHAR(8),
					level VARCHAR(32),
					last_synced_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE TABLE IF NOT EXISTS sync_sub_events (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					event_id UUID NOT NULL REFERENCES sync_events(id) ON DELETE CASCADE,
					external_code VARCHAR(64) NOT NULL,
					name TEXT NOT NULL,
					gender VARCHAR(4) NOT NULL,
					game_type VARCHAR(4) NOT NULL,
					level VARCHAR(32),
					last_synced_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					UNIQUE (event_id, external_code)
				);

				CREATE TABLE IF NOT EXISTS sync_draws (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					sub_event_id UUID NOT NULL REFERENCES sync_sub_events(id) ON DELETE CASCADE,
					external_code VARCHAR(64) NOT NULL,
					name TEXT NOT NULL,
					type VARCHAR(16) NOT NULL,
					size INT NOT NULL DEFAULT 0,
					last_synced_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					UNIQUE (sub_event_id, external_code)
				);

				CREATE TABLE IF NOT EXISTS sync_players (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					member_id VARCHAR(64) NOT NULL UNIQUE,
					first_name TEXT NOT NULL,
					last_name TEXT NOT NULL,
					gender VARCHAR(4),
					last_synced_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE TABLE IF NOT EXISTS sync_entries (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					draw_id UUID NOT NULL REFERENCES sync_draws(id) ON DELETE CASCADE,
					external_code VARCHAR(64) NOT NULL,
					player1_id UUID REFERENCES sync_players(id),
					player2_id UUID REFERENCES sync_players(id),
					team_id UUID,
					external_team_code VARCHAR(64),
					external_team_name TEXT,
					seed VARCHAR(16),
					last_synced_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					UNIQUE (draw_id, external_code)
				);

				CREATE TABLE IF NOT EXISTS sync_encounters (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					draw_id UUID NOT NULL REFERENCES sync_draws(id) ON DELETE CASCADE,
					external_code VARCHAR(64) NOT NULL,
					home_team_code VARCHAR(64) NOT NULL,
					away_team_code VARCHAR(64) NOT NULL,
					home_team_id UUID,
					away_team_id UUID,
					scheduled_at TIMESTAMPTZ,
					home_score INT NOT NULL DEFAULT 0,
					away_score INT NOT NULL DEFAULT 0,
					last_synced_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					UNIQUE (draw_id, external_code)
				);

				CREATE TABLE IF NOT EXISTS sync_games (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					draw_id UUID NOT NULL REFERENCES sync_draws(id) ON DELETE CASCADE,
					encounter_id UUID REFERENCES sync_encounters(id) ON DELETE SET NULL,
					external_code VARCHAR(64) NOT NULL,
					round VARCHAR(32),
					game_type VARCHAR(4) NOT NULL,
					scheduled_at TIMESTAMPTZ,
					team1_player_ids JSONB NOT NULL DEFAULT '[]',
					team2_player_ids JSONB NOT NULL DEFAULT '[]',
					sets JSONB NOT NULL DEFAULT '[]',
					winner INT NOT NULL DEFAULT 0,
					status VARCHAR(32),
					last_synced_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					UNIQUE (draw_id, external_code)
				);
				CREATE INDEX IF NOT EXISTS idx_sync_games_encounter ON sync_games(encounter_id);

				CREATE TABLE IF NOT EXISTS sync_standings (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					draw_id UUID NOT NULL REFERENCES sync_draws(id) ON DELETE CASCADE,
					entry_id UUID NOT NULL REFERENCES sync_entries(id) ON DELETE CASCADE,
					position INT NOT NULL,
					played INT NOT NULL DEFAULT 0,
					won INT NOT NULL DEFAULT 0,
					lost INT NOT NULL DEFAULT 0,
					points INT NOT NULL DEFAULT 0,
					sets_won INT NOT NULL DEFAULT 0,
					sets_lost INT NOT NULL DEFAULT 0,
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					UNIQUE (draw_id, entry_id)
				);
			`); err != nil {
				return fmt.Errorf("failed to create sync entity tables: %w", err)
			}
			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping sync entity tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				DROP TABLE IF EXISTS sync_standings;
				DROP TABLE IF EXISTS sync_games;
				DROP TABLE IF EXISTS sync_encounters;
				DROP TABLE IF EXISTS sync_entries;
				DROP TABLE IF EXISTS sync_players;
				DROP TABLE IF EXISTS sync_draws;
				DROP TABLE IF EXISTS sync_sub_events;
				DROP TABLE IF EXISTS sync_events;
			`); err != nil {
				return fmt.Errorf("failed to drop sync entity tables: %w", err)
			}
			return nil
		})
	})
}
