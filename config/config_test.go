package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_FromFile(t *testing.T) {
	path := writeConfig(t, `
postgres:
  dsn: postgres://file
tournament_api:
  base_url: https://api.example.test
  scopes: [read]
  requests_per_second: 2
sync:
  max_workers: 3
  season_start_month: 9
  season_end_month: 5
observability:
  environment: production
`)
	t.Setenv("NATS_URL", "nats://env:4222")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://file", cfg.Postgres.DSN)
	assert.Equal(t, "nats://env:4222", cfg.NATS.URL)
	assert.Equal(t, "https://api.example.test", cfg.TournamentAPI.BaseURL)
	assert.Equal(t, []string{"read"}, cfg.TournamentAPI.Scopes)
	assert.Equal(t, 2.0, cfg.TournamentAPI.RequestsPerSecond)
	assert.Equal(t, 3, cfg.Sync.MaxWorkers)
	assert.Equal(t, 9, cfg.Sync.SeasonStartMonth)
	assert.Equal(t, 5, cfg.Sync.SeasonEndMonth)
	assert.Equal(t, "production", cfg.Observability.Environment)

	// defaults
	assert.Equal(t, 5, cfg.Sync.MaxAttempts)
	assert.Equal(t, 10*time.Minute, cfg.Sync.JobTimeout)
	assert.Equal(t, ":8080", cfg.Admin.Address)
	assert.Equal(t, "info", cfg.Observability.LogLevel)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "postgres:\n  dsn: postgres://file\n")
	t.Setenv("DATABASE_URL", "postgres://env")
	t.Setenv("TOURNAMENT_API_SCOPES", "read, write")
	t.Setenv("SYNC_JOB_TIMEOUT", "90s")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://env", cfg.Postgres.DSN)
	assert.Equal(t, []string{"read", "write"}, cfg.TournamentAPI.Scopes)
	assert.Equal(t, 90*time.Second, cfg.Sync.JobTimeout)
	assert.Equal(t, "debug", cfg.Observability.LogLevel)
}

func TestLoadConfig_EnvOnly(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent.yaml")

	t.Run("requires database url", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "")
		_, err := LoadConfig(missing)
		assert.EqualError(t, err, "DATABASE_URL environment variable not set")
	})

	t.Run("defaults the season window", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://env")
		cfg, err := LoadConfig(missing)
		require.NoError(t, err)
		assert.Equal(t, int(time.August), cfg.Sync.SeasonStartMonth)
		assert.Equal(t, int(time.April), cfg.Sync.SeasonEndMonth)
		assert.Equal(t, time.UTC, cfg.Location())
	})

	t.Run("bad duration", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://env")
		t.Setenv("SYNC_SWEEP_INTERVAL", "soon")
		_, err := LoadConfig(missing)
		assert.ErrorContains(t, err, "invalid SYNC_SWEEP_INTERVAL value")
	})
}

func TestConfig_Validate(t *testing.T) {
	path := writeConfig(t, "postgres:\n  dsn: x\nsync:\n  season_start_month: 13\n  season_end_month: 4\n")
	_, err := LoadConfig(path)
	assert.EqualError(t, err, "season months must be between 1 and 12, got 13")

	path = writeConfig(t, "postgres:\n  dsn: x\nsync:\n  timezone: Mars/Olympus\n")
	_, err = LoadConfig(path)
	assert.ErrorContains(t, err, `invalid sync timezone "Mars/Olympus"`)
}
