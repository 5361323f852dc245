//go:build integration

package testutils

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/Black-And-White-Club/shuttle-sync/config"
	"github.com/Black-And-White-Club/shuttle-sync/integration_tests/containers"
	"github.com/testcontainers/testcontainers-go/modules/nats"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// TestEnvironment holds the containers and connections shared by one test package.
type TestEnvironment struct {
	Ctx           context.Context
	PgContainer   *postgres.PostgresContainer
	NatsContainer *nats.NATSContainer
	DB            *bun.DB
	DSN           string
	NatsURL       string
	Config        *config.Config
}

var (
	envOnce   sync.Once
	sharedEnv *TestEnvironment
	envErr    error
)

// GetTestEnvironment starts the containers on first use and returns the shared
// environment with empty tables.
func GetTestEnvironment(t *testing.T) *TestEnvironment {
	t.Helper()
	envOnce.Do(func() {
		sharedEnv, envErr = newTestEnvironment(context.Background())
	})
	if envErr != nil {
		t.Fatalf("failed to set up test environment: %v", envErr)
	}
	if err := CleanupDatabase(sharedEnv.Ctx, sharedEnv.DB); err != nil {
		t.Fatalf("failed to clean database: %v", err)
	}
	return sharedEnv
}

func newTestEnvironment(ctx context.Context) (*TestEnvironment, error) {
	pgContainer, dsn, err := containers.SetupPostgresContainer(ctx)
	if err != nil {
		return nil, err
	}
	natsContainer, natsURL, err := containers.SetupNatsContainer(ctx)
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, err
	}

	sqlDB := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqlDB, pgdialect.New())
	if err := RunMigrations(ctx, db, dsn); err != nil {
		_ = db.Close()
		_ = pgContainer.Terminate(ctx)
		_ = natsContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	cfg := &config.Config{
		Postgres: config.PostgresConfig{DSN: dsn},
		NATS:     config.NATSConfig{URL: natsURL},
		Sync: config.SyncConfig{
			MaxWorkers:       4,
			MaxAttempts:      2,
			JobTimeout:       time.Minute,
			SweepInterval:    time.Second,
			SeasonStartMonth: int(time.August),
			SeasonEndMonth:   int(time.April),
			Timezone:         "UTC",
		},
	}

	return &TestEnvironment{
		Ctx:           ctx,
		PgContainer:   pgContainer,
		NatsContainer: natsContainer,
		DB:            db,
		DSN:           dsn,
		NatsURL:       natsURL,
		Config:        cfg,
	}, nil
}

// Shutdown terminates the shared containers. Call it from TestMain.
func Shutdown(ctx context.Context) {
	if sharedEnv == nil {
		return
	}
	if err := sharedEnv.DB.Close(); err != nil {
		log.Printf("Failed to close database: %v", err)
	}
	if err := sharedEnv.NatsContainer.Terminate(ctx); err != nil {
		log.Printf("Failed to terminate NATS container: %v", err)
	}
	if err := sharedEnv.PgContainer.Terminate(ctx); err != nil {
		log.Printf("Failed to terminate postgres container: %v", err)
	}
}
