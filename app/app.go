package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strings"

	syncmodule "github.com/Black-And-White-Club/shuttle-sync/app/modules/sync"
	syncmetrics "github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/infrastructure/metrics"
	"github.com/Black-And-White-Club/shuttle-sync/app/modules/teammatching"
	"github.com/Black-And-White-Club/shuttle-sync/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// App holds the process-wide dependencies and the modules built on them.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Tracer   trace.Tracer
	Registry *prometheus.Registry
	DB       *bun.DB

	SyncModule         *syncmodule.Module
	TeamMatchingModule *teammatching.Module
}

// NewLogger builds the JSON process logger at the given level.
func NewLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

// NewApp initializes the application with the necessary services and configuration.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := NewLogger(cfg.Observability.LogLevel).With(
		slog.String("service", cfg.Observability.ServiceName),
		slog.String("env", cfg.Observability.Environment),
	)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := syncmetrics.NewPrometheusMetrics(registry)
	tracer := otel.Tracer(cfg.Observability.ServiceName)

	pgdb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.DSN)))
	db := bun.NewDB(pgdb, pgdialect.New())
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	teamMatching := teammatching.NewTeamMatchingModule(ctx, logger, tracer, metrics, db)

	syncMod, err := syncmodule.NewSyncModule(ctx, cfg, logger, tracer, metrics, db, teamMatching.Service)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize sync module: %w", err)
	}

	logger.InfoContext(ctx, "Application initialized")
	return &App{
		Config:             cfg,
		Logger:             logger,
		Tracer:             tracer,
		Registry:           registry,
		DB:                 db,
		SyncModule:         syncMod,
		TeamMatchingModule: teamMatching,
	}, nil
}

// Close releases the modules and the database.
func (app *App) Close(ctx context.Context) error {
	if err := app.SyncModule.Close(ctx); err != nil {
		app.Logger.ErrorContext(ctx, "Failed to close sync module", slog.Any("error", err))
	}
	if err := app.TeamMatchingModule.Close(); err != nil {
		app.Logger.ErrorContext(ctx, "Failed to close team matching module", slog.Any("error", err))
	}
	return app.DB.Close()
}
