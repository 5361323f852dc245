package teammatching

import (
	"context"
	"log/slog"
	"net/http"

	syncmetrics "github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/infrastructure/metrics"
	teammatchservice "github.com/Black-And-White-Club/shuttle-sync/app/modules/teammatching/application"
	teammatchhandlers "github.com/Black-And-White-Club/shuttle-sync/app/modules/teammatching/infrastructure/handlers"
	teammatchdb "github.com/Black-And-White-Club/shuttle-sync/app/modules/teammatching/infrastructure/repositories"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/trace"
)

// Module represents the team matching module.
type Module struct {
	Service  teammatchservice.Service
	Handlers teammatchhandlers.Handlers
	logger   *slog.Logger
}

// NewTeamMatchingModule creates and initializes a new team matching module.
func NewTeamMatchingModule(
	ctx context.Context,
	logger *slog.Logger,
	tracer trace.Tracer,
	metrics syncmetrics.SyncMetrics,
	db *bun.DB,
) *Module {
	logger.InfoContext(ctx, "teammatching.NewTeamMatchingModule initializing")

	// 1. Initialize Repository
	repo := teammatchdb.NewRepository(db)

	// 2. Initialize Service
	service := teammatchservice.NewTeamMatchingService(repo, logger, metrics, tracer, db)

	// 3. Initialize Handlers
	handlers := teammatchhandlers.NewTeamMatchHandlers(service, logger, tracer)

	return &Module{
		Service:  service,
		Handlers: handlers,
		logger:   logger,
	}
}

// Routes returns the review admin routes, meant to be mounted under /reviews.
func (m *Module) Routes() http.Handler {
	return teammatchhandlers.Router(m.Handlers)
}

// Close shuts down the team matching module.
func (m *Module) Close() error {
	m.logger.Info("Team matching module stopped")
	return nil
}
