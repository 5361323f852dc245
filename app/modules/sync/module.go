package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	syncservice "github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/application"
	syncdomain "github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/domain"
	syncevents "github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/infrastructure/events"
	synchandlers "github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/infrastructure/handlers"
	syncmetrics "github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/infrastructure/metrics"
	syncqueue "github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/infrastructure/queue"
	syncdb "github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/infrastructure/repositories"
	"github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/infrastructure/tournamentapi"
	synctime "github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/time_utils"
	"github.com/Black-And-White-Club/shuttle-sync/config"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/trace"
)

// Module represents the sync module.
type Module struct {
	Service  syncservice.Service
	Handlers synchandlers.Handlers
	Queue    *syncqueue.Service

	runtime *syncqueue.Runtime
	bus     *syncevents.Bus
	cache   *tournamentapi.RedisCache
	logger  *slog.Logger
}

// NewSyncModule creates and initializes a new sync module. The River runtime is
// built but not started, so the module can also be used to only queue work.
func NewSyncModule(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	tracer trace.Tracer,
	metrics syncmetrics.SyncMetrics,
	db *bun.DB,
	matcher syncservice.TeamMatcher,
) (*Module, error) {
	logger.InfoContext(ctx, "sync.NewSyncModule initializing")

	m := &Module{logger: logger}

	// 1. Job event bus
	if cfg.NATS.URL != "" {
		bus, err := syncevents.NewNATSBus(cfg.NATS.URL, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create job event bus: %w", err)
		}
		m.bus = bus
	} else {
		m.bus = syncevents.NewInProcessBus(logger)
	}

	// 2. Tournament API client
	var cache tournamentapi.Cache = tournamentapi.NoopCache{}
	if cfg.Redis.URL != "" {
		rc, err := tournamentapi.NewRedisCache(ctx, cfg.Redis.URL)
		if err != nil {
			// the cache is optional
			logger.WarnContext(ctx, "Tournament API cache disabled", slog.Any("error", err))
		} else {
			m.cache = rc
			cache = rc
		}
	}
	api := tournamentapi.NewHTTPClient(ctx, tournamentapi.Config{
		BaseURL:           cfg.TournamentAPI.BaseURL,
		ClientID:          cfg.TournamentAPI.ClientID,
		ClientSecret:      cfg.TournamentAPI.ClientSecret,
		TokenURL:          cfg.TournamentAPI.TokenURL,
		Scopes:            cfg.TournamentAPI.Scopes,
		Timeout:           cfg.TournamentAPI.Timeout,
		RequestsPerSecond: cfg.TournamentAPI.RequestsPerSecond,
		Burst:             cfg.TournamentAPI.Burst,
		MaxTries:          cfg.TournamentAPI.MaxTries,
		RetryInterval:     cfg.TournamentAPI.RetryInterval,
		CacheTTL:          cfg.TournamentAPI.CacheTTL,
	}, cache, logger)

	// 3. Flow queue
	m.Queue = syncqueue.NewService(syncqueue.NewStore(db), db, m.bus, metrics, logger, syncqueue.Options{
		StaleAfter: cfg.Sync.StaleAfter,
		Retention:  cfg.Sync.Retention,
	})

	// 4. Service and orchestrator
	service := syncservice.NewSyncService(syncservice.Deps{
		Queue:      m.Queue,
		Repo:       syncdb.NewRepository(db),
		API:        api,
		Matcher:    matcher,
		Subscriber: m.bus,
		Logger:     logger,
		Metrics:    metrics,
		Tracer:     tracer,
		Clock:      syncdomain.RealClock{},
		Season: syncdomain.SeasonWindow{
			StartMonth: time.Month(cfg.Sync.SeasonStartMonth),
			EndMonth:   time.Month(cfg.Sync.SeasonEndMonth),
		},
		PlannerConcurrency: cfg.Sync.PlannerConcurrency,
		DB:                 db,
	})
	m.Queue.SetExecutor(service.Executor())
	m.Service = service

	// 5. River runtime
	runtime, err := syncqueue.NewRuntime(ctx, cfg.Postgres.DSN, m.Queue, syncqueue.RiverConfig{
		MaxWorkers:    cfg.Sync.MaxWorkers,
		MaxAttempts:   cfg.Sync.MaxAttempts,
		JobTimeout:    cfg.Sync.JobTimeout,
		SweepInterval: cfg.Sync.SweepInterval,
	}, metrics, logger)
	if err != nil {
		_ = m.closeResources()
		return nil, fmt.Errorf("failed to create sync queue runtime: %w", err)
	}
	m.runtime = runtime

	// 6. Handlers
	m.Handlers = synchandlers.NewSyncHandlers(
		service,
		synctime.NewDateParser(cfg.Location()),
		syncdomain.RealClock{},
		logger,
		tracer,
	)

	return m, nil
}

// Run starts the River workers.
func (m *Module) Run(ctx context.Context) error {
	return m.runtime.Start(ctx)
}

// Routes returns the sync admin routes, meant to be mounted under /sync.
func (m *Module) Routes() http.Handler {
	return synchandlers.Router(m.Handlers)
}

// Close shuts down the sync module.
func (m *Module) Close(ctx context.Context) error {
	var errs []error
	if m.runtime != nil {
		errs = append(errs, m.runtime.Stop(ctx))
	}
	errs = append(errs, m.closeResources())
	m.logger.Info("Sync module stopped")
	return errors.Join(errs...)
}

func (m *Module) closeResources() error {
	var errs []error
	if m.bus != nil {
		errs = append(errs, m.bus.Close())
	}
	if m.cache != nil {
		errs = append(errs, m.cache.Close())
	}
	return errors.Join(errs...)
}
