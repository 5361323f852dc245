package syncservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	syncdomain "github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/domain"
	syncdb "github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/infrastructure/repositories"
	"github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/infrastructure/tournamentapi"
)

const defaultDiscoveryPageSize = 100

// DefaultCompetitionWindow is the part of the year in which newly discovered
// competitions get their structure synced right away.
var DefaultCompetitionWindow = syncdomain.SeasonWindow{StartMonth: time.August, EndMonth: time.April}

// StructureQueuer queues structure syncs for discovered roots.
type StructureQueuer interface {
	QueueStructureSync(ctx context.Context, req StructureSyncRequest) (string, error)
}

// DiscoveryResult summarises one discovery page.
type DiscoveryResult struct {
	Seen     int `json:"seen"`
	Existing int `json:"existing"`
	Created  int `json:"created"`
	Queued   int `json:"queued"`
	Failed   int `json:"failed"`
}

// Discovery seeds root records for tournaments the engine has not seen yet.
type Discovery struct {
	api        tournamentapi.Client
	repo       syncdb.Repository
	reconciler *Reconciler
	queuer     StructureQueuer
	clock      syncdomain.Clock
	window     syncdomain.SeasonWindow
	logger     *slog.Logger
}

// NewDiscovery creates a Discovery.
func NewDiscovery(
	api tournamentapi.Client,
	repo syncdb.Repository,
	reconciler *Reconciler,
	queuer StructureQueuer,
	clock syncdomain.Clock,
	window syncdomain.SeasonWindow,
	logger *slog.Logger,
) *Discovery {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = syncdomain.RealClock{}
	}
	return &Discovery{
		api:        api,
		repo:       repo,
		reconciler: reconciler,
		queuer:     queuer,
		clock:      clock,
		window:     window,
		logger:     logger.With(slog.String("component", "discovery")),
	}
}

// DiscoverAndSeed processes one page of the external listing. Items fail on
// their own: a failure is logged and counted, never returned. Only a failure to
// fetch the page itself is an error.
func (d *Discovery) DiscoverAndSeed(ctx context.Context, refDate time.Time, pageSize int, searchTerm string) (DiscoveryResult, error) {
	var res DiscoveryResult
	if pageSize <= 0 {
		pageSize = defaultDiscoveryPageSize
	}

	items, err := d.api.ListTournaments(ctx, tournamentapi.ListQuery{
		RefDate:  refDate,
		PageSize: pageSize,
		Search:   searchTerm,
	})
	if err != nil {
		return res, fmt.Errorf("failed to list tournaments: %w", err)
	}

	for _, item := range items {
		res.Seen++
		if err := d.seed(ctx, item, &res); err != nil {
			res.Failed++
			d.logger.WarnContext(ctx, "Skipping discovered tournament",
				slog.String("code", item.Code),
				slog.Any("error", err),
			)
		}
	}

	d.logger.InfoContext(ctx, "Discovery finished",
		slog.Time("ref_date", refDate),
		slog.Int("seen", res.Seen),
		slog.Int("created", res.Created),
		slog.Int("queued", res.Queued),
		slog.Int("failed", res.Failed),
	)
	return res, nil
}

func (d *Discovery) seed(ctx context.Context, item tournamentapi.TournamentSummary, res *DiscoveryResult) error {
	if item.Code == "" {
		return fmt.Errorf("%w: listing item without code", syncdomain.ErrMissingReference)
	}

	// one table holds both kinds, so this covers tournaments and competitions
	_, err := d.repo.GetEventByExternalCode(ctx, nil, item.Code)
	if err == nil {
		res.Existing++
		return nil
	}
	if !errors.Is(err, syncdb.ErrNotFound) {
		return err
	}

	event, _, err := d.reconciler.UpsertEvent(ctx, item)
	if err != nil {
		return err
	}
	res.Created++

	if !d.shouldSync(event) {
		d.logger.DebugContext(ctx, "Not queueing structure sync",
			slog.String("code", item.Code),
			slog.String("kind", string(event.Kind)),
			slog.String("status", string(event.Status)),
		)
		return nil
	}
	if _, err := d.queuer.QueueStructureSync(ctx, StructureSyncRequest{
		SubjectCode:          item.Code,
		IncludeSubComponents: true,
	}); err != nil {
		return fmt.Errorf("failed to queue structure sync: %w", err)
	}
	res.Queued++
	return nil
}

func (d *Discovery) shouldSync(event *syncdb.Event) bool {
	if event.Kind == syncdomain.DomainCompetition {
		return d.window.Contains(d.clock.Now())
	}
	return event.Status != syncdomain.StatusFinished
}
