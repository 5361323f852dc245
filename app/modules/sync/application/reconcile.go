package syncservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	syncdomain "github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/domain"
	syncmetrics "github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/infrastructure/metrics"
	syncdb "github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/infrastructure/repositories"
	"github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/infrastructure/tournamentapi"
	"github.com/google/uuid"
	"github.com/uptrace/bun/driver/pgdriver"
)

const pgUniqueViolation = "23505"

// Reconciler upserts external records into local storage. Lookups are scoped
// to the natural parent of each entity since external codes are only unique
// there. Every write runs in its own statement; concurrent writers resolve to
// last-write-wins.
type Reconciler struct {
	repo    syncdb.Repository
	clock   syncdomain.Clock
	metrics syncmetrics.SyncMetrics
}

// NewReconciler creates a Reconciler.
func NewReconciler(repo syncdb.Repository, clock syncdomain.Clock, metrics syncmetrics.SyncMetrics) *Reconciler {
	if clock == nil {
		clock = syncdomain.RealClock{}
	}
	if metrics == nil {
		metrics = syncmetrics.NewNoop()
	}
	return &Reconciler{repo: repo, clock: clock, metrics: metrics}
}

func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	return errors.As(err, &pgErr) && pgErr.Field('C') == pgUniqueViolation
}

// upsert finds the record, merges into it or creates it, and saves. A create
// that loses a race against a concurrent writer is retried once as a merge.
func upsert[T any](
	ctx context.Context,
	r *Reconciler,
	entity string,
	find func() (*T, error),
	create func() *T,
	merge func(*T),
	save func(*T) error,
) (*T, bool, error) {
	for attempt := 0; ; attempt++ {
		rec, err := find()
		created := false
		switch {
		case err == nil:
			merge(rec)
		case errors.Is(err, syncdb.ErrNotFound):
			rec = create()
			created = true
		default:
			return nil, false, fmt.Errorf("failed to look up %s: %w", entity, err)
		}

		err = save(rec)
		if err == nil {
			r.metrics.RecordUpsert(ctx, entity, created)
			return rec, created, nil
		}
		if created && attempt == 0 && isUniqueViolation(err) {
			continue
		}
		return nil, false, err
	}
}

// UpsertEvent reconciles a root tournament or competition by external code.
func (r *Reconciler) UpsertEvent(ctx context.Context, ext tournamentapi.TournamentSummary) (*syncdb.Event, bool, error) {
	now := r.clock.Now()
	return upsert(ctx, r, "event",
		func() (*syncdb.Event, error) { return r.repo.GetEventByExternalCode(ctx, nil, ext.Code) },
		func() *syncdb.Event {
			ev := &syncdb.Event{
				ID:           uuid.New(),
				Kind:         syncdomain.MapDomain(ext.TypeCode),
				ExternalCode: ext.Code,
				CreatedAt:    now,
			}
			mergeEvent(ev, ext, now)
			return ev
		},
		func(ev *syncdb.Event) { mergeEvent(ev, ext, now) },
		func(ev *syncdb.Event) error { return r.repo.SaveEvent(ctx, nil, ev) },
	)
}

func mergeEvent(ev *syncdb.Event, ext tournamentapi.TournamentSummary, now time.Time) {
	ev.Name = ext.Name
	ev.StartDate = optionalTime(ext.StartDate)
	ev.EndDate = optionalTime(ext.EndDate)
	ev.Status = syncdomain.MapTournamentStatus(ext.StatusCode)
	ev.Country = ext.Country
	ev.Level = ext.Level
	ev.LastSyncedAt = now
	ev.UpdatedAt = now
}

// UpsertSubEvent reconciles a category of an event.
func (r *Reconciler) UpsertSubEvent(ctx context.Context, eventID uuid.UUID, ext tournamentapi.Event) (*syncdb.SubEvent, bool, error) {
	now := r.clock.Now()
	merge := func(sub *syncdb.SubEvent) {
		sub.Name = ext.Name
		sub.Gender = syncdomain.MapGenderType(ext.GenderCode)
		sub.GameType = syncdomain.MapGameType(ext.GameTypeCode)
		sub.Level = ext.Level
		sub.LastSyncedAt = now
		sub.UpdatedAt = now
	}
	return upsert(ctx, r, "sub_event",
		func() (*syncdb.SubEvent, error) { return r.repo.GetSubEvent(ctx, nil, eventID, ext.Code) },
		func() *syncdb.SubEvent {
			sub := &syncdb.SubEvent{ID: uuid.New(), EventID: eventID, ExternalCode: ext.Code, CreatedAt: now}
			merge(sub)
			return sub
		},
		merge,
		func(sub *syncdb.SubEvent) error { return r.repo.SaveSubEvent(ctx, nil, sub) },
	)
}

// UpsertDraw reconciles a draw of a sub-event.
func (r *Reconciler) UpsertDraw(ctx context.Context, subEventID uuid.UUID, ext tournamentapi.Draw) (*syncdb.Draw, bool, error) {
	now := r.clock.Now()
	merge := func(d *syncdb.Draw) {
		d.Name = ext.Name
		d.Type = syncdomain.MapDrawType(ext.TypeCode)
		d.Size = ext.Size
		d.LastSyncedAt = now
		d.UpdatedAt = now
	}
	return upsert(ctx, r, "draw",
		func() (*syncdb.Draw, error) { return r.repo.GetDraw(ctx, nil, subEventID, ext.Code) },
		func() *syncdb.Draw {
			d := &syncdb.Draw{ID: uuid.New(), SubEventID: subEventID, ExternalCode: ext.Code, CreatedAt: now}
			merge(d)
			return d
		},
		merge,
		func(d *syncdb.Draw) error { return r.repo.SaveDraw(ctx, nil, d) },
	)
}

// UpsertPlayer reconciles a player by external member id.
func (r *Reconciler) UpsertPlayer(ctx context.Context, ext tournamentapi.Player) (*syncdb.Player, bool, error) {
	if ext.MemberID == "" {
		return nil, false, fmt.Errorf("%w: player %s %s has no member id", syncdomain.ErrMissingReference, ext.FirstName, ext.LastName)
	}
	now := r.clock.Now()
	merge := func(p *syncdb.Player) {
		p.FirstName = ext.FirstName
		p.LastName = ext.LastName
		if ext.GenderCode != "" {
			p.Gender = syncdomain.MapGenderType(ext.GenderCode)
		}
		p.LastSyncedAt = now
		p.UpdatedAt = now
	}
	return upsert(ctx, r, "player",
		func() (*syncdb.Player, error) { return r.repo.GetPlayerByMemberID(ctx, nil, ext.MemberID) },
		func() *syncdb.Player {
			p := &syncdb.Player{ID: uuid.New(), MemberID: ext.MemberID, CreatedAt: now}
			merge(p)
			return p
		},
		merge,
		func(p *syncdb.Player) error { return r.repo.SavePlayer(ctx, nil, p) },
	)
}

// upsertPlayers reconciles a side of a match or entry and returns the
// internal ids in order. Players without a member id are skipped.
func (r *Reconciler) upsertPlayers(ctx context.Context, players []tournamentapi.Player) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(players))
	for _, ext := range players {
		p, _, err := r.UpsertPlayer(ctx, ext)
		if errors.Is(err, syncdomain.ErrMissingReference) {
			continue
		}
		if err != nil {
			return nil, err
		}
		ids = append(ids, p.ID)
	}
	return ids, nil
}

// UpsertEntry reconciles a registration in a draw together with its players.
// teamID is set for competition entries that were matched to an internal team.
func (r *Reconciler) UpsertEntry(ctx context.Context, drawID uuid.UUID, ext tournamentapi.Entry, teamID *uuid.UUID) (*syncdb.Entry, bool, error) {
	playerIDs, err := r.upsertPlayers(ctx, ext.Players)
	if err != nil {
		return nil, false, err
	}

	now := r.clock.Now()
	merge := func(e *syncdb.Entry) {
		e.Player1ID, e.Player2ID = nil, nil
		if len(playerIDs) > 0 {
			e.Player1ID = &playerIDs[0]
		}
		if len(playerIDs) > 1 {
			e.Player2ID = &playerIDs[1]
		}
		if teamID != nil {
			e.TeamID = teamID
		}
		e.ExternalTeamCode = ext.TeamCode
		e.ExternalTeamName = ext.TeamName
		e.Seed = ext.Seed
		e.LastSyncedAt = now
		e.UpdatedAt = now
	}
	return upsert(ctx, r, "entry",
		func() (*syncdb.Entry, error) { return r.repo.GetEntry(ctx, nil, drawID, ext.Code) },
		func() *syncdb.Entry {
			e := &syncdb.Entry{ID: uuid.New(), DrawID: drawID, ExternalCode: ext.Code, CreatedAt: now}
			merge(e)
			return e
		},
		merge,
		func(e *syncdb.Entry) error { return r.repo.SaveEntry(ctx, nil, e) },
	)
}

// UpsertEncounter reconciles a team encounter of a competition draw.
func (r *Reconciler) UpsertEncounter(ctx context.Context, drawID uuid.UUID, ext tournamentapi.Encounter, homeID, awayID *uuid.UUID) (*syncdb.Encounter, bool, error) {
	now := r.clock.Now()
	merge := func(e *syncdb.Encounter) {
		e.HomeTeamCode = ext.HomeTeam.Code
		e.AwayTeamCode = ext.AwayTeam.Code
		if homeID != nil {
			e.HomeTeamID = homeID
		}
		if awayID != nil {
			e.AwayTeamID = awayID
		}
		e.ScheduledAt = ext.ScheduledAt
		e.HomeScore = ext.HomeScore
		e.AwayScore = ext.AwayScore
		e.LastSyncedAt = now
		e.UpdatedAt = now
	}
	return upsert(ctx, r, "encounter",
		func() (*syncdb.Encounter, error) { return r.repo.GetEncounter(ctx, nil, drawID, ext.Code) },
		func() *syncdb.Encounter {
			e := &syncdb.Encounter{ID: uuid.New(), DrawID: drawID, ExternalCode: ext.Code, CreatedAt: now}
			merge(e)
			return e
		},
		merge,
		func(e *syncdb.Encounter) error { return r.repo.SaveEncounter(ctx, nil, e) },
	)
}

// UpsertGame reconciles a match by external match code within its draw. The
// stored result is always the latest one reported.
func (r *Reconciler) UpsertGame(ctx context.Context, drawID uuid.UUID, encounterID *uuid.UUID, ext tournamentapi.Match) (*syncdb.Game, bool, error) {
	team1, err := r.upsertPlayers(ctx, ext.Team1)
	if err != nil {
		return nil, false, err
	}
	team2, err := r.upsertPlayers(ctx, ext.Team2)
	if err != nil {
		return nil, false, err
	}

	now := r.clock.Now()
	sets := make([]syncdb.SetScore, len(ext.Sets))
	for i, s := range ext.Sets {
		sets[i] = syncdb.SetScore{Team1: s.Team1, Team2: s.Team2}
	}
	merge := func(g *syncdb.Game) {
		if encounterID != nil {
			g.EncounterID = encounterID
		}
		g.Round = ext.Round
		g.GameType = syncdomain.MapGameType(ext.GameTypeCode)
		g.ScheduledAt = ext.ScheduledAt
		g.Team1PlayerIDs = team1
		g.Team2PlayerIDs = team2
		g.Sets = sets
		g.Winner = ext.Winner
		g.Status = ext.StatusCode
		g.LastSyncedAt = now
		g.UpdatedAt = now
	}
	return upsert(ctx, r, "game",
		func() (*syncdb.Game, error) { return r.repo.GetGame(ctx, nil, drawID, ext.Code) },
		func() *syncdb.Game {
			g := &syncdb.Game{ID: uuid.New(), DrawID: drawID, ExternalCode: ext.Code, CreatedAt: now}
			merge(g)
			return g
		},
		merge,
		func(g *syncdb.Game) error { return r.repo.SaveGame(ctx, nil, g) },
	)
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
