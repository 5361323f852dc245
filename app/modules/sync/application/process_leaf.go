package syncservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	syncdomain "github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/domain"
	syncdb "github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/infrastructure/repositories"
	"github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/infrastructure/tournamentapi"
	teammatchservice "github.com/Black-And-White-Club/shuttle-sync/app/modules/teammatching/application"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// processEntries reconciles all registrations of a draw. Team entries of a
// competition are matched to internal teams first.
func (o *Orchestrator) processEntries(ctx context.Context, exec syncdomain.Execution, p *syncdomain.EntrySyncPayload, logger *slog.Logger) error {
	logger = logger.With(
		slog.String("subject_code", p.SubjectCode),
		slog.String("draw_code", p.DrawCode),
	)
	if p.DrawID == uuid.Nil {
		skipMissing(ctx, logger, syncdomain.ErrMissingReference, "draw "+p.DrawCode)
		o.finish(ctx, exec, logger)
		return nil
	}

	entries, err := o.api.GetEntries(ctx, p.SubjectCode, p.DrawCode)
	if err != nil {
		if !skipMissing(ctx, logger, err, "entries of "+p.DrawCode) {
			return fmt.Errorf("failed to fetch entries of %s: %w", p.DrawCode, err)
		}
		entries = nil
	}

	tracker := syncdomain.NewProgressTracker(len(entries))
	var errs []error
	for i, e := range entries {
		var teamID *uuid.UUID
		if p.Domain == syncdomain.DomainCompetition {
			teamID = o.resolveTeam(ctx, p.EventID, e.TeamCode, e.TeamName)
		}
		if _, _, err := o.reconciler.UpsertEntry(ctx, p.DrawID, e, teamID); err != nil {
			errs = append(errs, fmt.Errorf("entry %s: %w", e.Code, err))
			logger.WarnContext(ctx, "Failed to reconcile entry",
				slog.String("entry_code", e.Code),
				slog.Any("error", err),
			)
		}
		o.reportProgress(ctx, exec, tracker, i+1)
	}
	if err := batchError("entries", len(entries), errs); err != nil {
		return err
	}

	logger.InfoContext(ctx, "Entries reconciled",
		slog.Int("total", len(entries)),
		slog.Int("failed", len(errs)),
	)
	o.finish(ctx, exec, logger)
	return nil
}

// resolveTeam returns the internal team an external one was matched to, if any.
func (o *Orchestrator) resolveTeam(ctx context.Context, eventID uuid.UUID, code, name string) *uuid.UUID {
	if o.matcher == nil || code == "" {
		return nil
	}
	res := o.matcher.MatchTeam(ctx, teammatchservice.MatchRequest{
		EventID:      eventID,
		ExternalCode: code,
		ExternalName: name,
	})
	if res.Match == nil {
		return nil
	}
	id := res.Match.InternalTeamID
	return &id
}

// processEncounter reconciles one team encounter together with its games.
func (o *Orchestrator) processEncounter(ctx context.Context, exec syncdomain.Execution, p *syncdomain.EncounterSyncPayload, logger *slog.Logger) error {
	logger = logger.With(
		slog.String("subject_code", p.SubjectCode),
		slog.String("encounter_code", p.EncounterCode),
	)
	if p.DrawID == uuid.Nil {
		skipMissing(ctx, logger, syncdomain.ErrMissingReference, "draw of encounter "+p.EncounterCode)
		o.finish(ctx, exec, logger)
		return nil
	}

	enc, err := o.api.GetEncounter(ctx, p.SubjectCode, p.EncounterCode)
	if err != nil {
		if skipMissing(ctx, logger, err, "encounter "+p.EncounterCode) {
			o.finish(ctx, exec, logger)
			return nil
		}
		return fmt.Errorf("failed to fetch encounter %s: %w", p.EncounterCode, err)
	}

	homeID := o.resolveTeam(ctx, p.EventID, enc.HomeTeam.Code, enc.HomeTeam.Name)
	awayID := o.resolveTeam(ctx, p.EventID, enc.AwayTeam.Code, enc.AwayTeam.Name)
	rec, _, err := o.reconciler.UpsertEncounter(ctx, p.DrawID, *enc, homeID, awayID)
	if err != nil {
		return err
	}

	matches, err := o.api.GetMatchesByEncounter(ctx, p.SubjectCode, p.EncounterCode)
	if err != nil {
		if !skipMissing(ctx, logger, err, "games of "+p.EncounterCode) {
			return fmt.Errorf("failed to fetch games of %s: %w", p.EncounterCode, err)
		}
		matches = nil
	}

	var errs []error
	for _, m := range matches {
		if _, _, err := o.reconciler.UpsertGame(ctx, p.DrawID, &rec.ID, m); err != nil {
			errs = append(errs, fmt.Errorf("game %s: %w", m.Code, err))
			logger.WarnContext(ctx, "Failed to reconcile game",
				slog.String("game_code", m.Code),
				slog.Any("error", err),
			)
		}
	}
	if err := batchError("games", len(matches), errs); err != nil {
		return err
	}

	logger.InfoContext(ctx, "Encounter reconciled", slog.Int("games", len(matches)))
	o.finish(ctx, exec, logger)
	return nil
}

// processGames handles the three shapes of a result sync: one draw, a date or
// list of matches, or a fan-out over every known draw of the event.
func (o *Orchestrator) processGames(ctx context.Context, exec syncdomain.Execution, p *syncdomain.GameSyncPayload, logger *slog.Logger) error {
	logger = logger.With(slog.String("subject_code", p.SubjectCode))

	var err error
	switch {
	case p.DrawID != uuid.Nil:
		err = o.syncDrawGames(ctx, exec, p, logger.With(slog.String("draw_code", p.DrawCode)))
	case p.Date != nil || len(p.MatchCodes) > 0:
		err = o.syncScopedGames(ctx, exec, p, logger)
	default:
		err = o.fanOutGames(ctx, exec, p, logger)
	}
	if err != nil {
		return err
	}

	o.finish(ctx, exec, logger)
	return nil
}

func (o *Orchestrator) syncDrawGames(ctx context.Context, exec syncdomain.Execution, p *syncdomain.GameSyncPayload, logger *slog.Logger) error {
	matches, err := o.api.GetMatchesByDraw(ctx, p.SubjectCode, p.DrawCode)
	if err != nil {
		if skipMissing(ctx, logger, err, "games of "+p.DrawCode) {
			return nil
		}
		return fmt.Errorf("failed to fetch games of %s: %w", p.DrawCode, err)
	}

	tracker := syncdomain.NewProgressTracker(len(matches))
	var errs []error
	for i, m := range matches {
		if err := o.syncMatch(ctx, p.DrawID, m); err != nil {
			errs = append(errs, fmt.Errorf("game %s: %w", m.Code, err))
			logger.WarnContext(ctx, "Failed to reconcile game",
				slog.String("game_code", m.Code),
				slog.Any("error", err),
			)
		}
		o.reportProgress(ctx, exec, tracker, i+1)
	}
	if err := batchError("games", len(matches), errs); err != nil {
		return err
	}
	logger.InfoContext(ctx, "Draw games reconciled", slog.Int("games", len(matches)))
	return nil
}

// syncMatch upserts a game, linking it to its encounter when that is known.
func (o *Orchestrator) syncMatch(ctx context.Context, drawID uuid.UUID, m tournamentapi.Match) error {
	var encounterID *uuid.UUID
	if m.EncounterCode != "" {
		enc, err := o.repo.GetEncounter(ctx, nil, drawID, m.EncounterCode)
		switch {
		case err == nil:
			encounterID = &enc.ID
		case !errors.Is(err, syncdb.ErrNotFound):
			return err
		}
	}
	_, _, err := o.reconciler.UpsertGame(ctx, drawID, encounterID, m)
	return err
}

func (o *Orchestrator) syncScopedGames(ctx context.Context, exec syncdomain.Execution, p *syncdomain.GameSyncPayload, logger *slog.Logger) error {
	if p.EventID == uuid.Nil {
		return fmt.Errorf("%w: event %s is not synced", syncdomain.ErrMissingReference, p.SubjectCode)
	}

	matches, err := o.fetchScopedMatches(ctx, p, logger)
	if err != nil {
		return err
	}

	draws := make(map[string]*syncdb.Draw)
	tracker := syncdomain.NewProgressTracker(len(matches))
	skipped := 0
	var errs []error
	for i, m := range matches {
		skip, err := o.syncScopedMatch(ctx, p.EventID, m, draws, logger)
		switch {
		case err != nil:
			errs = append(errs, err)
		case skip:
			skipped++
		}
		o.reportProgress(ctx, exec, tracker, i+1)
	}
	if err := batchError("games", len(matches)-skipped, errs); err != nil {
		return err
	}

	logger.InfoContext(ctx, "Games reconciled",
		slog.Int("total", len(matches)),
		slog.Int("skipped", skipped),
		slog.Int("failed", len(errs)),
	)
	return nil
}

// syncScopedMatch reconciles one game of a scoped run. Draws are looked up by
// code once and kept in draws; a game of an unknown draw is skipped.
func (o *Orchestrator) syncScopedMatch(ctx context.Context, eventID uuid.UUID, m tournamentapi.Match, draws map[string]*syncdb.Draw, logger *slog.Logger) (bool, error) {
	draw, ok := draws[m.DrawCode]
	if !ok {
		var err error
		draw, err = o.repo.GetDrawByEventCode(ctx, nil, eventID, m.DrawCode)
		if err != nil && !errors.Is(err, syncdb.ErrNotFound) {
			logger.WarnContext(ctx, "Failed to look up draw of game",
				slog.String("game_code", m.Code),
				slog.String("draw_code", m.DrawCode),
				slog.Any("error", err),
			)
			return false, fmt.Errorf("draw %s: %w", m.DrawCode, err)
		}
		draws[m.DrawCode] = draw
	}
	if draw == nil {
		logger.WarnContext(ctx, "Skipping game of unknown draw",
			slog.String("game_code", m.Code),
			slog.String("draw_code", m.DrawCode),
		)
		return true, nil
	}
	if err := o.syncMatch(ctx, draw.ID, m); err != nil {
		logger.WarnContext(ctx, "Failed to reconcile game",
			slog.String("game_code", m.Code),
			slog.Any("error", err),
		)
		return false, fmt.Errorf("game %s: %w", m.Code, err)
	}
	return false, nil
}

// fetchScopedMatches loads the games of a date, narrowed to the match codes
// when both are given, or the listed matches one by one.
func (o *Orchestrator) fetchScopedMatches(ctx context.Context, p *syncdomain.GameSyncPayload, logger *slog.Logger) ([]tournamentapi.Match, error) {
	if p.Date != nil {
		matches, err := o.api.GetMatchesByDate(ctx, p.SubjectCode, *p.Date)
		if err != nil {
			if skipMissing(ctx, logger, err, "games on "+p.Date.Format("2006-01-02")) {
				return nil, nil
			}
			return nil, fmt.Errorf("failed to fetch games of %s: %w", p.SubjectCode, err)
		}
		if len(p.MatchCodes) > 0 {
			matches = slices.DeleteFunc(matches, func(m tournamentapi.Match) bool {
				return !slices.Contains(p.MatchCodes, m.Code)
			})
		}
		return matches, nil
	}

	matches := make([]tournamentapi.Match, 0, len(p.MatchCodes))
	for _, code := range p.MatchCodes {
		m, err := o.api.GetMatch(ctx, p.SubjectCode, code)
		if err != nil {
			if skipMissing(ctx, logger, err, "game "+code) {
				continue
			}
			return nil, fmt.Errorf("failed to fetch game %s: %w", code, err)
		}
		matches = append(matches, *m)
	}
	return matches, nil
}

func (o *Orchestrator) fanOutGames(ctx context.Context, exec syncdomain.Execution, p *syncdomain.GameSyncPayload, logger *slog.Logger) error {
	if p.RootJobID == "" {
		p.RootJobID = exec.JobID
	}
	return o.spawnChildren(ctx, exec, &p.Phase.ChildJobsCreated, &p.Phase.ChildrenGeneration, func(ctx context.Context) ([]syncdomain.JobSpec, error) {
		if p.EventID == uuid.Nil {
			return nil, fmt.Errorf("%w: event %s is not synced", syncdomain.ErrMissingReference, p.SubjectCode)
		}
		draws, err := o.repo.GetDrawsByEvent(ctx, nil, p.EventID)
		if err != nil {
			return nil, fmt.Errorf("failed to load draws: %w", err)
		}
		logger.InfoContext(ctx, "Fanning out game sync", slog.Int("draws", len(draws)))
		return o.flows.GameFanout(exec.JobID, p, draws), nil
	})
}

// processStandings recomputes a draw's standings from the reconciled games and
// swaps them in within one transaction.
func (o *Orchestrator) processStandings(ctx context.Context, exec syncdomain.Execution, p *syncdomain.StandingSyncPayload, logger *slog.Logger) error {
	logger = logger.With(
		slog.String("subject_code", p.SubjectCode),
		slog.String("draw_code", p.DrawCode),
	)
	if p.DrawID == uuid.Nil {
		skipMissing(ctx, logger, syncdomain.ErrMissingReference, "draw "+p.DrawCode)
		o.finish(ctx, exec, logger)
		return nil
	}

	rows, err := runInTx(o, ctx, func(ctx context.Context, db bun.IDB) ([]*syncdb.Standing, error) {
		entries, err := o.repo.GetEntriesByDraw(ctx, db, p.DrawID)
		if err != nil {
			return nil, fmt.Errorf("failed to load entries: %w", err)
		}
		games, err := o.repo.GetGamesByDraw(ctx, db, p.DrawID)
		if err != nil {
			return nil, fmt.Errorf("failed to load games: %w", err)
		}
		var encounters []*syncdb.Encounter
		if p.Domain == syncdomain.DomainCompetition {
			if encounters, err = o.repo.GetEncountersByDraw(ctx, db, p.DrawID); err != nil {
				return nil, fmt.Errorf("failed to load encounters: %w", err)
			}
		}

		rows := ComputeStandings(p.Domain, p.DrawID, entries, games, encounters, o.clock.Now())
		if err := o.repo.ReplaceStandings(ctx, db, p.DrawID, rows); err != nil {
			return nil, fmt.Errorf("failed to store standings: %w", err)
		}
		return rows, nil
	})
	if err != nil {
		return err
	}

	logger.InfoContext(ctx, "Standings recomputed", slog.Int("rows", len(rows)))
	o.finish(ctx, exec, logger)
	return nil
}
