package syncservice

import (
	"context"
	"fmt"
	"log/slog"

	syncdomain "github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/domain"
	"github.com/google/uuid"
)

// processStructure reconciles the root event and fans out into sub-events.
func (o *Orchestrator) processStructure(ctx context.Context, exec syncdomain.Execution, p *syncdomain.StructureSyncPayload, logger *slog.Logger) error {
	if p.RootJobID == "" {
		p.RootJobID = exec.JobID
	}
	if p.Plan == nil {
		plan := syncdomain.FallbackWorkPlan(p.SubjectCode)
		p.Plan = &plan
	}
	logger = logger.With(slog.String("subject_code", p.SubjectCode))

	err := o.spawnChildren(ctx, exec, &p.Phase.ChildJobsCreated, &p.Phase.ChildrenGeneration, func(ctx context.Context) ([]syncdomain.JobSpec, error) {
		t, err := o.api.GetTournament(ctx, p.SubjectCode)
		if err != nil {
			if skipMissing(ctx, logger, err, "tournament "+p.SubjectCode) {
				return nil, nil
			}
			return nil, fmt.Errorf("failed to fetch tournament %s: %w", p.SubjectCode, err)
		}

		event, created, err := o.reconciler.UpsertEvent(ctx, t.TournamentSummary)
		if err != nil {
			return nil, err
		}
		p.EventID = event.ID
		if event.Kind != "" {
			p.Domain = event.Kind
		}
		logger.InfoContext(ctx, "Event reconciled",
			slog.String("event_id", event.ID.String()),
			slog.Bool("created", created),
		)

		if !p.IncludeSubComponents {
			return nil, nil
		}
		events, err := o.api.GetEvents(ctx, p.SubjectCode)
		if err != nil {
			if skipMissing(ctx, logger, err, "events of "+p.SubjectCode) {
				return nil, nil
			}
			return nil, fmt.Errorf("failed to fetch events of %s: %w", p.SubjectCode, err)
		}
		return o.flows.SubEvents(exec.JobID, p, filterEvents(events, p.EventCodes)), nil
	})
	if err != nil {
		return err
	}

	o.finish(ctx, exec, logger)
	return nil
}

// processSubEvent reconciles one category and fans out into its draws.
func (o *Orchestrator) processSubEvent(ctx context.Context, exec syncdomain.Execution, p *syncdomain.SubEventSyncPayload, logger *slog.Logger) error {
	logger = logger.With(
		slog.String("subject_code", p.SubjectCode),
		slog.String("sub_event_code", p.SubEventCode),
	)

	err := o.spawnChildren(ctx, exec, &p.Phase.ChildJobsCreated, &p.Phase.ChildrenGeneration, func(ctx context.Context) ([]syncdomain.JobSpec, error) {
		if p.EventID == uuid.Nil {
			skipMissing(ctx, logger, syncdomain.ErrMissingReference, "event of "+p.SubjectCode)
			return nil, nil
		}
		ev, err := o.api.GetEvent(ctx, p.SubjectCode, p.SubEventCode)
		if err != nil {
			if skipMissing(ctx, logger, err, "event "+p.SubEventCode) {
				return nil, nil
			}
			return nil, fmt.Errorf("failed to fetch event %s: %w", p.SubEventCode, err)
		}

		subEvent, _, err := o.reconciler.UpsertSubEvent(ctx, p.EventID, *ev)
		if err != nil {
			return nil, err
		}
		p.SubEventID = subEvent.ID

		if !p.IncludeSubComponents {
			return nil, nil
		}
		draws, err := o.api.GetDraws(ctx, p.SubjectCode, p.SubEventCode)
		if err != nil {
			if skipMissing(ctx, logger, err, "draws of "+p.SubEventCode) {
				return nil, nil
			}
			return nil, fmt.Errorf("failed to fetch draws of %s: %w", p.SubEventCode, err)
		}
		logger.DebugContext(ctx, "Sub-event reconciled", slog.Int("draws", len(draws)))
		return o.flows.Draws(exec.JobID, p, draws), nil
	})
	if err != nil {
		return err
	}

	o.finish(ctx, exec, logger)
	return nil
}

// processDraw reconciles a draw and runs its leaf jobs. Competition draws take
// a second cycle: the standing job is created once entries and encounters are
// in.
func (o *Orchestrator) processDraw(ctx context.Context, exec syncdomain.Execution, p *syncdomain.DrawSyncPayload, logger *slog.Logger) error {
	logger = logger.With(
		slog.String("subject_code", p.SubjectCode),
		slog.String("draw_code", p.DrawCode),
	)

	err := o.spawnChildren(ctx, exec, &p.Phase.ChildJobsCreated, &p.Phase.ChildrenGeneration, func(ctx context.Context) ([]syncdomain.JobSpec, error) {
		if p.SubEventID == uuid.Nil {
			skipMissing(ctx, logger, syncdomain.ErrMissingReference, "sub-event of "+p.DrawCode)
			return nil, nil
		}
		d, err := o.api.GetDraw(ctx, p.SubjectCode, p.DrawCode)
		if err != nil {
			if skipMissing(ctx, logger, err, "draw "+p.DrawCode) {
				return nil, nil
			}
			return nil, fmt.Errorf("failed to fetch draw %s: %w", p.DrawCode, err)
		}

		draw, _, err := o.reconciler.UpsertDraw(ctx, p.SubEventID, *d)
		if err != nil {
			return nil, err
		}
		p.DrawID = draw.ID

		if !p.IncludeSubComponents {
			return nil, nil
		}
		if p.Domain != syncdomain.DomainCompetition {
			return o.flows.DrawChildren(exec.JobID, p, nil), nil
		}

		encounters, err := o.api.GetEncounters(ctx, p.SubjectCode, p.DrawCode)
		if err != nil && !skipMissing(ctx, logger, err, "encounters of "+p.DrawCode) {
			return nil, fmt.Errorf("failed to fetch encounters of %s: %w", p.DrawCode, err)
		}
		logger.DebugContext(ctx, "Draw reconciled", slog.Int("encounters", len(encounters)))
		return o.flows.DrawChildren(exec.JobID, p, encounters), nil
	})
	if err != nil {
		return err
	}

	if p.Domain == syncdomain.DomainCompetition && p.IncludeSubComponents && p.DrawID != uuid.Nil {
		err = o.spawnChildren(ctx, exec, &p.Phase.StandingJobCreated, &p.Phase.StandingGeneration, func(context.Context) ([]syncdomain.JobSpec, error) {
			return []syncdomain.JobSpec{o.flows.Standing(exec.JobID, p, o.flows.EntryJobID(p))}, nil
		})
		if err != nil {
			return err
		}
	}

	o.finish(ctx, exec, logger)
	return nil
}
