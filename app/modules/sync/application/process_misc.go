package syncservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	syncdomain "github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/domain"
	teammatchservice "github.com/Black-And-White-Club/shuttle-sync/app/modules/teammatching/application"
	"github.com/google/uuid"
)

func (o *Orchestrator) processDiscovery(ctx context.Context, exec syncdomain.Execution, p *syncdomain.DiscoveryPayload, logger *slog.Logger) error {
	if o.discovery == nil {
		return errors.New("discovery is not configured")
	}
	res, err := o.discovery.DiscoverAndSeed(ctx, p.RefDate, p.PageSize, p.SearchTerm)
	if err != nil {
		return err
	}
	logger.InfoContext(ctx, "Discovery job done",
		slog.Int("seen", res.Seen),
		slog.Int("created", res.Created),
		slog.Int("queued", res.Queued),
	)
	o.finish(ctx, exec, logger)
	return nil
}

func (o *Orchestrator) processTeamMatching(ctx context.Context, exec syncdomain.Execution, p *syncdomain.TeamMatchingPayload, logger *slog.Logger) error {
	if p.ExternalTeamCode == "" {
		return fmt.Errorf("%w: team matching without external team code", syncdomain.ErrMalformedPayload)
	}
	if o.matcher == nil {
		return errors.New("team matcher is not configured")
	}

	eventID := p.EventID
	if eventID == uuid.Nil && p.EventCode != "" {
		event, err := o.repo.GetEventByExternalCode(ctx, nil, p.EventCode)
		if err != nil {
			if skipMissing(ctx, logger, err, "event "+p.EventCode) {
				o.finish(ctx, exec, logger)
				return nil
			}
			return fmt.Errorf("failed to look up event %s: %w", p.EventCode, err)
		}
		eventID = event.ID
	}

	res := o.matcher.MatchTeam(ctx, teammatchservice.MatchRequest{
		EventID:      eventID,
		ExternalCode: p.ExternalTeamCode,
		ExternalName: p.ExternalTeamName,
	})

	attrs := []any{
		slog.String("external_team_code", p.ExternalTeamCode),
		slog.String("outcome", string(res.Outcome)),
	}
	if res.Match != nil {
		attrs = append(attrs,
			slog.String("team_id", res.Match.InternalTeamID.String()),
			slog.Float64("score", res.Match.Score),
		)
	}
	if res.Error != "" {
		attrs = append(attrs, slog.String("match_error", res.Error))
	}
	logger.InfoContext(ctx, "Team matched", attrs...)

	o.finish(ctx, exec, logger)
	return nil
}
