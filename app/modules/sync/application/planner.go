package syncservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	syncdomain "github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/domain"
	"github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/infrastructure/tournamentapi"
	"golang.org/x/sync/errgroup"
)

const defaultPlannerConcurrency = 4

var errNothingToPlan = errors.New("no events to plan")

// Planner estimates the work of a structure sync before anything is dispatched.
type Planner struct {
	api         tournamentapi.Client
	logger      *slog.Logger
	concurrency int
}

// NewPlanner creates a planner. concurrency bounds the parallel draw fetches.
func NewPlanner(api tournamentapi.Client, logger *slog.Logger, concurrency int) *Planner {
	if logger == nil {
		logger = slog.Default()
	}
	if concurrency <= 0 {
		concurrency = defaultPlannerConcurrency
	}
	return &Planner{api: api, logger: logger, concurrency: concurrency}
}

// CalculateWorkPlan never fails: when the estimate cannot be computed it
// returns the fallback plan so progress still moves, just less precisely.
func (p *Planner) CalculateWorkPlan(ctx context.Context, domain syncdomain.Domain, subjectCode string, eventCodes []string, includeSubComponents bool) syncdomain.WorkPlan {
	if !includeSubComponents {
		return syncdomain.NewWorkPlan(subjectCode, syncdomain.Breakdown{Events: 1}, nil)
	}

	plan, err := p.calculate(ctx, domain, subjectCode, eventCodes)
	if err != nil {
		p.logger.WarnContext(ctx, "Falling back to minimal work plan",
			slog.String("subject_code", subjectCode),
			slog.Any("error", err),
		)
		return syncdomain.FallbackWorkPlan(subjectCode)
	}

	p.logger.InfoContext(ctx, "Work plan calculated",
		slog.String("subject_code", subjectCode),
		slog.Int("total_units", plan.TotalUnits),
		slog.Int("events", len(plan.PerEventPlans)),
	)
	return plan
}

func (p *Planner) calculate(ctx context.Context, domain syncdomain.Domain, subjectCode string, eventCodes []string) (syncdomain.WorkPlan, error) {
	events, err := p.api.GetEvents(ctx, subjectCode)
	if err != nil {
		return syncdomain.WorkPlan{}, fmt.Errorf("failed to list events: %w", err)
	}
	events = filterEvents(events, eventCodes)
	if len(events) == 0 {
		return syncdomain.WorkPlan{}, errNothingToPlan
	}

	perEvent := make([]syncdomain.PerEventWorkPlan, len(events))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, ev := range events {
		g.Go(func() error {
			draws, err := p.api.GetDraws(gctx, subjectCode, ev.Code)
			if err != nil {
				return fmt.Errorf("failed to list draws of %s: %w", ev.Code, err)
			}
			if len(draws) == 0 {
				return fmt.Errorf("event %s has no draws", ev.Code)
			}
			perEvent[i] = estimateEvent(ev, draws)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return syncdomain.WorkPlan{}, err
	}

	draws := 0
	for _, pe := range perEvent {
		draws += pe.DrawCount
	}
	breakdown := syncdomain.Breakdown{
		Events:    1,
		SubEvents: 1,
		Draws:     draws,
		Games:     draws,
		Standings: draws,
	}
	if domain == syncdomain.DomainCompetition {
		breakdown.Encounters = draws
	} else {
		breakdown.Entries = draws
	}
	return syncdomain.NewWorkPlan(subjectCode, breakdown, perEvent), nil
}

func estimateEvent(ev tournamentapi.Event, draws []tournamentapi.Draw) syncdomain.PerEventWorkPlan {
	games := 0
	for _, d := range draws {
		games += syncdomain.EstimateGamesInDraw(d.Size, drawTypeLabel(d.TypeCode))
	}
	return syncdomain.PerEventWorkPlan{
		EventCode:             ev.Code,
		EventName:             ev.Name,
		DrawCount:             len(draws),
		EstimatedUnitsPerDraw: (games + len(draws) - 1) / len(draws),
		TotalUnits:            games,
	}
}

// drawTypeLabel turns numeric API codes into names the estimator understands.
func drawTypeLabel(code string) string {
	code = strings.TrimSpace(code)
	if code != "" && strings.Trim(code, "0123456789") == "" {
		return string(syncdomain.MapDrawType(code))
	}
	return code
}

func filterEvents(events []tournamentapi.Event, codes []string) []tournamentapi.Event {
	if len(codes) == 0 {
		return events
	}
	out := make([]tournamentapi.Event, 0, len(codes))
	for _, ev := range events {
		if slices.Contains(codes, ev.Code) {
			out = append(out, ev)
		}
	}
	return out
}
