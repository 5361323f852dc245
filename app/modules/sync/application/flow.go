package syncservice

import (
	syncdomain "github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/domain"
	syncdb "github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/infrastructure/repositories"
	"github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/infrastructure/tournamentapi"
)

// FlowBuilder composes child job descriptors. It never talks to the queue, so
// the shape of a job graph can be inspected on its own.
type FlowBuilder struct{}

// childFlow carries the shared flow context into a child with fresh phase flags.
func childFlow(parent syncdomain.FlowContext) syncdomain.FlowContext {
	return syncdomain.FlowContext{
		Domain:    parent.Domain,
		RootJobID: parent.RootJobID,
		Plan:      parent.Plan,
	}
}

func child(id, parentID string, payload syncdomain.Payload, dependsOn ...string) syncdomain.JobSpec {
	return syncdomain.JobSpec{
		ID:                  id,
		Payload:             payload,
		ParentID:            parentID,
		DependsOn:           dependsOn,
		FailParentOnFailure: true,
	}
}

// SubEvents emits one sub-event job per external event.
func (FlowBuilder) SubEvents(parentID string, p *syncdomain.StructureSyncPayload, events []tournamentapi.Event) []syncdomain.JobSpec {
	specs := make([]syncdomain.JobSpec, 0, len(events))
	for _, ev := range events {
		specs = append(specs, child(
			syncdomain.GenerateJobID(p.Domain, syncdomain.ComponentSubEvent, p.SubjectCode, ev.Code),
			parentID,
			&syncdomain.SubEventSyncPayload{
				FlowContext:          childFlow(p.FlowContext),
				SubjectCode:          p.SubjectCode,
				EventID:              p.EventID,
				SubEventCode:         ev.Code,
				IncludeSubComponents: p.IncludeSubComponents,
			},
		))
	}
	return specs
}

// Draws emits one draw job per draw of a sub-event.
func (FlowBuilder) Draws(parentID string, p *syncdomain.SubEventSyncPayload, draws []tournamentapi.Draw) []syncdomain.JobSpec {
	specs := make([]syncdomain.JobSpec, 0, len(draws))
	for _, d := range draws {
		specs = append(specs, child(
			syncdomain.GenerateJobID(p.Domain, syncdomain.ComponentDraw, p.SubjectCode, d.Code),
			parentID,
			&syncdomain.DrawSyncPayload{
				FlowContext:          childFlow(p.FlowContext),
				SubjectCode:          p.SubjectCode,
				EventID:              p.EventID,
				SubEventID:           p.SubEventID,
				DrawCode:             d.Code,
				IncludeSubComponents: p.IncludeSubComponents,
			},
		))
	}
	return specs
}

// DrawChildren emits the first cycle of leaf jobs of a draw. Tournaments get a
// chain game -> entry -> standing. Competitions get the entry job and one job
// per encounter in parallel; their standing job comes in a second cycle.
func (b FlowBuilder) DrawChildren(parentID string, p *syncdomain.DrawSyncPayload, encounters []tournamentapi.Encounter) []syncdomain.JobSpec {
	entryID := b.EntryJobID(p)
	entry := child(entryID, parentID, &syncdomain.EntrySyncPayload{
		FlowContext: childFlow(p.FlowContext),
		SubjectCode: p.SubjectCode,
		EventID:     p.EventID,
		DrawCode:    p.DrawCode,
		DrawID:      p.DrawID,
	})

	if p.Domain != syncdomain.DomainCompetition {
		gameID := syncdomain.GenerateJobID(p.Domain, syncdomain.ComponentGame, p.SubjectCode, p.DrawCode)
		game := child(gameID, parentID, &syncdomain.GameSyncPayload{
			FlowContext: childFlow(p.FlowContext),
			SubjectCode: p.SubjectCode,
			EventID:     p.EventID,
			DrawCode:    p.DrawCode,
			DrawID:      p.DrawID,
		})
		entry.DependsOn = []string{gameID}
		standing := b.Standing(parentID, p, entryID)
		return []syncdomain.JobSpec{game, entry, standing}
	}

	specs := make([]syncdomain.JobSpec, 0, len(encounters)+1)
	specs = append(specs, entry)
	for _, enc := range encounters {
		specs = append(specs, child(
			syncdomain.GenerateJobID(p.Domain, syncdomain.ComponentEncounter, p.SubjectCode, enc.Code),
			parentID,
			&syncdomain.EncounterSyncPayload{
				FlowContext:   childFlow(p.FlowContext),
				SubjectCode:   p.SubjectCode,
				EventID:       p.EventID,
				DrawID:        p.DrawID,
				EncounterCode: enc.Code,
			},
		))
	}
	return specs
}

// EntryJobID is the id of the entry job of a draw.
func (FlowBuilder) EntryJobID(p *syncdomain.DrawSyncPayload) string {
	return syncdomain.GenerateJobID(p.Domain, syncdomain.ComponentEntry, p.SubjectCode, p.DrawCode)
}

// Standing emits the standing job of a draw.
func (FlowBuilder) Standing(parentID string, p *syncdomain.DrawSyncPayload, dependsOn ...string) syncdomain.JobSpec {
	return child(
		syncdomain.GenerateJobID(p.Domain, syncdomain.ComponentStanding, p.SubjectCode, p.DrawCode),
		parentID,
		&syncdomain.StandingSyncPayload{
			FlowContext: childFlow(p.FlowContext),
			SubjectCode: p.SubjectCode,
			EventID:     p.EventID,
			DrawCode:    p.DrawCode,
			DrawID:      p.DrawID,
		},
		dependsOn...,
	)
}

// GameFanout emits one result sync per locally known draw. The scope key keeps
// the ids apart from the game jobs of a structure flow and from other runs.
func (FlowBuilder) GameFanout(parentID string, p *syncdomain.GameSyncPayload, draws []*syncdb.Draw) []syncdomain.JobSpec {
	specs := make([]syncdomain.JobSpec, 0, len(draws))
	for _, d := range draws {
		specs = append(specs, child(
			syncdomain.GenerateJobID(p.Domain, syncdomain.ComponentGame, p.SubjectCode, p.ScopeKey, d.ExternalCode),
			parentID,
			&syncdomain.GameSyncPayload{
				FlowContext: childFlow(p.FlowContext),
				SubjectCode: p.SubjectCode,
				EventID:     p.EventID,
				DrawCode:    d.ExternalCode,
				DrawID:      d.ID,
			},
		))
	}
	return specs
}
