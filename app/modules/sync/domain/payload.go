package syncdomain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobKind identifies a payload variant.
type JobKind string

const (
	KindDiscovery     JobKind = "discovery"
	KindStructureSync JobKind = "structure-sync"
	KindSubEventSync  JobKind = "sub-event-sync"
	KindDrawSync      JobKind = "draw-sync"
	KindEntrySync     JobKind = "entry-sync"
	KindEncounterSync JobKind = "encounter-sync"
	KindGameSync      JobKind = "game-sync"
	KindStandingSync  JobKind = "standing-sync"
	KindTeamMatching  JobKind = "team-matching"
)

// PhaseFlags record which phase of the resumable protocol a job has passed.
// They are persisted with the job so any worker reaches the same decision.
// Each flag keeps the delivery generation it was set in: only a delivery of a
// later generation was handed out after that phase's children finished.
type PhaseFlags struct {
	ChildJobsCreated   bool `json:"childJobsCreated,omitempty"`
	ChildrenGeneration int  `json:"childrenGeneration,omitempty"`
	StandingJobCreated bool `json:"standingJobCreated,omitempty"`
	StandingGeneration int  `json:"standingGeneration,omitempty"`
}

// FlowContext is shared by every job of one sync flow.
type FlowContext struct {
	Domain    Domain     `json:"domain"`
	RootJobID string     `json:"rootJobId,omitempty"`
	Plan      *WorkPlan  `json:"workPlan,omitempty"`
	Phase     PhaseFlags `json:"phase"`
}

// Payload is the closed set of job payloads. Dispatch happens with a type switch
// over the concrete variants below.
type Payload interface {
	Kind() JobKind
	// Flow returns the mutable flow context, or nil for payloads outside a flow.
	Flow() *FlowContext
	sealed()
}

// DiscoveryPayload polls the external API for new tournaments.
type DiscoveryPayload struct {
	RefDate    time.Time `json:"refDate"`
	PageSize   int       `json:"pageSize"`
	SearchTerm string    `json:"searchTerm,omitempty"`
}

// StructureSyncPayload syncs a tournament or competition root and its skeleton.
type StructureSyncPayload struct {
	FlowContext
	SubjectCode          string    `json:"subjectCode"`
	EventID              uuid.UUID `json:"eventId,omitempty"`
	EventCodes           []string  `json:"eventCodes,omitempty"`
	IncludeSubComponents bool      `json:"includeSubComponents"`
}

// SubEventSyncPayload syncs one sub-event (category) and its draws.
type SubEventSyncPayload struct {
	FlowContext
	SubjectCode          string    `json:"subjectCode"`
	EventID              uuid.UUID `json:"eventId"`
	SubEventCode         string    `json:"subEventCode"`
	SubEventID           uuid.UUID `json:"subEventId,omitempty"`
	IncludeSubComponents bool      `json:"includeSubComponents"`
}

// DrawSyncPayload syncs one draw and fans out into its leaf jobs.
type DrawSyncPayload struct {
	FlowContext
	SubjectCode          string    `json:"subjectCode"`
	EventID              uuid.UUID `json:"eventId"`
	SubEventID           uuid.UUID `json:"subEventId"`
	DrawCode             string    `json:"drawCode"`
	DrawID               uuid.UUID `json:"drawId,omitempty"`
	IncludeSubComponents bool      `json:"includeSubComponents"`
}

// EntrySyncPayload reconciles the entries (players or teams) of a draw.
type EntrySyncPayload struct {
	FlowContext
	SubjectCode string    `json:"subjectCode"`
	EventID     uuid.UUID `json:"eventId"`
	DrawCode    string    `json:"drawCode"`
	DrawID      uuid.UUID `json:"drawId"`
}

// EncounterSyncPayload reconciles one team encounter and its games.
type EncounterSyncPayload struct {
	FlowContext
	SubjectCode   string    `json:"subjectCode"`
	EventID       uuid.UUID `json:"eventId"`
	DrawID        uuid.UUID `json:"drawId"`
	EncounterCode string    `json:"encounterCode"`
}

// GameSyncPayload reconciles match results. With a draw it is a leaf job; with a
// date or match codes it syncs those matches; with neither it fans out per draw.
type GameSyncPayload struct {
	FlowContext
	SubjectCode string     `json:"subjectCode"`
	EventID     uuid.UUID  `json:"eventId,omitempty"`
	DrawCode    string     `json:"drawCode,omitempty"`
	DrawID      uuid.UUID  `json:"drawId,omitempty"`
	Date        *time.Time `json:"date,omitempty"`
	MatchCodes  []string   `json:"matchCodes,omitempty"`
	ScopeKey    string     `json:"scopeKey,omitempty"` // keeps child job ids of separate runs apart
}

// StandingSyncPayload recomputes the standings of a draw.
type StandingSyncPayload struct {
	FlowContext
	SubjectCode string    `json:"subjectCode"`
	EventID     uuid.UUID `json:"eventId"`
	DrawCode    string    `json:"drawCode"`
	DrawID      uuid.UUID `json:"drawId"`
}

// TeamMatchingPayload asks the matcher to resolve an externally reported team.
type TeamMatchingPayload struct {
	EventID          uuid.UUID  `json:"eventId"`
	EventCode        string     `json:"eventCode,omitempty"`
	ClubID           *uuid.UUID `json:"clubId,omitempty"`
	ExternalTeamCode string     `json:"externalTeamCode"`
	ExternalTeamName string     `json:"externalTeamName"`
}

func (*DiscoveryPayload) Kind() JobKind     { return KindDiscovery }
func (*StructureSyncPayload) Kind() JobKind { return KindStructureSync }
func (*SubEventSyncPayload) Kind() JobKind  { return KindSubEventSync }
func (*DrawSyncPayload) Kind() JobKind      { return KindDrawSync }
func (*EntrySyncPayload) Kind() JobKind     { return KindEntrySync }
func (*EncounterSyncPayload) Kind() JobKind { return KindEncounterSync }
func (*GameSyncPayload) Kind() JobKind      { return KindGameSync }
func (*StandingSyncPayload) Kind() JobKind  { return KindStandingSync }
func (*TeamMatchingPayload) Kind() JobKind  { return KindTeamMatching }

func (*DiscoveryPayload) Flow() *FlowContext       { return nil }
func (p *StructureSyncPayload) Flow() *FlowContext { return &p.FlowContext }
func (p *SubEventSyncPayload) Flow() *FlowContext  { return &p.FlowContext }
func (p *DrawSyncPayload) Flow() *FlowContext      { return &p.FlowContext }
func (p *EntrySyncPayload) Flow() *FlowContext     { return &p.FlowContext }
func (p *EncounterSyncPayload) Flow() *FlowContext { return &p.FlowContext }
func (p *GameSyncPayload) Flow() *FlowContext      { return &p.FlowContext }
func (p *StandingSyncPayload) Flow() *FlowContext  { return &p.FlowContext }
func (*TeamMatchingPayload) Flow() *FlowContext    { return nil }

func (*DiscoveryPayload) sealed()     {}
func (*StructureSyncPayload) sealed() {}
func (*SubEventSyncPayload) sealed()  {}
func (*DrawSyncPayload) sealed()      {}
func (*EntrySyncPayload) sealed()     {}
func (*EncounterSyncPayload) sealed() {}
func (*GameSyncPayload) sealed()      {}
func (*StandingSyncPayload) sealed()  {}
func (*TeamMatchingPayload) sealed()  {}

// PayloadEnvelope is the persisted form of a payload.
type PayloadEnvelope struct {
	Kind JobKind         `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// EncodePayload wraps a payload into its persisted envelope.
func EncodePayload(p Payload) (PayloadEnvelope, error) {
	if p == nil {
		return PayloadEnvelope{}, fmt.Errorf("%w: nil payload", ErrMalformedPayload)
	}
	data, err := json.Marshal(p)
	if err != nil {
		return PayloadEnvelope{}, fmt.Errorf("encode %s payload: %w", p.Kind(), err)
	}
	return PayloadEnvelope{Kind: p.Kind(), Data: data}, nil
}

// DecodePayload restores the typed payload from its envelope.
func DecodePayload(env PayloadEnvelope) (Payload, error) {
	var p Payload
	switch env.Kind {
	case KindDiscovery:
		p = &DiscoveryPayload{}
	case KindStructureSync:
		p = &StructureSyncPayload{}
	case KindSubEventSync:
		p = &SubEventSyncPayload{}
	case KindDrawSync:
		p = &DrawSyncPayload{}
	case KindEntrySync:
		p = &EntrySyncPayload{}
	case KindEncounterSync:
		p = &EncounterSyncPayload{}
	case KindGameSync:
		p = &GameSyncPayload{}
	case KindStandingSync:
		p = &StandingSyncPayload{}
	case KindTeamMatching:
		p = &TeamMatchingPayload{}
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrMalformedPayload, env.Kind)
	}
	if len(env.Data) == 0 {
		return nil, fmt.Errorf("%w: empty %s payload", ErrMalformedPayload, env.Kind)
	}
	if err := json.Unmarshal(env.Data, p); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedPayload, env.Kind, err)
	}
	return p, nil
}
