package syncservice

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	syncdomain "github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/domain"
	syncdb "github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/infrastructure/repositories"
	"github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/infrastructure/tournamentapi"
	teammatchservice "github.com/Black-And-White-Club/shuttle-sync/app/modules/teammatching/application"
	teammatchdomain "github.com/Black-And-White-Club/shuttle-sync/app/modules/teammatching/domain"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ------------------------
// Fake Sync Repo
// ------------------------

// FakeSyncRepo keeps synced entities in memory. The Fn hooks override single
// methods to inject failures.
type FakeSyncRepo struct {
	mu sync.Mutex

	events     map[uuid.UUID]*syncdb.Event
	subEvents  map[uuid.UUID]*syncdb.SubEvent
	draws      map[uuid.UUID]*syncdb.Draw
	players    map[uuid.UUID]*syncdb.Player
	entries    map[uuid.UUID]*syncdb.Entry
	encounters map[uuid.UUID]*syncdb.Encounter
	games      map[uuid.UUID]*syncdb.Game
	standings  map[uuid.UUID][]*syncdb.Standing

	SaveEventFunc          func(ctx context.Context, db bun.IDB, event *syncdb.Event) error
	SaveEntryFunc          func(ctx context.Context, db bun.IDB, entry *syncdb.Entry) error
	SaveGameFunc           func(ctx context.Context, db bun.IDB, game *syncdb.Game) error
	GetEventByCode         func(ctx context.Context, db bun.IDB, code string) (*syncdb.Event, error)
	GetDrawByEventCodeFunc func(ctx context.Context, eventID uuid.UUID, code string) error
}

func NewFakeSyncRepo() *FakeSyncRepo {
	return &FakeSyncRepo{
		events:     make(map[uuid.UUID]*syncdb.Event),
		subEvents:  make(map[uuid.UUID]*syncdb.SubEvent),
		draws:      make(map[uuid.UUID]*syncdb.Draw),
		players:    make(map[uuid.UUID]*syncdb.Player),
		entries:    make(map[uuid.UUID]*syncdb.Entry),
		encounters: make(map[uuid.UUID]*syncdb.Encounter),
		games:      make(map[uuid.UUID]*syncdb.Game),
		standings:  make(map[uuid.UUID][]*syncdb.Standing),
	}
}

func clone[T any](v *T) *T {
	c := *v
	return &c
}

func findOne[T any](m map[uuid.UUID]*T, match func(*T) bool) (*T, error) {
	for _, v := range m {
		if match(v) {
			return clone(v), nil
		}
	}
	return nil, syncdb.ErrNotFound
}

func findAll[T any](m map[uuid.UUID]*T, match func(*T) bool) []*T {
	var out []*T
	for _, v := range m {
		if match(v) {
			out = append(out, clone(v))
		}
	}
	return out
}

func (f *FakeSyncRepo) GetEventByID(_ context.Context, _ bun.IDB, id uuid.UUID) (*syncdb.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ev, ok := f.events[id]; ok {
		return clone(ev), nil
	}
	return nil, syncdb.ErrNotFound
}

func (f *FakeSyncRepo) GetEventByExternalCode(ctx context.Context, db bun.IDB, code string) (*syncdb.Event, error) {
	if f.GetEventByCode != nil {
		return f.GetEventByCode(ctx, db, code)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return findOne(f.events, func(e *syncdb.Event) bool { return e.ExternalCode == code })
}

func (f *FakeSyncRepo) SaveEvent(ctx context.Context, db bun.IDB, event *syncdb.Event) error {
	if f.SaveEventFunc != nil {
		if err := f.SaveEventFunc(ctx, db, event); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events[event.ID] = clone(event)
	return nil
}

func (f *FakeSyncRepo) GetSubEvent(_ context.Context, _ bun.IDB, eventID uuid.UUID, code string) (*syncdb.SubEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return findOne(f.subEvents, func(s *syncdb.SubEvent) bool { return s.EventID == eventID && s.ExternalCode == code })
}

func (f *FakeSyncRepo) GetSubEventsByEvent(_ context.Context, _ bun.IDB, eventID uuid.UUID) ([]*syncdb.SubEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return findAll(f.subEvents, func(s *syncdb.SubEvent) bool { return s.EventID == eventID }), nil
}

func (f *FakeSyncRepo) SaveSubEvent(_ context.Context, _ bun.IDB, subEvent *syncdb.SubEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subEvents[subEvent.ID] = clone(subEvent)
	return nil
}

func (f *FakeSyncRepo) GetDrawByID(_ context.Context, _ bun.IDB, id uuid.UUID) (*syncdb.Draw, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d, ok := f.draws[id]; ok {
		return clone(d), nil
	}
	return nil, syncdb.ErrNotFound
}

func (f *FakeSyncRepo) GetDraw(_ context.Context, _ bun.IDB, subEventID uuid.UUID, code string) (*syncdb.Draw, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return findOne(f.draws, func(d *syncdb.Draw) bool { return d.SubEventID == subEventID && d.ExternalCode == code })
}

func (f *FakeSyncRepo) eventOfDraw(d *syncdb.Draw) uuid.UUID {
	if se, ok := f.subEvents[d.SubEventID]; ok {
		return se.EventID
	}
	return uuid.Nil
}

func (f *FakeSyncRepo) GetDrawByEventCode(ctx context.Context, _ bun.IDB, eventID uuid.UUID, code string) (*syncdb.Draw, error) {
	if f.GetDrawByEventCodeFunc != nil {
		if err := f.GetDrawByEventCodeFunc(ctx, eventID, code); err != nil {
			return nil, err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return findOne(f.draws, func(d *syncdb.Draw) bool { return d.ExternalCode == code && f.eventOfDraw(d) == eventID })
}

func (f *FakeSyncRepo) GetDrawsByEvent(_ context.Context, _ bun.IDB, eventID uuid.UUID) ([]*syncdb.Draw, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	draws := findAll(f.draws, func(d *syncdb.Draw) bool { return f.eventOfDraw(d) == eventID })
	slices.SortFunc(draws, func(a, b *syncdb.Draw) int { return strings.Compare(a.ExternalCode, b.ExternalCode) })
	return draws, nil
}

func (f *FakeSyncRepo) SaveDraw(_ context.Context, _ bun.IDB, draw *syncdb.Draw) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draws[draw.ID] = clone(draw)
	return nil
}

func (f *FakeSyncRepo) GetPlayerByMemberID(_ context.Context, _ bun.IDB, memberID string) (*syncdb.Player, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return findOne(f.players, func(p *syncdb.Player) bool { return p.MemberID == memberID })
}

func (f *FakeSyncRepo) GetPlayersByIDs(_ context.Context, _ bun.IDB, ids []uuid.UUID) ([]*syncdb.Player, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return findAll(f.players, func(p *syncdb.Player) bool { return slices.Contains(ids, p.ID) }), nil
}

func (f *FakeSyncRepo) SavePlayer(_ context.Context, _ bun.IDB, player *syncdb.Player) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.players[player.ID] = clone(player)
	return nil
}

func (f *FakeSyncRepo) GetEntry(_ context.Context, _ bun.IDB, drawID uuid.UUID, code string) (*syncdb.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return findOne(f.entries, func(e *syncdb.Entry) bool { return e.DrawID == drawID && e.ExternalCode == code })
}

func (f *FakeSyncRepo) GetEntriesByDraw(_ context.Context, _ bun.IDB, drawID uuid.UUID) ([]*syncdb.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return findAll(f.entries, func(e *syncdb.Entry) bool { return e.DrawID == drawID }), nil
}

func (f *FakeSyncRepo) SaveEntry(ctx context.Context, db bun.IDB, entry *syncdb.Entry) error {
	if f.SaveEntryFunc != nil {
		if err := f.SaveEntryFunc(ctx, db, entry); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[entry.ID] = clone(entry)
	return nil
}

func (f *FakeSyncRepo) GetEncounter(_ context.Context, _ bun.IDB, drawID uuid.UUID, code string) (*syncdb.Encounter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return findOne(f.encounters, func(e *syncdb.Encounter) bool { return e.DrawID == drawID && e.ExternalCode == code })
}

func (f *FakeSyncRepo) GetEncountersByDraw(_ context.Context, _ bun.IDB, drawID uuid.UUID) ([]*syncdb.Encounter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return findAll(f.encounters, func(e *syncdb.Encounter) bool { return e.DrawID == drawID }), nil
}

func (f *FakeSyncRepo) SaveEncounter(_ context.Context, _ bun.IDB, encounter *syncdb.Encounter) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.encounters[encounter.ID] = clone(encounter)
	return nil
}

func (f *FakeSyncRepo) GetGame(_ context.Context, _ bun.IDB, drawID uuid.UUID, code string) (*syncdb.Game, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return findOne(f.games, func(g *syncdb.Game) bool { return g.DrawID == drawID && g.ExternalCode == code })
}

func (f *FakeSyncRepo) GetGamesByDraw(_ context.Context, _ bun.IDB, drawID uuid.UUID) ([]*syncdb.Game, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return findAll(f.games, func(g *syncdb.Game) bool { return g.DrawID == drawID }), nil
}

func (f *FakeSyncRepo) SaveGame(ctx context.Context, db bun.IDB, game *syncdb.Game) error {
	if f.SaveGameFunc != nil {
		if err := f.SaveGameFunc(ctx, db, game); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.games[game.ID] = clone(game)
	return nil
}

func (f *FakeSyncRepo) GetStandingsByDraw(_ context.Context, _ bun.IDB, drawID uuid.UUID) ([]*syncdb.Standing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.standings[drawID]), nil
}

func (f *FakeSyncRepo) ReplaceStandings(_ context.Context, _ bun.IDB, drawID uuid.UUID, rows []*syncdb.Standing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.standings[drawID] = slices.Clone(rows)
	return nil
}

// counts returns the number of stored rows per entity, for idempotency checks.
func (f *FakeSyncRepo) counts() map[string]int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return map[string]int{
		"events":     len(f.events),
		"subEvents":  len(f.subEvents),
		"draws":      len(f.draws),
		"players":    len(f.players),
		"entries":    len(f.entries),
		"encounters": len(f.encounters),
		"games":      len(f.games),
	}
}

var _ syncdb.Repository = (*FakeSyncRepo)(nil)

// ------------------------
// Fake Tournament API
// ------------------------

// FakeAPI serves fixtures. Errs makes a method fail by name; Calls counts
// invocations by name.
type FakeAPI struct {
	mu sync.Mutex

	Listing     []tournamentapi.TournamentSummary
	Tournaments map[string]*tournamentapi.Tournament
	Events      map[string][]tournamentapi.Event

	// Draws are keyed by event code.
	Draws map[string][]tournamentapi.Draw

	// Entries, Encounters and MatchesByDraw are keyed by draw code.
	Entries       map[string][]tournamentapi.Entry
	Encounters    map[string][]tournamentapi.Encounter
	MatchesByDraw map[string][]tournamentapi.Match

	// MatchesByEncounter is keyed by encounter code, MatchesByDate by day.
	MatchesByEncounter map[string][]tournamentapi.Match
	MatchesByDate      map[string][]tournamentapi.Match

	Errs  map[string]error
	Calls map[string]int
}

func NewFakeAPI() *FakeAPI {
	return &FakeAPI{
		Tournaments:        make(map[string]*tournamentapi.Tournament),
		Events:             make(map[string][]tournamentapi.Event),
		Draws:              make(map[string][]tournamentapi.Draw),
		Entries:            make(map[string][]tournamentapi.Entry),
		Encounters:         make(map[string][]tournamentapi.Encounter),
		MatchesByDraw:      make(map[string][]tournamentapi.Match),
		MatchesByEncounter: make(map[string][]tournamentapi.Match),
		MatchesByDate:      make(map[string][]tournamentapi.Match),
		Errs:               make(map[string]error),
		Calls:              make(map[string]int),
	}
}

func (f *FakeAPI) call(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls[name]++
	return f.Errs[name]
}

func (f *FakeAPI) calls(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Calls[name]
}

func (f *FakeAPI) ListTournaments(_ context.Context, _ tournamentapi.ListQuery) ([]tournamentapi.TournamentSummary, error) {
	if err := f.call("ListTournaments"); err != nil {
		return nil, err
	}
	return f.Listing, nil
}

func (f *FakeAPI) GetTournament(_ context.Context, code string) (*tournamentapi.Tournament, error) {
	if err := f.call("GetTournament"); err != nil {
		return nil, err
	}
	t, ok := f.Tournaments[code]
	if !ok {
		return nil, tournamentapi.ErrNotFound
	}
	return t, nil
}

func (f *FakeAPI) GetEvents(_ context.Context, _ string) ([]tournamentapi.Event, error) {
	if err := f.call("GetEvents"); err != nil {
		return nil, err
	}
	var all []tournamentapi.Event
	for _, evs := range f.Events {
		all = append(all, evs...)
	}
	slices.SortFunc(all, func(a, b tournamentapi.Event) int { return strings.Compare(a.Code, b.Code) })
	return all, nil
}

func (f *FakeAPI) GetEvent(_ context.Context, _, eventCode string) (*tournamentapi.Event, error) {
	if err := f.call("GetEvent"); err != nil {
		return nil, err
	}
	for _, evs := range f.Events {
		for _, ev := range evs {
			if ev.Code == eventCode {
				return &ev, nil
			}
		}
	}
	return nil, tournamentapi.ErrNotFound
}

func (f *FakeAPI) GetDraws(_ context.Context, _, eventCode string) ([]tournamentapi.Draw, error) {
	if err := f.call("GetDraws"); err != nil {
		return nil, err
	}
	return f.Draws[eventCode], nil
}

func (f *FakeAPI) GetDraw(_ context.Context, _, drawCode string) (*tournamentapi.Draw, error) {
	if err := f.call("GetDraw"); err != nil {
		return nil, err
	}
	for _, ds := range f.Draws {
		for _, d := range ds {
			if d.Code == drawCode {
				return &d, nil
			}
		}
	}
	return nil, tournamentapi.ErrNotFound
}

func (f *FakeAPI) GetEntries(_ context.Context, _, drawCode string) ([]tournamentapi.Entry, error) {
	if err := f.call("GetEntries"); err != nil {
		return nil, err
	}
	return f.Entries[drawCode], nil
}

func (f *FakeAPI) GetEncounters(_ context.Context, _, drawCode string) ([]tournamentapi.Encounter, error) {
	if err := f.call("GetEncounters"); err != nil {
		return nil, err
	}
	return f.Encounters[drawCode], nil
}

func (f *FakeAPI) GetEncounter(_ context.Context, _, encounterCode string) (*tournamentapi.Encounter, error) {
	if err := f.call("GetEncounter"); err != nil {
		return nil, err
	}
	for _, encs := range f.Encounters {
		for _, e := range encs {
			if e.Code == encounterCode {
				return &e, nil
			}
		}
	}
	return nil, tournamentapi.ErrNotFound
}

func (f *FakeAPI) GetTeam(_ context.Context, _, teamCode string) (*tournamentapi.Team, error) {
	if err := f.call("GetTeam"); err != nil {
		return nil, err
	}
	return nil, tournamentapi.ErrNotFound
}

func (f *FakeAPI) GetMatchesByDraw(_ context.Context, _, drawCode string) ([]tournamentapi.Match, error) {
	if err := f.call("GetMatchesByDraw"); err != nil {
		return nil, err
	}
	return f.MatchesByDraw[drawCode], nil
}

func (f *FakeAPI) GetMatchesByDate(_ context.Context, _ string, date time.Time) ([]tournamentapi.Match, error) {
	if err := f.call("GetMatchesByDate"); err != nil {
		return nil, err
	}
	return f.MatchesByDate[date.Format("2006-01-02")], nil
}

func (f *FakeAPI) GetMatchesByEncounter(_ context.Context, _, encounterCode string) ([]tournamentapi.Match, error) {
	if err := f.call("GetMatchesByEncounter"); err != nil {
		return nil, err
	}
	return f.MatchesByEncounter[encounterCode], nil
}

func (f *FakeAPI) GetMatch(_ context.Context, _, matchCode string) (*tournamentapi.Match, error) {
	if err := f.call("GetMatch"); err != nil {
		return nil, err
	}
	for _, ms := range f.MatchesByDraw {
		for _, m := range ms {
			if m.Code == matchCode {
				return &m, nil
			}
		}
	}
	return nil, tournamentapi.ErrNotFound
}

var _ tournamentapi.Client = (*FakeAPI)(nil)

// ------------------------
// Fake Queue
// ------------------------

// FakeQueue records what the orchestrator asks of the queue. By default a job
// that submitted children is told to wait.
type FakeQueue struct {
	mu sync.Mutex

	trace     []string
	submitted []syncdomain.JobSpec
	batches   int
	payloads  map[string]syncdomain.Payload
	failures  map[string]bool
	progress  map[string]int
	reports   []int
	rootTicks map[string]int

	SubmitBatchFunc           func(ctx context.Context, specs []syncdomain.JobSpec) error
	MoveToWaitingChildrenFunc func(ctx context.Context, jobID string) (bool, error)
	StatsFunc                 func(ctx context.Context) (syncdomain.QueueStats, error)
	ListRecentFunc            func(ctx context.Context, limit int, state *syncdomain.JobState) ([]syncdomain.JobRecord, error)
}

func NewFakeQueue() *FakeQueue {
	return &FakeQueue{
		trace:     []string{},
		payloads:  make(map[string]syncdomain.Payload),
		failures:  make(map[string]bool),
		progress:  make(map[string]int),
		rootTicks: make(map[string]int),
	}
}

func (f *FakeQueue) record(step string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trace = append(f.trace, step)
}

func (f *FakeQueue) Trace() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.trace)
}

func (f *FakeQueue) Submit(ctx context.Context, spec syncdomain.JobSpec) error {
	return f.SubmitBatch(ctx, []syncdomain.JobSpec{spec})
}

func (f *FakeQueue) SubmitBatch(ctx context.Context, specs []syncdomain.JobSpec) error {
	f.record("SubmitBatch")
	if f.SubmitBatchFunc != nil {
		if err := f.SubmitBatchFunc(ctx, specs); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches++
	f.submitted = append(f.submitted, specs...)
	return nil
}

func (f *FakeQueue) UpdatePayload(_ context.Context, jobID string, payload syncdomain.Payload) error {
	f.record("UpdatePayload")
	// round-trip so later mutations of the caller's payload do not leak in
	env, err := syncdomain.EncodePayload(payload)
	if err != nil {
		return err
	}
	stored, err := syncdomain.DecodePayload(env)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads[jobID] = stored
	return nil
}

func (f *FakeQueue) MoveToWaitingChildren(ctx context.Context, jobID string) (bool, error) {
	f.record("MoveToWaitingChildren")
	if f.MoveToWaitingChildrenFunc != nil {
		return f.MoveToWaitingChildrenFunc(ctx, jobID)
	}
	return true, nil
}

func (f *FakeQueue) MoveToFailed(_ context.Context, jobID string, _ error, final bool) error {
	f.record("MoveToFailed")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[jobID] = final
	return nil
}

func (f *FakeQueue) UpdateProgress(_ context.Context, jobID string, progress int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.progress[jobID] = max(f.progress[jobID], progress)
	f.reports = append(f.reports, progress)
	return nil
}

func (f *FakeQueue) AdvanceRootProgress(_ context.Context, rootID string, _ int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rootTicks[rootID]++
	return f.rootTicks[rootID], nil
}

func (f *FakeQueue) GetJob(_ context.Context, jobID string) (*syncdomain.JobRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, spec := range f.submitted {
		if spec.ID == jobID {
			return &syncdomain.JobRecord{ID: spec.ID, Kind: spec.Payload.Kind(), ParentID: spec.ParentID}, nil
		}
	}
	return nil, syncdb.ErrNotFound
}

func (f *FakeQueue) Stats(ctx context.Context) (syncdomain.QueueStats, error) {
	if f.StatsFunc != nil {
		return f.StatsFunc(ctx)
	}
	return syncdomain.QueueStats{}, nil
}

func (f *FakeQueue) ListRecent(ctx context.Context, limit int, state *syncdomain.JobState) ([]syncdomain.JobRecord, error) {
	if f.ListRecentFunc != nil {
		return f.ListRecentFunc(ctx, limit, state)
	}
	return nil, nil
}

// Submitted returns the ids of every submitted job in order.
func (f *FakeQueue) Submitted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, len(f.submitted))
	for i, s := range f.submitted {
		ids[i] = s.ID
	}
	return ids
}

func (f *FakeQueue) spec(id string) (syncdomain.JobSpec, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.submitted {
		if s.ID == id {
			return s, true
		}
	}
	return syncdomain.JobSpec{}, false
}

func (f *FakeQueue) storedPayload(id string) syncdomain.Payload {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.payloads[id]
}

var _ Queue = (*FakeQueue)(nil)

// ------------------------
// Fake Team Matcher
// ------------------------

type FakeMatcher struct {
	mu       sync.Mutex
	requests []teammatchservice.MatchRequest

	MatchTeamFunc func(ctx context.Context, req teammatchservice.MatchRequest) teammatchdomain.MatchResult
}

func (f *FakeMatcher) MatchTeam(ctx context.Context, req teammatchservice.MatchRequest) teammatchdomain.MatchResult {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.MatchTeamFunc != nil {
		return f.MatchTeamFunc(ctx, req)
	}
	return teammatchdomain.MatchResult{Outcome: teammatchdomain.OutcomeManualReview}
}

func (f *FakeMatcher) Requests() []teammatchservice.MatchRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.requests)
}

// ------------------------
// Fake Structure Queuer
// ------------------------

type FakeStructureQueuer struct {
	requests []StructureSyncRequest

	QueueStructureSyncFunc func(ctx context.Context, req StructureSyncRequest) (string, error)
}

func (f *FakeStructureQueuer) QueueStructureSync(ctx context.Context, req StructureSyncRequest) (string, error) {
	f.requests = append(f.requests, req)
	if f.QueueStructureSyncFunc != nil {
		return f.QueueStructureSyncFunc(ctx, req)
	}
	return "structure-" + req.SubjectCode, nil
}
