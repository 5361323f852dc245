package syncdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Impl implements the Repository interface using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new sync repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

// resolveDB returns the provided db handle, falling back to the repository's
// default connection if db is nil.
func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

// selectOne scans a single row into model, mapping sql.ErrNoRows to ErrNotFound.
func selectOne(ctx context.Context, q *bun.SelectQuery, what string) error {
	if err := q.Limit(1).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to get %s: %w", what, err)
	}
	return nil
}

// save inserts model or overwrites every column of the row with the same id.
func save(ctx context.Context, db bun.IDB, model any, what string) error {
	_, err := db.NewInsert().
		Model(model).
		On("CONFLICT (id) DO UPDATE").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", what, err)
	}
	return nil
}

// -- events --

func (r *Impl) GetEventByID(ctx context.Context, db bun.IDB, id uuid.UUID) (*Event, error) {
	event := new(Event)
	q := r.resolveDB(db).NewSelect().Model(event).Where("id = ?", id)
	if err := selectOne(ctx, q, "event by id"); err != nil {
		return nil, err
	}
	return event, nil
}

func (r *Impl) GetEventByExternalCode(ctx context.Context, db bun.IDB, code string) (*Event, error) {
	event := new(Event)
	q := r.resolveDB(db).NewSelect().Model(event).Where("external_code = ?", code)
	if err := selectOne(ctx, q, "event by external code"); err != nil {
		return nil, err
	}
	return event, nil
}

func (r *Impl) SaveEvent(ctx context.Context, db bun.IDB, event *Event) error {
	return save(ctx, r.resolveDB(db), event, "event")
}

// -- sub-events --

func (r *Impl) GetSubEvent(ctx context.Context, db bun.IDB, eventID uuid.UUID, code string) (*SubEvent, error) {
	sub := new(SubEvent)
	q := r.resolveDB(db).NewSelect().Model(sub).
		Where("event_id = ?", eventID).
		Where("external_code = ?", code)
	if err := selectOne(ctx, q, "sub-event"); err != nil {
		return nil, err
	}
	return sub, nil
}

func (r *Impl) GetSubEventsByEvent(ctx context.Context, db bun.IDB, eventID uuid.UUID) ([]*SubEvent, error) {
	var subs []*SubEvent
	err := r.resolveDB(db).NewSelect().Model(&subs).
		Where("event_id = ?", eventID).
		Order("external_code ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sub-events: %w", err)
	}
	return subs, nil
}

func (r *Impl) SaveSubEvent(ctx context.Context, db bun.IDB, subEvent *SubEvent) error {
	return save(ctx, r.resolveDB(db), subEvent, "sub-event")
}

// -- draws --

func (r *Impl) GetDrawByID(ctx context.Context, db bun.IDB, id uuid.UUID) (*Draw, error) {
	draw := new(Draw)
	q := r.resolveDB(db).NewSelect().Model(draw).Where("id = ?", id)
	if err := selectOne(ctx, q, "draw by id"); err != nil {
		return nil, err
	}
	return draw, nil
}

func (r *Impl) GetDraw(ctx context.Context, db bun.IDB, subEventID uuid.UUID, code string) (*Draw, error) {
	draw := new(Draw)
	q := r.resolveDB(db).NewSelect().Model(draw).
		Where("sub_event_id = ?", subEventID).
		Where("external_code = ?", code)
	if err := selectOne(ctx, q, "draw"); err != nil {
		return nil, err
	}
	return draw, nil
}

func (r *Impl) GetDrawByEventCode(ctx context.Context, db bun.IDB, eventID uuid.UUID, code string) (*Draw, error) {
	draw := new(Draw)
	q := r.resolveDB(db).NewSelect().Model(draw).
		Join("JOIN sync_sub_events AS sev ON sev.id = dr.sub_event_id").
		Where("sev.event_id = ?", eventID).
		Where("dr.external_code = ?", code)
	if err := selectOne(ctx, q, "draw by event"); err != nil {
		return nil, err
	}
	return draw, nil
}

func (r *Impl) GetDrawsByEvent(ctx context.Context, db bun.IDB, eventID uuid.UUID) ([]*Draw, error) {
	var draws []*Draw
	err := r.resolveDB(db).NewSelect().Model(&draws).
		Join("JOIN sync_sub_events AS sev ON sev.id = dr.sub_event_id").
		Where("sev.event_id = ?", eventID).
		Order("dr.external_code ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list draws: %w", err)
	}
	return draws, nil
}

func (r *Impl) SaveDraw(ctx context.Context, db bun.IDB, draw *Draw) error {
	return save(ctx, r.resolveDB(db), draw, "draw")
}

// -- players --

func (r *Impl) GetPlayerByMemberID(ctx context.Context, db bun.IDB, memberID string) (*Player, error) {
	player := new(Player)
	q := r.resolveDB(db).NewSelect().Model(player).Where("member_id = ?", memberID)
	if err := selectOne(ctx, q, "player"); err != nil {
		return nil, err
	}
	return player, nil
}

func (r *Impl) GetPlayersByIDs(ctx context.Context, db bun.IDB, ids []uuid.UUID) ([]*Player, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var players []*Player
	err := r.resolveDB(db).NewSelect().Model(&players).
		Where("id IN (?)", bun.In(ids)).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get players by ids: %w", err)
	}
	return players, nil
}

func (r *Impl) SavePlayer(ctx context.Context, db bun.IDB, player *Player) error {
	return save(ctx, r.resolveDB(db), player, "player")
}

// -- entries --

func (r *Impl) GetEntry(ctx context.Context, db bun.IDB, drawID uuid.UUID, code string) (*Entry, error) {
	entry := new(Entry)
	q := r.resolveDB(db).NewSelect().Model(entry).
		Where("draw_id = ?", drawID).
		Where("external_code = ?", code)
	if err := selectOne(ctx, q, "entry"); err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *Impl) GetEntriesByDraw(ctx context.Context, db bun.IDB, drawID uuid.UUID) ([]*Entry, error) {
	var entries []*Entry
	err := r.resolveDB(db).NewSelect().Model(&entries).
		Where("draw_id = ?", drawID).
		Order("external_code ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	return entries, nil
}

func (r *Impl) SaveEntry(ctx context.Context, db bun.IDB, entry *Entry) error {
	return save(ctx, r.resolveDB(db), entry, "entry")
}

// -- encounters --

func (r *Impl) GetEncounter(ctx context.Context, db bun.IDB, drawID uuid.UUID, code string) (*Encounter, error) {
	enc := new(Encounter)
	q := r.resolveDB(db).NewSelect().Model(enc).
		Where("draw_id = ?", drawID).
		Where("external_code = ?", code)
	if err := selectOne(ctx, q, "encounter"); err != nil {
		return nil, err
	}
	return enc, nil
}

func (r *Impl) GetEncountersByDraw(ctx context.Context, db bun.IDB, drawID uuid.UUID) ([]*Encounter, error) {
	var encs []*Encounter
	err := r.resolveDB(db).NewSelect().Model(&encs).
		Where("draw_id = ?", drawID).
		Order("external_code ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list encounters: %w", err)
	}
	return encs, nil
}

func (r *Impl) SaveEncounter(ctx context.Context, db bun.IDB, encounter *Encounter) error {
	return save(ctx, r.resolveDB(db), encounter, "encounter")
}

// -- games --

func (r *Impl) GetGame(ctx context.Context, db bun.IDB, drawID uuid.UUID, code string) (*Game, error) {
	game := new(Game)
	q := r.resolveDB(db).NewSelect().Model(game).
		Where("draw_id = ?", drawID).
		Where("external_code = ?", code)
	if err := selectOne(ctx, q, "game"); err != nil {
		return nil, err
	}
	return game, nil
}

func (r *Impl) GetGamesByDraw(ctx context.Context, db bun.IDB, drawID uuid.UUID) ([]*Game, error) {
	var games []*Game
	err := r.resolveDB(db).NewSelect().Model(&games).
		Where("draw_id = ?", drawID).
		Order("external_code ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	return games, nil
}

func (r *Impl) SaveGame(ctx context.Context, db bun.IDB, game *Game) error {
	return save(ctx, r.resolveDB(db), game, "game")
}

// -- standings --

func (r *Impl) GetStandingsByDraw(ctx context.Context, db bun.IDB, drawID uuid.UUID) ([]*Standing, error) {
	var rows []*Standing
	err := r.resolveDB(db).NewSelect().Model(&rows).
		Where("draw_id = ?", drawID).
		Order("position ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list standings: %w", err)
	}
	return rows, nil
}

func (r *Impl) ReplaceStandings(ctx context.Context, db bun.IDB, drawID uuid.UUID, rows []*Standing) error {
	db = r.resolveDB(db)
	if _, err := db.NewDelete().
		Model((*Standing)(nil)).
		Where("draw_id = ?", drawID).
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to clear standings: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}
	if _, err := db.NewInsert().Model(&rows).Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert standings: %w", err)
	}
	return nil
}
