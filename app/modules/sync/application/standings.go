package syncservice

import (
	"sort"
	"time"

	syncdomain "github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/domain"
	syncdb "github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/infrastructure/repositories"
	"github.com/google/uuid"
)

const (
	encounterWinPoints  = 2
	encounterPlayPoints = 1
)

type tally struct {
	entry    *syncdb.Entry
	played   int
	won      int
	lost     int
	points   int
	setsWon  int
	setsLost int
}

// ComputeStandings ranks the entries of a draw from its reconciled results.
// Tournaments rank on games won. Competitions rank on encounter points: a win
// is worth 2, any other played encounter 1.
func ComputeStandings(domain syncdomain.Domain, drawID uuid.UUID, entries []*syncdb.Entry, games []*syncdb.Game, encounters []*syncdb.Encounter, now time.Time) []*syncdb.Standing {
	tallies := make([]*tally, len(entries))
	for i, e := range entries {
		tallies[i] = &tally{entry: e}
	}

	if domain == syncdomain.DomainCompetition {
		tallyEncounters(tallies, encounters)
	} else {
		tallyGames(tallies, games)
	}

	sort.SliceStable(tallies, func(i, j int) bool {
		a, b := tallies[i], tallies[j]
		if a.points != b.points {
			return a.points > b.points
		}
		if a.won != b.won {
			return a.won > b.won
		}
		if da, db := a.setsWon-a.setsLost, b.setsWon-b.setsLost; da != db {
			return da > db
		}
		if a.setsWon != b.setsWon {
			return a.setsWon > b.setsWon
		}
		return a.entry.ExternalCode < b.entry.ExternalCode
	})

	rows := make([]*syncdb.Standing, len(tallies))
	for i, t := range tallies {
		rows[i] = &syncdb.Standing{
			ID:        uuid.New(),
			DrawID:    drawID,
			EntryID:   t.entry.ID,
			Position:  i + 1,
			Played:    t.played,
			Won:       t.won,
			Lost:      t.lost,
			Points:    t.points,
			SetsWon:   t.setsWon,
			SetsLost:  t.setsLost,
			UpdatedAt: now,
		}
	}
	return rows
}

func tallyGames(tallies []*tally, games []*syncdb.Game) {
	byPlayer := make(map[uuid.UUID]*tally)
	for _, t := range tallies {
		for _, id := range []*uuid.UUID{t.entry.Player1ID, t.entry.Player2ID} {
			if id != nil {
				byPlayer[*id] = t
			}
		}
	}
	side := func(players []uuid.UUID) *tally {
		for _, id := range players {
			if t, ok := byPlayer[id]; ok {
				return t
			}
		}
		return nil
	}

	for _, g := range games {
		if g.Winner != 1 && g.Winner != 2 {
			continue
		}
		t1, t2 := side(g.Team1PlayerIDs), side(g.Team2PlayerIDs)
		sets1, sets2 := 0, 0
		for _, s := range g.Sets {
			switch {
			case s.Team1 > s.Team2:
				sets1++
			case s.Team2 > s.Team1:
				sets2++
			}
		}
		record := func(t *tally, won bool, setsFor, setsAgainst int) {
			if t == nil {
				return
			}
			t.played++
			t.setsWon += setsFor
			t.setsLost += setsAgainst
			if won {
				t.won++
				t.points++
			} else {
				t.lost++
			}
		}
		record(t1, g.Winner == 1, sets1, sets2)
		record(t2, g.Winner == 2, sets2, sets1)
	}
}

func tallyEncounters(tallies []*tally, encounters []*syncdb.Encounter) {
	byTeam := make(map[string]*tally)
	for _, t := range tallies {
		if t.entry.ExternalTeamCode != "" {
			byTeam[t.entry.ExternalTeamCode] = t
		}
	}

	for _, enc := range encounters {
		if enc.HomeScore+enc.AwayScore == 0 {
			continue
		}
		record := func(t *tally, scored, conceded int) {
			if t == nil {
				return
			}
			t.played++
			t.setsWon += scored
			t.setsLost += conceded
			switch {
			case scored > conceded:
				t.won++
				t.points += encounterWinPoints
			case scored < conceded:
				t.lost++
				t.points += encounterPlayPoints
			default:
				t.points += encounterPlayPoints
			}
		}
		record(byTeam[enc.HomeTeamCode], enc.HomeScore, enc.AwayScore)
		record(byTeam[enc.AwayTeamCode], enc.AwayScore, enc.HomeScore)
	}
}
