//go:build integration

package syncintegration

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/infrastructure/tournamentapi"
	"github.com/go-chi/chi/v5"
)

// apiFixture serves a canned tournament API over HTTP.
type apiFixture struct {
	mu sync.Mutex

	tournaments map[string]tournamentapi.Tournament
	events      map[string][]tournamentapi.Event     // by tournament
	draws       map[string][]tournamentapi.Draw      // by event
	entries     map[string][]tournamentapi.Entry     // by draw
	encounters  map[string][]tournamentapi.Encounter // by draw
	drawMatches map[string][]tournamentapi.Match     // by draw
	encMatches  map[string][]tournamentapi.Match     // by encounter
	broken      map[string]bool                      // draw codes answering 500
}

func newCompetitionFixture() *apiFixture {
	return &apiFixture{
		tournaments: map[string]tournamentapi.Tournament{
			"C-1": {TournamentSummary: tournamentapi.TournamentSummary{
				Code: "C-1", Name: "Interclub", TypeCode: "competition", StatusCode: "open",
			}},
		},
		events: map[string][]tournamentapi.Event{
			"C-1": {{Code: "EV-1", Name: "Division 1"}},
		},
		draws: map[string][]tournamentapi.Draw{
			"EV-1": {{Code: "D-1", EventCode: "EV-1", Name: "Pool A", TypeCode: "poule", Size: 4}},
		},
		entries: map[string][]tournamentapi.Entry{
			"D-1": {
				{Code: "E1", TeamCode: "TM-1", TeamName: "Ghent Shuttlers 1H"},
				{Code: "E2", TeamCode: "TM-2", TeamName: "Antwerp Smash 2H"},
			},
		},
		encounters: map[string][]tournamentapi.Encounter{
			"D-1": {{
				Code:      "ENC-1",
				DrawCode:  "D-1",
				HomeTeam:  tournamentapi.Team{Code: "TM-1", Name: "Ghent Shuttlers 1H"},
				AwayTeam:  tournamentapi.Team{Code: "TM-2", Name: "Antwerp Smash 2H"},
				HomeScore: 5,
				AwayScore: 3,
			}},
		},
		encMatches: map[string][]tournamentapi.Match{
			"ENC-1": {
				{Code: "G1", DrawCode: "D-1", EncounterCode: "ENC-1", Winner: 1,
					Team1: []tournamentapi.Player{{MemberID: "M-1", FirstName: "An", LastName: "Claes"}},
					Team2: []tournamentapi.Player{{MemberID: "M-2", FirstName: "Jo", LastName: "Wouters"}}},
				{Code: "G2", DrawCode: "D-1", EncounterCode: "ENC-1", Winner: 2,
					Team1: []tournamentapi.Player{{MemberID: "M-3", FirstName: "Lies", LastName: "Maes"}},
					Team2: []tournamentapi.Player{{MemberID: "M-4", FirstName: "Tom", LastName: "Goossens"}}},
			},
		},
		drawMatches: map[string][]tournamentapi.Match{},
		broken:      map[string]bool{},
	}
}

func (f *apiFixture) serve(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(f.router())
	t.Cleanup(srv.Close)
	return srv.URL
}

func reply[T any](w http.ResponseWriter, v T, ok bool) {
	if !ok {
		http.NotFound(w, nil)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func findByCode[T any](items []T, code string, codeOf func(T) string) (T, bool) {
	for _, it := range items {
		if codeOf(it) == code {
			return it, true
		}
	}
	var zero T
	return zero, false
}

func (f *apiFixture) router() http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			f.mu.Lock()
			defer f.mu.Unlock()
			next.ServeHTTP(w, req)
		})
	})

	r.Get("/tournaments", func(w http.ResponseWriter, _ *http.Request) {
		out := []tournamentapi.TournamentSummary{}
		for _, t := range f.tournaments {
			out = append(out, t.TournamentSummary)
		}
		reply(w, out, true)
	})
	r.Route("/tournaments/{code}", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, req *http.Request) {
			t, ok := f.tournaments[chi.URLParam(req, "code")]
			reply(w, t, ok)
		})
		r.Get("/events", func(w http.ResponseWriter, req *http.Request) {
			evs, ok := f.events[chi.URLParam(req, "code")]
			reply(w, evs, ok)
		})
		r.Get("/events/{event}", func(w http.ResponseWriter, req *http.Request) {
			ev, ok := findByCode(f.events[chi.URLParam(req, "code")], chi.URLParam(req, "event"),
				func(e tournamentapi.Event) string { return e.Code })
			reply(w, ev, ok)
		})
		r.Get("/events/{event}/draws", func(w http.ResponseWriter, req *http.Request) {
			reply(w, f.draws[chi.URLParam(req, "event")], true)
		})
		r.Get("/draws/{draw}", func(w http.ResponseWriter, req *http.Request) {
			code := chi.URLParam(req, "draw")
			if f.broken[code] {
				http.Error(w, "upstream exploded", http.StatusInternalServerError)
				return
			}
			for _, draws := range f.draws {
				if d, ok := findByCode(draws, code, func(d tournamentapi.Draw) string { return d.Code }); ok {
					reply(w, d, true)
					return
				}
			}
			reply(w, tournamentapi.Draw{}, false)
		})
		r.Get("/draws/{draw}/entries", func(w http.ResponseWriter, req *http.Request) {
			reply(w, f.entries[chi.URLParam(req, "draw")], true)
		})
		r.Get("/draws/{draw}/encounters", func(w http.ResponseWriter, req *http.Request) {
			reply(w, f.encounters[chi.URLParam(req, "draw")], true)
		})
		r.Get("/draws/{draw}/matches", func(w http.ResponseWriter, req *http.Request) {
			reply(w, f.drawMatches[chi.URLParam(req, "draw")], true)
		})
		r.Get("/encounters/{enc}", func(w http.ResponseWriter, req *http.Request) {
			code := chi.URLParam(req, "enc")
			for _, encs := range f.encounters {
				if e, ok := findByCode(encs, code, func(e tournamentapi.Encounter) string { return e.Code }); ok {
					reply(w, e, true)
					return
				}
			}
			reply(w, tournamentapi.Encounter{}, false)
		})
		r.Get("/encounters/{enc}/matches", func(w http.ResponseWriter, req *http.Request) {
			reply(w, f.encMatches[chi.URLParam(req, "enc")], true)
		})
		r.Get("/teams/{team}", func(w http.ResponseWriter, req *http.Request) {
			code := chi.URLParam(req, "team")
			for _, encs := range f.encounters {
				for _, e := range encs {
					for _, team := range []tournamentapi.Team{e.HomeTeam, e.AwayTeam} {
						if team.Code == code {
							reply(w, team, true)
							return
						}
					}
				}
			}
			reply(w, tournamentapi.Team{}, false)
		})
		r.Get("/matches", func(w http.ResponseWriter, _ *http.Request) {
			out := []tournamentapi.Match{}
			for _, ms := range f.drawMatches {
				out = append(out, ms...)
			}
			for _, ms := range f.encMatches {
				out = append(out, ms...)
			}
			reply(w, out, true)
		})
	})
	return r
}
