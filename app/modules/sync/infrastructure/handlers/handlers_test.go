package synchandlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	syncservice "github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/application"
	syncdomain "github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/domain"
	syncqueue "github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/infrastructure/queue"
	synctime "github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/time_utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

var testNow = time.Date(2026, 10, 16, 8, 30, 0, 0, time.UTC)

func newTestRouter(svc *FakeSyncService) http.Handler {
	h := NewSyncHandlers(
		svc,
		synctime.NewDateParser(nil),
		syncdomain.FixedClock{At: testNow},
		slog.New(slog.DiscardHandler),
		noop.NewTracerProvider().Tracer("test"),
	)
	return Router(h)
}

func serve(svc *FakeSyncService, method, path, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	rec := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rec, httptest.NewRequest(method, path, r))
	return rec
}

func TestHandleQueueDiscovery(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		setup      func(*testing.T, *FakeSyncService)
		wantStatus int
		wantBody   string
	}{
		{
			name: "empty body uses defaults",
			setup: func(t *testing.T, f *FakeSyncService) {
				f.QueueDiscoveryFunc = func(_ context.Context, req syncservice.DiscoveryRequest) (string, error) {
					assert.True(t, req.RefDate.IsZero())
					assert.Zero(t, req.PageSize)
					return "tournament-discovery-20261016", nil
				}
			},
			wantStatus: http.StatusAccepted,
			wantBody:   `{"jobId":"tournament-discovery-20261016"}`,
		},
		{
			name: "casual since",
			body: `{"since":"yesterday","pageSize":25,"searchTerm":"open"}`,
			setup: func(t *testing.T, f *FakeSyncService) {
				f.QueueDiscoveryFunc = func(_ context.Context, req syncservice.DiscoveryRequest) (string, error) {
					assert.Equal(t, time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC), req.RefDate)
					assert.Equal(t, 25, req.PageSize)
					assert.Equal(t, "open", req.SearchTerm)
					return "tournament-discovery-20261015-open", nil
				}
			},
			wantStatus: http.StatusAccepted,
			wantBody:   `{"jobId":"tournament-discovery-20261015-open"}`,
		},
		{
			name:       "unparseable since",
			body:       `{"since":"zzz"}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"could not recognize date \"zzz\""}`,
		},
		{
			name:       "negative page size",
			body:       `{"pageSize":-1}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"pageSize cannot be negative"}`,
		},
		{
			name:       "bad json",
			body:       `{"since":`,
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"invalid request body"}`,
		},
		{
			name: "queue failure",
			setup: func(_ *testing.T, f *FakeSyncService) {
				f.QueueDiscoveryFunc = func(context.Context, syncservice.DiscoveryRequest) (string, error) {
					return "", errors.New("db down")
				}
			},
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"error":"failed to queue discovery"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewFakeSyncService()
			if tt.setup != nil {
				tt.setup(t, svc)
			}
			rec := serve(svc, http.MethodPost, "/discovery", tt.body)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}

func TestHandleQueueStructure(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		err         error
		wantStatus  int
		wantInclude bool
	}{
		{
			name:        "sub components default on",
			body:        `{"subjectCode":"C-1","eventCodes":["EV-1"]}`,
			wantStatus:  http.StatusAccepted,
			wantInclude: true,
		},
		{
			name:       "root only",
			body:       `{"subjectCode":"C-1","includeSubComponents":false}`,
			wantStatus: http.StatusAccepted,
		},
		{
			name:       "invalid request",
			body:       `{"subjectCode":" "}`,
			err:        fmt.Errorf("%w: subject code is required", syncservice.ErrInvalidRequest),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "service failure",
			body:       `{"subjectCode":"C-1"}`,
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewFakeSyncService()
			var got syncservice.StructureSyncRequest
			svc.QueueStructureSyncFunc = func(_ context.Context, req syncservice.StructureSyncRequest) (string, error) {
				got = req
				if tt.err != nil {
					return "", tt.err
				}
				return "competition-structure-c1", nil
			}

			rec := serve(svc, http.MethodPost, "/structure", tt.body)

			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantStatus != http.StatusAccepted {
				return
			}
			assert.JSONEq(t, `{"jobId":"competition-structure-c1"}`, rec.Body.String())
			assert.Equal(t, "C-1", got.SubjectCode)
			assert.Equal(t, tt.wantInclude, got.IncludeSubComponents)
		})
	}
}

func TestHandleQueueGames(t *testing.T) {
	t.Run("scoped by relative date and codes", func(t *testing.T) {
		svc := NewFakeSyncService()
		var got syncservice.GameSyncRequest
		svc.QueueGameSyncFunc = func(_ context.Context, req syncservice.GameSyncRequest) (string, error) {
			got = req
			return "competition-scores-c1-20261013-g1", nil
		}

		rec := serve(svc, http.MethodPost, "/games", `{"subjectCode":"C-1","date":"3 days ago","matchCodes":["G1"]}`)

		require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
		require.NotNil(t, got.Date)
		assert.Equal(t, time.Date(2026, 10, 13, 0, 0, 0, 0, time.UTC), *got.Date)
		assert.Equal(t, []string{"G1"}, got.MatchCodes)
	})

	t.Run("fan out without date", func(t *testing.T) {
		svc := NewFakeSyncService()
		svc.QueueGameSyncFunc = func(_ context.Context, req syncservice.GameSyncRequest) (string, error) {
			assert.Nil(t, req.Date)
			return "competition-scores-c1-20261016", nil
		}

		rec := serve(svc, http.MethodPost, "/games", `{"subjectCode":"C-1"}`)
		assert.Equal(t, http.StatusAccepted, rec.Code)
	})

	t.Run("event not synced", func(t *testing.T) {
		svc := NewFakeSyncService()
		svc.QueueGameSyncFunc = func(context.Context, syncservice.GameSyncRequest) (string, error) {
			return "", fmt.Errorf("%w: event C-9 is not synced yet", syncdomain.ErrMissingReference)
		}

		rec := serve(svc, http.MethodPost, "/games", `{"subjectCode":"C-9"}`)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.JSONEq(t, `{"error":"missing reference: event C-9 is not synced yet"}`, rec.Body.String())
	})

	t.Run("bad date", func(t *testing.T) {
		svc := NewFakeSyncService()
		rec := serve(svc, http.MethodPost, "/games", `{"subjectCode":"C-1","date":"zzz"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, svc.Trace())
	})
}

func TestHandleQueueTeamMatching(t *testing.T) {
	eventID := uuid.New()

	t.Run("queued", func(t *testing.T) {
		svc := NewFakeSyncService()
		var got syncdomain.TeamMatchingPayload
		svc.QueueTeamMatchingFunc = func(_ context.Context, p syncdomain.TeamMatchingPayload) (string, error) {
			got = p
			return "competition-teammatch-c1-tm9", nil
		}

		body := fmt.Sprintf(`{"eventId":%q,"eventCode":"C-1","externalTeamCode":"TM-9","externalTeamName":"Smashers 1"}`, eventID)
		rec := serve(svc, http.MethodPost, "/team-matching", body)

		require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
		assert.Equal(t, eventID, got.EventID)
		assert.Equal(t, "TM-9", got.ExternalTeamCode)
		assert.Equal(t, "Smashers 1", got.ExternalTeamName)
	})

	t.Run("event id required", func(t *testing.T) {
		svc := NewFakeSyncService()
		rec := serve(svc, http.MethodPost, "/team-matching", `{"externalTeamCode":"TM-9"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"error":"eventId is required"}`, rec.Body.String())
	})
}

func TestHandleGetStats(t *testing.T) {
	svc := NewFakeSyncService()
	svc.GetQueueStatsFunc = func(context.Context) (syncdomain.QueueStats, error) {
		return syncdomain.QueueStats{Active: 2, Completed: 5, Failed: 1}, nil
	}

	rec := serve(svc, http.MethodGet, "/stats", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var got map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 2, got["active"])
	assert.Equal(t, 5, got["completed"])
	assert.Equal(t, 8, got["total"])
}

func TestHandleListJobs(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantLimit  int
		wantState  *syncdomain.JobState
	}{
		{name: "defaults", path: "/jobs", wantStatus: http.StatusOK, wantLimit: defaultJobLimit},
		{
			name:       "state filter",
			path:       "/jobs?state=failed&limit=5",
			wantStatus: http.StatusOK,
			wantLimit:  5,
			wantState:  ptr(syncdomain.JobStateFailed),
		},
		{name: "unknown state", path: "/jobs?state=stuck", wantStatus: http.StatusBadRequest},
		{name: "limit too large", path: "/jobs?limit=501", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewFakeSyncService()
			var gotLimit int
			var gotState *syncdomain.JobState
			svc.GetRecentJobsFunc = func(_ context.Context, limit int, state *syncdomain.JobState) ([]syncdomain.JobRecord, error) {
				gotLimit, gotState = limit, state
				return []syncdomain.JobRecord{{ID: "competition-draw-c1-d1", State: syncdomain.JobStateFailed}}, nil
			}

			rec := serve(svc, http.MethodGet, tt.path, "")

			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantStatus != http.StatusOK {
				assert.Empty(t, svc.Trace())
				return
			}
			assert.Equal(t, tt.wantLimit, gotLimit)
			assert.Equal(t, tt.wantState, gotState)

			var jobs []map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &jobs))
			require.Len(t, jobs, 1)
			assert.Equal(t, "competition-draw-c1-d1", jobs[0]["id"])
			assert.Equal(t, "failed", jobs[0]["state"])
		})
	}

	t.Run("empty list is an array", func(t *testing.T) {
		rec := serve(NewFakeSyncService(), http.MethodGet, "/jobs", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, rec.Body.String())
	})
}

func TestHandleGetJob(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		svc := NewFakeSyncService()
		svc.GetJobFunc = func(_ context.Context, id string) (*syncdomain.JobRecord, error) {
			return &syncdomain.JobRecord{ID: id, Kind: syncdomain.KindDrawSync, Progress: 40}, nil
		}
		rec := serve(svc, http.MethodGet, "/jobs/competition-draw-c1-d1", "")

		require.Equal(t, http.StatusOK, rec.Code)
		var got jobResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "competition-draw-c1-d1", got.ID)
		assert.Equal(t, 40, got.Progress)
	})

	t.Run("not found", func(t *testing.T) {
		svc := NewFakeSyncService()
		svc.GetJobFunc = func(context.Context, string) (*syncdomain.JobRecord, error) {
			return nil, fmt.Errorf("GetJob: %w", syncqueue.ErrJobNotFound)
		}
		rec := serve(svc, http.MethodGet, "/jobs/nope", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("failure", func(t *testing.T) {
		svc := NewFakeSyncService()
		svc.GetJobFunc = func(context.Context, string) (*syncdomain.JobRecord, error) {
			return nil, errors.New("db down")
		}
		rec := serve(svc, http.MethodGet, "/jobs/x", "")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.JSONEq(t, `{"error":"failed to get job"}`, rec.Body.String())
	})
}

func TestHandleStreamEvents(t *testing.T) {
	t.Run("writes events until the channel closes", func(t *testing.T) {
		svc := NewFakeSyncService()
		svc.SubscribeJobEventsFunc = func(context.Context) (<-chan syncdomain.JobEvent, error) {
			ch := make(chan syncdomain.JobEvent, 2)
			ch <- syncdomain.JobEvent{JobID: "a", State: syncdomain.JobStateActive, Progress: 10}
			ch <- syncdomain.JobEvent{JobID: "a", State: syncdomain.JobStateCompleted, Progress: 100}
			close(ch)
			return ch, nil
		}

		rec := serve(svc, http.MethodGet, "/events", "")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
		body := rec.Body.String()
		assert.Contains(t, body, "event: active\ndata: {\"jobId\":\"a\"")
		assert.Contains(t, body, "event: completed\n")
	})

	t.Run("unavailable", func(t *testing.T) {
		svc := NewFakeSyncService()
		svc.SubscribeJobEventsFunc = func(context.Context) (<-chan syncdomain.JobEvent, error) {
			return nil, errors.New("job events are not available")
		}
		rec := serve(svc, http.MethodGet, "/events", "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func ptr[T any](v T) *T { return &v }
