package synchandlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	syncservice "github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/application"
	syncdomain "github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/domain"
	syncqueue "github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/infrastructure/queue"
	synctime "github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/time_utils"
	"github.com/Black-And-White-Club/shuttle-sync/app/shared/httpx"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultJobLimit = 20
	maxJobLimit     = 500
)

// SyncHandlers implements the Handlers interface.
type SyncHandlers struct {
	service syncservice.Service
	dates   synctime.DateParserInterface
	clock   syncdomain.Clock
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewSyncHandlers creates a new SyncHandlers instance.
func NewSyncHandlers(
	service syncservice.Service,
	dates synctime.DateParserInterface,
	clock syncdomain.Clock,
	logger *slog.Logger,
	tracer trace.Tracer,
) Handlers {
	if clock == nil {
		clock = syncdomain.RealClock{}
	}
	return &SyncHandlers{
		service: service,
		dates:   dates,
		clock:   clock,
		logger:  logger,
		tracer:  tracer,
	}
}

// Router mounts the sync routes.
func Router(h Handlers) http.Handler {
	r := chi.NewRouter()
	r.Post("/discovery", h.HandleQueueDiscovery)
	r.Post("/structure", h.HandleQueueStructure)
	r.Post("/games", h.HandleQueueGames)
	r.Post("/team-matching", h.HandleQueueTeamMatching)
	r.Get("/stats", h.HandleGetStats)
	r.Get("/jobs", h.HandleListJobs)
	r.Get("/jobs/{jobID}", h.HandleGetJob)
	r.Get("/events", h.HandleStreamEvents)
	return r
}

type queuedResponse struct {
	JobID string `json:"jobId"`
}

type discoveryRequest struct {
	// Since is an ISO date or casual text like "yesterday".
	Since      string `json:"since"`
	PageSize   int    `json:"pageSize"`
	SearchTerm string `json:"searchTerm"`
}

type structureRequest struct {
	SubjectCode          string   `json:"subjectCode"`
	EventCodes           []string `json:"eventCodes"`
	IncludeSubComponents *bool    `json:"includeSubComponents"`
}

type gamesRequest struct {
	SubjectCode string   `json:"subjectCode"`
	Date        string   `json:"date"`
	MatchCodes  []string `json:"matchCodes"`
}

type jobResponse struct {
	ID         string                     `json:"id"`
	Kind       syncdomain.JobKind         `json:"kind"`
	Domain     syncdomain.Domain          `json:"domain"`
	ParentID   string                     `json:"parentId,omitempty"`
	State      syncdomain.JobState        `json:"state"`
	Progress   int                        `json:"progress"`
	Attempts   int                        `json:"attempts"`
	Generation int                        `json:"generation"`
	LastError  string                     `json:"lastError,omitempty"`
	Payload    syncdomain.PayloadEnvelope `json:"payload"`
	CreatedAt  time.Time                  `json:"createdAt"`
	UpdatedAt  time.Time                  `json:"updatedAt"`
	FinishedAt *time.Time                 `json:"finishedAt,omitempty"`
}

func toJobResponse(rec syncdomain.JobRecord) jobResponse {
	return jobResponse{
		ID:         rec.ID,
		Kind:       rec.Kind,
		Domain:     rec.Domain,
		ParentID:   rec.ParentID,
		State:      rec.State,
		Progress:   rec.Progress,
		Attempts:   rec.Attempts,
		Generation: rec.Generation,
		LastError:  rec.LastError,
		Payload:    rec.Payload,
		CreatedAt:  rec.CreatedAt,
		UpdatedAt:  rec.UpdatedAt,
		FinishedAt: rec.FinishedAt,
	}
}

type teamMatchingRequest struct {
	EventID          uuid.UUID  `json:"eventId"`
	EventCode        string     `json:"eventCode"`
	ClubID           *uuid.UUID `json:"clubId"`
	ExternalTeamCode string     `json:"externalTeamCode"`
	ExternalTeamName string     `json:"externalTeamName"`
}

func decode(r *http.Request, v any) error {
	if r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.New("invalid request body")
	}
	return nil
}

// writeQueueError maps service errors to status codes.
func (h *SyncHandlers) writeQueueError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, syncservice.ErrInvalidRequest):
		httpx.WriteError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, syncdomain.ErrMissingReference):
		httpx.WriteError(w, err.Error(), http.StatusConflict)
	default:
		h.logger.ErrorContext(r.Context(), "Failed to "+op, slog.Any("error", err))
		httpx.WriteError(w, "failed to "+op, http.StatusInternalServerError)
	}
}

func (h *SyncHandlers) parseDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := h.dates.ParseDate(raw, h.clock)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// HandleQueueDiscovery handles POST /discovery.
func (h *SyncHandlers) HandleQueueDiscovery(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "SyncHandlers.HandleQueueDiscovery")
	defer span.End()

	var req discoveryRequest
	if err := decode(r, &req); err != nil {
		httpx.WriteError(w, err.Error(), http.StatusBadRequest)
		return
	}
	since, err := h.parseDate(req.Since)
	if err != nil {
		httpx.WriteError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.PageSize < 0 {
		httpx.WriteError(w, "pageSize cannot be negative", http.StatusBadRequest)
		return
	}

	in := syncservice.DiscoveryRequest{PageSize: req.PageSize, SearchTerm: req.SearchTerm}
	if since != nil {
		in.RefDate = *since
	}
	jobID, err := h.service.QueueDiscovery(ctx, in)
	if err != nil {
		h.writeQueueError(w, r, "queue discovery", err)
		return
	}
	h.logger.InfoContext(ctx, "Discovery queued", slog.String("job_id", jobID))
	httpx.WriteJSON(w, queuedResponse{JobID: jobID}, http.StatusAccepted)
}

// HandleQueueStructure handles POST /structure.
func (h *SyncHandlers) HandleQueueStructure(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "SyncHandlers.HandleQueueStructure")
	defer span.End()

	var req structureRequest
	if err := decode(r, &req); err != nil {
		httpx.WriteError(w, err.Error(), http.StatusBadRequest)
		return
	}
	include := true
	if req.IncludeSubComponents != nil {
		include = *req.IncludeSubComponents
	}

	jobID, err := h.service.QueueStructureSync(ctx, syncservice.StructureSyncRequest{
		SubjectCode:          req.SubjectCode,
		EventCodes:           req.EventCodes,
		IncludeSubComponents: include,
	})
	if err != nil {
		h.writeQueueError(w, r, "queue structure sync", err)
		return
	}
	h.logger.InfoContext(ctx, "Structure sync queued",
		slog.String("job_id", jobID),
		slog.String("subject_code", req.SubjectCode),
	)
	httpx.WriteJSON(w, queuedResponse{JobID: jobID}, http.StatusAccepted)
}

// HandleQueueGames handles POST /games.
func (h *SyncHandlers) HandleQueueGames(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "SyncHandlers.HandleQueueGames")
	defer span.End()

	var req gamesRequest
	if err := decode(r, &req); err != nil {
		httpx.WriteError(w, err.Error(), http.StatusBadRequest)
		return
	}
	date, err := h.parseDate(req.Date)
	if err != nil {
		httpx.WriteError(w, err.Error(), http.StatusBadRequest)
		return
	}

	jobID, err := h.service.QueueGameSync(ctx, syncservice.GameSyncRequest{
		SubjectCode: req.SubjectCode,
		Date:        date,
		MatchCodes:  req.MatchCodes,
	})
	if err != nil {
		h.writeQueueError(w, r, "queue game sync", err)
		return
	}
	h.logger.InfoContext(ctx, "Game sync queued",
		slog.String("job_id", jobID),
		slog.String("subject_code", req.SubjectCode),
	)
	httpx.WriteJSON(w, queuedResponse{JobID: jobID}, http.StatusAccepted)
}

// HandleQueueTeamMatching handles POST /team-matching.
func (h *SyncHandlers) HandleQueueTeamMatching(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "SyncHandlers.HandleQueueTeamMatching")
	defer span.End()

	var req teamMatchingRequest
	if err := decode(r, &req); err != nil {
		httpx.WriteError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.EventID == uuid.Nil {
		httpx.WriteError(w, "eventId is required", http.StatusBadRequest)
		return
	}

	jobID, err := h.service.QueueTeamMatching(ctx, syncdomain.TeamMatchingPayload{
		EventID:          req.EventID,
		EventCode:        req.EventCode,
		ClubID:           req.ClubID,
		ExternalTeamCode: req.ExternalTeamCode,
		ExternalTeamName: req.ExternalTeamName,
	})
	if err != nil {
		h.writeQueueError(w, r, "queue team matching", err)
		return
	}
	httpx.WriteJSON(w, queuedResponse{JobID: jobID}, http.StatusAccepted)
}

// HandleGetStats handles GET /stats.
func (h *SyncHandlers) HandleGetStats(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "SyncHandlers.HandleGetStats")
	defer span.End()

	stats, err := h.service.GetQueueStats(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to get queue stats", slog.Any("error", err))
		httpx.WriteError(w, "failed to get queue stats", http.StatusInternalServerError)
		return
	}
	httpx.WriteJSON(w, struct {
		syncdomain.QueueStats
		Total int `json:"total"`
	}{stats, stats.Total()}, http.StatusOK)
}

// HandleListJobs handles GET /jobs.
func (h *SyncHandlers) HandleListJobs(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "SyncHandlers.HandleListJobs")
	defer span.End()

	limit, err := httpx.QueryInt(r, "limit", defaultJobLimit, maxJobLimit)
	if err != nil {
		httpx.WriteError(w, err.Error(), http.StatusBadRequest)
		return
	}
	var state *syncdomain.JobState
	if raw := r.URL.Query().Get("state"); raw != "" {
		st, err := syncdomain.ParseJobState(raw)
		if err != nil {
			httpx.WriteError(w, err.Error(), http.StatusBadRequest)
			return
		}
		state = &st
	}

	jobs, err := h.service.GetRecentJobs(ctx, limit, state)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to list jobs", slog.Any("error", err))
		httpx.WriteError(w, "failed to list jobs", http.StatusInternalServerError)
		return
	}
	out := make([]jobResponse, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, toJobResponse(job))
	}
	httpx.WriteJSON(w, out, http.StatusOK)
}

// HandleGetJob handles GET /jobs/{jobID}.
func (h *SyncHandlers) HandleGetJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "SyncHandlers.HandleGetJob")
	defer span.End()

	jobID, err := httpx.URLParam(r, "jobID")
	if err != nil {
		httpx.WriteError(w, err.Error(), http.StatusBadRequest)
		return
	}

	job, err := h.service.GetJob(ctx, jobID)
	switch {
	case err == nil:
	case errors.Is(err, syncqueue.ErrJobNotFound):
		httpx.WriteError(w, err.Error(), http.StatusNotFound)
		return
	default:
		h.logger.ErrorContext(ctx, "Failed to get job",
			slog.String("job_id", jobID),
			slog.Any("error", err),
		)
		httpx.WriteError(w, "failed to get job", http.StatusInternalServerError)
		return
	}
	httpx.WriteJSON(w, toJobResponse(*job), http.StatusOK)
}

// HandleStreamEvents handles GET /events.
func (h *SyncHandlers) HandleStreamEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	flusher, ok := w.(http.Flusher)
	if !ok {
		httpx.WriteError(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	events, err := h.service.SubscribeJobEvents(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "Job events unavailable", slog.Any("error", err))
		httpx.WriteError(w, "job events are not available", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				h.logger.WarnContext(ctx, "Failed to encode job event", slog.Any("error", err))
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.State, data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
