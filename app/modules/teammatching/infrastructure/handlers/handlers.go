package teammatchhandlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	teammatchservice "github.com/Black-And-White-Club/shuttle-sync/app/modules/teammatching/application"
	teammatchdb "github.com/Black-And-White-Club/shuttle-sync/app/modules/teammatching/infrastructure/repositories"
	"github.com/Black-And-White-Club/shuttle-sync/app/shared/httpx"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
	xlsxContentType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// TeamMatchHandlers implements the Handlers interface.
type TeamMatchHandlers struct {
	service teammatchservice.Service
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewTeamMatchHandlers creates a new TeamMatchHandlers instance.
func NewTeamMatchHandlers(
	service teammatchservice.Service,
	logger *slog.Logger,
	tracer trace.Tracer,
) Handlers {
	return &TeamMatchHandlers{
		service: service,
		logger:  logger,
		tracer:  tracer,
	}
}

// Router mounts the review routes.
func Router(h Handlers) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.HandleListReviews)
	r.Get("/export", h.HandleExportReviews)
	r.Post("/{reviewID}/resolve", h.HandleResolveReview)
	return r
}

type resolveRequest struct {
	TeamID *uuid.UUID `json:"teamId"`
}

func parseStatus(r *http.Request) (teammatchdb.ReviewStatus, error) {
	switch s := teammatchdb.ReviewStatus(r.URL.Query().Get("status")); s {
	case "":
		return teammatchdb.ReviewPending, nil
	case teammatchdb.ReviewPending, teammatchdb.ReviewResolved, teammatchdb.ReviewRejected:
		return s, nil
	default:
		return "", fmt.Errorf("invalid status %q", s)
	}
}

// HandleListReviews handles GET /reviews.
func (h *TeamMatchHandlers) HandleListReviews(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "TeamMatchHandlers.HandleListReviews")
	defer span.End()

	status, err := parseStatus(r)
	if err != nil {
		httpx.WriteError(w, err.Error(), http.StatusBadRequest)
		return
	}
	limit, err := httpx.QueryInt(r, "limit", defaultListLimit, maxListLimit)
	if err != nil {
		httpx.WriteError(w, err.Error(), http.StatusBadRequest)
		return
	}

	reviews, err := h.service.ListReviews(ctx, status, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to list reviews", slog.Any("error", err))
		httpx.WriteError(w, "failed to list reviews", http.StatusInternalServerError)
		return
	}
	if reviews == nil {
		reviews = []*teammatchdb.Review{}
	}
	httpx.WriteJSON(w, reviews, http.StatusOK)
}

// HandleExportReviews handles GET /reviews/export.
func (h *TeamMatchHandlers) HandleExportReviews(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "TeamMatchHandlers.HandleExportReviews")
	defer span.End()

	status, err := parseStatus(r)
	if err != nil {
		httpx.WriteError(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Buffer the workbook so a failure can still produce an error status.
	var buf bytes.Buffer
	if err := h.service.ExportReviews(ctx, &buf, status); err != nil {
		h.logger.ErrorContext(ctx, "Failed to export reviews",
			slog.String("status", string(status)),
			slog.Any("error", err),
		)
		httpx.WriteError(w, "failed to export reviews", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "team-reviews-"+string(status)+".xlsx"))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.WarnContext(ctx, "Failed to write export", slog.Any("error", err))
	}
}

// HandleResolveReview handles POST /reviews/{reviewID}/resolve.
func (h *TeamMatchHandlers) HandleResolveReview(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "TeamMatchHandlers.HandleResolveReview")
	defer span.End()

	raw, err := httpx.URLParam(r, "reviewID")
	if err != nil {
		httpx.WriteError(w, err.Error(), http.StatusBadRequest)
		return
	}
	reviewID, err := uuid.Parse(raw)
	if err != nil {
		httpx.WriteError(w, "reviewID must be a UUID", http.StatusBadRequest)
		return
	}

	var req resolveRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpx.WriteError(w, "invalid request body", http.StatusBadRequest)
			return
		}
	}

	review, err := h.service.ResolveReview(ctx, reviewID, req.TeamID)
	switch {
	case err == nil:
	case errors.Is(err, teammatchdb.ErrNotFound):
		httpx.WriteError(w, err.Error(), http.StatusNotFound)
		return
	case errors.Is(err, teammatchservice.ErrReviewClosed):
		httpx.WriteError(w, err.Error(), http.StatusConflict)
		return
	default:
		h.logger.ErrorContext(ctx, "Failed to resolve review",
			slog.String("review_id", reviewID.String()),
			slog.Any("error", err),
		)
		httpx.WriteError(w, "failed to resolve review", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "Review resolved",
		slog.String("review_id", reviewID.String()),
		slog.String("status", string(review.Status)),
	)
	httpx.WriteJSON(w, review, http.StatusOK)
}
