package teammatchhandlers

import "net/http"

// Handlers defines the admin HTTP handlers for the manual review queue.
type Handlers interface {
	// HandleListReviews lists reviews, pending ones unless ?status= says otherwise.
	HandleListReviews(w http.ResponseWriter, r *http.Request)

	// HandleExportReviews streams the reviews as an XLSX workbook.
	HandleExportReviews(w http.ResponseWriter, r *http.Request)

	// HandleResolveReview links a review to a team, or rejects it when no team is given.
	HandleResolveReview(w http.ResponseWriter, r *http.Request)
}
