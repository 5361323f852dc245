package teammatchservice

import (
	"context"
	"fmt"
	"io"
	"strings"

	teammatchdb "github.com/Black-And-White-Club/shuttle-sync/app/modules/teammatching/infrastructure/repositories"
	"github.com/xuri/excelize/v2"
)

const reviewSheet = "Reviews"

var reviewHeader = []any{"Review ID", "Event ID", "External Code", "External Name", "Status", "Error", "Suggestions", "Best Score", "Created At"}

// ExportReviews writes the reviews in a status as an XLSX workbook.
func (s *TeamMatchingService) ExportReviews(ctx context.Context, w io.Writer, status teammatchdb.ReviewStatus) error {
	_, err := withTelemetry(s, ctx, "ExportReviews", string(status), func(ctx context.Context) (struct{}, error) {
		reviews, err := s.repo.ListReviews(ctx, nil, status, 0)
		if err != nil {
			return struct{}{}, err
		}
		return struct{}{}, writeReviewWorkbook(w, reviews)
	})
	return err
}

func writeReviewWorkbook(w io.Writer, reviews []*teammatchdb.Review) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", reviewSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := f.SetSheetRow(reviewSheet, "A1", &reviewHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, r := range reviews {
		names := make([]string, len(r.Suggestions))
		best := 0.0
		for j, sg := range r.Suggestions {
			names[j] = fmt.Sprintf("%s (%.2f)", sg.Name, sg.Score)
			best = max(best, sg.Score)
		}
		row := []any{
			r.ID.String(),
			r.EventID.String(),
			r.ExternalCode,
			r.ExternalName,
			string(r.Status),
			r.Error,
			strings.Join(names, "; "),
			best,
			r.CreatedAt,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(reviewSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write review %s: %w", r.ID, err)
		}
	}

	if err := f.SetPanes(reviewSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze header: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
