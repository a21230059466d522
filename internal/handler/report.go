package handler

import (
	"context"
	"net/http"

	"github.com/stockpilot/stockpilot-go/internal/model"
)

// ReportService builds the caller's catalog summary.
type ReportService interface {
	Summary(ctx context.Context, userID int64) (*model.ReportSummary, error)
}

// ReportHandler handles HTTP requests for catalog reports.
type ReportHandler struct {
	service ReportService
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(svc ReportService) *ReportHandler {
	return &ReportHandler{service: svc}
}

// HandleSummary handles GET /api/v1/reports/summary requests.
func (h *ReportHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	summary, err := h.service.Summary(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}
