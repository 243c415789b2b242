package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/innovation-records/internal/service"
)

type DashboardHandler struct {
	dashboard *service.DashboardService
	logger    *slog.Logger
}

func NewDashboardHandler(dashboard *service.DashboardService, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard, logger: logger}
}

// HandleStats returns yearly counts over the caller's visible innovations.
//
// HTTP: GET /api/dashboard?year=2026
func (h *DashboardHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	email, ok := callerEmail(w, r, h.logger)
	if !ok {
		return
	}
	stats, err := h.dashboard.Stats(r.Context(), email, r.URL.Query().Get("year"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
