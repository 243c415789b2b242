package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/innovation-records/internal/service"
)

// CompetitionHandler serves /api/innovations/{id}/competitions.
type CompetitionHandler struct {
	comps  *service.CompetitionService
	logger *slog.Logger
}

func NewCompetitionHandler(comps *service.CompetitionService, logger *slog.Logger) *CompetitionHandler {
	return &CompetitionHandler{comps: comps, logger: logger}
}

type competitionRequest struct {
	EventName        string `json:"eventName"`
	Year             string `json:"year"`
	Level            string `json:"level"`
	Medal            string `json:"medal"`
	SpecialAward     string `json:"specialAward"`
	SpecialAwardName string `json:"specialAwardName"`
}

// HTTP: GET /api/innovations/{id}/competitions
func (h *CompetitionHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	email, ok := callerEmail(w, r, h.logger)
	if !ok {
		return
	}
	list, err := h.comps.List(r.Context(), chi.URLParam(r, "id"), email)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// HTTP: POST /api/innovations/{id}/competitions
func (h *CompetitionHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	email, ok := callerEmail(w, r, h.logger)
	if !ok {
		return
	}
	var req competitionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	c, err := h.comps.Add(r.Context(), chi.URLParam(r, "id"), email, service.CompetitionInput{
		EventName:        req.EventName,
		Year:             req.Year,
		Level:            req.Level,
		Medal:            req.Medal,
		SpecialAward:     req.SpecialAward,
		SpecialAwardName: req.SpecialAwardName,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// HTTP: DELETE /api/innovations/{id}/competitions/{compID}
func (h *CompetitionHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	email, ok := callerEmail(w, r, h.logger)
	if !ok {
		return
	}
	if err := h.comps.Delete(r.Context(), chi.URLParam(r, "id"), email, chi.URLParam(r, "compID")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
