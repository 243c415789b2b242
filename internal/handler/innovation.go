package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/innovation-records/internal/model"
	"github.com/sakif/innovation-records/internal/service"
)

// InnovationHandler serves /api/innovations.
type InnovationHandler struct {
	innovations *service.InnovationService
	logger      *slog.Logger
}

func NewInnovationHandler(innovations *service.InnovationService, logger *slog.Logger) *InnovationHandler {
	return &InnovationHandler{innovations: innovations, logger: logger}
}

type innovationRequest struct {
	Title     string `json:"title"`
	Year      string `json:"year"`
	Category  string `json:"category"`
	Status    string `json:"status"`
	IPOStatus string `json:"ipoStatus"`
	IPONumber string `json:"ipoNumber"`
}

func (req innovationRequest) input() service.InnovationInput {
	return service.InnovationInput{
		Title:     req.Title,
		Year:      req.Year,
		Category:  req.Category,
		Status:    req.Status,
		IPOStatus: req.IPOStatus,
		IPONumber: req.IPONumber,
	}
}

// innovationDetail is an innovation plus whether the caller may manage its
// team, so the front end can hide controls it would be refused.
type innovationDetail struct {
	*model.Innovation
	CanManage bool `json:"canManage"`
}

// HandleList returns every innovation the caller owns or is a member of,
// newest first.
//
// HTTP: GET /api/innovations
func (h *InnovationHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	email, ok := callerEmail(w, r, h.logger)
	if !ok {
		return
	}
	list, err := h.innovations.ListVisible(r.Context(), email)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// HandleCreate creates an innovation owned and led by the caller.
//
// HTTP: POST /api/innovations
func (h *InnovationHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	email, ok := callerEmail(w, r, h.logger)
	if !ok {
		return
	}
	var req innovationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	inv, err := h.innovations.Create(r.Context(), email, req.input())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, inv)
}

// HandleGet returns one innovation.
//
// HTTP: GET /api/innovations/{id}
func (h *InnovationHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	email, ok := callerEmail(w, r, h.logger)
	if !ok {
		return
	}
	inv, err := h.innovations.GetVisible(r.Context(), email, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	canManage, err := h.innovations.CanManageRoster(r.Context(), inv.ID, email)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, innovationDetail{Innovation: inv, CanManage: canManage})
}

// HandleUpdate edits an innovation.
//
// HTTP: PUT /api/innovations/{id}
func (h *InnovationHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	email, ok := callerEmail(w, r, h.logger)
	if !ok {
		return
	}
	var req innovationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	inv, err := h.innovations.Update(r.Context(), email, chi.URLParam(r, "id"), req.input())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

// HandleDelete removes an innovation with its team and competitions.
//
// HTTP: DELETE /api/innovations/{id}
func (h *InnovationHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	email, ok := callerEmail(w, r, h.logger)
	if !ok {
		return
	}
	if err := h.innovations.Delete(r.Context(), email, chi.URLParam(r, "id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
