package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/innovation-records/internal/model"
	"github.com/sakif/innovation-records/internal/service"
)

// StaffHandler serves the staff directory.
type StaffHandler struct {
	staff  *service.StaffService
	logger *slog.Logger
}

func NewStaffHandler(staff *service.StaffService, logger *slog.Logger) *StaffHandler {
	return &StaffHandler{staff: staff, logger: logger}
}

// HandleSearch backs the member autocomplete.
//
// HTTP: GET /api/staff?q=ali&limit=10
func (h *StaffHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	found, err := h.staff.Search(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, found)
}

// LookupResponse reports whether an email is in the directory. A miss is a
// normal answer, not an error: the front end switches to manual entry.
type LookupResponse struct {
	Found bool   `json:"found"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Dept  string `json:"dept,omitempty"`
}

// HTTP: GET /api/staff/lookup?email=ali@pms.edu.my
func (h *StaffHandler) HandleLookup(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	st, err := h.staff.Lookup(r.Context(), email)
	if err != nil {
		if status, _ := errorKind(err); status == http.StatusNotFound {
			writeJSON(w, http.StatusOK, LookupResponse{Found: false, Email: email})
			return
		}
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, LookupResponse{Found: st.Active, Email: st.Email, Name: st.Name, Dept: st.Dept})
}

type staffRequest struct {
	Email  string `json:"email"`
	Name   string `json:"name"`
	Dept   string `json:"dept"`
	Active *bool  `json:"active"`
}

// HandleUpsert adds or updates a directory entry. Admins only.
//
// HTTP: POST /api/staff
func (h *StaffHandler) HandleUpsert(w http.ResponseWriter, r *http.Request) {
	acting, ok := callerEmail(w, r, h.logger)
	if !ok {
		return
	}
	var req staffRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	st := &model.Staff{Email: req.Email, Name: req.Name, Dept: req.Dept, Active: true}
	if req.Active != nil {
		st.Active = *req.Active
	}
	if err := h.staff.Add(r.Context(), acting, st); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
