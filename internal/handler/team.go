package handler

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/innovation-records/internal/apperror"
	"github.com/sakif/innovation-records/internal/model"
	"github.com/sakif/innovation-records/internal/service"
)

// TeamHandler serves /api/innovations/{id}/team.
type TeamHandler struct {
	teams  *service.TeamService
	logger *slog.Logger
}

func NewTeamHandler(teams *service.TeamService, logger *slog.Logger) *TeamHandler {
	return &TeamHandler{teams: teams, logger: logger}
}

type addMemberRequest struct {
	MemberEmail string `json:"memberEmail"`
	MemberName  string `json:"memberName"`
	MemberDept  string `json:"memberDept"`
	Role        string `json:"role"`
}

// AddMemberResponse is returned after a member joins a team.
type AddMemberResponse struct {
	ID          string            `json:"id"`
	InWhitelist bool              `json:"inWhitelist"`
	Member      *model.TeamMember `json:"member"`
}

// RemoveMemberResponse says whether a roster row was actually deleted.
type RemoveMemberResponse struct {
	Removed bool `json:"removed"`
}

// HandleList returns the team of an innovation.
//
// HTTP: GET /api/innovations/{id}/team
func (h *TeamHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	email, ok := callerEmail(w, r, h.logger)
	if !ok {
		return
	}
	members, err := h.teams.ListTeam(r.Context(), chi.URLParam(r, "id"), email)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

// HandleAdd adds a member.
//
// HTTP: POST /api/innovations/{id}/team
func (h *TeamHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	email, ok := callerEmail(w, r, h.logger)
	if !ok {
		return
	}
	var req addMemberRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	res, err := h.teams.AddMember(r.Context(), chi.URLParam(r, "id"), email, service.AddMemberInput{
		Email: req.MemberEmail,
		Name:  req.MemberName,
		Dept:  req.MemberDept,
		Role:  req.Role,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, AddMemberResponse{
		ID:          res.Member.ID,
		InWhitelist: res.InWhitelist,
		Member:      res.Member,
	})
}

// HandleRemove removes a member by email.
//
// HTTP: DELETE /api/innovations/{id}/team/{email}
func (h *TeamHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	email, ok := callerEmail(w, r, h.logger)
	if !ok {
		return
	}
	// chi matches on the escaped path, so "bob%40pms.edu.my" arrives as is.
	member, err := url.PathUnescape(chi.URLParam(r, "email"))
	if err != nil {
		writeError(w, h.logger, apperror.ValidationFailed("email", "member email is not a valid path segment"))
		return
	}
	removed, err := h.teams.RemoveMember(r.Context(), chi.URLParam(r, "id"), email, member)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, RemoveMemberResponse{Removed: removed})
}

// HandleRemoveEntry removes a member by roster entry id.
//
// HTTP: DELETE /api/innovations/{id}/team/entries/{entryID}
func (h *TeamHandler) HandleRemoveEntry(w http.ResponseWriter, r *http.Request) {
	email, ok := callerEmail(w, r, h.logger)
	if !ok {
		return
	}
	removed, err := h.teams.RemoveMemberByID(r.Context(), chi.URLParam(r, "id"), email, chi.URLParam(r, "entryID"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, RemoveMemberResponse{Removed: removed})
}
