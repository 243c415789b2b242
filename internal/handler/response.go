package handler

// RESPONSE HELPERS:
// Handlers never build JSON or pick status codes by hand. They call
// writeJSON for success bodies and handleServiceError for anything a
// service returned, and decodeJSON for request bodies.
//
// MAPPING ERRORS TO STATUS CODES:
// Services return apperror values. handleServiceError checks them with
// errors.Is, so wrapping with fmt.Errorf("...: %w", err) on the way up keeps
// the mapping intact. Anything it does not recognise becomes a 500 and the
// real error is only logged.
//
// CONSISTENT ERROR FORMAT:
// Every error response has the same shape:
//
//	{"error": "not_found", "message": "innovation not found with id abc123"}
//
// "error" is a stable machine-readable kind the front end switches on;
// "message" is for people.

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/sakif/innovation-records/internal/apperror"
)

// maxBodyBytes caps request bodies. Nothing this API accepts is near it.
const maxBodyBytes = 1 << 20

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// writeJSON sends data as JSON. Headers and status must go out before the
// body, so both are set here first.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// errorKind maps a domain error to its HTTP status and error kind.
// LastLeader is checked on its own so it never reads as a permissions
// problem.
func errorKind(err error) (int, string) {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrSessionNotFound):
		return http.StatusUnauthorized, "session_not_found"
	case errors.Is(err, apperror.ErrVerification):
		return http.StatusUnauthorized, "verification_failed"
	case errors.Is(err, apperror.ErrDomainRejected):
		return http.StatusForbidden, "domain_rejected"
	case errors.Is(err, apperror.ErrAccessDenied):
		return http.StatusForbidden, "access_denied"
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrLastLeader):
		return http.StatusConflict, "last_leader"
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict, "conflict"
	}
	return http.StatusInternalServerError, "internal_error"
}

// writeError maps err to a status and writes it. Only *apperror.AppError
// messages reach the client; anything else is logged and reported as a
// generic 500 so SQL or file paths never leak.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status, kind := errorKind(err)
		if status == http.StatusInternalServerError {
			logger.Error("unmapped application error", slog.String("error", err.Error()))
		}
		writeJSON(w, status, ErrorResponse{Error: kind, Message: appErr.Message, Field: appErr.Field})
		return
	}

	logger.Error("internal error", slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "an internal error occurred",
	})
}

// decodeJSON reads a JSON body into dst. Malformed bodies come back as a
// validation error so writeError answers 400.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperror.ValidationFailed("body", "request body is required")
		}
		return apperror.ValidationFailed("body", fmt.Sprintf("invalid JSON body: %v", err))
	}
	return nil
}

// callerEmail returns the authenticated email set by auth.RequireSession.
func callerEmail(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (string, bool) {
	email, ok := authEmail(r)
	if !ok {
		writeError(w, logger, apperror.SessionNotFound())
		return "", false
	}
	return email, true
}
