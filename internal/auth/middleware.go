package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/innovation-records/internal/apperror"
)

// SessionCookie is the HttpOnly cookie the browser login flow sets.
const SessionCookie = "session"

// contextKey is an unexported type so no other package can read or shadow
// the values this package stores in a request context.
type contextKey string

const (
	emailKey contextKey = "email"
	tokenKey contextKey = "sessionToken"
)

// SessionAuthenticator resolves a session token to the email it belongs to.
// The service layer's SessionService satisfies it.
type SessionAuthenticator interface {
	Authenticate(ctx context.Context, token string) (string, error)
}

// RequireSession rejects requests that do not carry a live session token.
// The token is read from "Authorization: Bearer <token>" first and from the
// session cookie second. On success the caller's email and the raw token are
// stored in the request context.
func RequireSession(sessions SessionAuthenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token == "" {
				unauthorized(w)
				return
			}

			email, err := sessions.Authenticate(r.Context(), token)
			if err != nil {
				if errors.Is(err, apperror.ErrSessionNotFound) {
					unauthorized(w)
					return
				}
				logger.Error("resolving session", slog.String("error", err.Error()))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(`{"error":"internal_error","message":"an internal error occurred"}`))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), email, token)))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"session_not_found","message":"session not found, please sign in again"}`))
}

// TokenFromRequest extracts the session token, or "" when there is none.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// WithSession stores the authenticated email and token in ctx.
func WithSession(ctx context.Context, email, token string) context.Context {
	ctx = context.WithValue(ctx, emailKey, email)
	return context.WithValue(ctx, tokenKey, token)
}

// EmailFromContext returns the authenticated caller's email.
// Returns ("", false) outside of RequireSession.
func EmailFromContext(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(emailKey).(string)
	return email, ok && email != ""
}

// TokenFromContext returns the raw session token of the current request.
func TokenFromContext(ctx context.Context) (string, bool) {
	tok, ok := ctx.Value(tokenKey).(string)
	return tok, ok && tok != ""
}
