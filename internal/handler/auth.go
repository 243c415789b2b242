package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/innovation-records/internal/apperror"
	"github.com/sakif/innovation-records/internal/auth"
	"github.com/sakif/innovation-records/internal/service"
)

const nonceCookie = "oauth_nonce"

func authEmail(r *http.Request) (string, bool) {
	return auth.EmailFromContext(r.Context())
}

// AuthHandler serves sign-in, sign-out and the current user.
//
//   - HandleLogin          → POST credential from Google Identity Services
//   - HandleGoogleLogin    → redirect to Google (code flow)
//   - HandleGoogleCallback → code → id_token → same login as HandleLogin
//   - HandleLogout         → revoke the session
//   - HandleMe             → who is signed in
type AuthHandler struct {
	auth         *service.AuthService
	google       *auth.GoogleProvider
	states       *auth.StateService
	cookieSecure bool
	sessionTTL   time.Duration
	logger       *slog.Logger
}

// NewAuthHandler creates an AuthHandler. google and states may be nil when
// the code flow is not configured; its routes then answer 404.
func NewAuthHandler(
	authSvc *service.AuthService,
	google *auth.GoogleProvider,
	states *auth.StateService,
	cookieSecure bool,
	sessionTTL time.Duration,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		auth:         authSvc,
		google:       google,
		states:       states,
		cookieSecure: cookieSecure,
		sessionTTL:   sessionTTL,
		logger:       logger,
	}
}

type loginRequest struct {
	Credential string `json:"credential"`
}

// LoginResponse is returned by a successful login. The token is also set as
// the session cookie; API clients use it as a bearer token.
type LoginResponse struct {
	Token string `json:"token"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// HandleLogin signs in with a Google ID token.
//
// HTTP: POST /auth/login {"credential": "<id token>"}
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if req.Credential == "" {
		writeError(w, h.logger, apperror.ValidationFailed("credential", "credential is required"))
		return
	}

	res, err := h.auth.Login(r.Context(), req.Credential)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.setSessionCookie(w, res.Token)
	writeJSON(w, http.StatusOK, LoginResponse{Token: res.Token, Email: res.User.Email, Role: res.User.Role})
}

// HandleGoogleLogin starts the code flow.
//
// HTTP: GET /auth/google/login
//
// The state sent to Google is a signed JWT carrying a random nonce; the
// same nonce goes into a short-lived cookie. The callback accepts the state
// only if the signature is valid and the nonce matches the cookie.
func (h *AuthHandler) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	if h.google == nil || h.states == nil {
		writeError(w, h.logger, apperror.NotFound("route", r.URL.Path))
		return
	}

	nonce := xid.New().String()
	state, err := h.states.Generate(nonce)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     nonceCookie,
		Value:    nonce,
		Path:     "/auth/google",
		MaxAge:   int(auth.StateTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.google.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGoogleCallback completes the code flow.
//
// HTTP: GET /auth/google/callback?code=xxx&state=yyy
func (h *AuthHandler) HandleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	if h.google == nil || h.states == nil {
		writeError(w, h.logger, apperror.NotFound("route", r.URL.Path))
		return
	}

	nonce, err := r.Cookie(nonceCookie)
	if err != nil || nonce.Value == "" {
		h.logger.Warn("oauth callback: missing nonce cookie")
		writeError(w, h.logger, apperror.ValidationFailed("state", "invalid OAuth state"))
		return
	}
	http.SetCookie(w, &http.Cookie{Name: nonceCookie, Value: "", Path: "/auth/google", MaxAge: -1})

	if err := h.states.Validate(r.URL.Query().Get("state"), nonce.Value); err != nil {
		h.logger.Warn("oauth callback: bad state", slog.String("error", err.Error()))
		writeError(w, h.logger, apperror.ValidationFailed("state", "invalid OAuth state"))
		return
	}

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("oauth callback: user denied authorization", slog.String("error", errParam))
		http.Redirect(w, r, "/?auth=denied", http.StatusSeeOther)
		return
	}

	idToken, err := h.google.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		writeError(w, h.logger, apperror.VerificationFailed(err))
		return
	}

	res, err := h.auth.Login(r.Context(), idToken)
	if err != nil {
		if errors.Is(err, apperror.ErrDomainRejected) || errors.Is(err, apperror.ErrAccessDenied) {
			http.Redirect(w, r, "/?auth=denied", http.StatusSeeOther)
			return
		}
		writeError(w, h.logger, err)
		return
	}

	h.setSessionCookie(w, res.Token)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleLogout revokes the caller's session and clears the cookie.
//
// HTTP: POST /auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	token, _ := auth.TokenFromContext(r.Context())
	if err := h.auth.Logout(r.Context(), token); err != nil {
		writeError(w, h.logger, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

// MeResponse is the body of GET /api/me.
type MeResponse struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// HandleMe returns the signed-in user.
//
// HTTP: GET /api/me
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	email, ok := callerEmail(w, r, h.logger)
	if !ok {
		return
	}

	user, err := h.auth.WhoAmI(r.Context(), email)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, MeResponse{Email: user.Email, Role: user.Role})
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string) {
	c := &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
	if h.sessionTTL > 0 {
		c.MaxAge = int(h.sessionTTL.Seconds())
	}
	http.SetCookie(w, c)
}
