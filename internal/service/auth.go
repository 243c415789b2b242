package service

// SIGN-IN FLOW:
//  1. The Verifier checks the Google credential and returns the email.
//  2. The email domain must equal the configured one.
//  3. The email must be an active entry in the staff directory.
//  4. The user row is created on first sign-in. Configured admin emails get
//     model.RoleAdmin.
//  5. SessionService opens a session and returns the raw token.
//
// Every outcome is counted in innovation_logins_total.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/innovation-records/internal/apperror"
	"github.com/sakif/innovation-records/internal/auth"
	"github.com/sakif/innovation-records/internal/metrics"
	"github.com/sakif/innovation-records/internal/model"
	"github.com/sakif/innovation-records/internal/repository"
)

// Whitelist decides whether a verified email may sign in.
type Whitelist interface {
	IsWhitelisted(ctx context.Context, email string) (bool, error)
}

// AuthService turns an identity credential into a session.
//
//	AuthHandler → AuthService → Verifier (Google)
//	                          → Whitelist (staff directory)
//	                          → UserRepository
//	                          → SessionService
type AuthService struct {
	verifier      auth.Verifier
	whitelist     Whitelist
	users         repository.UserRepository
	sessions      *SessionService
	allowedDomain string
	admins        map[string]bool
	logger        *slog.Logger
}

// NewAuthService wires the login flow. allowedDomain is the email domain
// (without "@") every account must belong to; adminEmails are promoted to
// model.RoleAdmin when they sign in.
func NewAuthService(
	verifier auth.Verifier,
	whitelist Whitelist,
	users repository.UserRepository,
	sessions *SessionService,
	allowedDomain string,
	adminEmails []string,
	logger *slog.Logger,
) *AuthService {
	admins := make(map[string]bool, len(adminEmails))
	for _, e := range adminEmails {
		if e = normalizeEmail(e); e != "" {
			admins[e] = true
		}
	}
	return &AuthService{
		verifier:      verifier,
		whitelist:     whitelist,
		users:         users,
		sessions:      sessions,
		allowedDomain: strings.ToLower(strings.TrimPrefix(strings.TrimSpace(allowedDomain), "@")),
		admins:        admins,
		logger:        logger,
	}
}

// LoginResult is what a successful login hands back to the handler.
type LoginResult struct {
	Token string
	User  *model.User
}

// Login verifies credential and opens a session. Checks run in a fixed
// order and the first failure wins: verification, domain, whitelist.
// Nothing is written before all three pass.
func (s *AuthService) Login(ctx context.Context, credential string) (*LoginResult, error) {
	id, err := s.verifier.Verify(ctx, credential)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("verification_failed").Inc()
		s.logger.Warn("identity verification failed", slog.String("error", err.Error()))
		return nil, apperror.VerificationFailed(err)
	}

	email := normalizeEmail(id.Email)
	if !strings.HasSuffix(email, "@"+s.allowedDomain) {
		metrics.LoginsTotal.WithLabelValues("domain_rejected").Inc()
		s.logger.Warn("login from outside the allowed domain", slog.String("email", email))
		return nil, apperror.DomainRejected(email, s.allowedDomain)
	}

	ok, err := s.whitelist.IsWhitelisted(ctx, email)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("service/auth: %w", err)
	}
	if !ok {
		metrics.LoginsTotal.WithLabelValues("access_denied").Inc()
		s.logger.Warn("login by non-whitelisted account", slog.String("email", email))
		return nil, apperror.AccessDenied(email)
	}

	user, err := s.users.Upsert(ctx, email, s.admins[email])
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("service/auth: upserting user %s: %w", email, err)
	}

	sess, err := s.sessions.Create(ctx, email)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	metrics.LoginsTotal.WithLabelValues("ok").Inc()
	s.logger.Info("user signed in", slog.String("email", email), slog.String("role", user.Role))

	return &LoginResult{Token: sess.Token, User: user}, nil
}

// WhoAmI returns the user record behind an authenticated email.
func (s *AuthService) WhoAmI(ctx context.Context, email string) (*model.User, error) {
	u, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			// A live session without a user row means the row was removed
			// out of band; treat the session as gone.
			return nil, apperror.SessionNotFound()
		}
		return nil, fmt.Errorf("service/auth: loading user %s: %w", email, err)
	}
	return u, nil
}

// Logout revokes the session token.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.sessions.Revoke(ctx, token)
}
