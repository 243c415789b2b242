package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/innovation-records/internal/apperror"
	"github.com/sakif/innovation-records/internal/auth"
	"github.com/sakif/innovation-records/internal/model"
	"github.com/sakif/innovation-records/internal/repository"
)

// createAttempts bounds retries when a freshly generated token collides with
// a stored digest. With 256-bit tokens a single retry is already unreachable
// in practice.
const createAttempts = 3

// SessionService issues and resolves opaque session tokens.
//
// A ttl of zero means sessions never expire; they live until logout.
type SessionService struct {
	repo   repository.SessionRepository
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

func NewSessionService(repo repository.SessionRepository, ttl time.Duration, logger *slog.Logger) *SessionService {
	return &SessionService{
		repo:   repo,
		ttl:    ttl,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger,
	}
}

// Create issues a new session for email. The returned Session carries the
// raw token; it is the only place the token ever exists in the clear.
func (s *SessionService) Create(ctx context.Context, email string) (*model.Session, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, apperror.ValidationFailed("email", "email is required")
	}

	now := s.now()
	sess := &model.Session{
		Email:      email,
		CreatedAt:  now,
		LastSeenAt: now,
	}
	if s.ttl > 0 {
		sess.ExpiresAt = now.Add(s.ttl)
	}

	for attempt := 1; ; attempt++ {
		token, err := auth.GenerateSessionToken()
		if err != nil {
			return nil, fmt.Errorf("service/session: %w", err)
		}

		err = s.repo.Create(ctx, auth.TokenDigest(token), sess)
		if err == nil {
			sess.Token = token
			return sess, nil
		}
		if !errors.Is(err, apperror.ErrConflict) || attempt == createAttempts {
			return nil, fmt.Errorf("service/session: creating session for %s: %w", email, err)
		}
		s.logger.Warn("session token collision, retrying", slog.Int("attempt", attempt))
	}
}

// Resolve maps a token to the email it was issued to. Unknown, empty and
// expired tokens all return apperror.ErrSessionNotFound.
func (s *SessionService) Resolve(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", apperror.SessionNotFound()
	}

	digest := auth.TokenDigest(token)
	sess, err := s.repo.GetByDigest(ctx, digest)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return "", apperror.SessionNotFound()
		}
		return "", fmt.Errorf("service/session: resolving session: %w", err)
	}

	if sess.Expired(s.now()) {
		if err := s.repo.Delete(ctx, digest); err != nil {
			s.logger.Warn("failed to delete expired session", slog.String("error", err.Error()))
		}
		return "", apperror.SessionNotFound()
	}

	return sess.Email, nil
}

// Touch records activity on the session. Unknown tokens are ignored.
func (s *SessionService) Touch(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.repo.Touch(ctx, auth.TokenDigest(token), s.now()); err != nil {
		return fmt.Errorf("service/session: touching session: %w", err)
	}
	return nil
}

// Authenticate resolves the token and then touches it. A failed touch is
// logged and otherwise ignored: the request is still authenticated.
func (s *SessionService) Authenticate(ctx context.Context, token string) (string, error) {
	email, err := s.Resolve(ctx, token)
	if err != nil {
		return "", err
	}
	if err := s.Touch(ctx, token); err != nil {
		s.logger.Warn("failed to touch session",
			slog.String("email", email),
			slog.String("error", err.Error()),
		)
	}
	return email, nil
}

// Revoke ends the session. Revoking an unknown token is not an error.
func (s *SessionService) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.repo.Delete(ctx, auth.TokenDigest(token)); err != nil {
		return fmt.Errorf("service/session: revoking session: %w", err)
	}
	return nil
}

// PurgeExpired deletes every expired session and reports how many went.
func (s *SessionService) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("service/session: purging expired sessions: %w", err)
	}
	if n > 0 {
		s.logger.Info("purged expired sessions", slog.Int64("count", n))
	}
	return n, nil
}
