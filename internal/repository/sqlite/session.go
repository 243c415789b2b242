package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/innovation-records/internal/apperror"
	"github.com/sakif/innovation-records/internal/model"
	"github.com/sakif/innovation-records/internal/repository"
)

var _ repository.SessionRepository = (*SessionDB)(nil)

// SessionDB is the sessions table. Rows are keyed by token digest; the raw
// token is never written.
type SessionDB struct {
	db *DB
}

func (db *DB) Sessions() *SessionDB {
	return &SessionDB{db: db}
}

// Create returns apperror.ErrConflict if the digest already exists.
func (s *SessionDB) Create(ctx context.Context, digest string, sess *model.Session) error {
	var expires sql.NullTime
	if !sess.ExpiresAt.IsZero() {
		expires = sql.NullTime{Time: sess.ExpiresAt, Valid: true}
	}

	_, err := s.db.conn.ExecContext(ctx,
		`INSERT INTO sessions (token_digest, email, created_at, last_seen_at, expires_at)
		 VALUES (?, ?, ?, ?, ?)`,
		digest, sess.Email, sess.CreatedAt, sess.LastSeenAt, expires,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("session", "(redacted)")
		}
		return fmt.Errorf("sqlite: creating session for %s: %w", sess.Email, err)
	}
	return nil
}

// GetByDigest returns apperror.ErrNotFound when no row matches.
func (s *SessionDB) GetByDigest(ctx context.Context, digest string) (*model.Session, error) {
	var (
		sess    model.Session
		expires sql.NullTime
	)
	err := s.db.conn.QueryRowContext(ctx,
		`SELECT email, created_at, last_seen_at, expires_at
		 FROM sessions WHERE token_digest = ?`, digest,
	).Scan(&sess.Email, &sess.CreatedAt, &sess.LastSeenAt, &expires)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("session", "(redacted)")
		}
		return nil, fmt.Errorf("sqlite: getting session: %w", err)
	}
	if expires.Valid {
		sess.ExpiresAt = expires.Time
	}
	return &sess, nil
}

func (s *SessionDB) Touch(ctx context.Context, digest string, at time.Time) error {
	_, err := s.db.conn.ExecContext(ctx,
		`UPDATE sessions SET last_seen_at = ? WHERE token_digest = ?`, at, digest,
	)
	if err != nil {
		return fmt.Errorf("sqlite: touching session: %w", err)
	}
	return nil
}

// Delete is idempotent.
func (s *SessionDB) Delete(ctx context.Context, digest string) error {
	_, err := s.db.conn.ExecContext(ctx,
		`DELETE FROM sessions WHERE token_digest = ?`, digest,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting session: %w", err)
	}
	return nil
}

// DeleteExpired removes sessions whose expiry is at or before now. Sessions
// without an expiry are kept.
func (s *SessionDB) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.conn.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at IS NOT NULL AND expires_at <= ?`, now,
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: deleting expired sessions: %w", err)
	}
	return res.RowsAffected()
}
