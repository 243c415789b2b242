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

var _ repository.UserRepository = (*UserDB)(nil)

// UserDB is the users table.
type UserDB struct {
	db *DB
}

func (db *DB) Users() *UserDB {
	return &UserDB{db: db}
}

// Upsert creates the user on first login and returns the stored row.
//
// The role column only ever moves up: an existing admin stays admin even if
// promote is false, and promote never touches created_at.
func (u *UserDB) Upsert(ctx context.Context, email string, promote bool) (*model.User, error) {
	role := model.RoleUser
	if promote {
		role = model.RoleAdmin
	}

	_, err := u.db.conn.ExecContext(ctx,
		`INSERT INTO users (email, role, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(email) DO UPDATE SET
		   role = CASE WHEN excluded.role = 'admin' THEN 'admin' ELSE users.role END`,
		email, role, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: upserting user %s: %w", email, err)
	}

	return u.GetByEmail(ctx, email)
}

// GetByEmail returns apperror.ErrNotFound if the user has never signed in.
func (u *UserDB) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := u.db.conn.QueryRowContext(ctx,
		`SELECT email, role, created_at FROM users WHERE email = ?`, email,
	).Scan(&user.Email, &user.Role, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", email, err)
	}
	return &user, nil
}
