package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sakif/innovation-records/internal/apperror"
	"github.com/sakif/innovation-records/internal/model"
	"github.com/sakif/innovation-records/internal/repository"
)

var _ repository.StaffRepository = (*StaffDB)(nil)

// StaffDB is the staff directory (the login whitelist).
type StaffDB struct {
	db *DB
}

func (db *DB) Staff() *StaffDB {
	return &StaffDB{db: db}
}

const staffColumns = `email, name, dept, active, created_at`

func scanStaff(row interface{ Scan(...any) error }) (*model.Staff, error) {
	var s model.Staff
	if err := row.Scan(&s.Email, &s.Name, &s.Dept, &s.Active, &s.CreatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

// Get returns apperror.ErrNotFound if the email is not in the directory.
// Inactive entries are returned; callers decide what inactive means.
func (d *StaffDB) Get(ctx context.Context, email string) (*model.Staff, error) {
	s, err := scanStaff(d.db.conn.QueryRowContext(ctx,
		`SELECT `+staffColumns+` FROM staff WHERE email = ?`, email,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("staff", email)
		}
		return nil, fmt.Errorf("sqlite: getting staff %s: %w", email, err)
	}
	return s, nil
}

// Search matches active staff by a case-insensitive substring of email or name.
func (d *StaffDB) Search(ctx context.Context, query string, limit int) ([]model.Staff, error) {
	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
	rows, err := d.db.conn.QueryContext(ctx,
		`SELECT `+staffColumns+` FROM staff
		 WHERE active = 1 AND (email LIKE ? ESCAPE '\' OR LOWER(name) LIKE ? ESCAPE '\')
		 ORDER BY name, email
		 LIMIT ?`,
		pattern, pattern, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: searching staff: %w", err)
	}
	return collectStaff(rows)
}

func (d *StaffDB) List(ctx context.Context, opts repository.ListOptions) ([]model.Staff, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := d.db.conn.QueryContext(ctx,
		`SELECT `+staffColumns+` FROM staff ORDER BY email LIMIT ? OFFSET ?`,
		limit, opts.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing staff: %w", err)
	}
	return collectStaff(rows)
}

// Upsert inserts or replaces the directory entry for s.Email. CreatedAt of an
// existing entry is preserved.
func (d *StaffDB) Upsert(ctx context.Context, s *model.Staff) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	_, err := d.db.conn.ExecContext(ctx,
		`INSERT INTO staff (email, name, dept, active, created_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(email) DO UPDATE SET
		   name = excluded.name, dept = excluded.dept, active = excluded.active`,
		s.Email, s.Name, s.Dept, s.Active, s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: upserting staff %s: %w", s.Email, err)
	}
	return nil
}

func collectStaff(rows *sql.Rows) ([]model.Staff, error) {
	defer rows.Close()

	out := []model.Staff{}
	for rows.Next() {
		s, err := scanStaff(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning staff row: %w", err)
		}
		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating staff rows: %w", err)
	}
	return out, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
