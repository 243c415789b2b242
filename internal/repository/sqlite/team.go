package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/innovation-records/internal/apperror"
	"github.com/sakif/innovation-records/internal/model"
	"github.com/sakif/innovation-records/internal/repository"
)

var _ repository.TeamRepository = (*TeamDB)(nil)

// TeamDB is the team_members table (innovation rosters).
type TeamDB struct {
	db *DB
}

func (db *DB) Teams() *TeamDB {
	return &TeamDB{db: db}
}

const teamColumns = `id, innovation_id, member_email, member_name, member_dept, role, added_by_email, added_at`

func scanTeamMember(row interface{ Scan(...any) error }) (*model.TeamMember, error) {
	var m model.TeamMember
	var role string
	err := row.Scan(
		&m.ID,
		&m.InnovationID,
		&m.MemberEmail,
		&m.MemberName,
		&m.MemberDept,
		&role,
		&m.AddedByEmail,
		&m.AddedAt,
	)
	if err != nil {
		return nil, err
	}
	m.Role = model.ParseTeamRole(role)
	return &m, nil
}

func insertTeamMember(ctx context.Context, tx *sql.Tx, m *model.TeamMember) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO team_members
		   (id, innovation_id, member_email, member_name, member_dept, role, added_by_email, added_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.InnovationID, m.MemberEmail, m.MemberName, m.MemberDept,
		string(m.Role), m.AddedByEmail, m.AddedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("team member", m.MemberEmail)
		}
		return fmt.Errorf("sqlite: adding team member %s: %w", m.MemberEmail, err)
	}
	return nil
}

// AddMember appends a roster row. A duplicate (innovation, email) pair
// returns apperror.ErrConflict.
func (r *TeamDB) AddMember(ctx context.Context, m *model.TeamMember) error {
	m.ID = xid.New().String()
	if m.AddedAt.IsZero() {
		m.AddedAt = time.Now().UTC()
	}
	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		return insertTeamMember(ctx, tx, m)
	})
}

func (r *TeamDB) GetMember(ctx context.Context, innovationID, email string) (*model.TeamMember, error) {
	m, err := scanTeamMember(r.db.conn.QueryRowContext(ctx,
		`SELECT `+teamColumns+` FROM team_members WHERE innovation_id = ? AND member_email = ?`,
		innovationID, email,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("team member", email)
		}
		return nil, fmt.Errorf("sqlite: getting team member %s: %w", email, err)
	}
	return m, nil
}

func (r *TeamDB) GetMemberByID(ctx context.Context, innovationID, entryID string) (*model.TeamMember, error) {
	m, err := scanTeamMember(r.db.conn.QueryRowContext(ctx,
		`SELECT `+teamColumns+` FROM team_members WHERE innovation_id = ? AND id = ?`,
		innovationID, entryID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("team member", entryID)
		}
		return nil, fmt.Errorf("sqlite: getting team entry %s: %w", entryID, err)
	}
	return m, nil
}

// ListMembers returns the roster in the order members were added.
func (r *TeamDB) ListMembers(ctx context.Context, innovationID string) ([]model.TeamMember, error) {
	rows, err := r.db.conn.QueryContext(ctx,
		`SELECT `+teamColumns+` FROM team_members WHERE innovation_id = ? ORDER BY rowid`,
		innovationID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing team of %s: %w", innovationID, err)
	}
	defer rows.Close()

	out := []model.TeamMember{}
	for rows.Next() {
		m, err := scanTeamMember(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning team row: %w", err)
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating team rows: %w", err)
	}
	return out, nil
}

// RemoveMember deletes the roster row for (innovationID, email).
//
// It returns (false, nil) when there is no such row. If the row holds a
// leading role and is the only one left, nothing is deleted and an
// apperror.ErrLastLeader is returned. Reading the leader count and deleting
// happen in one transaction.
func (r *TeamDB) RemoveMember(ctx context.Context, innovationID, email string) (bool, error) {
	removed := false
	err := r.db.withTx(ctx, func(tx *sql.Tx) error {
		var role string
		err := tx.QueryRowContext(ctx,
			`SELECT role FROM team_members WHERE innovation_id = ? AND member_email = ?`,
			innovationID, email,
		).Scan(&role)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("sqlite: reading role of %s: %w", email, err)
		}

		if model.ParseTeamRole(role).Leads() {
			var leaders int
			err := tx.QueryRowContext(ctx,
				`SELECT COUNT(*) FROM team_members
				 WHERE innovation_id = ? AND role IN ('leader', 'coleader')`,
				innovationID,
			).Scan(&leaders)
			if err != nil {
				return fmt.Errorf("sqlite: counting leaders of %s: %w", innovationID, err)
			}
			if leaders <= 1 {
				return apperror.LastLeader(innovationID)
			}
		}

		res, err := tx.ExecContext(ctx,
			`DELETE FROM team_members WHERE innovation_id = ? AND member_email = ?`,
			innovationID, email,
		)
		if err != nil {
			return fmt.Errorf("sqlite: removing team member %s: %w", email, err)
		}
		n, _ := res.RowsAffected()
		removed = n > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return removed, nil
}
