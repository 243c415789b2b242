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

var _ repository.InnovationRepository = (*InnovationDB)(nil)

// InnovationDB is the innovations table.
type InnovationDB struct {
	db *DB
}

func (db *DB) Innovations() *InnovationDB {
	return &InnovationDB{db: db}
}

const innovationColumns = `i.rowid, i.id, i.title, i.year, i.category, i.status,
	i.ipo_status, i.ipo_number, i.owner_email, i.created_at, i.updated_at`

func scanInnovation(row interface{ Scan(...any) error }) (*model.Innovation, error) {
	var inv model.Innovation
	err := row.Scan(
		&inv.Seq,
		&inv.ID,
		&inv.Title,
		&inv.Year,
		&inv.Category,
		&inv.Status,
		&inv.IPOStatus,
		&inv.IPONumber,
		&inv.OwnerEmail,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// CreateWithLeader inserts inv and the roster entry for its creator in one
// transaction, so an innovation is never observable without a leader.
// IDs and timestamps are assigned here.
func (r *InnovationDB) CreateWithLeader(ctx context.Context, inv *model.Innovation, leader *model.TeamMember) error {
	now := time.Now().UTC()
	inv.ID = xid.New().String()
	inv.CreatedAt = now
	inv.UpdatedAt = now

	leader.ID = xid.New().String()
	leader.InnovationID = inv.ID
	leader.AddedAt = now

	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO innovations
			   (id, title, year, category, status, ipo_status, ipo_number, owner_email, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			inv.ID, inv.Title, inv.Year, inv.Category, inv.Status,
			inv.IPOStatus, inv.IPONumber, inv.OwnerEmail, inv.CreatedAt, inv.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("sqlite: creating innovation: %w", err)
		}
		if seq, err := res.LastInsertId(); err == nil {
			inv.Seq = seq
		}

		if err := insertTeamMember(ctx, tx, leader); err != nil {
			return err
		}
		return nil
	})
}

// GetByID returns apperror.ErrNotFound if the innovation does not exist.
func (r *InnovationDB) GetByID(ctx context.Context, id string) (*model.Innovation, error) {
	inv, err := scanInnovation(r.db.conn.QueryRowContext(ctx,
		`SELECT `+innovationColumns+` FROM innovations i WHERE i.id = ?`, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("innovation", id)
		}
		return nil, fmt.Errorf("sqlite: getting innovation %s: %w", id, err)
	}
	return inv, nil
}

// ListByOwner returns the innovations owned by email in insertion order.
func (r *InnovationDB) ListByOwner(ctx context.Context, email string) ([]model.Innovation, error) {
	rows, err := r.db.conn.QueryContext(ctx,
		`SELECT `+innovationColumns+` FROM innovations i
		 WHERE i.owner_email = ?
		 ORDER BY i.rowid`,
		email,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing innovations owned by %s: %w", email, err)
	}
	return collectInnovations(rows)
}

// ListByMember returns the innovations whose roster contains email, in
// insertion order.
func (r *InnovationDB) ListByMember(ctx context.Context, email string) ([]model.Innovation, error) {
	rows, err := r.db.conn.QueryContext(ctx,
		`SELECT `+innovationColumns+` FROM innovations i
		 JOIN team_members t ON t.innovation_id = i.id
		 WHERE t.member_email = ?
		 ORDER BY i.rowid`,
		email,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing innovations for member %s: %w", email, err)
	}
	return collectInnovations(rows)
}

// Update writes the mutable fields. OwnerEmail and CreatedAt are never
// changed here.
func (r *InnovationDB) Update(ctx context.Context, inv *model.Innovation) error {
	inv.UpdatedAt = time.Now().UTC()

	res, err := r.db.conn.ExecContext(ctx,
		`UPDATE innovations
		 SET title = ?, year = ?, category = ?, status = ?, ipo_status = ?, ipo_number = ?, updated_at = ?
		 WHERE id = ?`,
		inv.Title, inv.Year, inv.Category, inv.Status, inv.IPOStatus, inv.IPONumber, inv.UpdatedAt,
		inv.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating innovation %s: %w", inv.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("innovation", inv.ID)
	}
	return nil
}

// Delete removes the innovation, its roster and its competitions together.
func (r *InnovationDB) Delete(ctx context.Context, id string) error {
	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM innovations WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("sqlite: deleting innovation %s: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return apperror.NotFound("innovation", id)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM team_members WHERE innovation_id = ?`, id); err != nil {
			return fmt.Errorf("sqlite: deleting roster of %s: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM competitions WHERE innovation_id = ?`, id); err != nil {
			return fmt.Errorf("sqlite: deleting competitions of %s: %w", id, err)
		}
		return nil
	})
}

func collectInnovations(rows *sql.Rows) ([]model.Innovation, error) {
	defer rows.Close()

	out := []model.Innovation{}
	for rows.Next() {
		inv, err := scanInnovation(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning innovation row: %w", err)
		}
		out = append(out, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating innovation rows: %w", err)
	}
	return out, nil
}
