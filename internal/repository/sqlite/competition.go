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

var _ repository.CompetitionRepository = (*CompetitionDB)(nil)

// CompetitionDB is the competitions table.
type CompetitionDB struct {
	db *DB
}

func (db *DB) Competitions() *CompetitionDB {
	return &CompetitionDB{db: db}
}

const competitionColumns = `id, innovation_id, event_name, year, level, medal,
	special_award, special_award_name, created_by_email, created_at`

func scanCompetition(row interface{ Scan(...any) error }) (*model.Competition, error) {
	var c model.Competition
	err := row.Scan(
		&c.ID,
		&c.InnovationID,
		&c.EventName,
		&c.Year,
		&c.Level,
		&c.Medal,
		&c.SpecialAward,
		&c.SpecialAwardName,
		&c.CreatedByEmail,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CompetitionDB) Create(ctx context.Context, c *model.Competition) error {
	c.ID = xid.New().String()
	c.CreatedAt = time.Now().UTC()

	_, err := r.db.conn.ExecContext(ctx,
		`INSERT INTO competitions
		   (id, innovation_id, event_name, year, level, medal, special_award, special_award_name, created_by_email, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.InnovationID, c.EventName, c.Year, c.Level, c.Medal,
		c.SpecialAward, c.SpecialAwardName, c.CreatedByEmail, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating competition: %w", err)
	}
	return nil
}

func (r *CompetitionDB) GetByID(ctx context.Context, innovationID, id string) (*model.Competition, error) {
	c, err := scanCompetition(r.db.conn.QueryRowContext(ctx,
		`SELECT `+competitionColumns+` FROM competitions WHERE innovation_id = ? AND id = ?`,
		innovationID, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("competition", id)
		}
		return nil, fmt.Errorf("sqlite: getting competition %s: %w", id, err)
	}
	return c, nil
}

func (r *CompetitionDB) ListByInnovation(ctx context.Context, innovationID string) ([]model.Competition, error) {
	return r.ListByInnovations(ctx, []string{innovationID})
}

// ListByInnovations returns competitions for any of the given innovations,
// newest first.
func (r *CompetitionDB) ListByInnovations(ctx context.Context, innovationIDs []string) ([]model.Competition, error) {
	if len(innovationIDs) == 0 {
		return []model.Competition{}, nil
	}

	args := make([]any, len(innovationIDs))
	for i, id := range innovationIDs {
		args[i] = id
	}

	rows, err := r.db.conn.QueryContext(ctx,
		`SELECT `+competitionColumns+` FROM competitions
		 WHERE innovation_id IN (`+placeholders(len(args))+`)
		 ORDER BY created_at DESC, rowid DESC`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing competitions: %w", err)
	}
	defer rows.Close()

	out := []model.Competition{}
	for rows.Next() {
		c, err := scanCompetition(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning competition row: %w", err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating competition rows: %w", err)
	}
	return out, nil
}

func (r *CompetitionDB) Delete(ctx context.Context, innovationID, id string) error {
	res, err := r.db.conn.ExecContext(ctx,
		`DELETE FROM competitions WHERE innovation_id = ? AND id = ?`, innovationID, id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting competition %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("competition", id)
	}
	return nil
}
