// Package repository declares the storage interfaces the services depend on.
// internal/repository/sqlite is the only production implementation.
package repository

import (
	"context"
	"time"

	"github.com/sakif/innovation-records/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

type UserRepository interface {
	// Upsert creates the user with RoleUser on first sight. An existing role
	// is never lowered; promote raises it to RoleAdmin.
	Upsert(ctx context.Context, email string, promote bool) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}

// SessionRepository stores sessions keyed by the digest of their token.
type SessionRepository interface {
	Create(ctx context.Context, digest string, s *model.Session) error
	GetByDigest(ctx context.Context, digest string) (*model.Session, error)
	// Touch is a no-op when the digest is unknown.
	Touch(ctx context.Context, digest string, at time.Time) error
	Delete(ctx context.Context, digest string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type StaffRepository interface {
	Get(ctx context.Context, email string) (*model.Staff, error)
	Search(ctx context.Context, query string, limit int) ([]model.Staff, error)
	List(ctx context.Context, opts ListOptions) ([]model.Staff, error)
	Upsert(ctx context.Context, s *model.Staff) error
}

type InnovationRepository interface {
	// CreateWithLeader inserts the innovation and its first roster entry in
	// one transaction.
	CreateWithLeader(ctx context.Context, inv *model.Innovation, leader *model.TeamMember) error
	GetByID(ctx context.Context, id string) (*model.Innovation, error)
	ListByOwner(ctx context.Context, email string) ([]model.Innovation, error)
	ListByMember(ctx context.Context, email string) ([]model.Innovation, error)
	Update(ctx context.Context, inv *model.Innovation) error
	// Delete removes the innovation together with its roster and competitions.
	Delete(ctx context.Context, id string) error
}

type TeamRepository interface {
	AddMember(ctx context.Context, m *model.TeamMember) error
	GetMember(ctx context.Context, innovationID, email string) (*model.TeamMember, error)
	GetMemberByID(ctx context.Context, innovationID, entryID string) (*model.TeamMember, error)
	ListMembers(ctx context.Context, innovationID string) ([]model.TeamMember, error)
	// RemoveMember deletes the roster row unless it is the last leader or
	// co-leader, in which case it returns apperror.ErrLastLeader. The check
	// and the delete run in the same transaction.
	RemoveMember(ctx context.Context, innovationID, email string) (bool, error)
}

type CompetitionRepository interface {
	Create(ctx context.Context, c *model.Competition) error
	GetByID(ctx context.Context, innovationID, id string) (*model.Competition, error)
	ListByInnovation(ctx context.Context, innovationID string) ([]model.Competition, error)
	ListByInnovations(ctx context.Context, innovationIDs []string) ([]model.Competition, error)
	Delete(ctx context.Context, innovationID, id string) error
}
