package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/innovation-records/internal/apperror"
	"github.com/sakif/innovation-records/internal/authz"
	"github.com/sakif/innovation-records/internal/metrics"
	"github.com/sakif/innovation-records/internal/model"
	"github.com/sakif/innovation-records/internal/repository"
)

const rosterDenied = "only the owner, leader or co-leader can change the team"

// TeamService manages innovation rosters.
//
// Mutations on one innovation are serialised by a per-innovation lock, and
// the store runs the last-leader check in the same transaction as the
// delete, so two concurrent removals can never leave a roster leaderless.
type TeamService struct {
	access recordAccess
	staff  repository.StaffRepository
	locks  *keyedMutex
	logger *slog.Logger
}

func NewTeamService(
	innovations repository.InnovationRepository,
	teams repository.TeamRepository,
	staff repository.StaffRepository,
	az Authorizer,
	logger *slog.Logger,
) *TeamService {
	return &TeamService{
		access: recordAccess{innovations: innovations, teams: teams, authz: az},
		staff:  staff,
		locks:  newKeyedMutex(),
		logger: logger,
	}
}

// AddMemberInput is a roster entry as submitted. Role is free text and is
// normalised with model.ParseTeamRole.
type AddMemberInput struct {
	Email string
	Name  string
	Dept  string
	Role  string
}

// AddMemberResult reports the stored entry and whether the member is an
// active staff directory entry.
type AddMemberResult struct {
	Member      *model.TeamMember
	InWhitelist bool
}

// AddMember appends a member to the roster of innovationID.
//
// Checks run in order: the innovation exists, acting may manage the roster,
// the member is valid, the member is not already on the roster. Directory
// members get a blank name or department filled in from the directory;
// members outside it must supply both.
func (s *TeamService) AddMember(ctx context.Context, innovationID, acting string, in AddMemberInput) (*AddMemberResult, error) {
	acting = normalizeEmail(acting)
	unlock := s.locks.Lock(innovationID)
	defer unlock()

	if _, _, err := s.access.require(ctx, innovationID, acting, authz.Roster, authz.Manage, rosterDenied); err != nil {
		s.count("add", err)
		return nil, err
	}

	m := &model.TeamMember{
		InnovationID: innovationID,
		MemberEmail:  normalizeEmail(in.Email),
		MemberName:   strings.TrimSpace(in.Name),
		MemberDept:   strings.TrimSpace(in.Dept),
		Role:         model.ParseTeamRole(in.Role),
		AddedByEmail: acting,
	}
	if m.MemberEmail == "" || !strings.Contains(m.MemberEmail, "@") {
		return nil, s.reject("add", apperror.ValidationFailed("memberEmail", "a valid member email is required"))
	}

	inWhitelist := false
	st, err := s.staff.Get(ctx, m.MemberEmail)
	switch {
	case err == nil:
		inWhitelist = st.Active
		if m.MemberName == "" {
			m.MemberName = st.Name
		}
		if m.MemberDept == "" {
			m.MemberDept = st.Dept
		}
	case !errors.Is(err, apperror.ErrNotFound):
		return nil, s.reject("add", fmt.Errorf("service/team: looking up %s: %w", m.MemberEmail, err))
	}

	if !inWhitelist {
		if m.MemberName == "" {
			return nil, s.reject("add", apperror.ValidationFailed("memberName", "name is required for members outside the staff directory"))
		}
		if m.MemberDept == "" {
			return nil, s.reject("add", apperror.ValidationFailed("memberDept", "department is required for members outside the staff directory"))
		}
	}

	if err := s.access.teams.AddMember(ctx, m); err != nil {
		s.count("add", err)
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("service/team: adding %s to %s: %w", m.MemberEmail, innovationID, err)
	}
	s.count("add", nil)

	s.logger.Info("team member added",
		slog.String("innovation", innovationID),
		slog.String("member", m.MemberEmail),
		slog.String("role", string(m.Role)),
		slog.String("by", acting),
	)
	return &AddMemberResult{Member: m, InWhitelist: inWhitelist}, nil
}

// RemoveMember takes memberEmail off the roster. It returns false when the
// member was not on it, and apperror.ErrLastLeader when the member is the
// roster's only leader or co-leader.
func (s *TeamService) RemoveMember(ctx context.Context, innovationID, acting, memberEmail string) (bool, error) {
	acting = normalizeEmail(acting)
	unlock := s.locks.Lock(innovationID)
	defer unlock()

	if _, _, err := s.access.require(ctx, innovationID, acting, authz.Roster, authz.Manage, rosterDenied); err != nil {
		s.count("remove", err)
		return false, err
	}
	return s.remove(ctx, innovationID, acting, normalizeEmail(memberEmail))
}

// RemoveMemberByID is RemoveMember addressed by roster entry id.
func (s *TeamService) RemoveMemberByID(ctx context.Context, innovationID, acting, entryID string) (bool, error) {
	acting = normalizeEmail(acting)
	unlock := s.locks.Lock(innovationID)
	defer unlock()

	if _, _, err := s.access.require(ctx, innovationID, acting, authz.Roster, authz.Manage, rosterDenied); err != nil {
		s.count("remove", err)
		return false, err
	}

	m, err := s.access.teams.GetMemberByID(ctx, innovationID, entryID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("service/team: loading entry %s: %w", entryID, err)
	}
	return s.remove(ctx, innovationID, acting, m.MemberEmail)
}

func (s *TeamService) remove(ctx context.Context, innovationID, acting, memberEmail string) (bool, error) {
	removed, err := s.access.teams.RemoveMember(ctx, innovationID, memberEmail)
	s.count("remove", err)
	if err != nil {
		if errors.Is(err, apperror.ErrLastLeader) {
			return false, err
		}
		return false, fmt.Errorf("service/team: removing %s from %s: %w", memberEmail, innovationID, err)
	}

	if removed {
		s.logger.Info("team member removed",
			slog.String("innovation", innovationID),
			slog.String("member", memberEmail),
			slog.String("by", acting),
		)
	}
	return removed, nil
}

// ListTeam returns the roster of an innovation email can see.
func (s *TeamService) ListTeam(ctx context.Context, innovationID, email string) ([]model.TeamMember, error) {
	if _, _, err := s.access.require(ctx, innovationID, normalizeEmail(email),
		authz.Roster, authz.View, "you do not have access to this innovation"); err != nil {
		return nil, err
	}
	members, err := s.access.teams.ListMembers(ctx, innovationID)
	if err != nil {
		return nil, fmt.Errorf("service/team: listing %s: %w", innovationID, err)
	}
	return members, nil
}

// reject counts err against op and returns it.
func (s *TeamService) reject(op string, err error) error {
	s.count(op, err)
	return err
}

func (s *TeamService) count(op string, err error) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, apperror.ErrForbidden):
		result = "forbidden"
	case errors.Is(err, apperror.ErrNotFound):
		result = "not_found"
	case errors.Is(err, apperror.ErrConflict):
		result = "conflict"
	case errors.Is(err, apperror.ErrLastLeader):
		result = "last_leader"
	case errors.Is(err, apperror.ErrValidation):
		result = "invalid"
	default:
		result = "error"
	}
	metrics.RosterOpsTotal.WithLabelValues(op, result).Inc()
}
