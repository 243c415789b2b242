package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/sakif/innovation-records/internal/apperror"
	"github.com/sakif/innovation-records/internal/authz"
	"github.com/sakif/innovation-records/internal/model"
	"github.com/sakif/innovation-records/internal/repository"
)

const (
	DefaultStaffSearchLimit = 10
	MaxStaffSearchLimit     = 50
)

// StaffService is the whitelist gate and the staff directory behind the
// member autocomplete. Only active directory entries may sign in.
type StaffService struct {
	repo   repository.StaffRepository
	users  repository.UserRepository
	authz  Authorizer
	logger *slog.Logger
}

func NewStaffService(repo repository.StaffRepository, users repository.UserRepository, az Authorizer, logger *slog.Logger) *StaffService {
	return &StaffService{repo: repo, users: users, authz: az, logger: logger}
}

// IsWhitelisted reports whether email belongs to an active directory entry.
func (s *StaffService) IsWhitelisted(ctx context.Context, email string) (bool, error) {
	st, err := s.repo.Get(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("service/staff: checking whitelist: %w", err)
	}
	return st.Active, nil
}

// Lookup returns the directory entry for email, active or not.
func (s *StaffService) Lookup(ctx context.Context, email string) (*model.Staff, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, apperror.ValidationFailed("email", "email is required")
	}
	st, err := s.repo.Get(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("service/staff: looking up %s: %w", email, err)
	}
	return st, nil
}

// Search matches active staff by email or name. A blank query returns an
// empty list rather than the whole directory.
func (s *StaffService) Search(ctx context.Context, query string, limit int) ([]model.Staff, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []model.Staff{}, nil
	}
	if limit <= 0 {
		limit = DefaultStaffSearchLimit
	}
	if limit > MaxStaffSearchLimit {
		limit = MaxStaffSearchLimit
	}

	found, err := s.repo.Search(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("service/staff: searching %q: %w", query, err)
	}
	return found, nil
}

// List pages through the whole directory. Used by the CLI.
func (s *StaffService) List(ctx context.Context, opts repository.ListOptions) ([]model.Staff, error) {
	list, err := s.repo.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("service/staff: listing: %w", err)
	}
	return list, nil
}

// Add creates or updates a directory entry on behalf of acting, who must be
// an admin.
func (s *StaffService) Add(ctx context.Context, acting string, st *model.Staff) error {
	if err := s.requireManage(ctx, acting); err != nil {
		return err
	}
	if err := s.Put(ctx, st); err != nil {
		return err
	}
	s.logger.Info("staff entry saved", slog.String("email", st.Email), slog.String("by", normalizeEmail(acting)))
	return nil
}

// Put creates or updates a directory entry without an authorization check.
// It is the path used by the operator CLI.
func (s *StaffService) Put(ctx context.Context, st *model.Staff) error {
	st.Email = normalizeEmail(st.Email)
	st.Name = strings.TrimSpace(st.Name)
	st.Dept = strings.TrimSpace(st.Dept)

	if st.Email == "" || !strings.Contains(st.Email, "@") {
		return apperror.ValidationFailed("email", "a valid email is required")
	}
	if st.Name == "" {
		return apperror.ValidationFailed("name", "name is required")
	}

	if err := s.repo.Upsert(ctx, st); err != nil {
		return fmt.Errorf("service/staff: saving %s: %w", st.Email, err)
	}
	return nil
}

// Import reads CSV rows of email,name,dept[,active] and upserts each one.
// A header row whose first cell is "email" is skipped. Import stops at the
// first invalid row and reports its line number; rows before it are kept.
func (s *StaffService) Import(ctx context.Context, r io.Reader) (int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	n := 0
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return n, fmt.Errorf("service/staff: reading CSV line %d: %w", line, err)
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(rec[0]), "email") {
			continue
		}
		if len(rec) < 3 {
			return n, apperror.ValidationFailed("csv", fmt.Sprintf("line %d: expected email,name,dept[,active]", line))
		}

		st := &model.Staff{Email: rec[0], Name: rec[1], Dept: rec[2], Active: true}
		if len(rec) > 3 && strings.TrimSpace(rec[3]) != "" {
			active, err := strconv.ParseBool(strings.TrimSpace(rec[3]))
			if err != nil {
				return n, apperror.ValidationFailed("active", fmt.Sprintf("line %d: active must be true or false", line))
			}
			st.Active = active
		}

		if err := s.Put(ctx, st); err != nil {
			return n, fmt.Errorf("line %d: %w", line, err)
		}
		n++
	}

	s.logger.Info("staff directory imported", slog.Int("rows", n))
	return n, nil
}

func (s *StaffService) requireManage(ctx context.Context, acting string) error {
	acting = normalizeEmail(acting)
	rel := authz.User
	u, err := s.users.GetByEmail(ctx, acting)
	switch {
	case err == nil && u.IsAdmin():
		rel = authz.Admin
	case err != nil && !errors.Is(err, apperror.ErrNotFound):
		return fmt.Errorf("service/staff: loading user %s: %w", acting, err)
	}

	ok, err := s.authz.Allowed([]string{rel}, authz.Staff, authz.Manage)
	if err != nil {
		return fmt.Errorf("service/staff: %w", err)
	}
	if !ok {
		return apperror.Forbidden("only administrators can edit the staff directory")
	}
	return nil
}
