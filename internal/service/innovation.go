package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/sakif/innovation-records/internal/apperror"
	"github.com/sakif/innovation-records/internal/authz"
	"github.com/sakif/innovation-records/internal/model"
	"github.com/sakif/innovation-records/internal/repository"
)

const (
	MaxTitleLength    = 200
	MaxFreeTextLength = 100
)

// recordAccess works out a caller's relations to an innovation and checks
// them against the permission matrix. It is shared by every service that
// acts on an innovation or its children.
type recordAccess struct {
	innovations repository.InnovationRepository
	teams       repository.TeamRepository
	authz       Authorizer
}

// relations loads the innovation and returns the caller's relations to it:
// owner and/or their roster role. A missing innovation is apperror.ErrNotFound.
func (a recordAccess) relations(ctx context.Context, id, email string) (*model.Innovation, []string, error) {
	inv, err := a.innovations.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	var rels []string
	if inv.OwnerEmail == email {
		rels = append(rels, authz.Owner)
	}

	m, err := a.teams.GetMember(ctx, id, email)
	switch {
	case err == nil:
		rels = append(rels, string(m.Role))
	case !errors.Is(err, apperror.ErrNotFound):
		return nil, nil, fmt.Errorf("loading roster entry: %w", err)
	}

	return inv, rels, nil
}

// require is relations followed by a permission check. denied is the
// message of the Forbidden error returned when the check fails.
func (a recordAccess) require(ctx context.Context, id, email, object, action, denied string) (*model.Innovation, []string, error) {
	inv, rels, err := a.relations(ctx, id, email)
	if err != nil {
		return nil, nil, err
	}
	ok, err := a.authz.Allowed(rels, object, action)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, apperror.Forbidden(denied)
	}
	return inv, rels, nil
}

// InnovationInput is the editable part of an innovation.
type InnovationInput struct {
	Title     string
	Year      string
	Category  string
	Status    string
	IPOStatus string
	IPONumber string
}

// normalize trims every field and folds the IPO pair into its canonical
// form: "yes" keeps its number, anything else becomes "no" with no number.
func (in *InnovationInput) normalize() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Year = strings.TrimSpace(in.Year)
	in.Category = strings.TrimSpace(in.Category)
	in.Status = strings.TrimSpace(in.Status)
	in.IPONumber = strings.TrimSpace(in.IPONumber)

	if in.Title == "" {
		return apperror.ValidationFailed("title", "title is required")
	}
	if len(in.Title) > MaxTitleLength {
		return apperror.ValidationFailed("title",
			fmt.Sprintf("title must be %d characters or less", MaxTitleLength))
	}
	if in.Year == "" {
		return apperror.ValidationFailed("year", "year is required")
	}
	if len(in.Category) > MaxFreeTextLength || len(in.Status) > MaxFreeTextLength {
		return apperror.ValidationFailed("category",
			fmt.Sprintf("category and status must be %d characters or less", MaxFreeTextLength))
	}

	if strings.EqualFold(strings.TrimSpace(in.IPOStatus), model.IPOYes) {
		in.IPOStatus = model.IPOYes
		if in.IPONumber == "" {
			return apperror.ValidationFailed("ipoNumber", "IPO number is required when IPO status is yes")
		}
	} else {
		in.IPOStatus = model.IPONo
		in.IPONumber = ""
	}
	return nil
}

// InnovationService manages innovation records and answers visibility
// questions about them.
type InnovationService struct {
	access recordAccess
	staff  repository.StaffRepository
	logger *slog.Logger
}

func NewInnovationService(
	innovations repository.InnovationRepository,
	teams repository.TeamRepository,
	staff repository.StaffRepository,
	az Authorizer,
	logger *slog.Logger,
) *InnovationService {
	return &InnovationService{
		access: recordAccess{innovations: innovations, teams: teams, authz: az},
		staff:  staff,
		logger: logger,
	}
}

// Create stores a new innovation owned by email and enrolls the creator as
// its leader in the same transaction.
func (s *InnovationService) Create(ctx context.Context, email string, in InnovationInput) (*model.Innovation, error) {
	email = normalizeEmail(email)
	if err := in.normalize(); err != nil {
		return nil, err
	}

	inv := &model.Innovation{
		Title:      in.Title,
		Year:       in.Year,
		Category:   in.Category,
		Status:     in.Status,
		IPOStatus:  in.IPOStatus,
		IPONumber:  in.IPONumber,
		OwnerEmail: email,
	}
	leader := &model.TeamMember{
		MemberEmail:  email,
		Role:         model.TeamRoleLeader,
		AddedByEmail: email,
	}
	if st, err := s.staff.Get(ctx, email); err == nil {
		leader.MemberName = st.Name
		leader.MemberDept = st.Dept
	}

	if err := s.access.innovations.CreateWithLeader(ctx, inv, leader); err != nil {
		return nil, fmt.Errorf("service/innovation: creating %q: %w", in.Title, err)
	}

	s.logger.Info("innovation created",
		slog.String("id", inv.ID),
		slog.String("owner", email),
	)
	return inv, nil
}

// ListVisible returns every innovation email owns or is on the roster of,
// each once, newest first. Records created in the same instant keep their
// insertion order.
func (s *InnovationService) ListVisible(ctx context.Context, email string) ([]model.Innovation, error) {
	email = normalizeEmail(email)

	owned, err := s.access.innovations.ListByOwner(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("service/innovation: listing owned by %s: %w", email, err)
	}
	joined, err := s.access.innovations.ListByMember(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("service/innovation: listing joined by %s: %w", email, err)
	}

	seen := make(map[string]bool, len(owned)+len(joined))
	visible := make([]model.Innovation, 0, len(owned)+len(joined))
	for _, list := range [][]model.Innovation{owned, joined} {
		for _, inv := range list {
			if seen[inv.ID] {
				continue
			}
			seen[inv.ID] = true
			visible = append(visible, inv)
		}
	}

	slices.SortStableFunc(visible, func(a, b model.Innovation) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Seq, b.Seq)
	})
	return visible, nil
}

// GetVisible returns the innovation if email can see it. A missing record
// is apperror.ErrNotFound; an existing but invisible one is ErrForbidden.
func (s *InnovationService) GetVisible(ctx context.Context, email, id string) (*model.Innovation, error) {
	inv, _, err := s.access.require(ctx, id, normalizeEmail(email),
		authz.Innovation, authz.View, "you do not have access to this innovation")
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// CanManageRoster reports whether email may change the roster of id: the
// owner, a leader or a co-leader. A missing record is apperror.ErrNotFound.
func (s *InnovationService) CanManageRoster(ctx context.Context, id, email string) (bool, error) {
	_, rels, err := s.access.relations(ctx, id, normalizeEmail(email))
	if err != nil {
		return false, err
	}
	return s.access.authz.Allowed(rels, authz.Roster, authz.Manage)
}

// Update replaces the editable fields. The owner and roster managers may
// update; the owner itself never changes.
func (s *InnovationService) Update(ctx context.Context, email, id string, in InnovationInput) (*model.Innovation, error) {
	email = normalizeEmail(email)
	inv, _, err := s.access.require(ctx, id, email,
		authz.Innovation, authz.Update, "only the owner or a team leader can edit this innovation")
	if err != nil {
		return nil, err
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}

	inv.Title = in.Title
	inv.Year = in.Year
	inv.Category = in.Category
	inv.Status = in.Status
	inv.IPOStatus = in.IPOStatus
	inv.IPONumber = in.IPONumber

	if err := s.access.innovations.Update(ctx, inv); err != nil {
		return nil, fmt.Errorf("service/innovation: updating %s: %w", id, err)
	}

	s.logger.Info("innovation updated", slog.String("id", id), slog.String("by", email))
	return inv, nil
}

// Delete removes the innovation with its roster and competitions. Only the
// owner may delete.
func (s *InnovationService) Delete(ctx context.Context, email, id string) error {
	email = normalizeEmail(email)
	if _, _, err := s.access.require(ctx, id, email,
		authz.Innovation, authz.Delete, "only the owner can delete this innovation"); err != nil {
		return err
	}

	if err := s.access.innovations.Delete(ctx, id); err != nil {
		return fmt.Errorf("service/innovation: deleting %s: %w", id, err)
	}

	s.logger.Info("innovation deleted", slog.String("id", id), slog.String("by", email))
	return nil
}
