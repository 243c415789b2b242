package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/innovation-records/internal/apperror"
	"github.com/sakif/innovation-records/internal/authz"
	"github.com/sakif/innovation-records/internal/model"
	"github.com/sakif/innovation-records/internal/repository"
)

// CompetitionInput is a competition entry as submitted.
type CompetitionInput struct {
	EventName        string
	Year             string
	Level            string
	Medal            string
	SpecialAward     string
	SpecialAwardName string
}

func (in *CompetitionInput) normalize() error {
	in.EventName = strings.TrimSpace(in.EventName)
	in.Year = strings.TrimSpace(in.Year)
	in.Level = strings.TrimSpace(in.Level)
	in.Medal = strings.TrimSpace(in.Medal)
	in.SpecialAwardName = strings.TrimSpace(in.SpecialAwardName)

	if in.EventName == "" {
		return apperror.ValidationFailed("eventName", "event name is required")
	}
	if in.Year == "" {
		return apperror.ValidationFailed("year", "year is required")
	}
	if in.Level == "" {
		return apperror.ValidationFailed("level", "level is required")
	}

	if strings.EqualFold(strings.TrimSpace(in.SpecialAward), "yes") {
		in.SpecialAward = "yes"
		if in.SpecialAwardName == "" {
			return apperror.ValidationFailed("specialAwardName", "special award name is required")
		}
	} else {
		in.SpecialAward = "no"
		in.SpecialAwardName = ""
	}
	return nil
}

// CompetitionService records the competitions an innovation entered.
// Anyone who can see the innovation can list and add entries; an entry can
// be deleted by whoever created it or by a roster manager.
type CompetitionService struct {
	access recordAccess
	comps  repository.CompetitionRepository
	logger *slog.Logger
}

func NewCompetitionService(
	innovations repository.InnovationRepository,
	teams repository.TeamRepository,
	comps repository.CompetitionRepository,
	az Authorizer,
	logger *slog.Logger,
) *CompetitionService {
	return &CompetitionService{
		access: recordAccess{innovations: innovations, teams: teams, authz: az},
		comps:  comps,
		logger: logger,
	}
}

// List returns the competitions of innovationID, newest first.
func (s *CompetitionService) List(ctx context.Context, innovationID, email string) ([]model.Competition, error) {
	if _, _, err := s.access.require(ctx, innovationID, normalizeEmail(email),
		authz.Competition, authz.View, "you do not have access to this innovation"); err != nil {
		return nil, err
	}
	list, err := s.comps.ListByInnovation(ctx, innovationID)
	if err != nil {
		return nil, fmt.Errorf("service/competition: listing for %s: %w", innovationID, err)
	}
	return list, nil
}

// Add records a competition entry created by email.
func (s *CompetitionService) Add(ctx context.Context, innovationID, email string, in CompetitionInput) (*model.Competition, error) {
	email = normalizeEmail(email)
	if _, _, err := s.access.require(ctx, innovationID, email,
		authz.Competition, authz.Add, "you do not have access to this innovation"); err != nil {
		return nil, err
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}

	c := &model.Competition{
		InnovationID:     innovationID,
		EventName:        in.EventName,
		Year:             in.Year,
		Level:            in.Level,
		Medal:            in.Medal,
		SpecialAward:     in.SpecialAward,
		SpecialAwardName: in.SpecialAwardName,
		CreatedByEmail:   email,
	}
	if err := s.comps.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("service/competition: adding to %s: %w", innovationID, err)
	}

	s.logger.Info("competition added",
		slog.String("innovation", innovationID),
		slog.String("id", c.ID),
		slog.String("by", email),
	)
	return c, nil
}

// Delete removes a competition entry.
func (s *CompetitionService) Delete(ctx context.Context, innovationID, email, compID string) error {
	email = normalizeEmail(email)
	_, rels, err := s.access.require(ctx, innovationID, email,
		authz.Competition, authz.View, "you do not have access to this innovation")
	if err != nil {
		return err
	}

	c, err := s.comps.GetByID(ctx, innovationID, compID)
	if err != nil {
		return err
	}
	if c.CreatedByEmail == email {
		rels = append(rels, authz.Creator)
	}

	ok, err := s.access.authz.Allowed(rels, authz.Competition, authz.Delete)
	if err != nil {
		return fmt.Errorf("service/competition: %w", err)
	}
	if !ok {
		return apperror.Forbidden("only the entry's creator or a team leader can delete it")
	}

	if err := s.comps.Delete(ctx, innovationID, compID); err != nil {
		return fmt.Errorf("service/competition: deleting %s: %w", compID, err)
	}

	s.logger.Info("competition deleted",
		slog.String("innovation", innovationID),
		slog.String("id", compID),
		slog.String("by", email),
	)
	return nil
}
