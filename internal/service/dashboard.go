package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sakif/innovation-records/internal/model"
	"github.com/sakif/innovation-records/internal/repository"
)

// DashboardService summarises what a user can see.
type DashboardService struct {
	innovations *InnovationService
	comps       repository.CompetitionRepository
}

func NewDashboardService(innovations *InnovationService, comps repository.CompetitionRepository) *DashboardService {
	return &DashboardService{innovations: innovations, comps: comps}
}

// Stats counts the innovations visible to email whose year is year, and the
// competitions on any visible innovation held in that year. A blank year
// counts every year. Medal keys are upper-cased; blank medals and levels
// are not counted.
func (s *DashboardService) Stats(ctx context.Context, email, year string) (*model.DashboardStats, error) {
	year = strings.TrimSpace(year)

	visible, err := s.innovations.ListVisible(ctx, email)
	if err != nil {
		return nil, err
	}

	stats := &model.DashboardStats{
		Year:        year,
		MedalCounts: make(map[string]int),
		LevelCounts: make(map[string]int),
	}

	ids := make([]string, 0, len(visible))
	for _, inv := range visible {
		ids = append(ids, inv.ID)
		if year == "" || inv.Year == year {
			stats.TotalInnovations++
		}
	}
	if len(ids) == 0 {
		return stats, nil
	}

	comps, err := s.comps.ListByInnovations(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("service/dashboard: listing competitions: %w", err)
	}
	for _, c := range comps {
		if year != "" && c.Year != year {
			continue
		}
		stats.TotalCompetitions++
		if medal := strings.ToUpper(strings.TrimSpace(c.Medal)); medal != "" {
			stats.MedalCounts[medal]++
		}
		if level := strings.TrimSpace(c.Level); level != "" {
			stats.LevelCounts[level]++
		}
	}
	return stats, nil
}
