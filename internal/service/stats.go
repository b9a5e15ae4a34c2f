package service

import (
	"context"

	"github.com/aidar/teamhub/internal/domain"
	"github.com/aidar/teamhub/internal/repository"
)

// InvitationStats represents invitation counts by status
type InvitationStats struct {
	Pending   int `json:"pending"`
	Accepted  int `json:"accepted"`
	Rejected  int `json:"rejected"`
	Cancelled int `json:"cancelled"`
	Expired   int `json:"expired"`
	Total     int `json:"total"`
}

// Stats represents combined statistics
type Stats struct {
	Teams       int             `json:"teams"`
	Invitations InvitationStats `json:"invitations"`
}

// StatsService handles statistics queries
type StatsService struct {
	teamRepo repository.TeamRepository
	invRepo  repository.InvitationRepository
}

// NewStatsService creates a new StatsService
func NewStatsService(teamRepo repository.TeamRepository, invRepo repository.InvitationRepository) *StatsService {
	return &StatsService{teamRepo: teamRepo, invRepo: invRepo}
}

// GetStats returns overall statistics
func (s *StatsService) GetStats(ctx context.Context) (*Stats, error) {
	teams, err := s.teamRepo.Count(ctx)
	if err != nil {
		return nil, err
	}

	counts, err := s.invRepo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		Teams: teams,
		Invitations: InvitationStats{
			Pending:   counts[domain.InvitationPending],
			Accepted:  counts[domain.InvitationAccepted],
			Rejected:  counts[domain.InvitationRejected],
			Cancelled: counts[domain.InvitationCancelled],
			Expired:   counts[domain.InvitationExpired],
		},
	}
	for _, n := range counts {
		stats.Invitations.Total += n
	}

	return stats, nil
}
