package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/aidar/teamhub/internal/domain"
	"github.com/aidar/teamhub/internal/repository"
)

// maxScoreboardSize caps the number of teams returned by Scoreboard
const maxScoreboardSize = 100

// TeamService handles team lifecycle: creation, membership changes, leadership and invite codes
type TeamService struct {
	tx       repository.Transactor
	teamRepo repository.TeamRepository
	codes    CodeGenerator
	logger   *zap.Logger

	now   func() time.Time
	newID func() string
}

// NewTeamService creates a new TeamService
func NewTeamService(tx repository.Transactor, teamRepo repository.TeamRepository, codes CodeGenerator, logger *zap.Logger) *TeamService {
	return &TeamService{
		tx:       tx,
		teamRepo: teamRepo,
		codes:    codes,
		logger:   logger.Named("teams"),
		now:      func() time.Time { return time.Now().UTC() },
		newID:    newID,
	}
}

// CreateTeam creates a team led by the actor
func (s *TeamService) CreateTeam(ctx context.Context, actorID, name, description string) (*domain.Team, error) {
	name = strings.TrimSpace(name)
	description = strings.TrimSpace(description)
	if err := domain.ValidateTeamFields(name, description); err != nil {
		return nil, err
	}

	var team *domain.Team
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		current, err := s.teamRepo.GetByMember(ctx, actorID)
		if err != nil {
			return err
		}
		if current != nil {
			return domain.ErrAlreadyOnTeam
		}

		now := s.now()
		for attempt := 0; attempt < maxCodeAttempts; attempt++ {
			code, err := s.codes.Generate()
			if err != nil {
				return err
			}
			team = &domain.Team{
				ID:          s.newID(),
				Name:        name,
				Description: description,
				LeaderID:    actorID,
				InviteCode:  code,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			err = s.teamRepo.Create(ctx, team)
			if !errors.Is(err, domain.ErrInviteCodeTaken) {
				return err
			}
		}
		return domain.ErrInviteCodeTaken
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("team created", zap.String("team_id", team.ID), zap.String("leader_id", actorID))
	return s.teamRepo.GetByID(ctx, team.ID)
}

// GetTeam returns a team; the invite code is visible to members only
func (s *TeamService) GetTeam(ctx context.Context, actorID, teamID string) (*domain.Team, error) {
	team, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if !team.HasMember(actorID) {
		return team.Public(), nil
	}
	return team, nil
}

// GetMyTeam returns the actor's team or ErrNotAMember when the actor has none
func (s *TeamService) GetMyTeam(ctx context.Context, actorID string) (*domain.Team, error) {
	team, err := s.teamRepo.GetByMember(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if team == nil {
		return nil, domain.ErrNotAMember
	}
	return team, nil
}

// GetMembers returns the TeamMember projection of a team
func (s *TeamService) GetMembers(ctx context.Context, teamID string) ([]domain.TeamMember, error) {
	return s.teamRepo.ListMembers(ctx, teamID)
}

// UpdateTeam changes name and description; leader only
func (s *TeamService) UpdateTeam(ctx context.Context, actorID, teamID, name, description string) (*domain.Team, error) {
	name = strings.TrimSpace(name)
	description = strings.TrimSpace(description)
	if err := domain.ValidateTeamFields(name, description); err != nil {
		return nil, err
	}

	var updated *domain.Team
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		team, err := s.teamRepo.GetForUpdate(ctx, teamID)
		if err != nil {
			return err
		}
		if err := requireLeader(actorID, team); err != nil {
			return err
		}
		updated, err = s.teamRepo.Update(ctx, teamID, name, description)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteTeam removes the team and its membership; leader only.
// Invitations of the team stay readable.
func (s *TeamService) DeleteTeam(ctx context.Context, actorID, teamID string) error {
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		team, err := s.teamRepo.GetForUpdate(ctx, teamID)
		if err != nil {
			return err
		}
		if err := requireLeader(actorID, team); err != nil {
			return err
		}
		return s.teamRepo.Delete(ctx, teamID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("team deleted", zap.String("team_id", teamID), zap.String("actor_id", actorID))
	return nil
}

// LeaveTeam removes the actor from the team. A leader alone on the team deletes it;
// a leader with other members must transfer leadership first.
// Returns true when the team was deleted.
func (s *TeamService) LeaveTeam(ctx context.Context, actorID, teamID string) (bool, error) {
	deleted := false
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		team, err := s.teamRepo.GetForUpdate(ctx, teamID)
		if err != nil {
			return err
		}
		if !team.HasMember(actorID) {
			return domain.ErrNotAMember
		}

		if isLeaderOf(actorID, team) {
			if team.Size() > 1 {
				return domain.ErrMustTransferLeadershipFirst
			}
			deleted = true
			return s.teamRepo.Delete(ctx, teamID)
		}
		return s.teamRepo.RemoveMember(ctx, teamID, actorID)
	})
	if err != nil {
		return false, err
	}

	s.logger.Info("member left team",
		zap.String("team_id", teamID),
		zap.String("user_id", actorID),
		zap.Bool("team_deleted", deleted),
	)
	return deleted, nil
}

// RemoveMember lets the leader remove another member
func (s *TeamService) RemoveMember(ctx context.Context, actorID, teamID, targetID string) (*domain.Team, error) {
	var team *domain.Team
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		locked, err := s.teamRepo.GetForUpdate(ctx, teamID)
		if err != nil {
			return err
		}
		if err := requireLeader(actorID, locked); err != nil {
			return err
		}
		if targetID == actorID {
			return domain.ErrCannotRemoveSelf
		}
		if !locked.HasMember(targetID) {
			return domain.ErrNotAMember
		}
		if err := s.teamRepo.RemoveMember(ctx, teamID, targetID); err != nil {
			return err
		}
		team, err = s.teamRepo.GetByID(ctx, teamID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("member removed",
		zap.String("team_id", teamID),
		zap.String("actor_id", actorID),
		zap.String("user_id", targetID),
	)
	return team, nil
}

// TransferLeadership hands the leader role to another member
func (s *TeamService) TransferLeadership(ctx context.Context, actorID, teamID, newLeaderID string) (*domain.Team, error) {
	var team *domain.Team
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		locked, err := s.teamRepo.GetForUpdate(ctx, teamID)
		if err != nil {
			return err
		}
		if err := requireLeader(actorID, locked); err != nil {
			return err
		}
		if !locked.HasMember(newLeaderID) {
			return domain.ErrNotAMember
		}
		if newLeaderID != actorID {
			if err := s.teamRepo.SetLeader(ctx, teamID, newLeaderID); err != nil {
				return err
			}
		}
		team, err = s.teamRepo.GetByID(ctx, teamID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("leadership transferred",
		zap.String("team_id", teamID),
		zap.String("from", actorID),
		zap.String("to", newLeaderID),
	)
	return team, nil
}

// RegenerateInviteCode replaces the invite code; the old one stops resolving immediately
func (s *TeamService) RegenerateInviteCode(ctx context.Context, actorID, teamID string) (*domain.Team, error) {
	var team *domain.Team
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		locked, err := s.teamRepo.GetForUpdate(ctx, teamID)
		if err != nil {
			return err
		}
		if err := requireLeader(actorID, locked); err != nil {
			return err
		}

		replaced := false
		for attempt := 0; attempt < maxCodeAttempts && !replaced; attempt++ {
			code, err := s.codes.Generate()
			if err != nil {
				return err
			}
			err = s.teamRepo.ReplaceInviteCode(ctx, teamID, code)
			switch {
			case err == nil:
				replaced = true
			case !errors.Is(err, domain.ErrInviteCodeTaken):
				return err
			}
		}
		if !replaced {
			return domain.ErrInviteCodeTaken
		}

		team, err = s.teamRepo.GetByID(ctx, teamID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("invite code regenerated", zap.String("team_id", teamID))
	return team, nil
}

// Scoreboard returns teams ordered by score, without invite codes
func (s *TeamService) Scoreboard(ctx context.Context, limit int) ([]*domain.Team, error) {
	if limit <= 0 || limit > maxScoreboardSize {
		limit = maxScoreboardSize
	}

	teams, err := s.teamRepo.ListByScore(ctx, limit)
	if err != nil {
		return nil, err
	}
	public := make([]*domain.Team, 0, len(teams))
	for _, t := range teams {
		public = append(public, t.Public())
	}
	return public, nil
}
