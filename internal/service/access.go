package service

import "github.com/aidar/teamhub/internal/domain"

// isLeaderOf is the single authorization predicate for leader-gated operations.
func isLeaderOf(actorID string, team *domain.Team) bool {
	return team != nil && actorID != "" && team.LeaderID == actorID
}

func requireLeader(actorID string, team *domain.Team) error {
	if !isLeaderOf(actorID, team) {
		return domain.ErrUnauthorized
	}
	return nil
}
