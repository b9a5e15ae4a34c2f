package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aidar/teamhub/internal/domain"
)

func TestIsLeaderOf(t *testing.T) {
	team := &domain.Team{ID: "t1", LeaderID: "u1", MemberIDs: []string{"u1", "u2"}}

	assert.True(t, isLeaderOf("u1", team))
	assert.False(t, isLeaderOf("u2", team))
	assert.False(t, isLeaderOf("", team))
	assert.False(t, isLeaderOf("u1", nil))

	assert.NoError(t, requireLeader("u1", team))
	assert.ErrorIs(t, requireLeader("u2", team), domain.ErrUnauthorized)
}
