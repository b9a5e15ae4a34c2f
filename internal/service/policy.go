package service

import (
	"net/url"
	"time"

	"github.com/aidar/teamhub/internal/domain"
)

// Policy holds the tunable team and invitation rules
type Policy struct {
	// MaxTeamSize caps team membership; 0 means unbounded
	MaxTeamSize int
	// InvitationTTL is how long an invitation stays acceptable
	InvitationTTL time.Duration
	// InviteLinkBase is the URL prefix used in invitation emails
	InviteLinkBase string
}

// DefaultPolicy returns the rules used when nothing is configured
func DefaultPolicy() Policy {
	return Policy{
		MaxTeamSize:   4,
		InvitationTTL: 7 * 24 * time.Hour,
	}
}

func (p Policy) isFull(team *domain.Team) bool {
	return p.MaxTeamSize > 0 && team.Size() >= p.MaxTeamSize
}

func (p Policy) inviteLink(invitationID string) string {
	if p.InviteLinkBase == "" {
		return invitationID
	}
	link, err := url.JoinPath(p.InviteLinkBase, invitationID)
	if err != nil {
		return p.InviteLinkBase + "/" + invitationID
	}
	return link
}
