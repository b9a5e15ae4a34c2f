package client

import (
	"context"
	"sync"
)

// TeamCache holds the caller's view of their team. Every mutating method
// performs the API call and then refetches, so readers never see a stale
// roster after a local action.
type TeamCache struct {
	client *Client

	mu          sync.RWMutex
	team        *Team
	members     []TeamMember
	invitations []*Invitation
}

// NewTeamCache creates an empty cache; call Refresh to populate it
func NewTeamCache(c *Client) *TeamCache {
	return &TeamCache{client: c}
}

// Refresh refetches the caller's team, its roster and the caller's pending invitations
func (tc *TeamCache) Refresh(ctx context.Context) error {
	team, err := tc.client.MyTeam(ctx)
	if err != nil {
		return err
	}

	var members []TeamMember
	if team != nil {
		members, err = tc.client.Members(ctx, team.ID)
		if err != nil {
			return err
		}
	}

	invitations, err := tc.client.MyInvitations(ctx)
	if err != nil {
		return err
	}

	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.team = team
	tc.members = members
	tc.invitations = invitations
	return nil
}

// Team returns the cached team or nil
func (tc *TeamCache) Team() *Team {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	if tc.team == nil {
		return nil
	}
	cp := *tc.team
	cp.MemberIDs = append([]string(nil), tc.team.MemberIDs...)
	return &cp
}

// Members returns the cached roster
func (tc *TeamCache) Members() []TeamMember {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return append([]TeamMember(nil), tc.members...)
}

// Invitations returns the cached pending invitations
func (tc *TeamCache) Invitations() []*Invitation {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return append([]*Invitation(nil), tc.invitations...)
}

// IsLeader reports whether userID leads the cached team
func (tc *TeamCache) IsLeader(userID string) bool {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.team != nil && tc.team.LeaderID == userID
}

// teamID returns the cached team id or a NOT_A_MEMBER error
func (tc *TeamCache) teamID() (string, error) {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	if tc.team == nil {
		return "", &APIError{Code: CodeNotAMember, Message: "no team cached"}
	}
	return tc.team.ID, nil
}

func (tc *TeamCache) mutate(ctx context.Context, call func() error) error {
	if err := call(); err != nil {
		return err
	}
	return tc.Refresh(ctx)
}

// CreateTeam creates a team and refreshes
func (tc *TeamCache) CreateTeam(ctx context.Context, name, description string) error {
	return tc.mutate(ctx, func() error {
		_, err := tc.client.CreateTeam(ctx, name, description)
		return err
	})
}

// UpdateTeam edits the cached team and refreshes
func (tc *TeamCache) UpdateTeam(ctx context.Context, name, description string) error {
	id, err := tc.teamID()
	if err != nil {
		return err
	}
	return tc.mutate(ctx, func() error {
		_, err := tc.client.UpdateTeam(ctx, id, name, description)
		return err
	})
}

// DeleteTeam deletes the cached team and refreshes
func (tc *TeamCache) DeleteTeam(ctx context.Context) error {
	id, err := tc.teamID()
	if err != nil {
		return err
	}
	return tc.mutate(ctx, func() error { return tc.client.DeleteTeam(ctx, id) })
}

// Leave leaves the cached team and refreshes
func (tc *TeamCache) Leave(ctx context.Context) error {
	id, err := tc.teamID()
	if err != nil {
		return err
	}
	return tc.mutate(ctx, func() error { return tc.client.LeaveTeam(ctx, id) })
}

// RemoveMember removes a member of the cached team and refreshes
func (tc *TeamCache) RemoveMember(ctx context.Context, userID string) error {
	id, err := tc.teamID()
	if err != nil {
		return err
	}
	return tc.mutate(ctx, func() error {
		_, err := tc.client.RemoveMember(ctx, id, userID)
		return err
	})
}

// TransferLeadership hands over leadership of the cached team and refreshes
func (tc *TeamCache) TransferLeadership(ctx context.Context, userID string) error {
	id, err := tc.teamID()
	if err != nil {
		return err
	}
	return tc.mutate(ctx, func() error {
		_, err := tc.client.TransferLeadership(ctx, id, userID)
		return err
	})
}

// RegenerateInviteCode replaces the cached team's invite code and refreshes
func (tc *TeamCache) RegenerateInviteCode(ctx context.Context) error {
	id, err := tc.teamID()
	if err != nil {
		return err
	}
	return tc.mutate(ctx, func() error {
		_, err := tc.client.RegenerateInviteCode(ctx, id)
		return err
	})
}

// Invite invites someone to the cached team and refreshes
func (tc *TeamCache) Invite(ctx context.Context, invitee Invitee) (*Invitation, error) {
	id, err := tc.teamID()
	if err != nil {
		return nil, err
	}
	var inv *Invitation
	err = tc.mutate(ctx, func() error {
		var err error
		inv, err = tc.client.Invite(ctx, id, invitee)
		return err
	})
	return inv, err
}

// Cancel withdraws an invitation of the cached team and refreshes
func (tc *TeamCache) Cancel(ctx context.Context, invitationID string) error {
	id, err := tc.teamID()
	if err != nil {
		return err
	}
	return tc.mutate(ctx, func() error {
		_, err := tc.client.Cancel(ctx, id, invitationID)
		return err
	})
}

// Accept accepts an invitation and refreshes
func (tc *TeamCache) Accept(ctx context.Context, invitationID string) error {
	return tc.mutate(ctx, func() error {
		_, err := tc.client.Accept(ctx, invitationID)
		return err
	})
}

// Reject rejects an invitation and refreshes
func (tc *TeamCache) Reject(ctx context.Context, invitationID string) error {
	return tc.mutate(ctx, func() error {
		_, err := tc.client.Reject(ctx, invitationID)
		return err
	})
}

// JoinByCode joins a team by invite code and refreshes
func (tc *TeamCache) JoinByCode(ctx context.Context, code string) error {
	return tc.mutate(ctx, func() error {
		_, err := tc.client.JoinByCode(ctx, code)
		return err
	})
}
