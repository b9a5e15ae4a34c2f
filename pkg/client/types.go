package client

import "time"

// Team as returned by the API. InviteCode is only present for members.
type Team struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	LeaderID    string    `json:"leader_id"`
	MemberIDs   []string  `json:"member_ids"`
	InviteCode  string    `json:"invite_code,omitempty"`
	Score       int       `json:"score"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TeamMember is one row of a team roster
type TeamMember struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	IsLeader bool   `json:"is_leader"`
}

// Invitation as returned by the API
type Invitation struct {
	ID            string    `json:"id"`
	TeamID        string    `json:"team_id"`
	TeamName      string    `json:"team_name"`
	InviterID     string    `json:"inviter_id"`
	InviteeUserID string    `json:"invitee_user_id,omitempty"`
	InviteeEmail  string    `json:"invitee_email,omitempty"`
	Status        string    `json:"status"`
	ExpiresAt     time.Time `json:"expires_at"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Invitee selects who to invite; set exactly one field
type Invitee struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
}

// User is a directory record
type User struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// Stats is the admin statistics report
type Stats struct {
	Teams       int `json:"teams"`
	Invitations struct {
		Pending   int `json:"pending"`
		Accepted  int `json:"accepted"`
		Rejected  int `json:"rejected"`
		Cancelled int `json:"cancelled"`
		Expired   int `json:"expired"`
		Total     int `json:"total"`
	} `json:"invitations"`
}
