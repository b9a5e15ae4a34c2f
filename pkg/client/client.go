// Package client is a typed Go client for the teamhub REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	defaultMaxRetries  = 4
	serviceTokenHeader = "X-Service-Token"
)

// Client talks to the teamhub API. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxRetries uint64
	newBackOff func() backoff.BackOff

	serviceToken string

	mu    sync.RWMutex
	token string
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithToken sets the bearer token
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithServiceToken sets the shared secret required by directory sync calls
func WithServiceToken(token string) Option {
	return func(c *Client) { c.serviceToken = token }
}

// WithMaxRetries sets how many times transient failures are retried
func WithMaxRetries(n uint64) Option {
	return func(c *Client) { c.maxRetries = n }
}

// WithBackOff replaces the retry schedule
func WithBackOff(newBackOff func() backoff.BackOff) Option {
	return func(c *Client) { c.newBackOff = newBackOff }
}

// New creates a client for the API at baseURL
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		maxRetries: defaultMaxRetries,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 100 * time.Millisecond
			b.MaxElapsedTime = 5 * time.Second
			return b
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token returns the current bearer token
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetToken replaces the bearer token
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Login obtains a token for userID and stores it in the client
func (c *Client) Login(ctx context.Context, userID string) (string, error) {
	var resp struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/login", map[string]string{"user_id": userID}, &resp); err != nil {
		return "", err
	}
	c.SetToken(resp.Token)
	return resp.Token, nil
}

// UpsertUser creates or updates a directory record
func (c *Client) UpsertUser(ctx context.Context, user User) (*User, error) {
	var resp struct {
		User *User `json:"user"`
	}
	header := http.Header{serviceTokenHeader: []string{c.serviceToken}}
	if err := c.doWithHeader(ctx, http.MethodPost, "/users/upsert", user, &resp, header); err != nil {
		return nil, err
	}
	return resp.User, nil
}

// CreateTeam creates a team led by the caller
func (c *Client) CreateTeam(ctx context.Context, name, description string) (*Team, error) {
	return c.teamCall(ctx, http.MethodPost, "/teams", map[string]string{"name": name, "description": description})
}

// MyTeam returns the caller's team, or nil when the caller has none
func (c *Client) MyTeam(ctx context.Context) (*Team, error) {
	team, err := c.teamCall(ctx, http.MethodGet, "/teams/me", nil)
	if IsCode(err, CodeNotAMember) {
		return nil, nil
	}
	return team, err
}

// GetTeam returns a team by id
func (c *Client) GetTeam(ctx context.Context, teamID string) (*Team, error) {
	return c.teamCall(ctx, http.MethodGet, "/teams/"+url.PathEscape(teamID), nil)
}

// Members returns the team roster
func (c *Client) Members(ctx context.Context, teamID string) ([]TeamMember, error) {
	var resp struct {
		Members []TeamMember `json:"members"`
	}
	if err := c.do(ctx, http.MethodGet, "/teams/"+url.PathEscape(teamID)+"/members", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Members, nil
}

// UpdateTeam changes the team name and description
func (c *Client) UpdateTeam(ctx context.Context, teamID, name, description string) (*Team, error) {
	return c.teamCall(ctx, http.MethodPatch, "/teams/"+url.PathEscape(teamID), map[string]string{"name": name, "description": description})
}

// DeleteTeam deletes the team
func (c *Client) DeleteTeam(ctx context.Context, teamID string) error {
	return c.do(ctx, http.MethodDelete, "/teams/"+url.PathEscape(teamID), nil, nil)
}

// LeaveTeam removes the caller from the team
func (c *Client) LeaveTeam(ctx context.Context, teamID string) error {
	return c.do(ctx, http.MethodPost, "/teams/"+url.PathEscape(teamID)+"/leave", nil, nil)
}

// RemoveMember removes another member from the team
func (c *Client) RemoveMember(ctx context.Context, teamID, userID string) (*Team, error) {
	return c.teamCall(ctx, http.MethodDelete, "/teams/"+url.PathEscape(teamID)+"/members/"+url.PathEscape(userID), nil)
}

// TransferLeadership hands the leader role to another member
func (c *Client) TransferLeadership(ctx context.Context, teamID, userID string) (*Team, error) {
	return c.teamCall(ctx, http.MethodPost, "/teams/"+url.PathEscape(teamID)+"/leader", map[string]string{"user_id": userID})
}

// RegenerateInviteCode replaces the team invite code
func (c *Client) RegenerateInviteCode(ctx context.Context, teamID string) (*Team, error) {
	return c.teamCall(ctx, http.MethodPost, "/teams/"+url.PathEscape(teamID)+"/invite-code", nil)
}

// JoinByCode joins the team owning the invite code
func (c *Client) JoinByCode(ctx context.Context, code string) (*Team, error) {
	return c.teamCall(ctx, http.MethodPost, "/teams/join", map[string]string{"invite_code": code})
}

// Scoreboard lists teams by score; limit 0 uses the server default
func (c *Client) Scoreboard(ctx context.Context, limit int) ([]*Team, error) {
	path := "/teams/scoreboard"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var resp struct {
		Teams []*Team `json:"teams"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Teams, nil
}

// Invite invites a user by username or email
func (c *Client) Invite(ctx context.Context, teamID string, invitee Invitee) (*Invitation, error) {
	return c.invitationCall(ctx, http.MethodPost, "/teams/"+url.PathEscape(teamID)+"/invitations", invitee)
}

// TeamInvitations lists the team's pending invitations
func (c *Client) TeamInvitations(ctx context.Context, teamID string) ([]*Invitation, error) {
	return c.invitationsCall(ctx, "/teams/"+url.PathEscape(teamID)+"/invitations")
}

// MyInvitations lists invitations addressed to the caller
func (c *Client) MyInvitations(ctx context.Context) ([]*Invitation, error) {
	return c.invitationsCall(ctx, "/invitations")
}

// GetInvitation returns one invitation
func (c *Client) GetInvitation(ctx context.Context, invitationID string) (*Invitation, error) {
	return c.invitationCall(ctx, http.MethodGet, "/invitations/"+url.PathEscape(invitationID), nil)
}

// Accept accepts an invitation. Transient failures are retried; if an earlier
// attempt already committed, the retry reports the accepted outcome instead of INVALID_STATE.
func (c *Client) Accept(ctx context.Context, invitationID string) (*Team, error) {
	var team *Team
	settled, err := c.retryTransition(ctx, invitationID, "accepted", func() error {
		var err error
		team, err = c.teamCall(ctx, http.MethodPost, "/invitations/"+url.PathEscape(invitationID)+"/accept", nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	if settled != nil {
		return c.GetTeam(ctx, settled.TeamID)
	}
	return team, nil
}

// Reject rejects an invitation. Transient failures are retried.
func (c *Client) Reject(ctx context.Context, invitationID string) (*Invitation, error) {
	var inv *Invitation
	settled, err := c.retryTransition(ctx, invitationID, "rejected", func() error {
		var err error
		inv, err = c.invitationCall(ctx, http.MethodPost, "/invitations/"+url.PathEscape(invitationID)+"/reject", nil)
		return err
	})
	if settled != nil {
		return settled, nil
	}
	return inv, err
}

// Cancel withdraws a pending invitation of the team. Transient failures are retried.
func (c *Client) Cancel(ctx context.Context, teamID, invitationID string) (*Invitation, error) {
	var inv *Invitation
	settled, err := c.retryTransition(ctx, invitationID, "cancelled", func() error {
		var err error
		inv, err = c.invitationCall(ctx, http.MethodPost,
			"/teams/"+url.PathEscape(teamID)+"/invitations/"+url.PathEscape(invitationID)+"/cancel", nil)
		return err
	})
	if settled != nil {
		return settled, nil
	}
	return inv, err
}

// Sweep triggers the expiry sweep (admin only). Transient failures are retried.
func (c *Client) Sweep(ctx context.Context) (int64, error) {
	var resp struct {
		Expired int64 `json:"expired"`
	}
	err := c.retry(ctx, func() error {
		return c.do(ctx, http.MethodPost, "/admin/invitations/sweep", nil, &resp)
	})
	return resp.Expired, err
}

// Stats returns service statistics (admin only)
func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	var resp struct {
		Stats *Stats `json:"stats"`
	}
	if err := c.do(ctx, http.MethodGet, "/admin/stats", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Stats, nil
}

func (c *Client) teamCall(ctx context.Context, method, path string, body interface{}) (*Team, error) {
	var resp struct {
		Team *Team `json:"team"`
	}
	if err := c.do(ctx, method, path, body, &resp); err != nil {
		return nil, err
	}
	return resp.Team, nil
}

func (c *Client) invitationCall(ctx context.Context, method, path string, body interface{}) (*Invitation, error) {
	var resp struct {
		Invitation *Invitation `json:"invitation"`
	}
	if err := c.do(ctx, method, path, body, &resp); err != nil {
		return nil, err
	}
	return resp.Invitation, nil
}

func (c *Client) invitationsCall(ctx context.Context, path string) ([]*Invitation, error) {
	var resp struct {
		Invitations []*Invitation `json:"invitations"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Invitations, nil
}

// retry runs op again only while it fails with TRANSIENT_STORE_FAILURE
func (c *Client) retry(ctx context.Context, op func() error) error {
	b := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), c.maxRetries), ctx)
	return backoff.Retry(func() error {
		err := op()
		if err == nil || IsCode(err, CodeTransientStoreFailure) {
			return err
		}
		return backoff.Permanent(err)
	}, b)
}

// retryTransition retries op like retry. When a transient failure is followed by
// INVALID_STATE, the failed attempt may have committed on the server: the invitation
// is re-read and returned if it already holds the wanted status.
func (c *Client) retryTransition(ctx context.Context, invitationID, status string, op func() error) (*Invitation, error) {
	sawTransient := false
	err := c.retry(ctx, func() error {
		err := op()
		if IsCode(err, CodeTransientStoreFailure) {
			sawTransient = true
		}
		return err
	})
	if err == nil || !sawTransient || !IsCode(err, CodeInvalidState) {
		return nil, err
	}

	inv, getErr := c.GetInvitation(ctx, invitationID)
	if getErr != nil || inv.Status != status {
		return nil, err
	}
	return inv, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	return c.doWithHeader(ctx, method, path, body, out, nil)
}

func (c *Client) doWithHeader(ctx context.Context, method, path string, body, out interface{}, header http.Header) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	apiErr := &APIError{Status: resp.StatusCode}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
	}
	if apiErr.Code == "" {
		apiErr.Code = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
