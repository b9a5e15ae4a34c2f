package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aidar/teamhub/internal/domain"
	"github.com/aidar/teamhub/internal/repository/memory"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type sentEmail struct {
	to, teamName, link string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentEmail
}

func (n *recordingNotifier) NotifyInvitation(to, teamName, inviteLink string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentEmail{to: to, teamName: teamName, link: inviteLink})
}

func (n *recordingNotifier) Sent() []sentEmail {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sentEmail(nil), n.sent...)
}

// sequenceCodes returns the given codes in order, then falls back to random ones
type sequenceCodes struct {
	mu    sync.Mutex
	codes []string
	rnd   *RandomCodeGenerator
}

func (g *sequenceCodes) Generate() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.codes) == 0 {
		return g.rnd.Generate()
	}
	code := g.codes[0]
	g.codes = g.codes[1:]
	return code, nil
}

type testEnv struct {
	store       *memory.Store
	clock       *fakeClock
	notifier    *recordingNotifier
	teams       *TeamService
	invitations *InvitationService
	users       *UserService
}

func newTestEnv(t *testing.T, policy Policy) *testEnv {
	t.Helper()
	return newTestEnvWithCodes(t, policy, NewRandomCodeGenerator())
}

func newTestEnvWithCodes(t *testing.T, policy Policy, codes CodeGenerator) *testEnv {
	t.Helper()

	store := memory.NewStore()
	clock := newFakeClock()
	notifier := &recordingNotifier{}
	logger := zap.NewNop()

	teams := NewTeamService(store, store.Teams(), codes, logger)
	teams.now = clock.Now
	invitations := NewInvitationService(store, store.Teams(), store.Invitations(), store.Users(), notifier, policy, logger).
		WithClock(clock.Now)

	return &testEnv{
		store:       store,
		clock:       clock,
		notifier:    notifier,
		teams:       teams,
		invitations: invitations,
		users:       NewUserService(store.Users()),
	}
}

func testPolicy() Policy {
	return Policy{
		MaxTeamSize:    4,
		InvitationTTL:  7 * 24 * time.Hour,
		InviteLinkBase: "https://ctf.example/invitations",
	}
}

// addUser registers a user with email <username>@example.com
func (e *testEnv) addUser(t *testing.T, id, username string) domain.Actor {
	t.Helper()
	email := username + "@example.com"
	_, err := e.users.Upsert(context.Background(), &domain.User{UserID: id, Username: username, Email: email})
	require.NoError(t, err)
	return domain.Actor{UserID: id, Email: email, Role: domain.RoleUser}
}

func (e *testEnv) createTeam(t *testing.T, leaderID, name string) *domain.Team {
	t.Helper()
	team, err := e.teams.CreateTeam(context.Background(), leaderID, name, "")
	require.NoError(t, err)
	return team
}

// join invites the user by username and accepts on their behalf
func (e *testEnv) join(t *testing.T, team *domain.Team, member domain.Actor, username string) {
	t.Helper()
	ctx := context.Background()
	inv, err := e.invitations.Invite(ctx, team.LeaderID, team.ID, domain.InviteeRef{Username: username})
	require.NoError(t, err)
	_, err = e.invitations.Accept(ctx, member, inv.ID)
	require.NoError(t, err)
}
