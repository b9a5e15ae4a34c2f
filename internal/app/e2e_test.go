package app_test

import (
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestE2E_Memory прогоняет сценарии на in-memory хранилище
func TestE2E_Memory(t *testing.T) {
	runScenarios(t, SetupMemoryEnvironment(t))
}

// TestE2E_Postgres прогоняет те же сценарии на PostgreSQL
func TestE2E_Postgres(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	runScenarios(t, SetupPostgresEnvironment(t))
}

func runScenarios(t *testing.T, env *TestEnvironment) {
	alice := env.RegisterAndLogin(t, "u1", "alice")
	bob := env.RegisterAndLogin(t, "u2", "bob")
	carol := env.RegisterAndLogin(t, "u3", "carol")
	dave := env.RegisterAndLogin(t, "u4", "dave")
	admin := env.RegisterAndLogin(t, "admin", "root")

	var team Team

	t.Run("Health", func(t *testing.T) {
		env.Do(t, http.MethodGet, "/health", nil, "", http.StatusOK, nil)
	})

	t.Run("Protected routes require a token", func(t *testing.T) {
		env.ExpectError(t, http.MethodGet, "/teams/me", nil, "", http.StatusUnauthorized, "UNAUTHENTICATED")
	})

	t.Run("Directory sync requires the service token", func(t *testing.T) {
		env.UpsertUser(t, "intruder", "mallory", "", http.StatusUnauthorized)
		env.UpsertUser(t, "intruder", "mallory", "wrong-token", http.StatusUnauthorized)
		// A user token is not a service token
		env.ExpectError(t, http.MethodPost, "/users/upsert",
			map[string]string{"user_id": "u1", "username": "alice", "email": "victim@example.com"},
			alice, http.StatusUnauthorized, "UNAUTHENTICATED")
	})

	t.Run("Create team", func(t *testing.T) {
		var resp TeamEnvelope
		env.Do(t, http.MethodPost, "/teams", map[string]string{"name": "Pwners", "description": "we pwn"}, alice, http.StatusCreated, &resp)
		team = resp.Team

		assert.Equal(t, "team created", resp.Message)
		assert.Equal(t, "u1", team.LeaderID)
		assert.Equal(t, []string{"u1"}, team.MemberIDs)
		assert.Len(t, team.InviteCode, 22)

		env.ExpectError(t, http.MethodPost, "/teams", map[string]string{"name": "pwners"}, bob, http.StatusConflict, "TEAM_NAME_TAKEN")
		env.ExpectError(t, http.MethodPost, "/teams", map[string]string{"name": "x"}, bob, http.StatusBadRequest, "INVALID_INPUT")
		env.ExpectError(t, http.MethodPost, "/teams", map[string]string{"name": "Second"}, alice, http.StatusConflict, "ALREADY_ON_TEAM")
	})

	t.Run("Invite code hidden from outsiders", func(t *testing.T) {
		var resp TeamEnvelope
		env.Do(t, http.MethodGet, "/teams/"+team.ID, nil, bob, http.StatusOK, &resp)
		assert.Empty(t, resp.Team.InviteCode)

		var board struct {
			Teams []Team `json:"teams"`
		}
		env.Do(t, http.MethodGet, "/teams/scoreboard", nil, "", http.StatusOK, &board)
		require.Len(t, board.Teams, 1)
		assert.Empty(t, board.Teams[0].InviteCode)
	})

	t.Run("Invite and accept", func(t *testing.T) {
		var inv InvitationEnvelope
		env.Do(t, http.MethodPost, "/teams/"+team.ID+"/invitations", map[string]string{"username": "bob"}, alice, http.StatusCreated, &inv)
		assert.Equal(t, "pending", inv.Invitation.Status)
		assert.Equal(t, "u2", inv.Invitation.InviteeUserID)

		// Second invitation to the same user through email is a duplicate
		env.ExpectError(t, http.MethodPost, "/teams/"+team.ID+"/invitations",
			map[string]string{"email": "BOB@example.com"}, alice, http.StatusConflict, "DUPLICATE_PENDING_INVITATION")

		// Only the leader may invite
		env.ExpectError(t, http.MethodPost, "/teams/"+team.ID+"/invitations",
			map[string]string{"username": "carol"}, bob, http.StatusForbidden, "UNAUTHORIZED")

		var mine InvitationsEnvelope
		env.Do(t, http.MethodGet, "/invitations", nil, bob, http.StatusOK, &mine)
		require.Len(t, mine.Invitations, 1)

		// Not addressed to carol
		env.ExpectError(t, http.MethodPost, "/invitations/"+inv.Invitation.ID+"/accept", nil, carol, http.StatusForbidden, "UNAUTHORIZED")

		var joined TeamEnvelope
		env.Do(t, http.MethodPost, "/invitations/"+inv.Invitation.ID+"/accept", nil, bob, http.StatusOK, &joined)
		assert.ElementsMatch(t, []string{"u1", "u2"}, joined.Team.MemberIDs)

		env.ExpectError(t, http.MethodPost, "/invitations/"+inv.Invitation.ID+"/accept", nil, bob, http.StatusConflict, "INVALID_STATE")

		var members MembersEnvelope
		env.Do(t, http.MethodGet, "/teams/"+team.ID+"/members", nil, bob, http.StatusOK, &members)
		require.Len(t, members.Members, 2)
		for _, m := range members.Members {
			assert.Equal(t, m.UserID == "u1", m.IsLeader)
		}
	})

	t.Run("Reject and cancel", func(t *testing.T) {
		var toCarol InvitationEnvelope
		env.Do(t, http.MethodPost, "/teams/"+team.ID+"/invitations", map[string]string{"username": "carol"}, alice, http.StatusCreated, &toCarol)

		var rejected InvitationEnvelope
		env.Do(t, http.MethodPost, "/invitations/"+toCarol.Invitation.ID+"/reject", nil, carol, http.StatusOK, &rejected)
		assert.Equal(t, "rejected", rejected.Invitation.Status)

		var again InvitationEnvelope
		env.Do(t, http.MethodPost, "/teams/"+team.ID+"/invitations", map[string]string{"username": "carol"}, alice, http.StatusCreated, &again)

		var pending InvitationsEnvelope
		env.Do(t, http.MethodGet, "/teams/"+team.ID+"/invitations", nil, alice, http.StatusOK, &pending)
		require.Len(t, pending.Invitations, 1)

		env.ExpectError(t, http.MethodPost, "/teams/"+team.ID+"/invitations/"+again.Invitation.ID+"/cancel", nil, bob, http.StatusForbidden, "UNAUTHORIZED")

		var cancelled InvitationEnvelope
		env.Do(t, http.MethodPost, "/teams/"+team.ID+"/invitations/"+again.Invitation.ID+"/cancel", nil, alice, http.StatusOK, &cancelled)
		assert.Equal(t, "cancelled", cancelled.Invitation.Status)

		env.ExpectError(t, http.MethodPost, "/invitations/"+again.Invitation.ID+"/accept", nil, carol, http.StatusConflict, "INVALID_STATE")
	})

	t.Run("Email invitation to unregistered address", func(t *testing.T) {
		var inv InvitationEnvelope
		env.Do(t, http.MethodPost, "/teams/"+team.ID+"/invitations", map[string]string{"email": "Newbie@Example.com"}, alice, http.StatusCreated, &inv)
		assert.Empty(t, inv.Invitation.InviteeUserID)
		assert.Equal(t, "newbie@example.com", inv.Invitation.InviteeEmail)

		// The address owner registers later and accepts
		newbie := env.RegisterAndLogin(t, "u5", "newbie")
		var joined TeamEnvelope
		env.Do(t, http.MethodPost, "/invitations/"+inv.Invitation.ID+"/accept", nil, newbie, http.StatusOK, &joined)
		assert.Contains(t, joined.Team.MemberIDs, "u5")
	})

	t.Run("Leadership and leaving", func(t *testing.T) {
		env.ExpectError(t, http.MethodPost, "/teams/"+team.ID+"/leave", nil, alice, http.StatusConflict, "MUST_TRANSFER_LEADERSHIP_FIRST")
		env.ExpectError(t, http.MethodDelete, "/teams/"+team.ID+"/members/u1", nil, alice, http.StatusBadRequest, "CANNOT_REMOVE_SELF")
		env.ExpectError(t, http.MethodDelete, "/teams/"+team.ID+"/members/u4", nil, alice, http.StatusNotFound, "NOT_A_MEMBER")

		var resp TeamEnvelope
		env.Do(t, http.MethodDelete, "/teams/"+team.ID+"/members/u5", nil, alice, http.StatusOK, &resp)
		assert.NotContains(t, resp.Team.MemberIDs, "u5")

		env.Do(t, http.MethodPost, "/teams/"+team.ID+"/leader", map[string]string{"user_id": "u2"}, alice, http.StatusOK, &resp)
		assert.Equal(t, "u2", resp.Team.LeaderID)

		env.Do(t, http.MethodPost, "/teams/"+team.ID+"/leave", nil, alice, http.StatusOK, nil)
		env.ExpectError(t, http.MethodGet, "/teams/me", nil, alice, http.StatusNotFound, "NOT_A_MEMBER")
	})

	t.Run("Join by code and regenerate", func(t *testing.T) {
		var mine TeamEnvelope
		env.Do(t, http.MethodGet, "/teams/me", nil, bob, http.StatusOK, &mine)
		oldCode := mine.Team.InviteCode

		var regenerated TeamEnvelope
		env.Do(t, http.MethodPost, "/teams/"+team.ID+"/invite-code", nil, bob, http.StatusOK, &regenerated)
		require.NotEqual(t, oldCode, regenerated.Team.InviteCode)

		env.ExpectError(t, http.MethodPost, "/teams/join", map[string]string{"invite_code": oldCode}, dave, http.StatusNotFound, "NOT_FOUND")

		var joined TeamEnvelope
		env.Do(t, http.MethodPost, "/teams/join", map[string]string{"invite_code": regenerated.Team.InviteCode}, dave, http.StatusOK, &joined)
		assert.Contains(t, joined.Team.MemberIDs, "u4")
	})

	t.Run("Concurrent accepts succeed once", func(t *testing.T) {
		var carolTeam TeamEnvelope
		env.Do(t, http.MethodPost, "/teams", map[string]string{"name": "Rooters"}, carol, http.StatusCreated, &carolTeam)

		frank := env.RegisterAndLogin(t, "u6", "frank")
		var inv InvitationEnvelope
		env.Do(t, http.MethodPost, "/teams/"+carolTeam.Team.ID+"/invitations", map[string]string{"username": "frank"}, carol, http.StatusCreated, &inv)

		const workers = 8
		statuses := make([]int, workers)
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				resp := env.MakeRequest(t, http.MethodPost, "/invitations/"+inv.Invitation.ID+"/accept", nil, frank)
				statuses[i] = resp.StatusCode
				resp.Body.Close()
			}(i)
		}
		wg.Wait()

		ok := 0
		for _, s := range statuses {
			if s == http.StatusOK {
				ok++
				continue
			}
			assert.Equal(t, http.StatusConflict, s)
		}
		assert.Equal(t, 1, ok)

		var members MembersEnvelope
		env.Do(t, http.MethodGet, "/teams/"+carolTeam.Team.ID+"/members", nil, carol, http.StatusOK, &members)
		assert.Len(t, members.Members, 2)
	})

	t.Run("Delete team keeps invitations readable", func(t *testing.T) {
		var mine TeamEnvelope
		env.Do(t, http.MethodGet, "/teams/me", nil, carol, http.StatusOK, &mine)

		grace := env.RegisterAndLogin(t, "u7", "grace")
		var inv InvitationEnvelope
		env.Do(t, http.MethodPost, "/teams/"+mine.Team.ID+"/invitations", map[string]string{"username": "grace"}, carol, http.StatusCreated, &inv)

		env.Do(t, http.MethodDelete, "/teams/"+mine.Team.ID, nil, carol, http.StatusOK, nil)

		var got InvitationEnvelope
		env.Do(t, http.MethodGet, "/invitations/"+inv.Invitation.ID, nil, grace, http.StatusOK, &got)
		assert.Equal(t, "pending", got.Invitation.Status)

		env.ExpectError(t, http.MethodPost, "/invitations/"+inv.Invitation.ID+"/accept", nil, grace, http.StatusNotFound, "NOT_FOUND")
	})

	t.Run("Admin endpoints", func(t *testing.T) {
		env.ExpectError(t, http.MethodGet, "/admin/stats", nil, bob, http.StatusForbidden, "UNAUTHORIZED")

		var stats struct {
			Stats struct {
				Teams       int            `json:"teams"`
				Invitations map[string]int `json:"invitations"`
			} `json:"stats"`
		}
		env.Do(t, http.MethodGet, "/admin/stats", nil, admin, http.StatusOK, &stats)
		assert.Equal(t, 1, stats.Stats.Teams)
		assert.Positive(t, stats.Stats.Invitations["accepted"])
		assert.Equal(t, 1, stats.Stats.Invitations["rejected"])
		assert.Equal(t, 1, stats.Stats.Invitations["cancelled"])

		var sweep struct {
			Expired int64 `json:"expired"`
		}
		env.Do(t, http.MethodPost, "/admin/invitations/sweep", nil, admin, http.StatusOK, &sweep)
		assert.Zero(t, sweep.Expired)
	})
}

func TestE2E_ExpiredInvitation(t *testing.T) {
	cfg := baseConfig()
	cfg.Invitation.TTL = 50 * time.Millisecond
	env := startApp(t, cfg)

	alice := env.RegisterAndLogin(t, "u1", "alice")
	bob := env.RegisterAndLogin(t, "u2", "bob")

	var team TeamEnvelope
	env.Do(t, http.MethodPost, "/teams", map[string]string{"name": "Pwners"}, alice, http.StatusCreated, &team)

	var inv InvitationEnvelope
	env.Do(t, http.MethodPost, "/teams/"+team.Team.ID+"/invitations", map[string]string{"username": "bob"}, alice, http.StatusCreated, &inv)

	time.Sleep(100 * time.Millisecond)

	env.ExpectError(t, http.MethodPost, "/invitations/"+inv.Invitation.ID+"/accept", nil, bob, http.StatusGone, "EXPIRED")

	var got InvitationEnvelope
	env.Do(t, http.MethodGet, "/invitations/"+inv.Invitation.ID, nil, bob, http.StatusOK, &got)
	assert.Equal(t, "expired", got.Invitation.Status)

	// A fresh invitation can be sent after expiry
	env.Do(t, http.MethodPost, "/teams/"+team.Team.ID+"/invitations", map[string]string{"username": "bob"}, alice, http.StatusCreated, nil)
}

func TestE2E_TeamCap(t *testing.T) {
	cfg := baseConfig()
	cfg.Invitation.MaxTeamSize = 2
	env := startApp(t, cfg)

	alice := env.RegisterAndLogin(t, "u1", "alice")
	bob := env.RegisterAndLogin(t, "u2", "bob")
	env.RegisterAndLogin(t, "u3", "carol")

	var team TeamEnvelope
	env.Do(t, http.MethodPost, "/teams", map[string]string{"name": "Pwners"}, alice, http.StatusCreated, &team)
	env.Do(t, http.MethodPost, "/teams/join", map[string]string{"invite_code": team.Team.InviteCode}, bob, http.StatusOK, nil)

	env.ExpectError(t, http.MethodPost, "/teams/"+team.Team.ID+"/invitations", map[string]string{"username": "carol"}, alice, http.StatusConflict, "TEAM_FULL")

	var board struct {
		Teams []Team `json:"teams"`
	}
	env.Do(t, http.MethodGet, "/teams/scoreboard?limit="+itoa(1), nil, "", http.StatusOK, &board)
	assert.Len(t, board.Teams, 1)
	env.ExpectError(t, http.MethodGet, "/teams/scoreboard?limit=abc", nil, "", http.StatusBadRequest, "INVALID_INPUT")
}
