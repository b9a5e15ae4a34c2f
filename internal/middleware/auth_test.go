package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aidar/teamhub/internal/domain"
	"github.com/aidar/teamhub/internal/repository/memory"
	"github.com/aidar/teamhub/internal/service"
)

func setupAuth(t *testing.T) (*service.AuthService, http.Handler) {
	t.Helper()
	store := memory.NewStore()
	users := store.Users()
	require.NoError(t, users.Upsert(context.Background(), &domain.User{UserID: "u1", Username: "alice", Email: "alice@example.com"}))
	require.NoError(t, users.Upsert(context.Background(), &domain.User{UserID: "root", Username: "root"}))

	auth := service.NewAuthService(users, "test-secret", time.Hour, []string{"root"})

	echo := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFromContext(r.Context())
		require.True(t, ok)
		_ = json.NewEncoder(w).Encode(map[string]string{"user_id": actor.UserID, "email": actor.Email, "role": actor.Role})
	})
	return auth, AuthMiddleware(auth)(echo)
}

func TestAuthMiddleware(t *testing.T) {
	auth, h := setupAuth(t)
	token, err := auth.Login(context.Background(), "u1")
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"valid token", "Bearer " + token, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusUnauthorized {
				var body map[string]map[string]string
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.Equal(t, "UNAUTHENTICATED", body["error"]["code"])
				return
			}

			var got map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Equal(t, "u1", got["user_id"])
			assert.Equal(t, "alice@example.com", got["email"])
			assert.Equal(t, domain.RoleUser, got["role"])
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	auth, _ := setupAuth(t)
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := AuthMiddleware(auth)(RequireAdmin(ok))

	userToken, err := auth.Login(context.Background(), "u1")
	require.NoError(t, err)
	adminToken, err := auth.Login(context.Background(), "root")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+userToken)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
