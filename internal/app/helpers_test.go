package app_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/aidar/teamhub/internal/app"
	"github.com/aidar/teamhub/internal/config"
	"github.com/aidar/teamhub/internal/middleware"
)

// TestEnvironment содержит все ресурсы необходимые для сквозных тестов
type TestEnvironment struct {
	App     *app.App
	Server  *httptest.Server
	BaseURL string
}

const testSyncToken = "test-directory-sync-token"

func baseConfig() *config.Config {
	return &config.Config{
		Server:  config.ServerConfig{Host: "127.0.0.1", Port: "0"},
		Storage: config.StorageConfig{Backend: config.StorageBackendMemory},
		JWT: config.JWTConfig{
			Secret:          "test-jwt-secret-key-for-integration-tests",
			ExpirationHours: 24,
			AdminUserIDs:    []string{"admin"},
		},
		Directory: config.DirectoryConfig{SyncToken: testSyncToken},
		Invitation: config.InvitationConfig{
			TTL:            7 * 24 * time.Hour,
			MaxTeamSize:    4,
			InviteLinkBase: "http://localhost/invitations",
		},
		SMTP: config.SMTPConfig{Timeout: time.Second},
	}
}

// SetupMemoryEnvironment поднимает приложение с in-memory хранилищем
func SetupMemoryEnvironment(t *testing.T) *TestEnvironment {
	t.Helper()
	return startApp(t, baseConfig())
}

// SetupPostgresEnvironment поднимает PostgreSQL в контейнере и приложение поверх него
func SetupPostgresEnvironment(t *testing.T) *TestEnvironment {
	t.Helper()
	ctx := context.Background()

	// Запускаем PostgreSQL контейнер
	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("teamhub_test"),
		postgres.WithUsername("test_user"),
		postgres.WithPassword("test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")
	t.Cleanup(func() { _ = pgContainer.Terminate(context.Background()) })

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	cfg := baseConfig()
	cfg.Storage.Backend = config.StorageBackendPostgres
	cfg.Database = config.DatabaseConfig{
		Host:        host,
		Port:        port.Port(),
		User:        "test_user",
		Password:    "test_password",
		Name:        "teamhub_test",
		SSLMode:     "disable",
		MaxConns:    10,
		MinConns:    1,
		AutoMigrate: true,
	}
	return startApp(t, cfg)
}

func startApp(t *testing.T, cfg *config.Config) *TestEnvironment {
	t.Helper()

	application, err := app.New(cfg, zap.NewNop())
	require.NoError(t, err, "Failed to create application")
	require.NoError(t, application.Initialize(context.Background()), "Failed to initialize application")

	srv := httptest.NewServer(application.Handler())
	t.Cleanup(func() {
		srv.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = application.Shutdown(shutdownCtx)
	})

	return &TestEnvironment{App: application, Server: srv, BaseURL: srv.URL}
}

// MakeRequest вспомогательная функция для HTTP запросов в тестах
func (te *TestEnvironment) MakeRequest(t *testing.T, method, path string, body interface{}, token string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, te.BaseURL+path, reader)
	require.NoError(t, err, "Failed to create request")

	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := te.Server.Client().Do(req)
	require.NoError(t, err, "Failed to make request")
	return resp
}

// Do выполняет запрос, проверяет статус и декодирует тело в out
func (te *TestEnvironment) Do(t *testing.T, method, path string, body interface{}, token string, wantStatus int, out interface{}) {
	t.Helper()

	resp := te.MakeRequest(t, method, path, body, token)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, wantStatus, resp.StatusCode, "unexpected status for %s %s: %s", method, path, raw)

	if out != nil {
		require.NoError(t, json.Unmarshal(raw, out), "body: %s", raw)
	}
}

// ExpectError проверяет статус и код ошибки в ответе
func (te *TestEnvironment) ExpectError(t *testing.T, method, path string, body interface{}, token string, wantStatus int, wantCode string) {
	t.Helper()

	var envelope ErrorEnvelope
	te.Do(t, method, path, body, token, wantStatus, &envelope)
	require.Equal(t, wantCode, envelope.Error.Code)
}

// RegisterAndLogin создает пользователя в справочнике и возвращает токен
func (te *TestEnvironment) RegisterAndLogin(t *testing.T, userID, username string) string {
	t.Helper()

	te.UpsertUser(t, userID, username, testSyncToken, http.StatusOK)

	var login struct {
		Token string `json:"token"`
	}
	te.Do(t, http.MethodPost, "/auth/login", map[string]string{"user_id": userID}, "", http.StatusOK, &login)
	require.NotEmpty(t, login.Token)
	return login.Token
}

// UpsertUser синхронизирует пользователя с указанным сервисным секретом
func (te *TestEnvironment) UpsertUser(t *testing.T, userID, username, serviceToken string, wantStatus int) {
	t.Helper()

	payload, err := json.Marshal(map[string]string{
		"user_id":  userID,
		"username": username,
		"email":    username + "@example.com",
	})
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, te.BaseURL+"/users/upsert", bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if serviceToken != "" {
		req.Header.Set(middleware.ServiceTokenHeader, serviceToken)
	}

	resp, err := te.Server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, wantStatus, resp.StatusCode)
}

// Тестовые структуры данных соответствующие API
type ErrorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type Team struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	LeaderID   string   `json:"leader_id"`
	MemberIDs  []string `json:"member_ids"`
	InviteCode string   `json:"invite_code"`
}

type TeamEnvelope struct {
	Message string `json:"message"`
	Team    Team   `json:"team"`
}

type Invitation struct {
	ID            string `json:"id"`
	TeamID        string `json:"team_id"`
	InviteeUserID string `json:"invitee_user_id"`
	InviteeEmail  string `json:"invitee_email"`
	Status        string `json:"status"`
}

type InvitationEnvelope struct {
	Message    string     `json:"message"`
	Invitation Invitation `json:"invitation"`
}

type InvitationsEnvelope struct {
	Invitations []Invitation `json:"invitations"`
}

type MembersEnvelope struct {
	Members []struct {
		UserID   string `json:"user_id"`
		Username string `json:"username"`
		IsLeader bool   `json:"is_leader"`
	} `json:"members"`
}

func itoa(i int) string { return strconv.Itoa(i) }
