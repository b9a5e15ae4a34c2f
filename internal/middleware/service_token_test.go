package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequireServiceToken(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name       string
		configured string
		header     string
		wantStatus int
	}{
		{"valid token", "sync-secret", "sync-secret", http.StatusNoContent},
		{"missing header", "sync-secret", "", http.StatusUnauthorized},
		{"wrong token", "sync-secret", "guess", http.StatusUnauthorized},
		{"unconfigured token closes endpoint", "", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/users/upsert", nil)
			if tt.header != "" {
				req.Header.Set(ServiceTokenHeader, tt.header)
			}
			rec := httptest.NewRecorder()

			RequireServiceToken(tt.configured)(ok).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusUnauthorized {
				assert.Contains(t, rec.Body.String(), `"UNAUTHENTICATED"`)
			}
		})
	}
}
