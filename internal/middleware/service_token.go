package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/aidar/teamhub/internal/domain"
)

// ServiceTokenHeader заголовок с общим секретом сервисных вызовов
const ServiceTokenHeader = "X-Service-Token"

// RequireServiceToken пропускает только запросы с верным общим секретом.
// Пустой token закрывает эндпоинт полностью
func RequireServiceToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(ServiceTokenHeader)
			if token == "" || got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				writeError(w, http.StatusUnauthorized, domain.CodeUnauthenticated, "invalid service token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
