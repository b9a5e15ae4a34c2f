package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/aidar/teamhub/internal/domain"
	"github.com/aidar/teamhub/internal/service"
)

// ContextKey это кастомный тип для ключей контекста
type ContextKey string

// ActorKey ключ контекста для аутентифицированного пользователя
const ActorKey ContextKey = "actor"

// TokenValidator проверяет JWT токен и возвращает claims
type TokenValidator interface {
	ValidateToken(token string) (*service.Claims, error)
}

// AuthMiddleware создает middleware для валидации JWT токенов
func AuthMiddleware(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Получаем токен из заголовка Authorization
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeError(w, http.StatusUnauthorized, domain.CodeUnauthenticated, "missing authorization header")
				return
			}

			// Проверяем формат Bearer
			parts := strings.Fields(authHeader)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				writeError(w, http.StatusUnauthorized, domain.CodeUnauthenticated, "invalid authorization header format")
				return
			}

			claims, err := validator.ValidateToken(parts[1])
			if err != nil {
				writeError(w, http.StatusUnauthorized, domain.CodeUnauthenticated, "invalid or expired token")
				return
			}

			// Добавляем пользователя в контекст
			ctx := WithActor(r.Context(), claims.Actor())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin пропускает только пользователей с ролью admin. Ставится после AuthMiddleware
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, domain.CodeUnauthenticated, "authentication required")
			return
		}
		if !actor.IsAdmin() {
			writeError(w, http.StatusForbidden, domain.CodeUnauthorized, "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithActor сохраняет пользователя в контексте
func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, ActorKey, actor)
}

// ActorFromContext извлекает пользователя из контекста
func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(ActorKey).(domain.Actor)
	return actor, ok
}

func writeError(w http.ResponseWriter, status int, code domain.ErrorCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":{"code":"` + string(code) + `","message":"` + message + `"}}`))
}
