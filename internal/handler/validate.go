package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/aidar/teamhub/internal/domain"
	"github.com/aidar/teamhub/internal/middleware"
)

// maxBodyBytes ограничивает размер тела запроса
const maxBodyBytes = 1 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

// decodeJSON читает тело запроса и проверяет его по тегам validate
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return domain.ErrInvalidInput
	}
	if err := validate.Struct(dst); err != nil {
		return domain.ErrInvalidInput
	}
	return nil
}

// actorOrFail возвращает пользователя из контекста или отвечает 401
func actorOrFail(w http.ResponseWriter, r *http.Request) (domain.Actor, bool) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		HandleError(w, r, domain.ErrUnauthenticated)
		return domain.Actor{}, false
	}
	return actor, true
}
