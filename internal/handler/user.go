package handler

import (
	"net/http"

	"github.com/aidar/teamhub/internal/domain"
	"github.com/aidar/teamhub/internal/service"
)

// UserHandler обрабатывает эндпоинты справочника пользователей
type UserHandler struct {
	userService *service.UserService
}

// NewUserHandler создает новый UserHandler
func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// UpsertUserRequest представляет тело запроса на создание/обновление пользователя
type UpsertUserRequest struct {
	UserID   string `json:"user_id" validate:"required,max=64"`
	Username string `json:"username" validate:"required,max=64"`
	Email    string `json:"email" validate:"omitempty,email,max=254"`
}

// Upsert обрабатывает POST /users/upsert
func (h *UserHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var req UpsertUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		HandleError(w, r, err)
		return
	}

	user, err := h.userService.Upsert(r.Context(), &domain.User{
		UserID:   req.UserID,
		Username: req.Username,
		Email:    req.Email,
	})
	if err != nil {
		HandleError(w, r, err)
		return
	}

	RespondWithJSON(w, r, http.StatusOK, UserResponse{Message: "user saved", User: user})
}

// Me обрабатывает GET /users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrFail(w, r)
	if !ok {
		return
	}

	user, err := h.userService.GetByID(r.Context(), actor.UserID)
	if err != nil {
		HandleError(w, r, err)
		return
	}

	RespondWithJSON(w, r, http.StatusOK, UserResponse{Message: "current user", User: user})
}
