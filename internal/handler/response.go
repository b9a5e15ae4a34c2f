package handler

import (
	"net/http"

	"github.com/go-chi/render"

	"github.com/aidar/teamhub/internal/domain"
	"github.com/aidar/teamhub/internal/service"
)

// RespondWithJSON отправляет JSON ответ с указанным статус кодом
func RespondWithJSON(w http.ResponseWriter, r *http.Request, statusCode int, data interface{}) {
	render.Status(r, statusCode)
	render.JSON(w, r, data)
}

// MessageResponse ответ без сущности
type MessageResponse struct {
	Message string `json:"message"`
}

// TeamResponse ответ с командой
type TeamResponse struct {
	Message string       `json:"message"`
	Team    *domain.Team `json:"team"`
}

// TeamsResponse ответ со списком команд
type TeamsResponse struct {
	Message string         `json:"message"`
	Teams   []*domain.Team `json:"teams"`
}

// MembersResponse ответ с составом команды
type MembersResponse struct {
	Message string              `json:"message"`
	Members []domain.TeamMember `json:"members"`
}

// InvitationResponse ответ с приглашением
type InvitationResponse struct {
	Message    string             `json:"message"`
	Invitation *domain.Invitation `json:"invitation"`
}

// InvitationsResponse ответ со списком приглашений
type InvitationsResponse struct {
	Message     string               `json:"message"`
	Invitations []*domain.Invitation `json:"invitations"`
}

// UserResponse ответ с пользователем
type UserResponse struct {
	Message string       `json:"message"`
	User    *domain.User `json:"user"`
}

// StatsResponse ответ со статистикой
type StatsResponse struct {
	Message string         `json:"message"`
	Stats   *service.Stats `json:"stats"`
}

// SweepResponse ответ на ручной запуск очистки
type SweepResponse struct {
	Message string `json:"message"`
	Expired int64  `json:"expired"`
}
