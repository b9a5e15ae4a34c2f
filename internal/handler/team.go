package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/aidar/teamhub/internal/domain"
	"github.com/aidar/teamhub/internal/service"
)

// TeamHandler обрабатывает эндпоинты команд
type TeamHandler struct {
	teamService       *service.TeamService
	invitationService *service.InvitationService
}

// NewTeamHandler создает новый TeamHandler
func NewTeamHandler(teamService *service.TeamService, invitationService *service.InvitationService) *TeamHandler {
	return &TeamHandler{
		teamService:       teamService,
		invitationService: invitationService,
	}
}

// TeamRequest представляет тело запроса на создание или изменение команды
type TeamRequest struct {
	Name        string `json:"name" validate:"required,min=3,max=50"`
	Description string `json:"description" validate:"max=500"`
}

// JoinRequest представляет тело запроса на вступление по коду
type JoinRequest struct {
	InviteCode string `json:"invite_code" validate:"required,max=64"`
}

// TransferLeadershipRequest представляет тело запроса на передачу лидерства
type TransferLeadershipRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

// CreateTeam обрабатывает POST /teams
func (h *TeamHandler) CreateTeam(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrFail(w, r)
	if !ok {
		return
	}

	var req TeamRequest
	if err := decodeJSON(w, r, &req); err != nil {
		HandleError(w, r, err)
		return
	}

	team, err := h.teamService.CreateTeam(r.Context(), actor.UserID, req.Name, req.Description)
	if err != nil {
		HandleError(w, r, err)
		return
	}

	RespondWithJSON(w, r, http.StatusCreated, TeamResponse{Message: "team created", Team: team})
}

// GetMyTeam обрабатывает GET /teams/me
func (h *TeamHandler) GetMyTeam(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrFail(w, r)
	if !ok {
		return
	}

	team, err := h.teamService.GetMyTeam(r.Context(), actor.UserID)
	if err != nil {
		HandleError(w, r, err)
		return
	}

	RespondWithJSON(w, r, http.StatusOK, TeamResponse{Message: "your team", Team: team})
}

// GetTeam обрабатывает GET /teams/{teamID}
func (h *TeamHandler) GetTeam(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrFail(w, r)
	if !ok {
		return
	}

	team, err := h.teamService.GetTeam(r.Context(), actor.UserID, chi.URLParam(r, "teamID"))
	if err != nil {
		HandleError(w, r, err)
		return
	}

	RespondWithJSON(w, r, http.StatusOK, TeamResponse{Message: "team", Team: team})
}

// GetMembers обрабатывает GET /teams/{teamID}/members
func (h *TeamHandler) GetMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.teamService.GetMembers(r.Context(), chi.URLParam(r, "teamID"))
	if err != nil {
		HandleError(w, r, err)
		return
	}

	RespondWithJSON(w, r, http.StatusOK, MembersResponse{Message: "team members", Members: members})
}

// UpdateTeam обрабатывает PATCH /teams/{teamID}
func (h *TeamHandler) UpdateTeam(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrFail(w, r)
	if !ok {
		return
	}

	var req TeamRequest
	if err := decodeJSON(w, r, &req); err != nil {
		HandleError(w, r, err)
		return
	}

	team, err := h.teamService.UpdateTeam(r.Context(), actor.UserID, chi.URLParam(r, "teamID"), req.Name, req.Description)
	if err != nil {
		HandleError(w, r, err)
		return
	}

	RespondWithJSON(w, r, http.StatusOK, TeamResponse{Message: "team updated", Team: team})
}

// DeleteTeam обрабатывает DELETE /teams/{teamID}
func (h *TeamHandler) DeleteTeam(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrFail(w, r)
	if !ok {
		return
	}

	if err := h.teamService.DeleteTeam(r.Context(), actor.UserID, chi.URLParam(r, "teamID")); err != nil {
		HandleError(w, r, err)
		return
	}

	RespondWithJSON(w, r, http.StatusOK, MessageResponse{Message: "team deleted"})
}

// LeaveTeam обрабатывает POST /teams/{teamID}/leave
func (h *TeamHandler) LeaveTeam(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrFail(w, r)
	if !ok {
		return
	}

	deleted, err := h.teamService.LeaveTeam(r.Context(), actor.UserID, chi.URLParam(r, "teamID"))
	if err != nil {
		HandleError(w, r, err)
		return
	}

	message := "left the team"
	if deleted {
		message = "left the team, team deleted"
	}
	RespondWithJSON(w, r, http.StatusOK, MessageResponse{Message: message})
}

// RemoveMember обрабатывает DELETE /teams/{teamID}/members/{userID}
func (h *TeamHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrFail(w, r)
	if !ok {
		return
	}

	team, err := h.teamService.RemoveMember(r.Context(), actor.UserID, chi.URLParam(r, "teamID"), chi.URLParam(r, "userID"))
	if err != nil {
		HandleError(w, r, err)
		return
	}

	RespondWithJSON(w, r, http.StatusOK, TeamResponse{Message: "member removed", Team: team})
}

// TransferLeadership обрабатывает POST /teams/{teamID}/leader
func (h *TeamHandler) TransferLeadership(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrFail(w, r)
	if !ok {
		return
	}

	var req TransferLeadershipRequest
	if err := decodeJSON(w, r, &req); err != nil {
		HandleError(w, r, err)
		return
	}

	team, err := h.teamService.TransferLeadership(r.Context(), actor.UserID, chi.URLParam(r, "teamID"), req.UserID)
	if err != nil {
		HandleError(w, r, err)
		return
	}

	RespondWithJSON(w, r, http.StatusOK, TeamResponse{Message: "leadership transferred", Team: team})
}

// RegenerateInviteCode обрабатывает POST /teams/{teamID}/invite-code
func (h *TeamHandler) RegenerateInviteCode(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrFail(w, r)
	if !ok {
		return
	}

	team, err := h.teamService.RegenerateInviteCode(r.Context(), actor.UserID, chi.URLParam(r, "teamID"))
	if err != nil {
		HandleError(w, r, err)
		return
	}

	RespondWithJSON(w, r, http.StatusOK, TeamResponse{Message: "invite code regenerated", Team: team})
}

// JoinByCode обрабатывает POST /teams/join
func (h *TeamHandler) JoinByCode(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrFail(w, r)
	if !ok {
		return
	}

	var req JoinRequest
	if err := decodeJSON(w, r, &req); err != nil {
		HandleError(w, r, err)
		return
	}

	team, err := h.invitationService.JoinByCode(r.Context(), actor.UserID, req.InviteCode)
	if err != nil {
		HandleError(w, r, err)
		return
	}

	RespondWithJSON(w, r, http.StatusOK, TeamResponse{Message: "joined the team", Team: team})
}

// Scoreboard обрабатывает GET /teams/scoreboard?limit=...
func (h *TeamHandler) Scoreboard(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			HandleError(w, r, domain.ErrInvalidInput)
			return
		}
		limit = n
	}

	teams, err := h.teamService.Scoreboard(r.Context(), limit)
	if err != nil {
		HandleError(w, r, err)
		return
	}

	RespondWithJSON(w, r, http.StatusOK, TeamsResponse{Message: "scoreboard", Teams: teams})
}
