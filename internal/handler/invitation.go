package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aidar/teamhub/internal/domain"
	"github.com/aidar/teamhub/internal/service"
)

// InvitationHandler обрабатывает эндпоинты приглашений
type InvitationHandler struct {
	invitationService *service.InvitationService
}

// NewInvitationHandler создает новый InvitationHandler
func NewInvitationHandler(invitationService *service.InvitationService) *InvitationHandler {
	return &InvitationHandler{
		invitationService: invitationService,
	}
}

// InviteRequest представляет тело запроса на приглашение: указывается username или email
type InviteRequest struct {
	Username string `json:"username" validate:"omitempty,max=64"`
	Email    string `json:"email" validate:"omitempty,email,max=254"`
}

// Invite обрабатывает POST /teams/{teamID}/invitations
func (h *InvitationHandler) Invite(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrFail(w, r)
	if !ok {
		return
	}

	var req InviteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		HandleError(w, r, err)
		return
	}

	inv, err := h.invitationService.Invite(r.Context(), actor.UserID, chi.URLParam(r, "teamID"), domain.InviteeRef{
		Username: req.Username,
		Email:    req.Email,
	})
	if err != nil {
		HandleError(w, r, err)
		return
	}

	RespondWithJSON(w, r, http.StatusCreated, InvitationResponse{Message: "invitation sent", Invitation: inv})
}

// ListForTeam обрабатывает GET /teams/{teamID}/invitations
func (h *InvitationHandler) ListForTeam(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrFail(w, r)
	if !ok {
		return
	}

	invs, err := h.invitationService.ListPendingForTeam(r.Context(), actor.UserID, chi.URLParam(r, "teamID"))
	if err != nil {
		HandleError(w, r, err)
		return
	}

	RespondWithJSON(w, r, http.StatusOK, InvitationsResponse{Message: "pending team invitations", Invitations: invs})
}

// Cancel обрабатывает POST /teams/{teamID}/invitations/{invitationID}/cancel
func (h *InvitationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrFail(w, r)
	if !ok {
		return
	}

	inv, err := h.invitationService.Cancel(r.Context(), actor.UserID, chi.URLParam(r, "teamID"), chi.URLParam(r, "invitationID"))
	if err != nil {
		HandleError(w, r, err)
		return
	}

	RespondWithJSON(w, r, http.StatusOK, InvitationResponse{Message: "invitation cancelled", Invitation: inv})
}

// ListMine обрабатывает GET /invitations
func (h *InvitationHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrFail(w, r)
	if !ok {
		return
	}

	invs, err := h.invitationService.ListPendingForUser(r.Context(), actor)
	if err != nil {
		HandleError(w, r, err)
		return
	}

	RespondWithJSON(w, r, http.StatusOK, InvitationsResponse{Message: "pending invitations", Invitations: invs})
}

// Get обрабатывает GET /invitations/{invitationID}
func (h *InvitationHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrFail(w, r)
	if !ok {
		return
	}

	inv, err := h.invitationService.GetInvitation(r.Context(), actor, chi.URLParam(r, "invitationID"))
	if err != nil {
		HandleError(w, r, err)
		return
	}

	RespondWithJSON(w, r, http.StatusOK, InvitationResponse{Message: "invitation", Invitation: inv})
}

// Accept обрабатывает POST /invitations/{invitationID}/accept
func (h *InvitationHandler) Accept(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrFail(w, r)
	if !ok {
		return
	}

	team, err := h.invitationService.Accept(r.Context(), actor, chi.URLParam(r, "invitationID"))
	if err != nil {
		HandleError(w, r, err)
		return
	}

	RespondWithJSON(w, r, http.StatusOK, TeamResponse{Message: "invitation accepted", Team: team})
}

// Reject обрабатывает POST /invitations/{invitationID}/reject
func (h *InvitationHandler) Reject(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrFail(w, r)
	if !ok {
		return
	}

	inv, err := h.invitationService.Reject(r.Context(), actor, chi.URLParam(r, "invitationID"))
	if err != nil {
		HandleError(w, r, err)
		return
	}

	RespondWithJSON(w, r, http.StatusOK, InvitationResponse{Message: "invitation rejected", Invitation: inv})
}
