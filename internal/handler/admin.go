package handler

import (
	"net/http"

	"github.com/aidar/teamhub/internal/service"
)

// AdminHandler обрабатывает административные эндпоинты
type AdminHandler struct {
	statsService      *service.StatsService
	invitationService *service.InvitationService
}

// NewAdminHandler создает новый AdminHandler
func NewAdminHandler(statsService *service.StatsService, invitationService *service.InvitationService) *AdminHandler {
	return &AdminHandler{
		statsService:      statsService,
		invitationService: invitationService,
	}
}

// GetStats обрабатывает GET /admin/stats
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.statsService.GetStats(r.Context())
	if err != nil {
		HandleError(w, r, err)
		return
	}

	RespondWithJSON(w, r, http.StatusOK, StatsResponse{Message: "stats", Stats: stats})
}

// SweepInvitations обрабатывает POST /admin/invitations/sweep
func (h *AdminHandler) SweepInvitations(w http.ResponseWriter, r *http.Request) {
	n, err := h.invitationService.SweepExpired(r.Context())
	if err != nil {
		HandleError(w, r, err)
		return
	}

	RespondWithJSON(w, r, http.StatusOK, SweepResponse{Message: "expired invitations swept", Expired: n})
}
