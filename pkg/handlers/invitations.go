package handlers

import (
	"net/http"

	"ddash-backend/pkg/middleware"
	"ddash-backend/pkg/models"
	"ddash-backend/pkg/services"
	"ddash-backend/pkg/utils"
)

// InvitationsHandler 当前用户收到的邀请
type InvitationsHandler struct {
	orgs *services.OrganizationService
}

func NewInvitationsHandler(orgs *services.OrganizationService) *InvitationsHandler {
	return &InvitationsHandler{orgs: orgs}
}

// GET /api/invitations?status=
func (h *InvitationsHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	status, err := models.ParseInvitationStatus(utils.GetQueryParam(r, "status", ""))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	params, err := pageParams(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	page, err := h.orgs.ListMyInvitations(r.Context(), user, status, params)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, page)
}

// POST /api/invitations/{invitationID}/accept
func (h *InvitationsHandler) Accept(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	invitationID, err := pathID(r, "invitationID")
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	membership, err := h.orgs.AcceptInvitation(r.Context(), user, invitationID)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, membership)
}

// POST /api/invitations/{invitationID}/reject
func (h *InvitationsHandler) Reject(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	invitationID, err := pathID(r, "invitationID")
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	inv, err := h.orgs.RejectInvitation(r.Context(), user, invitationID)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, inv)
}
