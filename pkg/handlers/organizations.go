package handlers

import (
	"net/http"

	"ddash-backend/pkg/middleware"
	"ddash-backend/pkg/models"
	"ddash-backend/pkg/services"
	"ddash-backend/pkg/utils"
)

// OrganizationsHandler 组织、成员与组织邀请
type OrganizationsHandler struct {
	orgs *services.OrganizationService
}

func NewOrganizationsHandler(orgs *services.OrganizationService) *OrganizationsHandler {
	return &OrganizationsHandler{orgs: orgs}
}

// POST /api/organizations
func (h *OrganizationsHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	var req models.OrganizationCreate
	if err := decodeBody(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	org, err := h.orgs.Create(r.Context(), user, req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteCreatedResponse(w, org)
}

// GET /api/organizations
func (h *OrganizationsHandler) List(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	params, err := pageParams(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	page, err := h.orgs.ListMine(r.Context(), user, params)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, page)
}

// GET /api/organizations/{orgID}
func (h *OrganizationsHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	orgID, err := pathID(r, "orgID")
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	org, err := h.orgs.Get(r.Context(), user, orgID)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, org)
}

// PATCH /api/organizations/{orgID}
func (h *OrganizationsHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	orgID, err := pathID(r, "orgID")
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	var req models.OrganizationUpdate
	if err := decodeBody(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	org, err := h.orgs.Update(r.Context(), user, orgID, req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, org)
}

// DELETE /api/organizations/{orgID}
func (h *OrganizationsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	orgID, err := pathID(r, "orgID")
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	if err := h.orgs.Delete(r.Context(), user, orgID); err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteNoContentResponse(w)
}

// GET /api/organizations/{orgID}/members
func (h *OrganizationsHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	orgID, err := pathID(r, "orgID")
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	params, err := pageParams(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	page, err := h.orgs.ListMembers(r.Context(), user, orgID, params)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, page)
}

// PATCH /api/organizations/{orgID}/members/{userID}
func (h *OrganizationsHandler) UpdateMember(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	orgID, err := pathID(r, "orgID")
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	userID, err := pathID(r, "userID")
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	var req models.MembershipUpdate
	if err := decodeBody(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	m, err := h.orgs.SetMemberActive(r.Context(), user, orgID, userID, req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, m)
}

// DELETE /api/organizations/{orgID}/members/{userID}
func (h *OrganizationsHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	orgID, err := pathID(r, "orgID")
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	userID, err := pathID(r, "userID")
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	if err := h.orgs.RemoveMember(r.Context(), user, orgID, userID); err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteNoContentResponse(w)
}

// POST /api/organizations/{orgID}/leave
func (h *OrganizationsHandler) Leave(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	orgID, err := pathID(r, "orgID")
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	if err := h.orgs.Leave(r.Context(), user, orgID); err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteNoContentResponse(w)
}

// POST /api/organizations/{orgID}/invitations
func (h *OrganizationsHandler) Invite(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	orgID, err := pathID(r, "orgID")
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	var req models.InvitationCreate
	if err := decodeBody(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	inv, err := h.orgs.Invite(r.Context(), user, orgID, req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteCreatedResponse(w, inv)
}

// GET /api/organizations/{orgID}/invitations?status=
func (h *OrganizationsHandler) ListInvitations(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	orgID, err := pathID(r, "orgID")
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
	page, err := h.orgs.ListInvitations(r.Context(), user, orgID, status, params)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, page)
}

// DELETE /api/organizations/{orgID}/invitations/{invitationID}
func (h *OrganizationsHandler) RevokeInvitation(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	orgID, err := pathID(r, "orgID")
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	invitationID, err := pathID(r, "invitationID")
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	if err := h.orgs.RevokeInvitation(r.Context(), user, orgID, invitationID); err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteNoContentResponse(w)
}
