package handlers

import (
	"net/http"

	"ddash-backend/pkg/middleware"
	"ddash-backend/pkg/models"
	"ddash-backend/pkg/services"
	"ddash-backend/pkg/utils"
)

// ProjectsHandler 项目与参与者
type ProjectsHandler struct {
	projects *services.ProjectService
}

func NewProjectsHandler(projects *services.ProjectService) *ProjectsHandler {
	return &ProjectsHandler{projects: projects}
}

// POST /api/organizations/{orgID}/projects
func (h *ProjectsHandler) Create(w http.ResponseWriter, r *http.Request) {
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
	var req models.ProjectCreate
	if err := decodeBody(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	project, err := h.projects.Create(r.Context(), user, orgID, req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteCreatedResponse(w, project)
}

// GET /api/organizations/{orgID}/projects
func (h *ProjectsHandler) List(w http.ResponseWriter, r *http.Request) {
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
	page, err := h.projects.List(r.Context(), user, orgID, params)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, page)
}

// GET /api/projects/{projectID}
func (h *ProjectsHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	projectID, err := pathID(r, "projectID")
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	project, err := h.projects.Get(r.Context(), user, projectID)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, project)
}

// PATCH /api/projects/{projectID}
func (h *ProjectsHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	projectID, err := pathID(r, "projectID")
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	var req models.ProjectUpdate
	if err := decodeBody(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	project, err := h.projects.Update(r.Context(), user, projectID, req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, project)
}

// DELETE /api/projects/{projectID}
func (h *ProjectsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	projectID, err := pathID(r, "projectID")
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	if err := h.projects.Delete(r.Context(), user, projectID); err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteNoContentResponse(w)
}

// GET /api/projects/{projectID}/participants
func (h *ProjectsHandler) ListParticipants(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	projectID, err := pathID(r, "projectID")
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	params, err := pageParams(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	page, err := h.projects.ListParticipants(r.Context(), user, projectID, params)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, page)
}

// PUT /api/projects/{projectID}/participants
func (h *ProjectsHandler) PutParticipant(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	projectID, err := pathID(r, "projectID")
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	var req models.ParticipantPut
	if err := decodeBody(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	participant, created, err := h.projects.PutParticipant(r.Context(), user, projectID, req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	if created {
		utils.WriteCreatedResponse(w, participant)
		return
	}
	utils.WriteSuccessResponse(w, participant)
}

// DELETE /api/projects/{projectID}/participants/{userID}
func (h *ProjectsHandler) RemoveParticipant(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	projectID, err := pathID(r, "projectID")
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	userID, err := pathID(r, "userID")
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	if err := h.projects.RemoveParticipant(r.Context(), user, projectID, userID); err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteNoContentResponse(w)
}
