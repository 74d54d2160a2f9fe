package handlers

import (
	"net/http"

	"ddash-backend/pkg/middleware"
	"ddash-backend/pkg/models"
	"ddash-backend/pkg/services"
	"ddash-backend/pkg/utils"
)

// TasksHandler 任务、状态流转与任务分配
type TasksHandler struct {
	tasks *services.TaskService
}

func NewTasksHandler(tasks *services.TaskService) *TasksHandler {
	return &TasksHandler{tasks: tasks}
}

// GET /api/projects/{projectID}/tasks?state=
func (h *TasksHandler) List(w http.ResponseWriter, r *http.Request) {
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
	state, err := models.ParseTaskState(utils.GetQueryParam(r, "state", ""))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	params, err := pageParams(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	page, err := h.tasks.List(r.Context(), user, projectID, state, params)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, page)
}

// POST /api/projects/{projectID}/tasks
func (h *TasksHandler) Create(w http.ResponseWriter, r *http.Request) {
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
	var req models.TaskCreate
	if err := decodeBody(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	task, err := h.tasks.Create(r.Context(), user, projectID, req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteCreatedResponse(w, task)
}

// GET /api/tasks/{taskID}
func (h *TasksHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	taskID, err := pathID(r, "taskID")
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	detail, err := h.tasks.Get(r.Context(), user, taskID)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, detail)
}

// PUT /api/tasks/{taskID}
func (h *TasksHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	taskID, err := pathID(r, "taskID")
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	var req models.TaskUpdate
	if err := decodeBody(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	task, err := h.tasks.Update(r.Context(), user, taskID, req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, task)
}

// DELETE /api/tasks/{taskID}
func (h *TasksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	taskID, err := pathID(r, "taskID")
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	if err := h.tasks.Delete(r.Context(), user, taskID); err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteNoContentResponse(w)
}

// PUT /api/tasks/{taskID}/state
func (h *TasksHandler) SetState(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	taskID, err := pathID(r, "taskID")
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	var req models.TaskStateChange
	if err := decodeBody(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	task, err := h.tasks.SetState(r.Context(), user, taskID, req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, task)
}

// POST /api/tasks/{taskID}/assignees
func (h *TasksHandler) AddAssignee(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	taskID, err := pathID(r, "taskID")
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	var req models.AssigneeCreate
	if err := decodeBody(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	assignee, created, err := h.tasks.AddAssignee(r.Context(), user, taskID, req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	if created {
		utils.WriteCreatedResponse(w, assignee)
		return
	}
	utils.WriteSuccessResponse(w, assignee)
}

// DELETE /api/tasks/{taskID}/assignees/{userID}
func (h *TasksHandler) RemoveAssignee(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	taskID, err := pathID(r, "taskID")
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	userID, err := pathID(r, "userID")
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	if err := h.tasks.RemoveAssignee(r.Context(), user, taskID, userID); err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteNoContentResponse(w)
}
