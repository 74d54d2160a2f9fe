package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ddash-backend/pkg/config"
	"ddash-backend/pkg/database"
	"ddash-backend/pkg/models"
	"ddash-backend/pkg/session"
	"ddash-backend/pkg/utils"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *utils.APIError `json:"error"`
}

type page[T any] struct {
	Items       []T `json:"items"`
	Count       int `json:"count"`
	CurrentPage int `json:"current_page"`
	TotalPages  int `json:"total_pages"`
	PageSize    int `json:"page_size"`
	TotalItems  int `json:"total_items"`
}

type client struct {
	t       *testing.T
	handler http.Handler
}

func newClient(t *testing.T) *client {
	t.Helper()
	db, err := database.NewMemoryDatabase()
	if err != nil {
		t.Fatalf("NewMemoryDatabase failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{
		Environment:     "test",
		JWTSecret:       "router-test-secret",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
		AllowedOrigins:  []string{"*"},
		RequestTimeout:  10 * time.Second,
	}
	handler := New(Deps{
		Config:  cfg,
		DB:      db,
		Revoker: session.NewMemoryRevoker(nil),
		Hasher:  utils.NewPasswordHasher(utils.PasswordParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}),
	})
	return &client{t: t, handler: handler}
}

// do sends a request and decodes the envelope; out receives data when non-nil
func (c *client) do(method, path, token string, body interface{}, wantStatus int, out interface{}) *envelope {
	c.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal failed: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)

	if rec.Code != wantStatus {
		c.t.Fatalf("%s %s: expected status %d, got %d: %s", method, path, wantStatus, rec.Code, rec.Body.String())
	}
	if rec.Code == http.StatusNoContent {
		return nil
	}
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		c.t.Fatalf("%s %s: decode failed: %v (%s)", method, path, err, rec.Body.String())
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			c.t.Fatalf("%s %s: decode data failed: %v", method, path, err)
		}
	}
	return &env
}

// signup registers a user and returns it with an access token
func (c *client) signup(email string) (*models.User, string) {
	c.t.Helper()
	var user models.User
	c.do(http.MethodPost, "/api/users", "", map[string]string{
		"email": email, "password": "secret1", "first_name": "Test", "last_name": "User",
	}, http.StatusCreated, &user)

	var tokens models.TokenResponse
	c.do(http.MethodPost, "/api/auth/token", "", map[string]string{
		"email": email, "password": "secret1",
	}, http.StatusOK, &tokens)
	return &user, tokens.AccessToken
}

func TestHealthCheck(t *testing.T) {
	c := newClient(t)
	var body map[string]interface{}
	c.do(http.MethodGet, "/", "", nil, http.StatusOK, &body)
	if body["db_status"] != "healthy" || body["database"] != "sqlite3" {
		t.Errorf("Unexpected health payload %v", body)
	}
}

func TestAuthFlow(t *testing.T) {
	c := newClient(t)
	user, token := c.signup("ada@example.com")

	var me models.User
	c.do(http.MethodGet, "/api/users/me", token, nil, http.StatusOK, &me)
	if me.ID != user.ID || me.Email != "ada@example.com" {
		t.Errorf("Unexpected /me payload %+v", me)
	}

	env := c.do(http.MethodGet, "/api/users/me", "", nil, http.StatusUnauthorized, nil)
	if env.Error == nil || env.Error.Code != "UNAUTHORIZED" {
		t.Errorf("Expected UNAUTHORIZED, got %+v", env.Error)
	}

	c.do(http.MethodPost, "/api/users", "", map[string]string{
		"email": "ADA@example.com", "password": "secret1", "first_name": "A", "last_name": "L",
	}, http.StatusBadRequest, nil)
	c.do(http.MethodPost, "/api/auth/token", "", map[string]string{
		"email": "ada@example.com", "password": "nope",
	}, http.StatusUnauthorized, nil)

	var tokens models.TokenResponse
	c.do(http.MethodPost, "/api/auth/token", "", map[string]string{
		"email": "ada@example.com", "password": "secret1",
	}, http.StatusOK, &tokens)
	var refreshed models.TokenResponse
	c.do(http.MethodPost, "/api/auth/refresh", "", map[string]string{
		"refresh_token": tokens.RefreshToken,
	}, http.StatusOK, &refreshed)
	if refreshed.AccessToken == "" {
		t.Error("Expected a new access token")
	}

	c.do(http.MethodPost, "/api/auth/logout", tokens.AccessToken, nil, http.StatusNoContent, nil)
	c.do(http.MethodGet, "/api/users/me", tokens.AccessToken, nil, http.StatusUnauthorized, nil)
	c.do(http.MethodGet, "/api/users/me", refreshed.AccessToken, nil, http.StatusOK, nil)
}

func TestRejectsUnknownFields(t *testing.T) {
	c := newClient(t)
	_, token := c.signup("mgr@example.com")
	env := c.do(http.MethodPost, "/api/organizations", token, map[string]string{
		"name": "Acme", "manager_id": "someone-else",
	}, http.StatusBadRequest, nil)
	if env.Error == nil || env.Error.Code != "VALIDATION_ERROR" {
		t.Errorf("Expected VALIDATION_ERROR, got %+v", env.Error)
	}
}

func TestProjectWorkflow(t *testing.T) {
	c := newClient(t)
	_, mgrToken := c.signup("mgr@example.com")
	dev, devToken := c.signup("dev@example.com")
	_, outsiderToken := c.signup("out@example.com")

	var org models.Organization
	c.do(http.MethodPost, "/api/organizations", mgrToken, map[string]string{"name": "Acme"}, http.StatusCreated, &org)

	var inv models.OrganizationInvitation
	c.do(http.MethodPost, "/api/organizations/"+org.ID+"/invitations", mgrToken,
		map[string]string{"user_email": dev.Email}, http.StatusCreated, &inv)

	var invitations page[models.OrganizationInvitation]
	c.do(http.MethodGet, "/api/invitations?status=pending", devToken, nil, http.StatusOK, &invitations)
	if invitations.TotalItems != 1 || invitations.Items[0].ID != inv.ID {
		t.Fatalf("Expected the pending invitation, got %+v", invitations)
	}
	c.do(http.MethodGet, "/api/invitations?status=bogus", devToken, nil, http.StatusBadRequest, nil)
	c.do(http.MethodPost, "/api/invitations/"+inv.ID+"/accept", outsiderToken, nil, http.StatusForbidden, nil)
	c.do(http.MethodPost, "/api/invitations/"+inv.ID+"/accept", devToken, nil, http.StatusOK, nil)

	var members page[models.OrganizationMembership]
	c.do(http.MethodGet, "/api/organizations/"+org.ID+"/members", devToken, nil, http.StatusOK, &members)
	if members.TotalItems != 1 || !members.Items[0].IsActive {
		t.Errorf("Expected one active member, got %+v", members)
	}

	var project models.Project
	c.do(http.MethodPost, "/api/organizations/"+org.ID+"/projects", devToken,
		map[string]string{"title": "Launch"}, http.StatusForbidden, nil)
	c.do(http.MethodPost, "/api/organizations/"+org.ID+"/projects", mgrToken,
		map[string]string{"title": "Launch"}, http.StatusCreated, &project)

	c.do(http.MethodPut, "/api/projects/"+project.ID+"/participants", mgrToken,
		map[string]string{"user_id": dev.ID, "participation_type": "CONTRIBUTOR"}, http.StatusCreated, nil)
	c.do(http.MethodPut, "/api/projects/"+project.ID+"/participants", mgrToken,
		map[string]string{"user_id": dev.ID, "participation_type": "CONTRIBUTOR"}, http.StatusOK, nil)

	var task models.Task
	c.do(http.MethodPost, "/api/projects/"+project.ID+"/tasks", devToken,
		map[string]interface{}{"title": "Ship", "priority": 2}, http.StatusCreated, &task)
	if task.State != models.TaskStateTodo {
		t.Errorf("Expected TODO, got %s", task.State)
	}
	c.do(http.MethodGet, "/api/tasks/"+task.ID, outsiderToken, nil, http.StatusForbidden, nil)
	c.do(http.MethodGet, "/api/tasks/does-not-exist", outsiderToken, nil, http.StatusNotFound, nil)

	c.do(http.MethodPut, "/api/tasks/"+task.ID+"/state", devToken,
		map[string]string{"state": "IN_PROGRESS"}, http.StatusForbidden, nil)
	c.do(http.MethodPost, "/api/tasks/"+task.ID+"/assignees", devToken,
		map[string]string{"user_id": dev.ID}, http.StatusCreated, nil)
	c.do(http.MethodPost, "/api/tasks/"+task.ID+"/assignees", devToken,
		map[string]string{"user_id": dev.ID}, http.StatusOK, nil)

	env := c.do(http.MethodPut, "/api/tasks/"+task.ID+"/state", devToken,
		map[string]string{"state": "COMPLETED"}, http.StatusBadRequest, nil)
	if env.Error == nil || env.Error.Code != "VALIDATION_ERROR" {
		t.Errorf("Expected VALIDATION_ERROR, got %+v", env.Error)
	}
	var completed models.Task
	c.do(http.MethodPut, "/api/tasks/"+task.ID+"/state", devToken,
		map[string]string{"state": "COMPLETED", "finish_date": "2024-06-01T12:00:00Z"}, http.StatusOK, &completed)
	if completed.State != models.TaskStateCompleted || completed.FinishDate == nil {
		t.Errorf("Unexpected completed task %+v", completed)
	}

	var detail models.TaskDetail
	c.do(http.MethodGet, "/api/tasks/"+task.ID, devToken, nil, http.StatusOK, &detail)
	if len(detail.Assignees) != 1 {
		t.Errorf("Expected one assignee, got %+v", detail.Assignees)
	}

	c.do(http.MethodDelete, "/api/tasks/"+task.ID+"/assignees/"+dev.ID, mgrToken, nil, http.StatusNoContent, nil)
	env = c.do(http.MethodDelete, "/api/tasks/"+task.ID+"/assignees/"+dev.ID, mgrToken, nil, http.StatusBadRequest, nil)
	if env.Error == nil || env.Error.Code != "DOMAIN_ERROR" {
		t.Errorf("Expected DOMAIN_ERROR, got %+v", env.Error)
	}

	c.do(http.MethodDelete, "/api/organizations/"+org.ID, mgrToken, nil, http.StatusBadRequest, nil)
	c.do(http.MethodDelete, "/api/projects/"+project.ID, mgrToken, nil, http.StatusNoContent, nil)
	c.do(http.MethodGet, "/api/tasks/"+task.ID, mgrToken, nil, http.StatusNotFound, nil)
	c.do(http.MethodDelete, "/api/organizations/"+org.ID, mgrToken, nil, http.StatusNoContent, nil)
}

func TestTaskPagination(t *testing.T) {
	c := newClient(t)
	_, token := c.signup("mgr@example.com")

	var org models.Organization
	c.do(http.MethodPost, "/api/organizations", token, map[string]string{"name": "Acme"}, http.StatusCreated, &org)
	var project models.Project
	c.do(http.MethodPost, "/api/organizations/"+org.ID+"/projects", token, map[string]string{"title": "Paging"}, http.StatusCreated, &project)

	tasksPath := "/api/projects/" + project.ID + "/tasks"
	var empty page[models.Task]
	c.do(http.MethodGet, tasksPath+"?page=3", token, nil, http.StatusOK, &empty)
	if empty.TotalPages != 0 || len(empty.Items) != 0 || empty.Items == nil {
		t.Errorf("Expected an empty page, got %+v", empty)
	}

	for i := 0; i < 7; i++ {
		c.do(http.MethodPost, tasksPath, token, map[string]string{"title": fmt.Sprintf("Task %d", i)}, http.StatusCreated, nil)
	}

	var last page[models.Task]
	c.do(http.MethodGet, tasksPath+"?page=2&page_size=5", token, nil, http.StatusOK, &last)
	if last.TotalItems != 7 || last.TotalPages != 2 || last.Count != 2 || last.CurrentPage != 2 || last.PageSize != 5 {
		t.Errorf("Unexpected last page %+v", last)
	}

	env := c.do(http.MethodGet, tasksPath+"?page=3&page_size=5", token, nil, http.StatusBadRequest, nil)
	if env.Error == nil || env.Error.Code != "INVALID_PAGE" {
		t.Errorf("Expected INVALID_PAGE, got %+v", env.Error)
	}
	c.do(http.MethodGet, tasksPath+"?page_size=51", token, nil, http.StatusBadRequest, nil)
	c.do(http.MethodGet, tasksPath+"?state=nope", token, nil, http.StatusBadRequest, nil)

	var todo page[models.Task]
	c.do(http.MethodGet, tasksPath+"?state=todo", token, nil, http.StatusOK, &todo)
	if todo.TotalItems != 7 {
		t.Errorf("Expected 7 TODO tasks, got %d", todo.TotalItems)
	}
}

func TestUnknownRoute(t *testing.T) {
	c := newClient(t)
	env := c.do(http.MethodGet, "/api/nothing-here", "", nil, http.StatusNotFound, nil)
	if env.Error == nil || env.Error.Code != "NOT_FOUND" {
		t.Errorf("Expected NOT_FOUND, got %+v", env.Error)
	}
}

// newTask sets up an organization, a project and one task owned by the returned manager token
func (c *client) newTask(email string) (string, models.Project, models.Task) {
	c.t.Helper()
	_, token := c.signup(email)
	var org models.Organization
	c.do(http.MethodPost, "/api/organizations", token, map[string]string{"name": "Acme"}, http.StatusCreated, &org)
	var project models.Project
	c.do(http.MethodPost, "/api/organizations/"+org.ID+"/projects", token, map[string]string{"title": "Launch"}, http.StatusCreated, &project)
	var task models.Task
	c.do(http.MethodPost, "/api/projects/"+project.ID+"/tasks", token, map[string]string{"title": "Ship"}, http.StatusCreated, &task)
	return token, project, task
}

func TestMalformedIDs(t *testing.T) {
	c := newClient(t)
	token, project, task := c.newTask("mgr@example.com")

	for _, path := range []string{
		"/api/tasks/not-a-uuid",
		"/api/projects/not-a-uuid",
		"/api/organizations/not-a-uuid",
		"/api/projects/" + project.ID[:8] + "/participants",
	} {
		env := c.do(http.MethodGet, path, token, nil, http.StatusNotFound, nil)
		if env.Error == nil || env.Error.Code != "NOT_FOUND" {
			t.Errorf("%s: expected NOT_FOUND, got %+v", path, env.Error)
		}
	}

	c.do(http.MethodDelete, "/api/tasks/"+task.ID+"/assignees/42", token, nil, http.StatusNotFound, nil)

	env := c.do(http.MethodPut, "/api/projects/"+project.ID+"/participants", token,
		map[string]string{"user_id": "abc", "participation_type": "VIEWER"}, http.StatusBadRequest, nil)
	if env.Error == nil || env.Error.Code != "VALIDATION_ERROR" {
		t.Errorf("Expected VALIDATION_ERROR, got %+v", env.Error)
	}
	c.do(http.MethodPost, "/api/tasks/"+task.ID+"/assignees", token,
		map[string]string{"user_id": "abc"}, http.StatusBadRequest, nil)

	// upper-case ids resolve to the same row
	var got models.TaskDetail
	c.do(http.MethodGet, "/api/tasks/"+strings.ToUpper(task.ID), token, nil, http.StatusOK, &got)
	if got.ID != task.ID {
		t.Errorf("Expected task %s, got %s", task.ID, got.ID)
	}
}

func TestOutsiderCannotReadTask(t *testing.T) {
	c := newClient(t)
	_, _, task := c.newTask("mgr@example.com")
	_, outsiderToken := c.signup("out@example.com")

	env := c.do(http.MethodGet, "/api/tasks/"+task.ID, outsiderToken, nil, http.StatusForbidden, nil)
	if env.Error == nil || env.Error.Code != "FORBIDDEN" {
		t.Errorf("Expected FORBIDDEN, got %+v", env.Error)
	}
	c.do(http.MethodGet, "/api/tasks/00000000-0000-4000-8000-000000000000", outsiderToken, nil, http.StatusNotFound, nil)
	c.do(http.MethodPut, "/api/tasks/"+task.ID, outsiderToken, map[string]string{"title": "Mine"}, http.StatusForbidden, nil)
	c.do(http.MethodDelete, "/api/tasks/"+task.ID, outsiderToken, nil, http.StatusForbidden, nil)
}

func TestCreateTaskRejectsInconsistentDates(t *testing.T) {
	c := newClient(t)
	token, project, _ := c.newTask("mgr@example.com")
	tasksPath := "/api/projects/" + project.ID + "/tasks"

	env := c.do(http.MethodPost, tasksPath, token, map[string]string{
		"title": "Early", "state": "TODO", "finish_date": "2024-06-01T12:00:00Z",
	}, http.StatusBadRequest, nil)
	if env.Error == nil || env.Error.Code != "VALIDATION_ERROR" {
		t.Errorf("Expected VALIDATION_ERROR, got %+v", env.Error)
	}
	c.do(http.MethodPost, tasksPath, token, map[string]string{
		"title": "Backwards", "state": "COMPLETED",
		"start_date": "2024-06-02T00:00:00Z", "finish_date": "2024-06-01T00:00:00Z",
	}, http.StatusBadRequest, nil)
}
