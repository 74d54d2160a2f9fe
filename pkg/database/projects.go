package database

import (
	"context"
	"database/sql"
	"fmt"

	"ddash-backend/pkg/models"
	"ddash-backend/pkg/pagination"

	"github.com/google/uuid"
)

const projectColumns = `p.id, p.organization_id, p.title, p.description, p.start_date, p.finish_date, p.deadline, p.created_at, p.updated_at`

func scanProject(row scanner) (models.Project, error) {
	var p models.Project
	var start, finish, deadline sql.NullTime
	err := row.Scan(&p.ID, &p.OrganizationID, &p.Title, &p.Description, &start, &finish, &deadline, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return p, err
	}
	p.StartDate, p.FinishDate, p.Deadline = timePtr(start), timePtr(finish), timePtr(deadline)
	return p, nil
}

// CreateProject 创建项目
func (s *SQLDatabase) CreateProject(ctx context.Context, p *models.Project) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	_, err := s.exec(ctx, `
		INSERT INTO projects (id, organization_id, title, description, start_date, finish_date, deadline, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.OrganizationID, p.Title, p.Description,
		nullableTime(p.StartDate), nullableTime(p.FinishDate), nullableTime(p.Deadline),
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return mapWriteError("create project", err)
	}
	return nil
}

func (s *SQLDatabase) GetProject(ctx context.Context, projectID string) (*models.Project, error) {
	p, err := scanProject(s.queryRow(ctx, `SELECT `+projectColumns+` FROM projects p WHERE p.id = ?`, projectID))
	if err != nil {
		return nil, notFound("project", err)
	}
	return &p, nil
}

func (s *SQLDatabase) UpdateProject(ctx context.Context, p *models.Project) error {
	return s.execAffecting(ctx, "update project", `
		UPDATE projects
		SET title = ?, description = ?, start_date = ?, finish_date = ?, deadline = ?, updated_at = ?
		WHERE id = ?`,
		p.Title, p.Description,
		nullableTime(p.StartDate), nullableTime(p.FinishDate), nullableTime(p.Deadline),
		p.UpdatedAt, p.ID,
	)
}

// DeleteProject 删除项目，参与者、任务与指派级联删除
func (s *SQLDatabase) DeleteProject(ctx context.Context, projectID string) error {
	return s.execAffecting(ctx, "delete project", `DELETE FROM projects WHERE id = ?`, projectID)
}

func (s *SQLDatabase) CountOrganizationProjects(ctx context.Context, orgID string) (int, error) {
	var n int
	if err := s.queryRow(ctx, `SELECT COUNT(*) FROM projects WHERE organization_id = ?`, orgID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count projects: %w", err)
	}
	return n, nil
}

func (s *SQLDatabase) ListOrganizationProjects(orgID string) pagination.Query[models.Project] {
	return newListQuery(s, projectColumns, "projects p", "p.created_at DESC, p.id", scanProject).
		filter("p.organization_id = ?", orgID)
}

func (s *SQLDatabase) ListParticipatedProjects(orgID, userID string) pagination.Query[models.Project] {
	return newListQuery(s, projectColumns, "projects p JOIN project_participants pp ON pp.project_id = p.id", "p.created_at DESC, p.id", scanProject).
		filter("p.organization_id = ?", orgID).
		filter("pp.user_id = ?", userID)
}

// ==== participants ====

const participantColumns = `project_id, user_id, participation_type, created_at, updated_at`

func scanParticipant(row scanner) (models.ProjectParticipant, error) {
	var p models.ProjectParticipant
	err := row.Scan(&p.ProjectID, &p.UserID, &p.ParticipationType, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (s *SQLDatabase) AddProjectParticipant(ctx context.Context, p *models.ProjectParticipant) error {
	_, err := s.exec(ctx, `
		INSERT INTO project_participants (`+participantColumns+`)
		VALUES (?, ?, ?, ?, ?)`,
		p.ProjectID, p.UserID, p.ParticipationType, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return mapWriteError("add project participant", err)
	}
	return nil
}

func (s *SQLDatabase) GetProjectParticipant(ctx context.Context, projectID, userID string) (*models.ProjectParticipant, error) {
	p, err := scanParticipant(s.queryRow(ctx, `
		SELECT `+participantColumns+` FROM project_participants
		WHERE project_id = ? AND user_id = ?`, projectID, userID))
	if err != nil {
		return nil, notFound("participant", err)
	}
	return &p, nil
}

func (s *SQLDatabase) UpdateProjectParticipant(ctx context.Context, p *models.ProjectParticipant) error {
	return s.execAffecting(ctx, "update project participant", `
		UPDATE project_participants SET participation_type = ?, updated_at = ?
		WHERE project_id = ? AND user_id = ?`,
		p.ParticipationType, p.UpdatedAt, p.ProjectID, p.UserID,
	)
}

func (s *SQLDatabase) DeleteProjectParticipant(ctx context.Context, projectID, userID string) error {
	return s.execAffecting(ctx, "delete project participant", `
		DELETE FROM project_participants WHERE project_id = ? AND user_id = ?`, projectID, userID)
}

func (s *SQLDatabase) ListProjectParticipants(projectID string) pagination.Query[models.ProjectParticipant] {
	return newListQuery(s, participantColumns, "project_participants", "created_at, user_id", scanParticipant).
		filter("project_id = ?", projectID)
}

func (s *SQLDatabase) IsProjectParticipant(ctx context.Context, projectID, userID string) (bool, error) {
	return s.exists(ctx, `SELECT 1 FROM project_participants WHERE project_id = ? AND user_id = ?`, projectID, userID)
}

func (s *SQLDatabase) DeleteOrganizationParticipations(ctx context.Context, orgID, userID string) error {
	if _, err := s.exec(ctx, `
		DELETE FROM task_assignees
		WHERE user_id = ? AND task_id IN (
			SELECT t.id FROM tasks t JOIN projects p ON p.id = t.project_id WHERE p.organization_id = ?
		)`, userID, orgID); err != nil {
		return mapWriteError("delete organization assignments", err)
	}
	if _, err := s.exec(ctx, `
		DELETE FROM project_participants
		WHERE user_id = ? AND project_id IN (SELECT id FROM projects WHERE organization_id = ?)`, userID, orgID); err != nil {
		return mapWriteError("delete organization participations", err)
	}
	return nil
}
