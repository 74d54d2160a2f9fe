package database

import (
	"context"
	"database/sql"
	"fmt"

	"ddash-backend/pkg/models"
	"ddash-backend/pkg/pagination"

	"github.com/google/uuid"
)

const taskColumns = `id, project_id, title, description, state, priority, start_date, finish_date, deadline, created_at, updated_at`

func scanTask(row scanner) (models.Task, error) {
	var t models.Task
	var start, finish, deadline sql.NullTime
	err := row.Scan(&t.ID, &t.ProjectID, &t.Title, &t.Description, &t.State, &t.Priority, &start, &finish, &deadline, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return t, err
	}
	t.StartDate, t.FinishDate, t.Deadline = timePtr(start), timePtr(finish), timePtr(deadline)
	return t, nil
}

// CreateTask 创建任务
func (s *SQLDatabase) CreateTask(ctx context.Context, t *models.Task) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	_, err := s.exec(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.ProjectID, t.Title, t.Description, t.State, t.Priority,
		nullableTime(t.StartDate), nullableTime(t.FinishDate), nullableTime(t.Deadline),
		t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return mapWriteError("create task", err)
	}
	return nil
}

func (s *SQLDatabase) GetTask(ctx context.Context, taskID string) (*models.Task, error) {
	t, err := scanTask(s.queryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, taskID))
	if err != nil {
		return nil, notFound("task", err)
	}
	return &t, nil
}

func (s *SQLDatabase) UpdateTask(ctx context.Context, t *models.Task) error {
	return s.execAffecting(ctx, "update task", `
		UPDATE tasks
		SET title = ?, description = ?, state = ?, priority = ?,
		    start_date = ?, finish_date = ?, deadline = ?, updated_at = ?
		WHERE id = ?`,
		t.Title, t.Description, t.State, t.Priority,
		nullableTime(t.StartDate), nullableTime(t.FinishDate), nullableTime(t.Deadline),
		t.UpdatedAt, t.ID,
	)
}

func (s *SQLDatabase) DeleteTask(ctx context.Context, taskID string) error {
	return s.execAffecting(ctx, "delete task", `DELETE FROM tasks WHERE id = ?`, taskID)
}

func (s *SQLDatabase) ListProjectTasks(projectID string, state *models.TaskState) pagination.Query[models.Task] {
	q := newListQuery(s, taskColumns, "tasks", "created_at DESC, id", scanTask).
		filter("project_id = ?", projectID)
	if state != nil {
		q.filter("state = ?", *state)
	}
	return q
}

// ==== assignees ====

func scanAssignee(row scanner) (models.TaskAssignee, error) {
	var a models.TaskAssignee
	err := row.Scan(&a.TaskID, &a.UserID, &a.CreatedAt)
	return a, err
}

func (s *SQLDatabase) AddTaskAssignee(ctx context.Context, a *models.TaskAssignee) error {
	_, err := s.exec(ctx, `INSERT INTO task_assignees (task_id, user_id, created_at) VALUES (?, ?, ?)`,
		a.TaskID, a.UserID, a.CreatedAt)
	if err != nil {
		return mapWriteError("add task assignee", err)
	}
	return nil
}

func (s *SQLDatabase) GetTaskAssignee(ctx context.Context, taskID, userID string) (*models.TaskAssignee, error) {
	a, err := scanAssignee(s.queryRow(ctx, `
		SELECT task_id, user_id, created_at FROM task_assignees
		WHERE task_id = ? AND user_id = ?`, taskID, userID))
	if err != nil {
		return nil, notFound("task assignee", err)
	}
	return &a, nil
}

func (s *SQLDatabase) DeleteTaskAssignee(ctx context.Context, taskID, userID string) error {
	return s.execAffecting(ctx, "delete task assignee", `
		DELETE FROM task_assignees WHERE task_id = ? AND user_id = ?`, taskID, userID)
}

func (s *SQLDatabase) ListTaskAssignees(ctx context.Context, taskID string) ([]models.TaskAssignee, error) {
	rows, err := s.query(ctx, `
		SELECT task_id, user_id, created_at FROM task_assignees
		WHERE task_id = ? ORDER BY created_at, user_id`, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to query task assignees: %w", err)
	}
	defer rows.Close()

	assignees := []models.TaskAssignee{}
	for rows.Next() {
		a, err := scanAssignee(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task assignee: %w", err)
		}
		assignees = append(assignees, a)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task assignees: %w", err)
	}
	return assignees, nil
}

func (s *SQLDatabase) DeleteProjectAssignments(ctx context.Context, projectID, userID string) error {
	_, err := s.exec(ctx, `
		DELETE FROM task_assignees
		WHERE user_id = ? AND task_id IN (SELECT id FROM tasks WHERE project_id = ?)`, userID, projectID)
	if err != nil {
		return mapWriteError("delete project assignments", err)
	}
	return nil
}

func (s *SQLDatabase) IsTaskAssignee(ctx context.Context, taskID, userID string) (bool, error) {
	return s.exists(ctx, `SELECT 1 FROM task_assignees WHERE task_id = ? AND user_id = ?`, taskID, userID)
}
