package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"ddash-backend/pkg/apperrors"
	"ddash-backend/pkg/database"
	"ddash-backend/pkg/models"
	"ddash-backend/pkg/pagination"
	"ddash-backend/pkg/permissions"
)

// TaskService 任务、任务状态与任务分配
type TaskService struct {
	db   database.DatabaseInterface
	gate *permissions.Gate
	now  func() time.Time
}

func NewTaskService(db database.DatabaseInterface, gate *permissions.Gate, now func() time.Time) *TaskService {
	return &TaskService{db: db, gate: gate, now: now}
}

// taskScope is a task with the project and organization it belongs to
type taskScope struct {
	task    *models.Task
	project *models.Project
	org     *models.Organization
}

func loadTask(ctx context.Context, db database.DatabaseInterface, taskID string) (*taskScope, error) {
	task, err := db.GetTask(ctx, taskID)
	if err != nil {
		return nil, storeErr("task", err)
	}
	project, org, err := loadProject(ctx, db, task.ProjectID)
	if err != nil {
		return nil, err
	}
	return &taskScope{task: task, project: project, org: org}, nil
}

func normalizeState(s models.TaskState) models.TaskState {
	return models.TaskState(strings.ToUpper(strings.TrimSpace(string(s))))
}

func (s *TaskService) List(ctx context.Context, actor *models.User, projectID string, state *models.TaskState, params pagination.Params) (*pagination.Page[models.Task], error) {
	project, org, err := loadProject(ctx, s.db, projectID)
	if err != nil {
		return nil, err
	}
	check := permissions.NewChecker(s.db)
	if err := s.gate.Enforce(ctx, "list tasks", check.IsProjectParticipantOrOrganizationManager(project, org, actor)); err != nil {
		return nil, err
	}
	return pagination.Paginate(ctx, s.db.ListProjectTasks(project.ID, state), params)
}

func (s *TaskService) Create(ctx context.Context, actor *models.User, projectID string, in models.TaskCreate) (*models.Task, error) {
	var result *models.Task
	err := s.db.WithTx(ctx, func(tx database.DatabaseInterface) error {
		project, org, err := loadProject(ctx, tx, projectID)
		if err != nil {
			return err
		}
		check := permissions.NewChecker(tx)
		if err := s.gate.Enforce(ctx, "create task", check.IsProjectParticipantOrOrganizationManager(project, org, actor)); err != nil {
			return err
		}
		state := normalizeState(in.State)
		if state == "" {
			state = models.TaskStateTodo
		}
		now := nowUTC(s.now)
		task := &models.Task{
			ID:          uuid.New().String(),
			ProjectID:   project.ID,
			Title:       strings.TrimSpace(in.Title),
			Description: in.Description,
			State:       state,
			Priority:    in.Priority,
			StartDate:   in.StartDate,
			FinishDate:  in.FinishDate,
			Deadline:    in.Deadline,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := task.Validate(); err != nil {
			return err
		}
		if err := tx.CreateTask(ctx, task); err != nil {
			return storeErr("task", err)
		}
		result = task
		return nil
	})
	return result, err
}

// Get returns the task with its assignees
func (s *TaskService) Get(ctx context.Context, actor *models.User, taskID string) (*models.TaskDetail, error) {
	scope, err := loadTask(ctx, s.db, taskID)
	if err != nil {
		return nil, err
	}
	check := permissions.NewChecker(s.db)
	if err := s.gate.Enforce(ctx, "view task", check.IsProjectParticipantOrOrganizationManager(scope.project, scope.org, actor)); err != nil {
		return nil, err
	}
	assignees, err := s.db.ListTaskAssignees(ctx, scope.task.ID)
	if err != nil {
		return nil, err
	}
	return &models.TaskDetail{Task: *scope.task, Assignees: assignees}, nil
}

func (s *TaskService) Update(ctx context.Context, actor *models.User, taskID string, upd models.TaskUpdate) (*models.Task, error) {
	if upd.State != nil {
		st := normalizeState(*upd.State)
		upd.State = &st
	}
	var result *models.Task
	err := s.db.WithTx(ctx, func(tx database.DatabaseInterface) error {
		scope, err := loadTask(ctx, tx, taskID)
		if err != nil {
			return err
		}
		check := permissions.NewChecker(tx)
		if err := s.gate.Enforce(ctx, "update task", check.IsProjectParticipantOrOrganizationManager(scope.project, scope.org, actor)); err != nil {
			return err
		}
		merged, err := upd.Apply(*scope.task)
		if err != nil {
			return err
		}
		merged.UpdatedAt = nowUTC(s.now)
		if err := tx.UpdateTask(ctx, &merged); err != nil {
			return storeErr("task", err)
		}
		result = &merged
		return nil
	})
	return result, err
}

func (s *TaskService) Delete(ctx context.Context, actor *models.User, taskID string) error {
	return s.db.WithTx(ctx, func(tx database.DatabaseInterface) error {
		scope, err := loadTask(ctx, tx, taskID)
		if err != nil {
			return err
		}
		check := permissions.NewChecker(tx)
		if err := s.gate.Enforce(ctx, "delete task", check.IsProjectParticipantOrOrganizationManager(scope.project, scope.org, actor)); err != nil {
			return err
		}
		return storeErr("task", tx.DeleteTask(ctx, scope.task.ID))
	})
}

// SetState 只有任务负责人或组织管理者可以改变任务状态
func (s *TaskService) SetState(ctx context.Context, actor *models.User, taskID string, change models.TaskStateChange) (*models.Task, error) {
	change.State = normalizeState(change.State)
	var result *models.Task
	err := s.db.WithTx(ctx, func(tx database.DatabaseInterface) error {
		scope, err := loadTask(ctx, tx, taskID)
		if err != nil {
			return err
		}
		check := permissions.NewChecker(tx)
		if err := s.gate.Enforce(ctx, "change task state", check.IsTaskAssigneeOrOrganizationManager(scope.task, scope.org, actor)); err != nil {
			return err
		}
		updated, err := change.Apply(*scope.task)
		if err != nil {
			return err
		}
		updated.UpdatedAt = nowUTC(s.now)
		if err := tx.UpdateTask(ctx, &updated); err != nil {
			return storeErr("task", err)
		}
		result = &updated
		return nil
	})
	return result, err
}

// AddAssignee assigns a project contributor; assigning twice is a no-op.
// created reports whether a new row was inserted.
func (s *TaskService) AddAssignee(ctx context.Context, actor *models.User, taskID string, in models.AssigneeCreate) (assignee *models.TaskAssignee, created bool, err error) {
	err = s.db.WithTx(ctx, func(tx database.DatabaseInterface) error {
		scope, err := loadTask(ctx, tx, taskID)
		if err != nil {
			return err
		}
		check := permissions.NewChecker(tx)
		if err := s.gate.Enforce(ctx, "assign task", check.IsProjectParticipantOrOrganizationManager(scope.project, scope.org, actor)); err != nil {
			return err
		}
		userID, err := parseUserID(in.UserID)
		if err != nil {
			return err
		}
		user, err := tx.GetUserByID(ctx, userID)
		if err != nil {
			return storeErr("user", err)
		}
		participant, err := tx.GetProjectParticipant(ctx, scope.project.ID, user.ID)
		if err != nil && !errors.Is(err, database.ErrNotFound) {
			return err
		}
		if participant == nil || participant.ParticipationType != models.ParticipationContributor {
			return apperrors.Domain("user is not a contributor of this project")
		}

		existing, err := tx.GetTaskAssignee(ctx, scope.task.ID, user.ID)
		if err == nil {
			assignee = existing
			return nil
		}
		if !errors.Is(err, database.ErrNotFound) {
			return err
		}
		a := &models.TaskAssignee{TaskID: scope.task.ID, UserID: user.ID, CreatedAt: nowUTC(s.now)}
		if err := tx.AddTaskAssignee(ctx, a); err != nil {
			return storeErr("assignee", err)
		}
		assignee, created = a, true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return assignee, created, nil
}

func (s *TaskService) RemoveAssignee(ctx context.Context, actor *models.User, taskID, userID string) error {
	return s.db.WithTx(ctx, func(tx database.DatabaseInterface) error {
		scope, err := loadTask(ctx, tx, taskID)
		if err != nil {
			return err
		}
		check := permissions.NewChecker(tx)
		if err := s.gate.Enforce(ctx, "unassign task", check.IsProjectParticipantOrOrganizationManager(scope.project, scope.org, actor)); err != nil {
			return err
		}
		err = tx.DeleteTaskAssignee(ctx, scope.task.ID, userID)
		if errors.Is(err, database.ErrNotFound) {
			return apperrors.Domain("user is not assigned to this task")
		}
		return err
	})
}
