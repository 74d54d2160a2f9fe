package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"ddash-backend/pkg/apperrors"
)

const (
	maxTaskTitleLength = 255
	MinTaskPriority    = 0
	MaxTaskPriority    = 3
)

// TaskState 任务状态；任意状态之间都可以相互转换
type TaskState string

const (
	TaskStateBacklog    TaskState = "BACKLOG"
	TaskStateTodo       TaskState = "TODO"
	TaskStateInProgress TaskState = "IN_PROGRESS"
	TaskStateCodeReview TaskState = "CODE_REVIEW"
	TaskStateQA         TaskState = "QA"
	TaskStateQARejected TaskState = "QA_REJECTED"
	TaskStateReviewed   TaskState = "REVIEWED"
	TaskStateBlocked    TaskState = "BLOCKED"
	TaskStateCompleted  TaskState = "COMPLETED"
	TaskStateCancelled  TaskState = "CANCELLED"
)

// TaskStates lists every state in workflow order
var TaskStates = []TaskState{
	TaskStateBacklog,
	TaskStateTodo,
	TaskStateInProgress,
	TaskStateCodeReview,
	TaskStateQA,
	TaskStateQARejected,
	TaskStateReviewed,
	TaskStateBlocked,
	TaskStateCompleted,
	TaskStateCancelled,
}

func (s TaskState) Valid() bool {
	for _, st := range TaskStates {
		if s == st {
			return true
		}
	}
	return false
}

// ParseTaskState accepts "" (no filter) or a known state
func ParseTaskState(s string) (*TaskState, error) {
	if s == "" {
		return nil, nil
	}
	st := TaskState(strings.ToUpper(s))
	if !st.Valid() {
		return nil, apperrors.Validation("state", fmt.Sprintf("unknown task state %q", s))
	}
	return &st, nil
}

// Task belongs to one project
type Task struct {
	ID          string     `json:"id" db:"id"`
	ProjectID   string     `json:"project_id" db:"project_id"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description" db:"description"`
	State       TaskState  `json:"state" db:"state"`
	Priority    int        `json:"priority" db:"priority"`
	StartDate   *time.Time `json:"start_date,omitempty" db:"start_date"`
	FinishDate  *time.Time `json:"finish_date,omitempty" db:"finish_date"`
	Deadline    *time.Time `json:"deadline,omitempty" db:"deadline"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// ValidateStateFinishDate checks that finish_date is present exactly when the state is COMPLETED.
func ValidateStateFinishDate(state TaskState, finishDate *time.Time) error {
	if !state.Valid() {
		return apperrors.Validation("state", fmt.Sprintf("unknown task state %q", state))
	}
	if state == TaskStateCompleted && finishDate == nil {
		return apperrors.Validation("finish_date", "finish_date is required when state is COMPLETED")
	}
	if state != TaskStateCompleted && finishDate != nil {
		return apperrors.Validation("finish_date", "finish_date must be empty unless state is COMPLETED")
	}
	return nil
}

// Validate runs the full rule set used on create and full update
func (t *Task) Validate() error {
	title := strings.TrimSpace(t.Title)
	if title == "" {
		return apperrors.Validation("title", "title is required")
	}
	if utf8.RuneCountInString(title) > maxTaskTitleLength {
		return apperrors.Validation("title", "title must be at most 255 characters")
	}
	if t.Priority < MinTaskPriority || t.Priority > MaxTaskPriority {
		return apperrors.Validation("priority", fmt.Sprintf("priority must be between %d and %d", MinTaskPriority, MaxTaskPriority))
	}
	if err := ValidateStateFinishDate(t.State, t.FinishDate); err != nil {
		return err
	}
	if t.StartDate != nil && t.FinishDate != nil && t.FinishDate.Before(*t.StartDate) {
		return apperrors.Validation("finish_date", "finish_date must not be before start_date")
	}
	return nil
}

// TaskCreate is the create payload; state defaults to TODO
type TaskCreate struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	State       TaskState  `json:"state"`
	Priority    int        `json:"priority"`
	StartDate   *time.Time `json:"start_date"`
	FinishDate  *time.Time `json:"finish_date"`
	Deadline    *time.Time `json:"deadline"`
}

// TaskUpdate whitelists the mutable task fields; project is fixed
type TaskUpdate struct {
	Title       *string      `json:"title"`
	Description *string      `json:"description"`
	State       *TaskState   `json:"state"`
	Priority    *int         `json:"priority"`
	StartDate   OptionalTime `json:"start_date"`
	FinishDate  OptionalTime `json:"finish_date"`
	Deadline    OptionalTime `json:"deadline"`
}

// Apply merges the update into a copy of t and re-validates it
func (u TaskUpdate) Apply(t Task) (Task, error) {
	if title := trimmedPtr(u.Title); title != nil {
		t.Title = *title
	}
	if u.Description != nil {
		t.Description = *u.Description
	}
	if u.State != nil {
		t.State = *u.State
	}
	if u.Priority != nil {
		t.Priority = *u.Priority
	}
	u.StartDate.apply(&t.StartDate)
	u.FinishDate.apply(&t.FinishDate)
	u.Deadline.apply(&t.Deadline)
	if err := t.Validate(); err != nil {
		return Task{}, err
	}
	return t, nil
}

// TaskStateChange is the payload of the dedicated state endpoint
type TaskStateChange struct {
	State      TaskState  `json:"state"`
	FinishDate *time.Time `json:"finish_date"`
}

// Apply sets state and finish_date on a copy of t; only the COMPLETED/finish_date rule is checked
func (c TaskStateChange) Apply(t Task) (Task, error) {
	if err := ValidateStateFinishDate(c.State, c.FinishDate); err != nil {
		return Task{}, err
	}
	t.State = c.State
	t.FinishDate = nil
	if c.FinishDate != nil {
		v := *c.FinishDate
		t.FinishDate = &v
	}
	return t, nil
}

// TaskAssignee relates a contributor to a task
type TaskAssignee struct {
	TaskID    string    `json:"task_id" db:"task_id"`
	UserID    string    `json:"user_id" db:"user_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// TaskDetail is a task plus its assignees
type TaskDetail struct {
	Task
	Assignees []TaskAssignee `json:"assignees"`
}

// AssigneeCreate is the add-assignee payload
type AssigneeCreate struct {
	UserID string `json:"user_id"`
}
