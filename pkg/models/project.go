package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"ddash-backend/pkg/apperrors"
)

const (
	minProjectTitleLength = 3
	maxProjectTitleLength = 75
)

// Project belongs to exactly one organization
type Project struct {
	ID             string     `json:"id" db:"id"`
	OrganizationID string     `json:"organization_id" db:"organization_id"`
	Title          string     `json:"title" db:"title"`
	Description    string     `json:"description" db:"description"`
	StartDate      *time.Time `json:"start_date,omitempty" db:"start_date"`
	FinishDate     *time.Time `json:"finish_date,omitempty" db:"finish_date"`
	Deadline       *time.Time `json:"deadline,omitempty" db:"deadline"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// Validate 校验标题长度与日期先后
func (p *Project) Validate() error {
	n := utf8.RuneCountInString(strings.TrimSpace(p.Title))
	if n < minProjectTitleLength || n > maxProjectTitleLength {
		return apperrors.Validation("title", fmt.Sprintf("title must be between %d and %d characters", minProjectTitleLength, maxProjectTitleLength))
	}
	if p.StartDate != nil {
		if p.FinishDate != nil && p.FinishDate.Before(*p.StartDate) {
			return apperrors.Validation("finish_date", "finish_date must not be before start_date")
		}
		if p.Deadline != nil && p.Deadline.Before(*p.StartDate) {
			return apperrors.Validation("deadline", "deadline must not be before start_date")
		}
	}
	return nil
}

// ProjectCreate is the create payload; the organization comes from the route
type ProjectCreate struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	StartDate   *time.Time `json:"start_date"`
	FinishDate  *time.Time `json:"finish_date"`
	Deadline    *time.Time `json:"deadline"`
}

// ProjectUpdate whitelists the mutable project fields; organization is fixed
type ProjectUpdate struct {
	Title       *string      `json:"title"`
	Description *string      `json:"description"`
	StartDate   OptionalTime `json:"start_date"`
	FinishDate  OptionalTime `json:"finish_date"`
	Deadline    OptionalTime `json:"deadline"`
}

// Apply merges the update into a copy of p and re-validates it
func (u ProjectUpdate) Apply(p Project) (Project, error) {
	if title := trimmedPtr(u.Title); title != nil {
		p.Title = *title
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	u.StartDate.apply(&p.StartDate)
	u.FinishDate.apply(&p.FinishDate)
	u.Deadline.apply(&p.Deadline)
	if err := p.Validate(); err != nil {
		return Project{}, err
	}
	return p, nil
}

// ParticipationType 项目参与类型
type ParticipationType string

const (
	ParticipationContributor ParticipationType = "CONTRIBUTOR"
	ParticipationViewer      ParticipationType = "VIEWER"
)

func (t ParticipationType) Valid() bool {
	return t == ParticipationContributor || t == ParticipationViewer
}

// ProjectParticipant relates a user to a project
type ProjectParticipant struct {
	ProjectID         string            `json:"project_id" db:"project_id"`
	UserID            string            `json:"user_id" db:"user_id"`
	ParticipationType ParticipationType `json:"participation_type" db:"participation_type"`
	CreatedAt         time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at" db:"updated_at"`
}

// ParticipantPut adds a participant or changes their participation type
type ParticipantPut struct {
	UserID            string            `json:"user_id"`
	ParticipationType ParticipationType `json:"participation_type"`
}
