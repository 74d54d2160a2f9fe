package models

import (
	"strings"
	"time"
	"unicode/utf8"

	"ddash-backend/pkg/apperrors"
)

const (
	maxOrganizationNameLength        = 75
	maxOrganizationDescriptionLength = 255
)

// Organization groups projects under a single manager
type Organization struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	ManagerID   string    `json:"manager_id" db:"manager_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Validate enforces field limits on create and after a merge
func (o *Organization) Validate() error {
	name := strings.TrimSpace(o.Name)
	if name == "" {
		return apperrors.Validation("name", "name is required")
	}
	if utf8.RuneCountInString(name) > maxOrganizationNameLength {
		return apperrors.Validation("name", "name must be at most 75 characters")
	}
	if utf8.RuneCountInString(o.Description) > maxOrganizationDescriptionLength {
		return apperrors.Validation("description", "description must be at most 255 characters")
	}
	return nil
}

// OrganizationCreate is the create payload
type OrganizationCreate struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// OrganizationUpdate whitelists the mutable organization fields
type OrganizationUpdate struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// Apply merges the update into a copy of org and re-validates it
func (u OrganizationUpdate) Apply(org Organization) (Organization, error) {
	if name := trimmedPtr(u.Name); name != nil {
		org.Name = *name
	}
	if u.Description != nil {
		org.Description = *u.Description
	}
	if err := org.Validate(); err != nil {
		return Organization{}, err
	}
	return org, nil
}

// OrganizationMembership relates users to organizations.
// The manager has no membership row; managers count as members for every check.
type OrganizationMembership struct {
	OrganizationID string    `json:"organization_id" db:"organization_id"`
	UserID         string    `json:"user_id" db:"user_id"`
	IsActive       bool      `json:"is_active" db:"is_active"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// MembershipUpdate toggles is_active
type MembershipUpdate struct {
	IsActive *bool `json:"is_active"`
}
