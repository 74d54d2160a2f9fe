package models

import (
	"fmt"
	"time"

	"ddash-backend/pkg/apperrors"
)

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationRejected InvitationStatus = "rejected"
)

// ParseInvitationStatus accepts "" (no filter) or one of the three statuses
func ParseInvitationStatus(s string) (*InvitationStatus, error) {
	if s == "" {
		return nil, nil
	}
	st := InvitationStatus(s)
	switch st {
	case InvitationPending, InvitationAccepted, InvitationRejected:
		return &st, nil
	}
	return nil, apperrors.Validation("status", fmt.Sprintf("unknown invitation status %q", s))
}

// OrganizationInvitation is an invite for an existing user to join an organization.
// One row per (organization, user); re-inviting resets it to pending.
type OrganizationInvitation struct {
	ID             string           `json:"id" db:"id"`
	OrganizationID string           `json:"organization_id" db:"organization_id"`
	UserID         string           `json:"user_id" db:"user_id"`
	InviterID      string           `json:"inviter_id" db:"inviter_id"`
	Status         InvitationStatus `json:"status" db:"status"`
	CreatedAt      time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at" db:"updated_at"`
}

// InvitationCreate is the invite payload
type InvitationCreate struct {
	UserEmail string `json:"user_email"`
}
