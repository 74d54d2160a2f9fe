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

// OrganizationService 组织、成员与邀请
type OrganizationService struct {
	db   database.DatabaseInterface
	gate *permissions.Gate
	now  func() time.Time
}

func NewOrganizationService(db database.DatabaseInterface, gate *permissions.Gate, now func() time.Time) *OrganizationService {
	return &OrganizationService{db: db, gate: gate, now: now}
}

func loadOrganization(ctx context.Context, db database.DatabaseInterface, orgID string) (*models.Organization, error) {
	org, err := db.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, storeErr("organization", err)
	}
	return org, nil
}

// Create 创建组织，调用者成为管理者
func (s *OrganizationService) Create(ctx context.Context, actor *models.User, in models.OrganizationCreate) (*models.Organization, error) {
	now := nowUTC(s.now)
	org := &models.Organization{
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		ManagerID:   actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := org.Validate(); err != nil {
		return nil, err
	}
	if err := s.db.CreateOrganization(ctx, org); err != nil {
		return nil, storeErr("organization", err)
	}
	return org, nil
}

// Get 成员或管理者可见
func (s *OrganizationService) Get(ctx context.Context, actor *models.User, orgID string) (*models.Organization, error) {
	org, err := loadOrganization(ctx, s.db, orgID)
	if err != nil {
		return nil, err
	}
	check := permissions.NewChecker(s.db)
	if err := s.gate.Enforce(ctx, "view organization", check.IsOrganizationMemberOrManager(org, actor)); err != nil {
		return nil, err
	}
	return org, nil
}

// ListMine lists organizations the actor manages or actively belongs to
func (s *OrganizationService) ListMine(ctx context.Context, actor *models.User, params pagination.Params) (*pagination.Page[models.Organization], error) {
	return pagination.Paginate(ctx, s.db.ListUserOrganizations(actor.ID), params)
}

func (s *OrganizationService) Update(ctx context.Context, actor *models.User, orgID string, upd models.OrganizationUpdate) (*models.Organization, error) {
	var result *models.Organization
	err := s.db.WithTx(ctx, func(tx database.DatabaseInterface) error {
		org, err := loadOrganization(ctx, tx, orgID)
		if err != nil {
			return err
		}
		check := permissions.NewChecker(tx)
		if err := s.gate.Enforce(ctx, "update organization", check.IsOrganizationManager(org, actor)); err != nil {
			return err
		}
		merged, err := upd.Apply(*org)
		if err != nil {
			return err
		}
		merged.UpdatedAt = nowUTC(s.now)
		if err := tx.UpdateOrganization(ctx, &merged); err != nil {
			return storeErr("organization", err)
		}
		result = &merged
		return nil
	})
	return result, err
}

// Delete 仅管理者；组织下仍有项目时拒绝
func (s *OrganizationService) Delete(ctx context.Context, actor *models.User, orgID string) error {
	return s.db.WithTx(ctx, func(tx database.DatabaseInterface) error {
		org, err := loadOrganization(ctx, tx, orgID)
		if err != nil {
			return err
		}
		check := permissions.NewChecker(tx)
		if err := s.gate.Enforce(ctx, "delete organization", check.IsOrganizationManager(org, actor)); err != nil {
			return err
		}
		count, err := tx.CountOrganizationProjects(ctx, org.ID)
		if err != nil {
			return err
		}
		if count > 0 {
			return apperrors.Domain("organization still has projects; delete them first")
		}
		return storeErr("organization", tx.DeleteOrganization(ctx, org.ID))
	})
}

// ListMembers 成员或管理者可见
func (s *OrganizationService) ListMembers(ctx context.Context, actor *models.User, orgID string, params pagination.Params) (*pagination.Page[models.OrganizationMembership], error) {
	org, err := loadOrganization(ctx, s.db, orgID)
	if err != nil {
		return nil, err
	}
	check := permissions.NewChecker(s.db)
	if err := s.gate.Enforce(ctx, "list members", check.IsOrganizationMemberOrManager(org, actor)); err != nil {
		return nil, err
	}
	return pagination.Paginate(ctx, s.db.ListOrganizationMembers(org.ID), params)
}

// SetMemberActive toggles a membership; project participations are kept
func (s *OrganizationService) SetMemberActive(ctx context.Context, actor *models.User, orgID, userID string, upd models.MembershipUpdate) (*models.OrganizationMembership, error) {
	var result *models.OrganizationMembership
	err := s.db.WithTx(ctx, func(tx database.DatabaseInterface) error {
		org, err := loadOrganization(ctx, tx, orgID)
		if err != nil {
			return err
		}
		check := permissions.NewChecker(tx)
		if err := s.gate.Enforce(ctx, "update member", check.IsOrganizationManager(org, actor)); err != nil {
			return err
		}
		if upd.IsActive == nil {
			return apperrors.Validation("is_active", "is_active is required")
		}
		m, err := tx.GetMembership(ctx, org.ID, userID)
		if err != nil {
			return storeErr("membership", err)
		}
		m.IsActive = *upd.IsActive
		m.UpdatedAt = nowUTC(s.now)
		if err := tx.UpdateMembership(ctx, m); err != nil {
			return storeErr("membership", err)
		}
		result = m
		return nil
	})
	return result, err
}

// RemoveMember 管理者移除成员，同时清除其项目参与与任务分配
func (s *OrganizationService) RemoveMember(ctx context.Context, actor *models.User, orgID, userID string) error {
	return s.db.WithTx(ctx, func(tx database.DatabaseInterface) error {
		org, err := loadOrganization(ctx, tx, orgID)
		if err != nil {
			return err
		}
		check := permissions.NewChecker(tx)
		if err := s.gate.Enforce(ctx, "remove member", check.IsOrganizationManager(org, actor)); err != nil {
			return err
		}
		return dropMembership(ctx, tx, org.ID, userID)
	})
}

// Leave removes the actor's own membership. The manager cannot leave.
func (s *OrganizationService) Leave(ctx context.Context, actor *models.User, orgID string) error {
	return s.db.WithTx(ctx, func(tx database.DatabaseInterface) error {
		org, err := loadOrganization(ctx, tx, orgID)
		if err != nil {
			return err
		}
		if org.ManagerID == actor.ID {
			return apperrors.Domain("the manager cannot leave the organization")
		}
		return dropMembership(ctx, tx, org.ID, actor.ID)
	})
}

func dropMembership(ctx context.Context, tx database.DatabaseInterface, orgID, userID string) error {
	if err := tx.DeleteMembership(ctx, orgID, userID); err != nil {
		return storeErr("membership", err)
	}
	return tx.DeleteOrganizationParticipations(ctx, orgID, userID)
}

// Invite 邀请已注册用户；同一用户的历史邀请会被重置为 pending
func (s *OrganizationService) Invite(ctx context.Context, actor *models.User, orgID string, in models.InvitationCreate) (*models.OrganizationInvitation, error) {
	var result *models.OrganizationInvitation
	err := s.db.WithTx(ctx, func(tx database.DatabaseInterface) error {
		org, err := loadOrganization(ctx, tx, orgID)
		if err != nil {
			return err
		}
		check := permissions.NewChecker(tx)
		if err := s.gate.Enforce(ctx, "invite member", check.IsOrganizationManager(org, actor)); err != nil {
			return err
		}
		if strings.TrimSpace(in.UserEmail) == "" {
			return apperrors.Validation("user_email", "user_email is required")
		}
		invitee, err := tx.GetUserByEmail(ctx, in.UserEmail)
		if err != nil {
			return storeErr("user", err)
		}
		if invitee.ID == org.ManagerID {
			return apperrors.Domain("the manager cannot be invited to their own organization")
		}
		if _, err := tx.GetMembership(ctx, org.ID, invitee.ID); err == nil {
			return apperrors.Domain("user is already a member of this organization")
		} else if !errors.Is(err, database.ErrNotFound) {
			return err
		}

		now := nowUTC(s.now)
		existing, err := tx.GetInvitationByUser(ctx, org.ID, invitee.ID)
		switch {
		case err == nil:
			if existing.Status == models.InvitationPending {
				return apperrors.Domain("an invitation is already pending for this user")
			}
			existing.Status = models.InvitationPending
			existing.InviterID = actor.ID
			existing.UpdatedAt = now
			if err := tx.UpdateInvitation(ctx, existing); err != nil {
				return storeErr("invitation", err)
			}
			result = existing
			return nil
		case !errors.Is(err, database.ErrNotFound):
			return err
		}

		inv := &models.OrganizationInvitation{
			ID:             uuid.New().String(),
			OrganizationID: org.ID,
			UserID:         invitee.ID,
			InviterID:      actor.ID,
			Status:         models.InvitationPending,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := tx.CreateInvitation(ctx, inv); err != nil {
			return storeErr("invitation", err)
		}
		result = inv
		return nil
	})
	return result, err
}

func (s *OrganizationService) ListInvitations(ctx context.Context, actor *models.User, orgID string, status *models.InvitationStatus, params pagination.Params) (*pagination.Page[models.OrganizationInvitation], error) {
	org, err := loadOrganization(ctx, s.db, orgID)
	if err != nil {
		return nil, err
	}
	check := permissions.NewChecker(s.db)
	if err := s.gate.Enforce(ctx, "list invitations", check.IsOrganizationManager(org, actor)); err != nil {
		return nil, err
	}
	return pagination.Paginate(ctx, s.db.ListOrganizationInvitations(org.ID, status), params)
}

// RevokeInvitation 撤回仍为 pending 的邀请
func (s *OrganizationService) RevokeInvitation(ctx context.Context, actor *models.User, orgID, invitationID string) error {
	return s.db.WithTx(ctx, func(tx database.DatabaseInterface) error {
		org, err := loadOrganization(ctx, tx, orgID)
		if err != nil {
			return err
		}
		check := permissions.NewChecker(tx)
		if err := s.gate.Enforce(ctx, "revoke invitation", check.IsOrganizationManager(org, actor)); err != nil {
			return err
		}
		inv, err := tx.GetInvitation(ctx, invitationID)
		if err != nil {
			return storeErr("invitation", err)
		}
		if inv.OrganizationID != org.ID {
			return apperrors.NotFound("invitation")
		}
		if inv.Status != models.InvitationPending {
			return apperrors.Domain("only pending invitations can be revoked")
		}
		return storeErr("invitation", tx.DeleteInvitation(ctx, inv.ID))
	})
}

// ListMyInvitations 当前用户收到的邀请
func (s *OrganizationService) ListMyInvitations(ctx context.Context, actor *models.User, status *models.InvitationStatus, params pagination.Params) (*pagination.Page[models.OrganizationInvitation], error) {
	return pagination.Paginate(ctx, s.db.ListUserInvitations(actor.ID, status), params)
}

// AcceptInvitation marks the invitation accepted and activates the membership in one transaction
func (s *OrganizationService) AcceptInvitation(ctx context.Context, actor *models.User, invitationID string) (*models.OrganizationMembership, error) {
	var result *models.OrganizationMembership
	err := s.db.WithTx(ctx, func(tx database.DatabaseInterface) error {
		inv, err := s.respond(ctx, tx, actor, invitationID, models.InvitationAccepted)
		if err != nil {
			return err
		}

		now := nowUTC(s.now)
		m, err := tx.GetMembership(ctx, inv.OrganizationID, actor.ID)
		switch {
		case err == nil:
			m.IsActive = true
			m.UpdatedAt = now
			if err := tx.UpdateMembership(ctx, m); err != nil {
				return storeErr("membership", err)
			}
		case errors.Is(err, database.ErrNotFound):
			m = &models.OrganizationMembership{
				OrganizationID: inv.OrganizationID,
				UserID:         actor.ID,
				IsActive:       true,
				CreatedAt:      now,
				UpdatedAt:      now,
			}
			if err := tx.AddOrganizationMember(ctx, m); err != nil {
				return storeErr("membership", err)
			}
		default:
			return err
		}
		result = m
		return nil
	})
	return result, err
}

func (s *OrganizationService) RejectInvitation(ctx context.Context, actor *models.User, invitationID string) (*models.OrganizationInvitation, error) {
	var result *models.OrganizationInvitation
	err := s.db.WithTx(ctx, func(tx database.DatabaseInterface) error {
		inv, err := s.respond(ctx, tx, actor, invitationID, models.InvitationRejected)
		result = inv
		return err
	})
	return result, err
}

// respond moves a pending invitation addressed to actor into status
func (s *OrganizationService) respond(ctx context.Context, tx database.DatabaseInterface, actor *models.User, invitationID string, status models.InvitationStatus) (*models.OrganizationInvitation, error) {
	inv, err := tx.GetInvitation(ctx, invitationID)
	if err != nil {
		return nil, storeErr("invitation", err)
	}
	check := permissions.NewChecker(tx)
	if err := s.gate.Enforce(ctx, "respond to invitation", check.IsInvitee(inv, actor)); err != nil {
		return nil, err
	}
	if inv.Status != models.InvitationPending {
		return nil, apperrors.Domain("invitation is no longer pending")
	}
	inv.Status = status
	inv.UpdatedAt = nowUTC(s.now)
	if err := tx.UpdateInvitation(ctx, inv); err != nil {
		return nil, storeErr("invitation", err)
	}
	return inv, nil
}
