package database

import (
	"context"

	"ddash-backend/pkg/models"
	"ddash-backend/pkg/pagination"

	"github.com/google/uuid"
)

const organizationColumns = `o.id, o.name, o.description, o.manager_id, o.created_at, o.updated_at`

func scanOrganization(row scanner) (models.Organization, error) {
	var o models.Organization
	err := row.Scan(&o.ID, &o.Name, &o.Description, &o.ManagerID, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

// CreateOrganization 创建组织
func (s *SQLDatabase) CreateOrganization(ctx context.Context, org *models.Organization) error {
	if org.ID == "" {
		org.ID = uuid.New().String()
	}
	_, err := s.exec(ctx, `
		INSERT INTO organizations (id, name, description, manager_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		org.ID, org.Name, org.Description, org.ManagerID, org.CreatedAt, org.UpdatedAt,
	)
	if err != nil {
		return mapWriteError("create organization", err)
	}
	return nil
}

func (s *SQLDatabase) GetOrganization(ctx context.Context, orgID string) (*models.Organization, error) {
	o, err := scanOrganization(s.queryRow(ctx, `SELECT `+organizationColumns+` FROM organizations o WHERE o.id = ?`, orgID))
	if err != nil {
		return nil, notFound("organization", err)
	}
	return &o, nil
}

func (s *SQLDatabase) UpdateOrganization(ctx context.Context, org *models.Organization) error {
	return s.execAffecting(ctx, "update organization", `
		UPDATE organizations SET name = ?, description = ?, updated_at = ?
		WHERE id = ?`,
		org.Name, org.Description, org.UpdatedAt, org.ID,
	)
}

// DeleteOrganization 删除组织，成员关系与邀请级联删除
func (s *SQLDatabase) DeleteOrganization(ctx context.Context, orgID string) error {
	return s.execAffecting(ctx, "delete organization", `DELETE FROM organizations WHERE id = ?`, orgID)
}

func (s *SQLDatabase) ListUserOrganizations(userID string) pagination.Query[models.Organization] {
	return newListQuery(s, organizationColumns, "organizations o", "o.created_at DESC, o.id", scanOrganization).
		filter(`(o.manager_id = ? OR EXISTS (
			SELECT 1 FROM organization_memberships m
			WHERE m.organization_id = o.id AND m.user_id = ? AND m.is_active = ?))`, userID, userID, true)
}

// ==== memberships ====

const membershipColumns = `organization_id, user_id, is_active, created_at, updated_at`

func scanMembership(row scanner) (models.OrganizationMembership, error) {
	var m models.OrganizationMembership
	err := row.Scan(&m.OrganizationID, &m.UserID, &m.IsActive, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

func (s *SQLDatabase) AddOrganizationMember(ctx context.Context, m *models.OrganizationMembership) error {
	_, err := s.exec(ctx, `
		INSERT INTO organization_memberships (`+membershipColumns+`)
		VALUES (?, ?, ?, ?, ?)`,
		m.OrganizationID, m.UserID, m.IsActive, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return mapWriteError("add organization member", err)
	}
	return nil
}

func (s *SQLDatabase) GetMembership(ctx context.Context, orgID, userID string) (*models.OrganizationMembership, error) {
	m, err := scanMembership(s.queryRow(ctx, `
		SELECT `+membershipColumns+` FROM organization_memberships
		WHERE organization_id = ? AND user_id = ?`, orgID, userID))
	if err != nil {
		return nil, notFound("membership", err)
	}
	return &m, nil
}

func (s *SQLDatabase) UpdateMembership(ctx context.Context, m *models.OrganizationMembership) error {
	return s.execAffecting(ctx, "update membership", `
		UPDATE organization_memberships SET is_active = ?, updated_at = ?
		WHERE organization_id = ? AND user_id = ?`,
		m.IsActive, m.UpdatedAt, m.OrganizationID, m.UserID,
	)
}

func (s *SQLDatabase) DeleteMembership(ctx context.Context, orgID, userID string) error {
	return s.execAffecting(ctx, "delete membership", `
		DELETE FROM organization_memberships WHERE organization_id = ? AND user_id = ?`, orgID, userID)
}

func (s *SQLDatabase) ListOrganizationMembers(orgID string) pagination.Query[models.OrganizationMembership] {
	return newListQuery(s, membershipColumns, "organization_memberships", "created_at, user_id", scanMembership).
		filter("organization_id = ?", orgID)
}

func (s *SQLDatabase) IsActiveMember(ctx context.Context, orgID, userID string) (bool, error) {
	return s.exists(ctx, `
		SELECT 1 FROM organization_memberships
		WHERE organization_id = ? AND user_id = ? AND is_active = ?`, orgID, userID, true)
}

// ==== invitations ====

const invitationColumns = `id, organization_id, user_id, inviter_id, status, created_at, updated_at`

func scanInvitation(row scanner) (models.OrganizationInvitation, error) {
	var inv models.OrganizationInvitation
	err := row.Scan(&inv.ID, &inv.OrganizationID, &inv.UserID, &inv.InviterID, &inv.Status, &inv.CreatedAt, &inv.UpdatedAt)
	return inv, err
}

func (s *SQLDatabase) CreateInvitation(ctx context.Context, inv *models.OrganizationInvitation) error {
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	_, err := s.exec(ctx, `
		INSERT INTO organization_invitations (`+invitationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.OrganizationID, inv.UserID, inv.InviterID, inv.Status, inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		return mapWriteError("create invitation", err)
	}
	return nil
}

func (s *SQLDatabase) GetInvitation(ctx context.Context, id string) (*models.OrganizationInvitation, error) {
	inv, err := scanInvitation(s.queryRow(ctx, `SELECT `+invitationColumns+` FROM organization_invitations WHERE id = ?`, id))
	if err != nil {
		return nil, notFound("invitation", err)
	}
	return &inv, nil
}

func (s *SQLDatabase) GetInvitationByUser(ctx context.Context, orgID, userID string) (*models.OrganizationInvitation, error) {
	inv, err := scanInvitation(s.queryRow(ctx, `
		SELECT `+invitationColumns+` FROM organization_invitations
		WHERE organization_id = ? AND user_id = ?`, orgID, userID))
	if err != nil {
		return nil, notFound("invitation", err)
	}
	return &inv, nil
}

func (s *SQLDatabase) UpdateInvitation(ctx context.Context, inv *models.OrganizationInvitation) error {
	return s.execAffecting(ctx, "update invitation", `
		UPDATE organization_invitations SET status = ?, inviter_id = ?, updated_at = ?
		WHERE id = ?`,
		inv.Status, inv.InviterID, inv.UpdatedAt, inv.ID,
	)
}

func (s *SQLDatabase) DeleteInvitation(ctx context.Context, id string) error {
	return s.execAffecting(ctx, "delete invitation", `DELETE FROM organization_invitations WHERE id = ?`, id)
}

func (s *SQLDatabase) ListOrganizationInvitations(orgID string, status *models.InvitationStatus) pagination.Query[models.OrganizationInvitation] {
	q := newListQuery(s, invitationColumns, "organization_invitations", "updated_at DESC, id", scanInvitation).
		filter("organization_id = ?", orgID)
	if status != nil {
		q.filter("status = ?", *status)
	}
	return q
}

func (s *SQLDatabase) ListUserInvitations(userID string, status *models.InvitationStatus) pagination.Query[models.OrganizationInvitation] {
	q := newListQuery(s, invitationColumns, "organization_invitations", "updated_at DESC, id", scanInvitation).
		filter("user_id = ?", userID)
	if status != nil {
		q.filter("status = ?", *status)
	}
	return q
}
