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

// ProjectService 项目与项目参与者
type ProjectService struct {
	db   database.DatabaseInterface
	gate *permissions.Gate
	now  func() time.Time
}

func NewProjectService(db database.DatabaseInterface, gate *permissions.Gate, now func() time.Time) *ProjectService {
	return &ProjectService{db: db, gate: gate, now: now}
}

// loadProject fetches a project together with its organization
func loadProject(ctx context.Context, db database.DatabaseInterface, projectID string) (*models.Project, *models.Organization, error) {
	project, err := db.GetProject(ctx, projectID)
	if err != nil {
		return nil, nil, storeErr("project", err)
	}
	org, err := loadOrganization(ctx, db, project.OrganizationID)
	if err != nil {
		return nil, nil, err
	}
	return project, org, nil
}

// Create 仅组织管理者可以创建项目
func (s *ProjectService) Create(ctx context.Context, actor *models.User, orgID string, in models.ProjectCreate) (*models.Project, error) {
	var result *models.Project
	err := s.db.WithTx(ctx, func(tx database.DatabaseInterface) error {
		org, err := loadOrganization(ctx, tx, orgID)
		if err != nil {
			return err
		}
		check := permissions.NewChecker(tx)
		if err := s.gate.Enforce(ctx, "create project", check.IsOrganizationManager(org, actor)); err != nil {
			return err
		}
		now := nowUTC(s.now)
		project := &models.Project{
			ID:             uuid.New().String(),
			OrganizationID: org.ID,
			Title:          strings.TrimSpace(in.Title),
			Description:    in.Description,
			StartDate:      in.StartDate,
			FinishDate:     in.FinishDate,
			Deadline:       in.Deadline,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := project.Validate(); err != nil {
			return err
		}
		if err := tx.CreateProject(ctx, project); err != nil {
			return storeErr("project", err)
		}
		result = project
		return nil
	})
	return result, err
}

func (s *ProjectService) Get(ctx context.Context, actor *models.User, projectID string) (*models.Project, error) {
	project, org, err := loadProject(ctx, s.db, projectID)
	if err != nil {
		return nil, err
	}
	check := permissions.NewChecker(s.db)
	if err := s.gate.Enforce(ctx, "view project", check.IsProjectParticipantOrOrganizationManager(project, org, actor)); err != nil {
		return nil, err
	}
	return project, nil
}

// List returns every project to the manager and only participated projects to members
func (s *ProjectService) List(ctx context.Context, actor *models.User, orgID string, params pagination.Params) (*pagination.Page[models.Project], error) {
	org, err := loadOrganization(ctx, s.db, orgID)
	if err != nil {
		return nil, err
	}
	check := permissions.NewChecker(s.db)
	if err := s.gate.Enforce(ctx, "list projects", check.IsOrganizationMemberOrManager(org, actor)); err != nil {
		return nil, err
	}
	if org.ManagerID == actor.ID {
		return pagination.Paginate(ctx, s.db.ListOrganizationProjects(org.ID), params)
	}
	return pagination.Paginate(ctx, s.db.ListParticipatedProjects(org.ID, actor.ID), params)
}

func (s *ProjectService) Update(ctx context.Context, actor *models.User, projectID string, upd models.ProjectUpdate) (*models.Project, error) {
	var result *models.Project
	err := s.db.WithTx(ctx, func(tx database.DatabaseInterface) error {
		project, org, err := loadProject(ctx, tx, projectID)
		if err != nil {
			return err
		}
		check := permissions.NewChecker(tx)
		if err := s.gate.Enforce(ctx, "update project", check.IsOrganizationManager(org, actor)); err != nil {
			return err
		}
		merged, err := upd.Apply(*project)
		if err != nil {
			return err
		}
		merged.UpdatedAt = nowUTC(s.now)
		if err := tx.UpdateProject(ctx, &merged); err != nil {
			return storeErr("project", err)
		}
		result = &merged
		return nil
	})
	return result, err
}

// Delete 删除项目，任务与参与者级联删除
func (s *ProjectService) Delete(ctx context.Context, actor *models.User, projectID string) error {
	return s.db.WithTx(ctx, func(tx database.DatabaseInterface) error {
		project, org, err := loadProject(ctx, tx, projectID)
		if err != nil {
			return err
		}
		check := permissions.NewChecker(tx)
		if err := s.gate.Enforce(ctx, "delete project", check.IsOrganizationManager(org, actor)); err != nil {
			return err
		}
		return storeErr("project", tx.DeleteProject(ctx, project.ID))
	})
}

func (s *ProjectService) ListParticipants(ctx context.Context, actor *models.User, projectID string, params pagination.Params) (*pagination.Page[models.ProjectParticipant], error) {
	project, org, err := loadProject(ctx, s.db, projectID)
	if err != nil {
		return nil, err
	}
	check := permissions.NewChecker(s.db)
	if err := s.gate.Enforce(ctx, "list participants", check.IsProjectParticipantOrOrganizationManager(project, org, actor)); err != nil {
		return nil, err
	}
	return pagination.Paginate(ctx, s.db.ListProjectParticipants(project.ID), params)
}

// PutParticipant adds a participant or changes their participation type.
// created reports whether a new row was inserted.
func (s *ProjectService) PutParticipant(ctx context.Context, actor *models.User, projectID string, in models.ParticipantPut) (participant *models.ProjectParticipant, created bool, err error) {
	err = s.db.WithTx(ctx, func(tx database.DatabaseInterface) error {
		project, org, err := loadProject(ctx, tx, projectID)
		if err != nil {
			return err
		}
		check := permissions.NewChecker(tx)
		if err := s.gate.Enforce(ctx, "manage participants", check.IsOrganizationManager(org, actor)); err != nil {
			return err
		}
		userID, err := parseUserID(in.UserID)
		if err != nil {
			return err
		}
		in.ParticipationType = models.ParticipationType(strings.ToUpper(string(in.ParticipationType)))
		if !in.ParticipationType.Valid() {
			return apperrors.Validation("participation_type", "participation_type must be CONTRIBUTOR or VIEWER")
		}
		user, err := tx.GetUserByID(ctx, userID)
		if err != nil {
			return storeErr("user", err)
		}
		eligible, err := check.IsOrganizationMemberOrManager(org, user)(ctx)
		if err != nil {
			return err
		}
		if !eligible {
			return apperrors.Domain("user is not an active member of the organization")
		}

		now := nowUTC(s.now)
		existing, err := tx.GetProjectParticipant(ctx, project.ID, user.ID)
		switch {
		case err == nil:
			if existing.ParticipationType == in.ParticipationType {
				participant = existing
				return nil
			}
			if in.ParticipationType == models.ParticipationViewer {
				if err := tx.DeleteProjectAssignments(ctx, project.ID, user.ID); err != nil {
					return err
				}
			}
			existing.ParticipationType = in.ParticipationType
			existing.UpdatedAt = now
			if err := tx.UpdateProjectParticipant(ctx, existing); err != nil {
				return storeErr("participant", err)
			}
			participant = existing
			return nil
		case !errors.Is(err, database.ErrNotFound):
			return err
		}

		p := &models.ProjectParticipant{
			ProjectID:         project.ID,
			UserID:            user.ID,
			ParticipationType: in.ParticipationType,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if err := tx.AddProjectParticipant(ctx, p); err != nil {
			return storeErr("participant", err)
		}
		participant, created = p, true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return participant, created, nil
}

// RemoveParticipant 移除参与者及其在该项目中的全部任务分配
func (s *ProjectService) RemoveParticipant(ctx context.Context, actor *models.User, projectID, userID string) error {
	return s.db.WithTx(ctx, func(tx database.DatabaseInterface) error {
		project, org, err := loadProject(ctx, tx, projectID)
		if err != nil {
			return err
		}
		check := permissions.NewChecker(tx)
		if err := s.gate.Enforce(ctx, "manage participants", check.IsOrganizationManager(org, actor)); err != nil {
			return err
		}
		if err := tx.DeleteProjectAssignments(ctx, project.ID, userID); err != nil {
			return err
		}
		return storeErr("participant", tx.DeleteProjectParticipant(ctx, project.ID, userID))
	})
}
