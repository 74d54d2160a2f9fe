// Package services 业务逻辑层：取数（404）→ 权限网关（403）→ 校验 → 事务内写入
package services

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"ddash-backend/pkg/apperrors"
	"ddash-backend/pkg/database"
	"ddash-backend/pkg/permissions"
	"ddash-backend/pkg/session"
	"ddash-backend/pkg/utils"
)

// Deps 服务依赖，全部通过构造函数显式注入
type Deps struct {
	DB      database.DatabaseInterface
	Gate    *permissions.Gate
	JWT     *utils.JWTService
	Hasher  *utils.PasswordHasher
	Revoker session.Revoker
	Clock   func() time.Time
}

// Services bundles every entity service built from one Deps
type Services struct {
	Users         *UserService
	Organizations *OrganizationService
	Projects      *ProjectService
	Tasks         *TaskService
}

func New(deps Deps) *Services {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Gate == nil {
		deps.Gate = permissions.NewGate(false)
	}
	if deps.Hasher == nil {
		deps.Hasher = utils.NewPasswordHasher(utils.DefaultPasswordParams)
	}
	if deps.Revoker == nil {
		deps.Revoker = session.NewMemoryRevoker(deps.Clock)
	}
	return &Services{
		Users:         NewUserService(deps.DB, deps.JWT, deps.Hasher, deps.Revoker, deps.Clock),
		Organizations: NewOrganizationService(deps.DB, deps.Gate, deps.Clock),
		Projects:      NewProjectService(deps.DB, deps.Gate, deps.Clock),
		Tasks:         NewTaskService(deps.DB, deps.Gate, deps.Clock),
	}
}

// storeErr translates storage sentinels into application errors
func storeErr(resource string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, database.ErrNotFound):
		return apperrors.NotFound(resource)
	case errors.Is(err, database.ErrConflict):
		return apperrors.Conflict(resource+" conflicts with existing data", err)
	}
	return err
}

func nowUTC(clock func() time.Time) time.Time {
	return clock().UTC()
}

// parseUserID validates a user id taken from a request body
func parseUserID(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", apperrors.Validation("user_id", "user_id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", apperrors.Validation("user_id", "user_id must be a valid UUID")
	}
	return id.String(), nil
}
