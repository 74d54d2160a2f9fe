// Package permissions 权限谓词与权限网关
package permissions

import (
	"context"

	"ddash-backend/pkg/models"
)

// Facts 权限判断所需的只读关系查询
type Facts interface {
	IsActiveMember(ctx context.Context, orgID, userID string) (bool, error)
	IsProjectParticipant(ctx context.Context, projectID, userID string) (bool, error)
	IsTaskAssignee(ctx context.Context, taskID, userID string) (bool, error)
}

// Predicate answers "may the actor do this". A missing resource yields false;
// only storage failures yield an error.
type Predicate func(ctx context.Context) (bool, error)

// Checker 基于 Facts 构造权限谓词
type Checker struct {
	facts Facts
}

func NewChecker(facts Facts) *Checker {
	return &Checker{facts: facts}
}

// IsOrganizationManager 纯函数判断，不访问存储
func (c *Checker) IsOrganizationManager(org *models.Organization, user *models.User) Predicate {
	return func(context.Context) (bool, error) {
		if org == nil || user == nil {
			return false, nil
		}
		return org.ManagerID == user.ID, nil
	}
}

// IsOrganizationMember requires an active membership row
func (c *Checker) IsOrganizationMember(org *models.Organization, user *models.User) Predicate {
	return func(ctx context.Context) (bool, error) {
		if org == nil || user == nil {
			return false, nil
		}
		return c.facts.IsActiveMember(ctx, org.ID, user.ID)
	}
}

func (c *Checker) IsOrganizationMemberOrManager(org *models.Organization, user *models.User) Predicate {
	return Any(c.IsOrganizationManager(org, user), c.IsOrganizationMember(org, user))
}

// IsProjectParticipant 任意参与类型均可
func (c *Checker) IsProjectParticipant(project *models.Project, user *models.User) Predicate {
	return func(ctx context.Context) (bool, error) {
		if project == nil || user == nil {
			return false, nil
		}
		return c.facts.IsProjectParticipant(ctx, project.ID, user.ID)
	}
}

func (c *Checker) IsProjectParticipantOrOrganizationManager(project *models.Project, org *models.Organization, user *models.User) Predicate {
	return Any(c.IsOrganizationManager(org, user), c.IsProjectParticipant(project, user))
}

func (c *Checker) IsTaskAssignee(task *models.Task, user *models.User) Predicate {
	return func(ctx context.Context) (bool, error) {
		if task == nil || user == nil {
			return false, nil
		}
		return c.facts.IsTaskAssignee(ctx, task.ID, user.ID)
	}
}

func (c *Checker) IsTaskAssigneeOrOrganizationManager(task *models.Task, org *models.Organization, user *models.User) Predicate {
	return Any(c.IsOrganizationManager(org, user), c.IsTaskAssignee(task, user))
}

// IsInvitee 只有被邀请人本人可以接受或拒绝邀请
func (c *Checker) IsInvitee(inv *models.OrganizationInvitation, user *models.User) Predicate {
	return func(context.Context) (bool, error) {
		if inv == nil || user == nil {
			return false, nil
		}
		return inv.UserID == user.ID, nil
	}
}

// Any short-circuits on the first predicate that holds
func Any(preds ...Predicate) Predicate {
	return func(ctx context.Context) (bool, error) {
		for _, p := range preds {
			ok, err := p(ctx)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	}
}
