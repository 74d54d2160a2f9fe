package database

import (
	"context"
	"errors"
	"fmt"
	"os"

	"ddash-backend/pkg/models"
	"ddash-backend/pkg/pagination"
)

var (
	// ErrNotFound 查询的记录不存在
	ErrNotFound = errors.New("record not found")
	// ErrConflict 违反唯一或外键约束
	ErrConflict = errors.New("record conflicts with existing data")
)

// DatabaseInterface 定义数据库访问接口
type DatabaseInterface interface {
	// 用户管理
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// Organizations
	CreateOrganization(ctx context.Context, org *models.Organization) error
	GetOrganization(ctx context.Context, orgID string) (*models.Organization, error)
	UpdateOrganization(ctx context.Context, org *models.Organization) error
	DeleteOrganization(ctx context.Context, orgID string) error
	// ListUserOrganizations returns organizations the user manages or is an active member of
	ListUserOrganizations(userID string) pagination.Query[models.Organization]

	// Memberships
	AddOrganizationMember(ctx context.Context, m *models.OrganizationMembership) error
	GetMembership(ctx context.Context, orgID, userID string) (*models.OrganizationMembership, error)
	UpdateMembership(ctx context.Context, m *models.OrganizationMembership) error
	DeleteMembership(ctx context.Context, orgID, userID string) error
	ListOrganizationMembers(orgID string) pagination.Query[models.OrganizationMembership]
	IsActiveMember(ctx context.Context, orgID, userID string) (bool, error)

	// Invitations
	CreateInvitation(ctx context.Context, inv *models.OrganizationInvitation) error
	GetInvitation(ctx context.Context, id string) (*models.OrganizationInvitation, error)
	GetInvitationByUser(ctx context.Context, orgID, userID string) (*models.OrganizationInvitation, error)
	UpdateInvitation(ctx context.Context, inv *models.OrganizationInvitation) error
	DeleteInvitation(ctx context.Context, id string) error
	ListOrganizationInvitations(orgID string, status *models.InvitationStatus) pagination.Query[models.OrganizationInvitation]
	ListUserInvitations(userID string, status *models.InvitationStatus) pagination.Query[models.OrganizationInvitation]

	// Projects
	CreateProject(ctx context.Context, p *models.Project) error
	GetProject(ctx context.Context, projectID string) (*models.Project, error)
	UpdateProject(ctx context.Context, p *models.Project) error
	DeleteProject(ctx context.Context, projectID string) error
	CountOrganizationProjects(ctx context.Context, orgID string) (int, error)
	ListOrganizationProjects(orgID string) pagination.Query[models.Project]
	// ListParticipatedProjects narrows an organization's projects to those the user participates in
	ListParticipatedProjects(orgID, userID string) pagination.Query[models.Project]

	// Participants
	AddProjectParticipant(ctx context.Context, p *models.ProjectParticipant) error
	GetProjectParticipant(ctx context.Context, projectID, userID string) (*models.ProjectParticipant, error)
	UpdateProjectParticipant(ctx context.Context, p *models.ProjectParticipant) error
	DeleteProjectParticipant(ctx context.Context, projectID, userID string) error
	ListProjectParticipants(projectID string) pagination.Query[models.ProjectParticipant]
	IsProjectParticipant(ctx context.Context, projectID, userID string) (bool, error)
	// DeleteOrganizationParticipations drops the user's participations and assignments in every project of the organization
	DeleteOrganizationParticipations(ctx context.Context, orgID, userID string) error

	// Tasks
	CreateTask(ctx context.Context, t *models.Task) error
	GetTask(ctx context.Context, taskID string) (*models.Task, error)
	UpdateTask(ctx context.Context, t *models.Task) error
	DeleteTask(ctx context.Context, taskID string) error
	// ListProjectTasks orders newest first; state narrows when non-nil
	ListProjectTasks(projectID string, state *models.TaskState) pagination.Query[models.Task]

	// Task assignees
	AddTaskAssignee(ctx context.Context, a *models.TaskAssignee) error
	GetTaskAssignee(ctx context.Context, taskID, userID string) (*models.TaskAssignee, error)
	DeleteTaskAssignee(ctx context.Context, taskID, userID string) error
	ListTaskAssignees(ctx context.Context, taskID string) ([]models.TaskAssignee, error)
	// DeleteProjectAssignments drops the user's assignments on every task of the project
	DeleteProjectAssignments(ctx context.Context, projectID, userID string) error
	IsTaskAssignee(ctx context.Context, taskID, userID string) (bool, error)

	// WithTx runs fn inside one transaction; fn's error rolls it back
	WithTx(ctx context.Context, fn func(tx DatabaseInterface) error) error

	// 健康检查
	HealthCheck(ctx context.Context) error

	// 关闭连接
	Close() error
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	UseLocalDB  bool
	Driver      string // "postgres" (lib/pq) or "pgx"
	PostgresDSN string
	SQLitePath  string
	Debug       bool
}

// NewDatabase 根据环境与配置选择数据库实现
func NewDatabase(config DatabaseConfig) (*SQLDatabase, error) {
	if config.UseLocalDB || config.PostgresDSN == "" {
		path := config.SQLitePath
		if path == "" {
			path = defaultSQLitePath()
		}
		fmt.Printf("🗂️  Using local SQLite database: %s\n", path)
		return NewLocalDatabase(path)
	}

	if IsVercelEnvironment() {
		fmt.Printf("🧭 Detected serverless environment, using PostgreSQL (%s)\n", driverOrDefault(config.Driver))
	} else {
		fmt.Printf("🗄️  Using PostgreSQL database (%s)\n", driverOrDefault(config.Driver))
	}
	return NewPostgresDatabase(config.PostgresDSN, config.Driver)
}

// IsVercelEnvironment 检查是否运行在 Vercel / Lambda
func IsVercelEnvironment() bool {
	vercelEnv := os.Getenv("VERCEL_ENV")
	vercelURL := os.Getenv("VERCEL_URL")
	awsLambda := os.Getenv("AWS_LAMBDA_FUNCTION_NAME")
	return vercelEnv != "" || vercelURL != "" || awsLambda != ""
}

// defaultSQLitePath 只读文件系统中退回 /tmp
func defaultSQLitePath() string {
	if IsVercelEnvironment() {
		return "/tmp/ddash-data/ddash.db"
	}
	return "./data/ddash.db"
}
