// Package router 单体路由：所有 API 端点集中在一个 Chi 路由器中
package router

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"ddash-backend/pkg/config"
	"ddash-backend/pkg/database"
	"ddash-backend/pkg/handlers"
	customMiddleware "ddash-backend/pkg/middleware"
	"ddash-backend/pkg/permissions"
	"ddash-backend/pkg/services"
	"ddash-backend/pkg/session"
	"ddash-backend/pkg/utils"
)

const maxBodyBytes = 1 << 20

// Deps 路由器依赖
type Deps struct {
	Config  *config.Config
	DB      *database.SQLDatabase
	Revoker session.Revoker
	Clock   func() time.Time
	// Hasher overrides the default argon2id parameters
	Hasher *utils.PasswordHasher
}

// New 创建完整的 HTTP 处理器
func New(deps Deps) http.Handler {
	cfg := deps.Config
	if deps.Clock == nil {
		deps.Clock = time.Now
	}

	svc := services.New(services.Deps{
		DB:      deps.DB,
		Gate:    permissions.NewGate(cfg.Debug),
		JWT:     utils.NewJWTService(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL, deps.Clock),
		Hasher:  deps.Hasher,
		Revoker: deps.Revoker,
		Clock:   deps.Clock,
	})

	router := chi.NewRouter()
	setupMiddleware(router, cfg)
	setupRoutes(router, cfg, deps.DB, svc)
	return router
}

// setupMiddleware 设置全局中间件
func setupMiddleware(router *chi.Mux, cfg *config.Config) {
	// 基础中间件
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	// Normalize path and restore scheme/host before logging and routing
	router.Use(customMiddleware.Normalize())
	router.Use(customMiddleware.Logger(cfg.IsProduction()))
	router.Use(customMiddleware.Recovery(cfg.IsDevelopment()))

	// CORS中间件
	router.Use(customMiddleware.CORS(cfg.AllowedOrigins))

	if cfg.RequestTimeout > 0 {
		router.Use(middleware.Timeout(cfg.RequestTimeout))
	}

	router.Use(customMiddleware.MaxBodySize(maxBodyBytes))
	router.Use(customMiddleware.ContentTypeJSON)

	// 压缩中间件
	router.Use(middleware.Compress(5))

	// 开发环境额外中间件
	if cfg.IsDevelopment() {
		router.Use(middleware.Heartbeat("/ping"))
	}
}

// setupRoutes 设置所有API路由
func setupRoutes(router *chi.Mux, cfg *config.Config, db *database.SQLDatabase, svc *services.Services) {
	// 创建处理器
	healthHandler := handlers.NewHealthHandler(db, cfg.Environment, db.Dialect())
	usersHandler := handlers.NewUsersHandler(svc.Users)
	orgsHandler := handlers.NewOrganizationsHandler(svc.Organizations)
	invitationsHandler := handlers.NewInvitationsHandler(svc.Organizations)
	projectsHandler := handlers.NewProjectsHandler(svc.Projects)
	tasksHandler := handlers.NewTasksHandler(svc.Tasks)

	// 健康检查端点
	router.Get("/", healthHandler.HealthCheck)

	// 数据库连接池状态端点（调试用）
	if cfg.IsDevelopment() {
		router.Get("/debug/db-pool", func(w http.ResponseWriter, r *http.Request) {
			stats := database.GetConnectionStats()
			stats["serverless"] = database.IsVercelEnvironment()
			utils.WriteSuccessResponse(w, stats)
		})
		router.Get("/debug/migrations", func(w http.ResponseWriter, r *http.Request) {
			status, err := db.GetMigrationStatus()
			if err != nil {
				utils.WriteError(w, err)
				return
			}
			utils.WriteSuccessResponse(w, status)
		})
	}

	// API路由组
	router.Route("/api", func(r chi.Router) {
		// 公开路由（不需要认证）
		r.Post("/users", usersHandler.Register)
		r.Route("/auth", func(r chi.Router) {
			r.Post("/token", usersHandler.Token)
			r.Post("/refresh", usersHandler.Refresh)
		})

		// 需要认证的路由
		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.AuthMiddleware(svc.Users, cfg.Debug))

			r.Post("/auth/logout", usersHandler.Logout)
			r.Get("/users/me", usersHandler.Me)

			r.Route("/organizations", func(r chi.Router) {
				r.Get("/", orgsHandler.List)
				r.Post("/", orgsHandler.Create)
				r.Route("/{orgID}", func(r chi.Router) {
					r.Get("/", orgsHandler.Get)
					r.Patch("/", orgsHandler.Update)
					r.Delete("/", orgsHandler.Delete)
					r.Post("/leave", orgsHandler.Leave)

					r.Get("/members", orgsHandler.ListMembers)
					r.Patch("/members/{userID}", orgsHandler.UpdateMember)
					r.Delete("/members/{userID}", orgsHandler.RemoveMember)

					r.Get("/invitations", orgsHandler.ListInvitations)
					r.Post("/invitations", orgsHandler.Invite)
					r.Delete("/invitations/{invitationID}", orgsHandler.RevokeInvitation)

					r.Get("/projects", projectsHandler.List)
					r.Post("/projects", projectsHandler.Create)
				})
			})

			// 当前用户收到的邀请
			r.Route("/invitations", func(r chi.Router) {
				r.Get("/", invitationsHandler.ListMine)
				r.Post("/{invitationID}/accept", invitationsHandler.Accept)
				r.Post("/{invitationID}/reject", invitationsHandler.Reject)
			})

			r.Route("/projects/{projectID}", func(r chi.Router) {
				r.Get("/", projectsHandler.Get)
				r.Patch("/", projectsHandler.Update)
				r.Delete("/", projectsHandler.Delete)

				r.Get("/participants", projectsHandler.ListParticipants)
				r.Put("/participants", projectsHandler.PutParticipant)
				r.Delete("/participants/{userID}", projectsHandler.RemoveParticipant)

				r.Get("/tasks", tasksHandler.List)
				r.Post("/tasks", tasksHandler.Create)
			})

			r.Route("/tasks/{taskID}", func(r chi.Router) {
				r.Get("/", tasksHandler.Get)
				r.Put("/", tasksHandler.Update)
				r.Delete("/", tasksHandler.Delete)
				r.Put("/state", tasksHandler.SetState)
				r.Post("/assignees", tasksHandler.AddAssignee)
				r.Delete("/assignees/{userID}", tasksHandler.RemoveAssignee)
			})
		})
	})

	// 404处理
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteNotFoundResponse(w, fmt.Sprintf("Route not found: %s %s", r.Method, r.URL.Path))
	})

	// 405处理
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteErrorResponseWithCode(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			fmt.Sprintf("Method %s not allowed for %s", r.Method, r.URL.Path), "")
	})
}
