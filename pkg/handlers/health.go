package handlers

import (
	"context"
	"net/http"
	"time"

	"ddash-backend/pkg/utils"
)

// HealthChecker is the part of the store the health endpoint needs
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler 服务健康检查
type HealthHandler struct {
	db          HealthChecker
	environment string
	dialect     string
}

func NewHealthHandler(db HealthChecker, environment, dialect string) *HealthHandler {
	return &HealthHandler{db: db, environment: environment, dialect: dialect}
}

// GET /
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	// 测试数据库连接
	dbStatus := "healthy"
	if err := h.db.HealthCheck(r.Context()); err != nil {
		dbStatus = "unhealthy: " + err.Error()
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{
		"service":     "ddash-backend",
		"version":     "1.0.0",
		"environment": h.environment,
		"database":    h.dialect,
		"db_status":   dbStatus,
		"timestamp":   time.Now().Unix(),
		"status":      "healthy",
	})
}
