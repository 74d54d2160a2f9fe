package handler

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"ddash-backend/pkg/config"
	"ddash-backend/pkg/database"
	"ddash-backend/pkg/router"
	"ddash-backend/pkg/session"
	"ddash-backend/pkg/utils"
)

var (
	appOnce    sync.Once
	appHandler http.Handler
	appErr     error
)

// Handler 是Vercel函数的入口点
// 路由器在冷启动时构建一次，之后的调用复用同一实例
func Handler(w http.ResponseWriter, r *http.Request) {
	appOnce.Do(func() {
		appHandler, appErr = build(r.Context())
	})
	if appErr != nil {
		utils.WriteInternalServerErrorResponse(w, appErr.Error())
		return
	}
	appHandler.ServeHTTP(w, r)
}

func build(ctx context.Context) (http.Handler, error) {
	// 加载配置
	cfg := config.GetCached()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("Configuration error: %w", err)
	}

	// 连接由进程级连接池管理，无需手动关闭
	db, err := database.GetDatabase(cfg.Database())
	if err != nil {
		return nil, fmt.Errorf("Database error: %w", err)
	}
	if cfg.AutoMigrate {
		if err := db.RunMigrations(); err != nil {
			return nil, fmt.Errorf("Migration error: %w", err)
		}
	}

	var revoker session.Revoker = session.NewMemoryRevoker(time.Now)
	if redisCfg, ok := cfg.Redis(); ok {
		redisRevoker, err := session.NewRedisRevoker(ctx, redisCfg)
		if err != nil {
			return nil, fmt.Errorf("Redis error: %w", err)
		}
		revoker = redisRevoker
	}

	return router.New(router.Deps{
		Config:  cfg,
		DB:      db,
		Revoker: revoker,
	}), nil
}
