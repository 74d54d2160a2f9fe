package database

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// DatabasePool 进程级数据库连接缓存（无服务器冷启动复用）
type DatabasePool struct {
	instance *SQLDatabase
	config   DatabaseConfig
	mu       sync.RWMutex
	lastUsed time.Time
}

var (
	globalPool *DatabasePool
	poolMutex  sync.Mutex
)

// GetDatabase 获取数据库连接（单例模式 + 连接池）
func GetDatabase(config DatabaseConfig) (*SQLDatabase, error) {
	poolMutex.Lock()
	defer poolMutex.Unlock()

	// 检查是否需要创建新的连接池
	if globalPool == nil || shouldRecreateConnection(globalPool, config) {
		fmt.Printf("🔄 Creating new database connection pool\n")

		// 关闭旧连接（如果存在）
		if globalPool != nil && globalPool.instance != nil {
			globalPool.instance.Close()
		}

		instance, err := NewDatabase(config)
		if err != nil {
			globalPool = nil
			return nil, err
		}
		globalPool = &DatabasePool{
			instance: instance,
			config:   config,
			lastUsed: time.Now(),
		}
		return instance, nil
	}

	globalPool.mu.Lock()
	globalPool.lastUsed = time.Now()
	globalPool.mu.Unlock()

	return globalPool.instance, nil
}

// shouldRecreateConnection 判断是否需要重新创建连接
func shouldRecreateConnection(pool *DatabasePool, newConfig DatabaseConfig) bool {
	if pool == nil || pool.instance == nil {
		return true
	}

	// 检查配置是否发生变化
	if pool.config != newConfig {
		fmt.Printf("🔄 Database configuration changed, recreating connection\n")
		return true
	}

	// 检查连接健康状态
	if err := pool.instance.HealthCheck(context.Background()); err != nil {
		fmt.Printf("❌ Database health check failed, recreating: %v\n", err)
		return true
	}

	return false
}

// ClosePool 关闭缓存的连接（进程退出时调用）
func ClosePool() error {
	poolMutex.Lock()
	defer poolMutex.Unlock()

	if globalPool == nil || globalPool.instance == nil {
		return nil
	}
	err := globalPool.instance.Close()
	globalPool = nil
	return err
}

// GetConnectionStats 获取连接池统计信息
func GetConnectionStats() map[string]interface{} {
	poolMutex.Lock()
	defer poolMutex.Unlock()

	if globalPool == nil {
		return map[string]interface{}{
			"status":    "no_connection",
			"last_used": nil,
		}
	}

	globalPool.mu.RLock()
	lastUsed := globalPool.lastUsed
	globalPool.mu.RUnlock()

	dbStats := globalPool.instance.DB().Stats()
	return map[string]interface{}{
		"status":           "connected",
		"dialect":          globalPool.instance.Dialect(),
		"last_used":        lastUsed.Format(time.RFC3339),
		"age":              time.Since(lastUsed).String(),
		"open_connections": dbStats.OpenConnections,
		"in_use":           dbStats.InUse,
		"idle":             dbStats.Idle,
		"config": map[string]interface{}{
			"use_local_db": globalPool.config.UseLocalDB,
			"driver":       driverOrDefault(globalPool.config.Driver),
			"has_postgres": globalPool.config.PostgresDSN != "",
		},
	}
}
