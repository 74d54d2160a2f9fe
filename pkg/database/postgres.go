package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
)

func driverOrDefault(driver string) string {
	if driver == "" {
		return "postgres"
	}
	return driver
}

// NewPostgresDatabase 创建PostgreSQL数据库实例
// driver 为 "postgres"（lib/pq，默认）或 "pgx"（pgx stdlib）
func NewPostgresDatabase(dsn, driver string) (*SQLDatabase, error) {
	d := dialectPostgres
	switch driverOrDefault(driver) {
	case "postgres":
	case "pgx":
		d = dialectPgx
	default:
		return nil, fmt.Errorf("unsupported postgres driver %q", driver)
	}

	// Sanitize DSN to avoid stray CR/LF from env values
	dsn = strings.TrimSpace(dsn)

	// 多种连接策略：无服务器环境下首选连接经常失败
	strategies := []string{dsn}
	if d.driverName == "postgres" {
		strategies = []string{
			addConnectionParams(dsn, "connect_timeout=10"),
			addConnectionParams(dsn, "sslmode=require&connect_timeout=10"),
			dsn, // 最后尝试原始DSN
		}
	}

	var lastErr error
	for i, strategy := range strategies {
		fmt.Printf("🔄 Trying connection strategy %d...\n", i+1)

		db, err := sql.Open(d.driverName, strategy)
		if err != nil {
			fmt.Printf("❌ Strategy %d failed to open: %v\n", i+1, err)
			lastErr = err
			continue
		}

		// 设置连接池参数，适合无服务器环境
		db.SetMaxOpenConns(5)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(5 * time.Minute)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = db.PingContext(ctx)
		cancel()
		if err != nil {
			fmt.Printf("❌ Strategy %d failed to ping: %v\n", i+1, err)
			db.Close()
			lastErr = err
			continue
		}

		fmt.Printf("✅ PostgreSQL connection established successfully with strategy %d\n", i+1)
		return newSQLDatabase(db, d, strategy), nil
	}

	return nil, fmt.Errorf("failed to connect to PostgreSQL with all strategies: %w", lastErr)
}

// addConnectionParams 添加连接参数到DSN（URL 形式）
func addConnectionParams(dsn, params string) string {
	if params == "" || !strings.Contains(dsn, "://") {
		return dsn
	}

	separator := "?"
	if strings.Contains(dsn, "?") {
		separator = "&"
	}

	return dsn + separator + params
}
