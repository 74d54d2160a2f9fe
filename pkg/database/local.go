package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// NewLocalDatabase 创建本地 SQLite 数据库实例（开发与测试使用）
// path 可以是文件路径，也可以是 "file:" 开头的 DSN（例如内存库）
func NewLocalDatabase(path string) (*SQLDatabase, error) {
	dsn := path
	if !strings.HasPrefix(path, "file:") {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory %s: %w", dir, err)
		}
		dsn = "file:" + path
	}
	dsn = addSQLiteParam(dsn, "_foreign_keys=on")
	dsn = addSQLiteParam(dsn, "_busy_timeout=5000")

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// SQLite 只允许一个写连接；保持连接常驻以免内存库被释放
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	return newSQLDatabase(db, dialectSQLite, dsn), nil
}

func addSQLiteParam(dsn, param string) string {
	key := strings.SplitN(param, "=", 2)[0]
	if strings.Contains(dsn, key+"=") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&" + param
	}
	return dsn + "?" + param
}
