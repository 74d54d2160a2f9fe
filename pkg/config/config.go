package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"

	"ddash-backend/pkg/database"
	"ddash-backend/pkg/session"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

// Config 应用配置结构
type Config struct {
	// 环境配置
	Environment string
	Port        string

	// 数据库配置
	UseLocalDB     bool
	DatabaseDriver string
	PostgresDSN    string
	SQLitePath     string
	AutoMigrate    bool

	// JWT配置
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// Redis配置（为空时使用进程内的令牌吊销表）
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// CORS配置
	AllowedOrigins []string

	RequestTimeout time.Duration

	// 调试配置
	Debug bool
}

// configKeys are bound one-to-one to upper-case environment variables
var configKeys = []string{
	"environment",
	"port",
	"database_driver",
	"postgres_dsn",
	"sqlite_path",
	"use_local_db",
	"auto_migrate",
	"jwt_secret",
	"access_token_ttl",
	"refresh_token_ttl",
	"redis_addr",
	"redis_password",
	"redis_db",
	"allowed_origins",
	"request_timeout",
	"debug",
}

// LoadConfig 加载配置：环境变量优先，其次 .env 文件，最后默认值
func LoadConfig() *Config {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range configKeys {
		_ = v.BindEnv(key)
	}

	v.SetDefault("environment", "development")
	v.SetDefault("port", "3000")
	v.SetDefault("database_driver", "postgres")
	v.SetDefault("jwt_secret", defaultJWTSecret)
	v.SetDefault("access_token_ttl", "15m")
	v.SetDefault("refresh_token_ttl", "168h")
	v.SetDefault("redis_db", 0)
	v.SetDefault("allowed_origins", "*")
	v.SetDefault("request_timeout", "60s")
	v.SetDefault("debug", false)

	readEnvFile(v)

	// 未配置 PostgreSQL 时默认使用本地 SQLite
	v.SetDefault("use_local_db", strings.TrimSpace(v.GetString("postgres_dsn")) == "")
	v.SetDefault("auto_migrate", v.GetBool("use_local_db"))

	config := &Config{
		Environment:     v.GetString("environment"),
		Port:            v.GetString("port"),
		UseLocalDB:      v.GetBool("use_local_db"),
		DatabaseDriver:  v.GetString("database_driver"),
		PostgresDSN:     strings.TrimSpace(v.GetString("postgres_dsn")),
		SQLitePath:      strings.TrimSpace(v.GetString("sqlite_path")),
		AutoMigrate:     v.GetBool("auto_migrate"),
		JWTSecret:       v.GetString("jwt_secret"),
		AccessTokenTTL:  v.GetDuration("access_token_ttl"),
		RefreshTokenTTL: v.GetDuration("refresh_token_ttl"),
		RedisAddr:       strings.TrimSpace(v.GetString("redis_addr")),
		RedisPassword:   v.GetString("redis_password"),
		RedisDB:         v.GetInt("redis_db"),
		RequestTimeout:  v.GetDuration("request_timeout"),
		Debug:           v.GetBool("debug"),
	}

	// CORS配置
	allowedOrigins := strings.TrimSpace(v.GetString("allowed_origins"))
	if allowedOrigins == "*" || allowedOrigins == "" {
		config.AllowedOrigins = []string{"*"}
	} else {
		for _, origin := range strings.Split(allowedOrigins, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				config.AllowedOrigins = append(config.AllowedOrigins, origin)
			}
		}
	}

	// 环境特定配置
	if config.Environment == "production" {
		if config.PostgresDSN != "" {
			config.UseLocalDB = false
		} else {
			fmt.Println("⚠️  WARNING: Production environment using local file database. Please configure POSTGRES_DSN")
		}
		// 生产环境关闭调试
		config.Debug = false
	}

	return config
}

// readEnvFile 读取 CONFIG_FILE 或按环境选择的 .env 文件；文件不存在时静默跳过
func readEnvFile(v *viper.Viper) {
	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		if v.GetString("environment") == "production" {
			path = ".env.production"
		} else {
			path = ".env.local"
		}
	}
	if _, err := os.Stat(path); err != nil {
		return
	}

	v.SetConfigFile(path)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json", ".toml":
	default:
		v.SetConfigType("env")
	}
	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️  Failed to read config file %s: %v\n", path, err)
	}
}

// Cached config (initialized once per cold start)
var (
	cachedConfig *Config
	configOnce   sync.Once
)

// GetCached returns the process-wide cached Config.
// On serverless (Vercel), it initializes once per cold start and
// reuses it across warm invocations, avoiding per-request parsing.
func GetCached() *Config {
	configOnce.Do(func() {
		cachedConfig = LoadConfig()
	})
	return cachedConfig
}

// Validate 验证配置
func (c *Config) Validate() error {
	// 验证端口
	if c.Port == "" {
		return errors.New("PORT is required")
	}

	// 验证JWT密钥
	if c.JWTSecret == "" || c.JWTSecret == defaultJWTSecret {
		if c.IsProduction() {
			return errors.New("JWT_SECRET must be set in production")
		}
		if c.IsDevelopment() {
			fmt.Println("⚠️  Using default JWT secret (not recommended for production)")
		}
	}

	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return errors.New("ACCESS_TOKEN_TTL and REFRESH_TOKEN_TTL must be positive durations")
	}

	switch c.DatabaseDriver {
	case "postgres", "pgx":
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q: use postgres or pgx", c.DatabaseDriver)
	}

	// 验证数据库配置
	if !c.UseLocalDB && c.PostgresDSN == "" {
		return errors.New("数据库配置不完整：请配置 POSTGRES_DSN 或启用 USE_LOCAL_DB")
	}

	return nil
}

// IsProduction 检查是否为生产环境
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// IsDevelopment 检查是否为开发环境
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// Database 数据库连接参数
func (c *Config) Database() database.DatabaseConfig {
	return database.DatabaseConfig{
		UseLocalDB:  c.UseLocalDB,
		Driver:      c.DatabaseDriver,
		PostgresDSN: c.PostgresDSN,
		SQLitePath:  c.SQLitePath,
		Debug:       c.Debug,
	}
}

// Redis returns the revocation store settings; ok is false when Redis is not configured
func (c *Config) Redis() (cfg session.RedisConfig, ok bool) {
	if c.RedisAddr == "" {
		return session.RedisConfig{}, false
	}
	return session.RedisConfig{Addr: c.RedisAddr, Password: c.RedisPassword, DB: c.RedisDB}, true
}
