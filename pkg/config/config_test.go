package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("POSTGRES_DSN", "")

	c := LoadConfig()
	if c.Environment != "development" || c.Port != "3000" {
		t.Errorf("Unexpected defaults: env=%s port=%s", c.Environment, c.Port)
	}
	if !c.UseLocalDB || !c.AutoMigrate {
		t.Error("Expected local database with auto-migrate when no DSN is configured")
	}
	if c.AccessTokenTTL != 15*time.Minute || c.RefreshTokenTTL != 7*24*time.Hour {
		t.Errorf("Unexpected token TTLs %v %v", c.AccessTokenTTL, c.RefreshTokenTTL)
	}
	if len(c.AllowedOrigins) != 1 || c.AllowedOrigins[0] != "*" {
		t.Errorf("Expected wildcard origins, got %v", c.AllowedOrigins)
	}
	if _, ok := c.Redis(); ok {
		t.Error("Expected Redis disabled by default")
	}
	if err := c.Validate(); err != nil {
		t.Errorf("Expected defaults to validate, got %v", err)
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("POSTGRES_DSN", "postgres://localhost/ddash")
	t.Setenv("DATABASE_DRIVER", "pgx")
	t.Setenv("ACCESS_TOKEN_TTL", "5m")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_DB", "2")

	c := LoadConfig()
	if c.UseLocalDB {
		t.Error("Expected PostgreSQL when POSTGRES_DSN is set")
	}
	if c.DatabaseDriver != "pgx" || c.AccessTokenTTL != 5*time.Minute {
		t.Errorf("Unexpected config %+v", c)
	}
	if len(c.AllowedOrigins) != 2 || c.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("Unexpected origins %v", c.AllowedOrigins)
	}
	redis, ok := c.Redis()
	if !ok || redis.DB != 2 {
		t.Errorf("Expected Redis db 2, got %+v ok=%v", redis, ok)
	}
	if db := c.Database(); db.PostgresDSN != "postgres://localhost/ddash" || db.Driver != "pgx" {
		t.Errorf("Unexpected database config %+v", db)
	}
}

func TestLoadConfigFromEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env.local")
	content := "PORT=8081\nJWT_SECRET=file-secret\nUSE_LOCAL_DB=true\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "")

	c := LoadConfig()
	if c.Port != "8081" || c.JWTSecret != "file-secret" {
		t.Errorf("Expected values from env file, got port=%s secret=%s", c.Port, c.JWTSecret)
	}
}

func TestValidateProductionRequiresSecret(t *testing.T) {
	c := &Config{
		Environment:     "production",
		Port:            "3000",
		DatabaseDriver:  "postgres",
		PostgresDSN:     "postgres://db",
		JWTSecret:       defaultJWTSecret,
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
	}
	if err := c.Validate(); err == nil {
		t.Error("Expected default JWT secret to be rejected in production")
	}
	c.JWTSecret = "real-secret"
	if err := c.Validate(); err != nil {
		t.Errorf("Expected valid production config, got %v", err)
	}
	c.DatabaseDriver = "mysql"
	if err := c.Validate(); err == nil {
		t.Error("Expected unsupported driver to be rejected")
	}
}
