package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

// MigrationStatus holds information about database migration state
type MigrationStatus struct {
	CurrentVersion uint `json:"current_version"`
	LatestVersion  uint `json:"latest_version"`
	Dirty          bool `json:"dirty"`
	Pending        bool `json:"pending"`
}

func (s *SQLDatabase) migrationsDir() string {
	if s.dialect.name == dialectSQLite.name {
		return "migrations/sqlite"
	}
	return "migrations/postgres"
}

func (s *SQLDatabase) migrationSource() (source.Driver, error) {
	return iofs.New(migrationsFS, s.migrationsDir())
}

// withMigrator builds a migrator and releases it afterwards.
// SQLite migrates through the live pool (closing it would drop an in-memory database);
// PostgreSQL uses a dedicated pool because the migrate driver pins and closes its connection.
func (s *SQLDatabase) withMigrator(fn func(m *migrate.Migrate) error) error {
	if s.tx != nil {
		return fmt.Errorf("migrations cannot run inside a transaction")
	}

	src, err := s.migrationSource()
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	var driver migratedb.Driver
	closeAfter := false
	if s.dialect.name == dialectSQLite.name {
		driver, err = sqlite3.WithInstance(s.db, &sqlite3.Config{})
	} else {
		var conn *sql.DB
		conn, err = sql.Open(s.dialect.driverName, s.dsn)
		if err == nil {
			driver, err = postgres.WithInstance(conn, &postgres.Config{})
			if err != nil {
				conn.Close()
			}
		}
		closeAfter = true
	}
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, s.dialect.name, driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	if closeAfter {
		defer m.Close()
	}
	return fn(m)
}

// RunMigrations runs all pending migrations
func (s *SQLDatabase) RunMigrations() error {
	return s.withMigrator(func(m *migrate.Migrate) error {
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("failed to apply migrations: %w", err)
		}
		return nil
	})
}

// RollbackMigration reverts the most recent migration
func (s *SQLDatabase) RollbackMigration() error {
	return s.withMigrator(func(m *migrate.Migrate) error {
		if err := m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("failed to roll back migration: %w", err)
		}
		return nil
	})
}

// GetMigrationStatus returns the current migration status
func (s *SQLDatabase) GetMigrationStatus() (*MigrationStatus, error) {
	var status MigrationStatus
	err := s.withMigrator(func(m *migrate.Migrate) error {
		version, dirty, err := m.Version()
		if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
			return err
		}
		status.CurrentVersion = version
		status.Dirty = dirty
		return nil
	})
	if err != nil {
		return nil, err
	}

	src, err := s.migrationSource()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	// Find the latest version
	if first, err := src.First(); err == nil {
		latest := first
		for {
			next, err := src.Next(latest)
			if err != nil {
				break
			}
			latest = next
		}
		status.LatestVersion = latest
	}
	status.Pending = status.CurrentVersion < status.LatestVersion
	return &status, nil
}
