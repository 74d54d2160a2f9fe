package database

import (
	"fmt"

	"github.com/google/uuid"
)

// NewMemoryDatabase opens a private, migrated in-memory SQLite database.
// Each call gets its own schema; used by tests across packages.
func NewMemoryDatabase() (*SQLDatabase, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := NewLocalDatabase(dsn)
	if err != nil {
		return nil, err
	}
	if err := db.RunMigrations(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
