package repomanager

import (
	"context"
	"database/sql"

	"github.com/teamterraforge/tgmsauth/internal/dbx"
	"github.com/teamterraforge/tgmsauth/internal/server/repositories/users"
)

// MemoryRepositoryManager serves one shared in-memory users repository and
// ignores the DB handle it is given.
type MemoryRepositoryManager struct {
	users *users.MemoryRepository
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{users: users.NewMemoryRepository()}
}

func (m *MemoryRepositoryManager) Users(dbx.DBTX) users.Repository {
	return m.users
}

// RunMigrations is a no-op; there is no schema.
func (m *MemoryRepositoryManager) RunMigrations(context.Context, *sql.DB) error {
	return nil
}
