package repomanager

import (
	"context"
	"database/sql"

	"github.com/teamterraforge/tgmsauth/internal/dbx"
	"github.com/teamterraforge/tgmsauth/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DB handle, which may be a
// transaction, and owns schema migrations.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
}
