package repomanager

import (
	"context"
	"database/sql"

	"github.com/vidtube/vidtube/internal/dbx"
	"github.com/vidtube/vidtube/internal/server/repositories/accounts"
)

// RepositoryManager vends repository implementations bound to a DBTX
// (either the pooled *sql.DB or a transaction) and exposes a schema
// migration hook.
type RepositoryManager interface {
	RunMigrations(ctx context.Context, db *sql.DB) error
	Accounts(db dbx.DBTX) accounts.Repository
}
