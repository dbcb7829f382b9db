package repomanager

import (
	"context"
	"database/sql"

	"github.com/verisafe/docvault/internal/dbx"
	"github.com/verisafe/docvault/internal/server/repositories/anchorjobs"
	"github.com/verisafe/docvault/internal/server/repositories/deletions"
	"github.com/verisafe/docvault/internal/server/repositories/documents"
)

// RepositoryManager vends repository implementations bound to a DBTX,
// so services can run several repositories inside one transaction.
type RepositoryManager interface {
	Documents(db dbx.DBTX) documents.Repository
	Deletions(db dbx.DBTX) deletions.Repository
	AnchorJobs(db dbx.DBTX) anchorjobs.Repository
	RunMigrations(ctx context.Context, db *sql.DB) error
}
