// Package repomanager provides a concrete RepositoryManager for
// PostgreSQL, wiring together repository constructors and database
// migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"

	"github.com/verisafe/docvault/internal/dbx"
	"github.com/verisafe/docvault/internal/server/migrations"
	"github.com/verisafe/docvault/internal/server/repositories/anchorjobs"
	"github.com/verisafe/docvault/internal/server/repositories/deletions"
	"github.com/verisafe/docvault/internal/server/repositories/documents"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repository
// implementations and exposes a schema migration hook.
type PostgresRepositoryManager struct{}

// Documents returns a documents.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Documents(db dbx.DBTX) documents.Repository {
	return documents.NewPostgresRepository(db)
}

// Deletions returns a deletions.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Deletions(db dbx.DBTX) deletions.Repository {
	return deletions.NewPostgresRepository(db)
}

// AnchorJobs returns an anchorjobs.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) AnchorJobs(db dbx.DBTX) anchorjobs.Repository {
	return anchorjobs.NewPostgresRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs
// them against the provided database connection.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	goose.SetDialect("pgx")
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return err
	}
	return nil
}

// NewPostgresRepositoryManager constructs a PostgreSQL-backed
// RepositoryManager.
func NewPostgresRepositoryManager() RepositoryManager {
	return &PostgresRepositoryManager{}
}
