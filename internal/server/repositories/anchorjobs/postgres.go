// Package anchorjobs provides the PostgreSQL-backed durable queue for
// hash anchoring jobs. Claiming uses FOR UPDATE SKIP LOCKED so multiple
// worker instances can dequeue concurrently without double processing.
package anchorjobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/verisafe/docvault/internal/common"
	"github.com/verisafe/docvault/internal/dbx"
	"github.com/verisafe/docvault/internal/server/models"
)

// PostgresRepository implements the queue over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Enqueue(ctx context.Context, job *models.AnchorJob) error {
	query := `
		INSERT INTO anchor_jobs (id, document_id, content_hash, attempts, status, next_attempt_at, last_error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		job.ID, job.DocumentID, job.ContentHash, job.Attempts,
		string(job.Status), job.NextAttemptAt, job.LastError, job.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ClaimNext(ctx context.Context, now time.Time) (*models.AnchorJob, error) {
	query := `
		UPDATE anchor_jobs SET status='in_progress', updated_at=$1
		WHERE id = (
			SELECT id FROM anchor_jobs
			WHERE status='pending' AND next_attempt_at <= $1
			ORDER BY next_attempt_at
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING id, document_id, content_hash, attempts, status, next_attempt_at, last_error, created_at
	`
	var job models.AnchorJob
	err := r.db.QueryRowContext(ctx, query, now).Scan(
		&job.ID, &job.DocumentID, &job.ContentHash, &job.Attempts,
		&job.Status, &job.NextAttemptAt, &job.LastError, &job.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &job, nil
}

func (r *PostgresRepository) MarkConfirmed(ctx context.Context, id string) error {
	query := `UPDATE anchor_jobs SET status='confirmed', updated_at=now() WHERE id=$1`
	return r.exec(ctx, query, id)
}

func (r *PostgresRepository) Reschedule(ctx context.Context, id string, attempts int, nextAttemptAt time.Time, lastError string) error {
	query := `
		UPDATE anchor_jobs SET status='pending', attempts=$2, next_attempt_at=$3, last_error=$4, updated_at=now()
		WHERE id=$1
	`
	return r.exec(ctx, query, id, attempts, nextAttemptAt, lastError)
}

func (r *PostgresRepository) MarkFailed(ctx context.Context, id string, lastError string) error {
	query := `UPDATE anchor_jobs SET status='failed', last_error=$2, updated_at=now() WHERE id=$1`
	return r.exec(ctx, query, id, lastError)
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}
