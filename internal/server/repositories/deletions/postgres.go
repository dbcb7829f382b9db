// Package deletions provides the PostgreSQL-backed append-only audit
// repository for deletion records. The quota count runs against the
// durable store so concurrent instances observe a consistent value.
package deletions

import (
	"context"
	"fmt"
	"time"

	"github.com/verisafe/docvault/internal/dbx"
	"github.com/verisafe/docvault/internal/server/models"
)

// PostgresRepository implements audit storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Append(ctx context.Context, rec *models.DeletionRecord) error {
	query := `
		INSERT INTO deletion_records (id, owner_id, document_id, document_type, content_hash, reason, deleted_at, minutes_since_upload, deletion_sequence)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.OwnerID, rec.DocumentID, string(rec.DocumentType), rec.ContentHash,
		rec.Reason, rec.DeletedAt, rec.MinutesSinceUpload, rec.DeletionSequence)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) CountSince(ctx context.Context, ownerID string, docType models.DocumentType, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM deletion_records
		WHERE owner_id=$1 AND document_type=$2 AND deleted_at >= $3
	`
	var count int
	err := r.db.QueryRowContext(ctx, query, ownerID, string(docType), since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return count, nil
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.DeletionRecord, error) {
	query := `
		SELECT id, owner_id, document_id, document_type, content_hash, reason, deleted_at, minutes_since_upload, deletion_sequence
		FROM deletion_records
		WHERE owner_id=$1
		ORDER BY deleted_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to select deletion records: %w", err)
	}
	defer rows.Close()

	var result []*models.DeletionRecord
	for rows.Next() {
		var item models.DeletionRecord
		if err := rows.Scan(
			&item.ID, &item.OwnerID, &item.DocumentID, &item.DocumentType, &item.ContentHash,
			&item.Reason, &item.DeletedAt, &item.MinutesSinceUpload, &item.DeletionSequence,
		); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
