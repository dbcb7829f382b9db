// Package documents provides the PostgreSQL-backed repository for
// document metadata rows, including the conditional delete the
// lifecycle policy relies on.
package documents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/verisafe/docvault/internal/common"
	"github.com/verisafe/docvault/internal/dbx"
	"github.com/verisafe/docvault/internal/server/models"
)

// PostgresRepository implements document storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, doc *models.DocumentRecord) error {
	query := `
		INSERT INTO documents (id, owner_id, document_type, content_hash, storage_ref, iv, auth_tag, salt, status, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.ExecContext(ctx, query,
		doc.ID, doc.OwnerID, string(doc.DocumentType), doc.ContentHash, doc.StorageRef,
		doc.Encryption.IV, doc.Encryption.AuthTag, doc.Encryption.Salt,
		string(doc.Status), doc.UploadedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.DocumentRecord, error) {
	query := `
		SELECT id, owner_id, document_type, content_hash, storage_ref, iv, auth_tag, salt, status, uploaded_at, anchor_tx_ref, anchor_confirmed_at
		FROM documents WHERE id=$1
	`
	var (
		doc         models.DocumentRecord
		txRef       sql.NullString
		confirmedAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&doc.ID, &doc.OwnerID, &doc.DocumentType, &doc.ContentHash, &doc.StorageRef,
		&doc.Encryption.IV, &doc.Encryption.AuthTag, &doc.Encryption.Salt,
		&doc.Status, &doc.UploadedAt, &txRef, &confirmedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	if txRef.Valid {
		doc.Anchor = &models.AnchorRef{TxRef: txRef.String, ConfirmedAt: confirmedAt.Time}
	}
	return &doc, nil
}

// SetContentHash persists the plaintext digest. Idempotent: re-setting
// the same value is safe.
func (r *PostgresRepository) SetContentHash(ctx context.Context, id string, contentHash string) error {
	query := `UPDATE documents SET content_hash=$2 WHERE id=$1`
	res, err := r.db.ExecContext(ctx, query, id, contentHash)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireOneRow(res, common.ErrNotFound)
}

func (r *PostgresRepository) SetAnchor(ctx context.Context, id string, anchor models.AnchorRef) error {
	query := `UPDATE documents SET anchor_tx_ref=$2, anchor_confirmed_at=$3 WHERE id=$1`
	res, err := r.db.ExecContext(ctx, query, id, anchor.TxRef, anchor.ConfirmedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireOneRow(res, common.ErrNotFound)
}

// DeleteIfPending removes the metadata row only while the document is
// still pending review. The predicate lives in the statement itself, so
// a concurrent approve/reject between the policy check and the physical
// delete surfaces as ErrConcurrentReviewConflict instead of silently
// deleting a reviewed document.
func (r *PostgresRepository) DeleteIfPending(ctx context.Context, id string) error {
	query := `DELETE FROM documents WHERE id=$1 AND status='pending'`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireOneRow(res, common.ErrConcurrentReviewConflict)
}

func requireOneRow(res sql.Result, onZero error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return onZero
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}
