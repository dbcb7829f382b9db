package deletions

import (
	"context"
	"time"

	"github.com/verisafe/docvault/internal/server/models"
)

type Repository interface {
	// Append durably writes one audit entry. Records are write-once.
	Append(ctx context.Context, rec *models.DeletionRecord) error
	// CountSince returns how many deletions the owner performed for
	// the given document type at or after the since instant.
	CountSince(ctx context.Context, ownerID string, docType models.DocumentType, since time.Time) (int, error)
	// ListByOwner returns the owner's audit trail, newest first.
	ListByOwner(ctx context.Context, ownerID string) ([]*models.DeletionRecord, error)
}
