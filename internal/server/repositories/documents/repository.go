package documents

import (
	"context"

	"github.com/verisafe/docvault/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, doc *models.DocumentRecord) error
	GetByID(ctx context.Context, id string) (*models.DocumentRecord, error)
	SetContentHash(ctx context.Context, id string, contentHash string) error
	SetAnchor(ctx context.Context, id string, anchor models.AnchorRef) error
	DeleteIfPending(ctx context.Context, id string) error
}
