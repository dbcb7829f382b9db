package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/verisafe/docvault/internal/common"
	"github.com/verisafe/docvault/internal/cryptox"
	"github.com/verisafe/docvault/internal/logging"
	"github.com/verisafe/docvault/internal/server/models"
	"github.com/verisafe/docvault/internal/server/repositories/repomanager"
	"github.com/verisafe/docvault/internal/server/storage"
)

// DocumentService implements the upload and download flows: hash,
// encrypt and store on the way in; fetch, decrypt and re-verify on the
// way out.
type DocumentService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	engine      *cryptox.Engine
	storage     storage.ObjectStore
	integrity   *IntegrityService
	logger      logging.Logger
	now         func() time.Time
}

func NewDocumentService(db *sql.DB, rm repomanager.RepositoryManager, engine *cryptox.Engine,
	store storage.ObjectStore, integrity *IntegrityService, logger logging.Logger) *DocumentService {
	return &DocumentService{
		db:          db,
		repomanager: rm,
		engine:      engine,
		storage:     store,
		integrity:   integrity,
		logger:      logger.With("module", "documents"),
		now:         time.Now,
	}
}

// Upload encrypts the plaintext under a freshly derived key, puts the
// ciphertext in object storage, persists the metadata row and records
// the content hash (which also enqueues the anchor job). The returned
// record is in the pending state.
func (s *DocumentService) Upload(ctx context.Context, ownerID string, docType models.DocumentType, plaintext []byte) (*models.DocumentRecord, error) {
	if _, err := models.ParseDocumentType(string(docType)); err != nil {
		return nil, err
	}

	blob, err := s.engine.Encrypt(plaintext)
	if err != nil {
		return nil, fmt.Errorf("encrypt: %w", err)
	}

	id := uuid.NewString()
	ref, err := s.storage.Put(ctx, id, blob.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("store ciphertext: %w", err)
	}

	doc := &models.DocumentRecord{
		ID:           id,
		OwnerID:      ownerID,
		DocumentType: docType,
		StorageRef:   ref,
		Encryption: cryptox.EncryptedBlob{
			// ciphertext lives in object storage, not in the row
			IV:      blob.IV,
			AuthTag: blob.AuthTag,
			Salt:    blob.Salt,
		},
		Status:     models.DocumentStatusPending,
		UploadedAt: s.now(),
	}
	if err := s.repomanager.Documents(s.db).Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}

	contentHash, err := s.integrity.RecordDocument(ctx, plaintext, doc.ID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("record document: %w", err)
	}
	doc.ContentHash = contentHash

	s.logger.Info(ctx, "document uploaded",
		"document_id", doc.ID, "owner_id", ownerID,
		"document_type", string(docType), "size", len(plaintext))
	return doc, nil
}

// Download fetches and decrypts a document for its owner and re-checks
// the plaintext against the stored content hash before handing bytes to
// the caller.
func (s *DocumentService) Download(ctx context.Context, documentID, ownerID string) ([]byte, *models.DocumentRecord, error) {
	doc, err := s.repomanager.Documents(s.db).GetByID(ctx, documentID)
	if err != nil {
		return nil, nil, err
	}
	// foreign documents are indistinguishable from absent ones
	if doc.OwnerID != ownerID {
		return nil, nil, common.ErrNotFound
	}

	ciphertext, err := s.storage.Get(ctx, doc.StorageRef)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch ciphertext: %w", err)
	}

	blob := doc.Encryption
	blob.Ciphertext = ciphertext
	plaintext, err := s.engine.Decrypt(&blob)
	if err != nil {
		return nil, nil, err
	}

	if !cryptox.VerifyHash(plaintext, doc.ContentHash) {
		return nil, nil, fmt.Errorf("%w: content hash mismatch", common.ErrIntegrity)
	}
	return plaintext, doc, nil
}
