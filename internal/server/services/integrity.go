// Package services implements the DocVault core operations on top of
// the repositories and collaborators: upload/download of encrypted
// documents, content-hash integrity, the durable anchor queue and the
// bounded-mutability lifecycle policy.
package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/verisafe/docvault/internal/cryptox"
	"github.com/verisafe/docvault/internal/dbx"
	"github.com/verisafe/docvault/internal/logging"
	"github.com/verisafe/docvault/internal/server/models"
	"github.com/verisafe/docvault/internal/server/repositories/repomanager"
)

// IntegrityService computes and records content hashes and feeds the
// anchor queue. It never talks to the ledger itself: anchoring is
// asynchronous by design because ledger confirmation latency is
// unbounded and must not delay upload acknowledgement.
type IntegrityService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
	now         func() time.Time
}

func NewIntegrityService(db *sql.DB, rm repomanager.RepositoryManager, logger logging.Logger) *IntegrityService {
	return &IntegrityService{
		db:          db,
		repomanager: rm,
		logger:      logger.With("module", "integrity"),
		now:         time.Now,
	}
}

// RecordDocument computes the plaintext digest, persists it on the
// document row and enqueues a pending anchor job, atomically. Recording
// the same document again recomputes and re-sets the same hash, which
// is safe.
func (s *IntegrityService) RecordDocument(ctx context.Context, plaintext []byte, documentID, ownerID string) (string, error) {
	contentHash := cryptox.Hash(plaintext)

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Documents(tx).SetContentHash(ctx, documentID, contentHash); err != nil {
			return fmt.Errorf("set content hash: %w", err)
		}

		now := s.now()
		job := &models.AnchorJob{
			ID:            uuid.NewString(),
			DocumentID:    documentID,
			ContentHash:   contentHash,
			Attempts:      0,
			Status:        models.AnchorJobStatusPending,
			NextAttemptAt: now,
			CreatedAt:     now,
		}
		if err := s.repomanager.AnchorJobs(tx).Enqueue(ctx, job); err != nil {
			return fmt.Errorf("enqueue anchor job: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	s.logger.Info(ctx, "content hash recorded", "document_id", documentID, "owner_id", ownerID)
	return contentHash, nil
}

// VerificationResult reports whether plaintext still matches its stored
// digest.
type VerificationResult struct {
	IsValid      bool
	ComputedHash string
}

// VerifyDocument recomputes the digest and compares it to storedHash.
// Pure: no side effects, usable for external "prove this document has
// not changed" requests.
func (s *IntegrityService) VerifyDocument(plaintext []byte, storedHash string) VerificationResult {
	computed := cryptox.Hash(plaintext)
	return VerificationResult{
		IsValid:      computed == storedHash,
		ComputedHash: computed,
	}
}
