package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/verisafe/docvault/internal/common"
	"github.com/verisafe/docvault/internal/logging"
	"github.com/verisafe/docvault/internal/server/config"
	"github.com/verisafe/docvault/internal/server/metrics"
	"github.com/verisafe/docvault/internal/server/models"
	"github.com/verisafe/docvault/internal/server/repositories/repomanager"
	"github.com/verisafe/docvault/internal/server/storage"
)

// LifecyclePolicy enforces the bounded-mutability rules for uploaded
// documents: a pending document may be deleted by its owner only inside
// the edit window, under a daily per-type quota, with a written
// justification, and always audit-first.
type LifecyclePolicy struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	storage     storage.ObjectStore
	logger      logging.Logger
	metrics     *metrics.Metrics

	editWindow    time.Duration
	maxPerTypeDay int

	now func() time.Time
}

func NewLifecyclePolicy(db *sql.DB, rm repomanager.RepositoryManager, store storage.ObjectStore,
	logger logging.Logger, m *metrics.Metrics, cfg *config.Config) *LifecyclePolicy {
	return &LifecyclePolicy{
		db:            db,
		repomanager:   rm,
		storage:       store,
		logger:        logger.With("module", "lifecycle"),
		metrics:       m,
		editWindow:    cfg.EditWindow,
		maxPerTypeDay: cfg.MaxDeletionsPerTypePerDay,
		now:           time.Now,
	}
}

// quotaWindow is the trailing period the deletion quota is counted over.
const quotaWindow = 24 * time.Hour

// DeletionCheck is the outcome of a policy evaluation. When Allowed is
// false, Denial carries the specific sentinel so the caller can explain
// the reason to the end user.
type DeletionCheck struct {
	Allowed            bool
	Denial             error
	DeletionCount      int
	MinutesSinceUpload int64
}

// CanDelete evaluates the policy against the durable store at call
// time. The window and quota are moving targets, so DeleteDocument
// re-evaluates even if the caller checked moments earlier.
//
// The returned error reports infrastructure failures only; policy
// denials arrive inside the DeletionCheck.
func (p *LifecyclePolicy) CanDelete(ctx context.Context, doc *models.DocumentRecord, reason string) (*DeletionCheck, error) {
	now := p.now()
	elapsed := now.Sub(doc.UploadedAt)
	check := &DeletionCheck{MinutesSinceUpload: int64(elapsed.Minutes())}

	if elapsed > p.editWindow {
		check.Denial = common.ErrEditWindowExpired
		return check, nil
	}
	if doc.Status != models.DocumentStatusPending {
		check.Denial = common.ErrAlreadyReviewed
		return check, nil
	}

	count, err := p.repomanager.Deletions(p.db).CountSince(ctx, doc.OwnerID, doc.DocumentType, now.Add(-quotaWindow))
	if err != nil {
		return nil, fmt.Errorf("deletion count: %w", err)
	}
	check.DeletionCount = count
	if count >= p.maxPerTypeDay {
		check.Denial = common.ErrQuotaExceeded
		return check, nil
	}

	if len(strings.TrimSpace(reason)) < models.MinDeletionReasonLen {
		check.Denial = common.ErrInvalidReason
		return check, nil
	}

	check.Allowed = true
	return check, nil
}

// DeleteDocument performs a guarded deletion:
//
//  1. re-evaluates the policy at the moment of deletion;
//  2. durably appends the DeletionRecord — the audit trail is the
//     source of truth and must exist before anything is destroyed;
//  3. purges the ciphertext best-effort (an orphaned blob is acceptable
//     collateral for a later reconciliation job);
//  4. removes the metadata row with a compare-and-delete on
//     status='pending'; losing that race returns
//     common.ErrConcurrentReviewConflict while the audit record is
//     retained as a historical artifact.
func (p *LifecyclePolicy) DeleteDocument(ctx context.Context, doc *models.DocumentRecord, reason string) (*models.DeletionRecord, error) {
	check, err := p.CanDelete(ctx, doc, reason)
	if err != nil {
		return nil, err
	}
	if !check.Allowed {
		p.metrics.IncrementDeletionDenial(denialLabel(check.Denial))
		return nil, check.Denial
	}

	rec := &models.DeletionRecord{
		ID:                 uuid.NewString(),
		OwnerID:            doc.OwnerID,
		DocumentID:         doc.ID,
		DocumentType:       doc.DocumentType,
		ContentHash:        doc.ContentHash,
		Reason:             reason,
		DeletedAt:          p.now(),
		MinutesSinceUpload: check.MinutesSinceUpload,
		DeletionSequence:   check.DeletionCount + 1,
	}
	if err := p.repomanager.Deletions(p.db).Append(ctx, rec); err != nil {
		return nil, fmt.Errorf("audit write: %w", err)
	}

	if err := p.storage.Delete(ctx, doc.StorageRef); err != nil && !errors.Is(err, common.ErrNotFound) {
		p.logger.Warn(ctx, "ciphertext purge failed, leaving orphan for reconciliation",
			"document_id", doc.ID, "storage_ref", doc.StorageRef, "error", err.Error())
	}

	if err := p.repomanager.Documents(p.db).DeleteIfPending(ctx, doc.ID); err != nil {
		if errors.Is(err, common.ErrConcurrentReviewConflict) {
			p.logger.Warn(ctx, "document reviewed during deletion, audit record retained",
				"document_id", doc.ID, "deletion_record_id", rec.ID)
		}
		return nil, err
	}

	p.metrics.DeletionsTotal.Inc()
	p.logger.Info(ctx, "document deleted",
		"document_id", doc.ID, "owner_id", doc.OwnerID,
		"document_type", string(doc.DocumentType), "sequence", rec.DeletionSequence)
	return rec, nil
}

func denialLabel(denial error) string {
	switch {
	case errors.Is(denial, common.ErrEditWindowExpired):
		return "edit_window_expired"
	case errors.Is(denial, common.ErrAlreadyReviewed):
		return "already_reviewed"
	case errors.Is(denial, common.ErrQuotaExceeded):
		return "quota_exceeded"
	case errors.Is(denial, common.ErrInvalidReason):
		return "invalid_reason"
	default:
		return "other"
	}
}
