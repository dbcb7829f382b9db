package anchorjobs

import (
	"context"
	"time"

	"github.com/verisafe/docvault/internal/server/models"
)

type Repository interface {
	// Enqueue adds a pending job to the durable queue.
	Enqueue(ctx context.Context, job *models.AnchorJob) error
	// ClaimNext atomically moves the oldest due pending job to
	// in_progress and returns it, so each job is picked by at most one
	// worker. Returns common.ErrNotFound when no job is due.
	ClaimNext(ctx context.Context, now time.Time) (*models.AnchorJob, error)
	// MarkConfirmed finalizes a successfully anchored job.
	MarkConfirmed(ctx context.Context, id string) error
	// Reschedule returns a claimed job to pending with an updated
	// attempt count and a later due time.
	Reschedule(ctx context.Context, id string, attempts int, nextAttemptAt time.Time, lastError string) error
	// MarkFailed parks a job whose attempt budget is exhausted. Failed
	// jobs stay in the table for operator inspection.
	MarkFailed(ctx context.Context, id string, lastError string) error
}
