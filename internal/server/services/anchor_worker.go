package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/verisafe/docvault/internal/common"
	"github.com/verisafe/docvault/internal/dbx"
	"github.com/verisafe/docvault/internal/logging"
	"github.com/verisafe/docvault/internal/server/config"
	"github.com/verisafe/docvault/internal/server/ledger"
	"github.com/verisafe/docvault/internal/server/metrics"
	"github.com/verisafe/docvault/internal/server/models"
	"github.com/verisafe/docvault/internal/server/repositories/repomanager"
)

// AnchorWorker drains the durable anchor queue in the background,
// decoupled from the request path. It is restartable: jobs live in
// postgres, so a crash loses nothing, and several instances may run
// concurrently because claiming is a DB-side compare-and-set.
type AnchorWorker struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	ledger      ledger.Ledger
	logger      logging.Logger
	metrics     *metrics.Metrics

	maxAttempts    int
	baseBackoff    time.Duration
	attemptTimeout time.Duration
	pollInterval   time.Duration

	now func() time.Time
}

func NewAnchorWorker(db *sql.DB, rm repomanager.RepositoryManager, l ledger.Ledger,
	logger logging.Logger, m *metrics.Metrics, cfg *config.Config) *AnchorWorker {
	return &AnchorWorker{
		db:             db,
		repomanager:    rm,
		ledger:         l,
		logger:         logger.With("module", "anchor_worker"),
		metrics:        m,
		maxAttempts:    cfg.AnchorMaxAttempts,
		baseBackoff:    cfg.AnchorBaseBackoff,
		attemptTimeout: cfg.AnchorAttemptTimeout,
		pollInterval:   cfg.AnchorPollInterval,
		now:            time.Now,
	}
}

// Run processes jobs until the context is cancelled. When the queue is
// drained it sleeps for the poll interval.
func (w *AnchorWorker) Run(ctx context.Context) error {
	w.logger.Info(ctx, "starting anchor worker", "poll_interval", w.pollInterval.String())
	for {
		processed, err := w.ProcessOne(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger.Error(ctx, "anchor queue error", "error", err.Error())
		}
		if processed {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.pollInterval):
		}
	}
}

// ProcessOne claims and processes at most one due job. Returns false
// when no job is due.
func (w *AnchorWorker) ProcessOne(ctx context.Context) (bool, error) {
	job, err := w.repomanager.AnchorJobs(w.db).ClaimNext(ctx, w.now())
	if errors.Is(err, common.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	w.process(ctx, job)
	return true, nil
}

func (w *AnchorWorker) process(ctx context.Context, job *models.AnchorJob) {
	w.metrics.AnchorAttemptsTotal.Inc()

	txRef, err := w.submit(ctx, job.ContentHash)
	if err != nil {
		w.handleFailure(ctx, job, err)
		return
	}

	if err := w.confirm(ctx, job, txRef); err != nil {
		// The hash is on the ledger but our record write failed;
		// rescheduling re-submits, which the ledger tolerates since
		// anchoring the same hash twice is harmless.
		w.handleFailure(ctx, job, err)
		return
	}

	w.metrics.AnchorConfirmedTotal.Inc()
	w.logger.Info(ctx, "anchor confirmed",
		"job_id", job.ID, "document_id", job.DocumentID, "tx_ref", txRef)
}

// submit performs one durable attempt: the whole exchange is bounded by
// the attempt timeout, with short in-attempt retries for blips.
func (w *AnchorWorker) submit(ctx context.Context, contentHash string) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, w.attemptTimeout)
	defer cancel()

	var txRef string
	backoff := retry.WithMaxRetries(2, retry.NewExponential(500*time.Millisecond))
	err := retry.Do(attemptCtx, backoff, func(ctx context.Context) error {
		ref, err := w.ledger.Anchor(ctx, contentHash)
		if err != nil {
			return retry.RetryableError(err)
		}
		txRef = ref
		return nil
	})
	if err != nil {
		return "", err
	}
	return txRef, nil
}

// confirm records the ledger reference on the document and finalizes
// the job in one transaction. A document deleted while its job was
// queued no longer needs the reference; the job is still confirmed so
// it leaves the queue.
func (w *AnchorWorker) confirm(ctx context.Context, job *models.AnchorJob, txRef string) error {
	return dbx.WithTx(ctx, w.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		anchor := models.AnchorRef{TxRef: txRef, ConfirmedAt: w.now()}
		err := w.repomanager.Documents(tx).SetAnchor(ctx, job.DocumentID, anchor)
		if err != nil && !errors.Is(err, common.ErrNotFound) {
			return err
		}
		if errors.Is(err, common.ErrNotFound) {
			w.logger.Warn(ctx, "document gone before anchor confirmation",
				"job_id", job.ID, "document_id", job.DocumentID)
		}
		return w.repomanager.AnchorJobs(tx).MarkConfirmed(ctx, job.ID)
	})
}

func (w *AnchorWorker) handleFailure(ctx context.Context, job *models.AnchorJob, cause error) {
	jobs := w.repomanager.AnchorJobs(w.db)
	attempts := job.Attempts + 1

	if attempts >= w.maxAttempts {
		w.metrics.AnchorExhaustedTotal.Inc()
		w.logger.Error(ctx, "anchor job exhausted attempt budget",
			"job_id", job.ID, "document_id", job.DocumentID,
			"attempts", attempts, "error", cause.Error())
		if err := jobs.MarkFailed(ctx, job.ID, cause.Error()); err != nil {
			w.logger.Error(ctx, "failed to park anchor job", "job_id", job.ID, "error", err.Error())
		}
		return
	}

	next := w.now().Add(w.backoffFor(attempts))
	w.logger.Warn(ctx, "anchor attempt failed, rescheduling",
		"job_id", job.ID, "attempts", attempts,
		"next_attempt_at", next.Format(time.RFC3339), "error", cause.Error())
	if err := jobs.Reschedule(ctx, job.ID, attempts, next, cause.Error()); err != nil {
		w.logger.Error(ctx, "failed to reschedule anchor job", "job_id", job.ID, "error", err.Error())
	}
}

// backoffFor doubles the delay per completed attempt: base, 2*base,
// 4*base, ...
func (w *AnchorWorker) backoffFor(attempts int) time.Duration {
	d := w.baseBackoff
	for i := 1; i < attempts; i++ {
		d *= 2
	}
	return d
}
