package services

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/verisafe/docvault/internal/common"
	"github.com/verisafe/docvault/internal/dbx"
	"github.com/verisafe/docvault/internal/logging"
	"github.com/verisafe/docvault/internal/server/metrics"
	"github.com/verisafe/docvault/internal/server/models"
	"github.com/verisafe/docvault/internal/server/repositories/anchorjobs"
	"github.com/verisafe/docvault/internal/server/repositories/deletions"
	"github.com/verisafe/docvault/internal/server/repositories/documents"
	"github.com/verisafe/docvault/internal/server/repositories/repomanager"
)

// -------- test fakes --------

type fakeDocumentsRepo struct {
	documents.Repository
	mu   sync.Mutex
	docs map[string]*models.DocumentRecord

	createErr  error
	setHashErr error
}

func newFakeDocumentsRepo() *fakeDocumentsRepo {
	return &fakeDocumentsRepo{docs: make(map[string]*models.DocumentRecord)}
}

func (f *fakeDocumentsRepo) Create(ctx context.Context, doc *models.DocumentRecord) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *doc
	f.docs[doc.ID] = &cp
	return nil
}

func (f *fakeDocumentsRepo) GetByID(ctx context.Context, id string) (*models.DocumentRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *doc
	return &cp, nil
}

func (f *fakeDocumentsRepo) SetContentHash(ctx context.Context, id, contentHash string) error {
	if f.setHashErr != nil {
		return f.setHashErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return common.ErrNotFound
	}
	doc.ContentHash = contentHash
	return nil
}

func (f *fakeDocumentsRepo) SetAnchor(ctx context.Context, id string, anchor models.AnchorRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return common.ErrNotFound
	}
	doc.Anchor = &anchor
	return nil
}

func (f *fakeDocumentsRepo) DeleteIfPending(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok || doc.Status != models.DocumentStatusPending {
		return common.ErrConcurrentReviewConflict
	}
	delete(f.docs, id)
	return nil
}

type fakeDeletionsRepo struct {
	deletions.Repository
	mu      sync.Mutex
	records []*models.DeletionRecord

	appendErr error
	countErr  error
}

func (f *fakeDeletionsRepo) Append(ctx context.Context, rec *models.DeletionRecord) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *rec
	f.records = append(f.records, &cp)
	return nil
}

func (f *fakeDeletionsRepo) CountSince(ctx context.Context, ownerID string, docType models.DocumentType, since time.Time) (int, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.records {
		if r.OwnerID == ownerID && r.DocumentType == docType && !r.DeletedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

type fakeAnchorJobsRepo struct {
	anchorjobs.Repository
	mu   sync.Mutex
	jobs []*models.AnchorJob

	enqueueErr error
}

func (f *fakeAnchorJobsRepo) Enqueue(ctx context.Context, job *models.AnchorJob) error {
	if f.enqueueErr != nil {
		return f.enqueueErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *job
	f.jobs = append(f.jobs, &cp)
	return nil
}

func (f *fakeAnchorJobsRepo) ClaimNext(ctx context.Context, now time.Time) (*models.AnchorJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, j := range f.jobs {
		if j.Status == models.AnchorJobStatusPending && !j.NextAttemptAt.After(now) {
			j.Status = models.AnchorJobStatusInProgress
			cp := *j
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (f *fakeAnchorJobsRepo) MarkConfirmed(ctx context.Context, id string) error {
	return f.update(id, func(j *models.AnchorJob) {
		j.Status = models.AnchorJobStatusConfirmed
	})
}

func (f *fakeAnchorJobsRepo) Reschedule(ctx context.Context, id string, attempts int, nextAttemptAt time.Time, lastError string) error {
	return f.update(id, func(j *models.AnchorJob) {
		j.Status = models.AnchorJobStatusPending
		j.Attempts = attempts
		j.NextAttemptAt = nextAttemptAt
		j.LastError = lastError
	})
}

func (f *fakeAnchorJobsRepo) MarkFailed(ctx context.Context, id string, lastError string) error {
	return f.update(id, func(j *models.AnchorJob) {
		j.Status = models.AnchorJobStatusFailed
		j.LastError = lastError
	})
}

func (f *fakeAnchorJobsRepo) update(id string, fn func(*models.AnchorJob)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, j := range f.jobs {
		if j.ID == id {
			fn(j)
			return nil
		}
	}
	return common.ErrNotFound
}

func (f *fakeAnchorJobsRepo) get(id string) *models.AnchorJob {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, j := range f.jobs {
		if j.ID == id {
			cp := *j
			return &cp
		}
	}
	return nil
}

type fakeRepoManager struct {
	repomanager.RepositoryManager
	d *fakeDocumentsRepo
	r *fakeDeletionsRepo
	j *fakeAnchorJobsRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		d: newFakeDocumentsRepo(),
		r: &fakeDeletionsRepo{},
		j: &fakeAnchorJobsRepo{},
	}
}

func (m *fakeRepoManager) Documents(db dbx.DBTX) documents.Repository   { return m.d }
func (m *fakeRepoManager) Deletions(db dbx.DBTX) deletions.Repository   { return m.r }
func (m *fakeRepoManager) AnchorJobs(db dbx.DBTX) anchorjobs.Repository { return m.j }

// fakeLedger fails a configurable number of times before succeeding.
type fakeLedger struct {
	mu        sync.Mutex
	failures  int
	calls     int
	anchored  []string
	nextTxRef string
}

func (l *fakeLedger) Anchor(ctx context.Context, contentHash string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if l.failures > 0 {
		l.failures--
		return "", common.ErrAnchorSubmission
	}
	l.anchored = append(l.anchored, contentHash)
	if l.nextTxRef != "" {
		return l.nextTxRef, nil
	}
	return "tx-ok", nil
}

// faultyStore fails Delete while delegating everything else.
type faultyStore struct {
	mu    sync.Mutex
	blobs map[string][]byte

	deleteErr error
}

func newFaultyStore() *faultyStore {
	return &faultyStore{blobs: make(map[string][]byte)}
}

func (s *faultyStore) Put(ctx context.Context, documentID string, ciphertext []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ref := "fake/" + documentID
	s.blobs[ref] = append([]byte(nil), ciphertext...)
	return ref, nil
}

func (s *faultyStore) Get(ctx context.Context, storageRef string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	blob, ok := s.blobs[storageRef]
	if !ok {
		return nil, common.ErrNotFound
	}
	return append([]byte(nil), blob...), nil
}

func (s *faultyStore) Delete(ctx context.Context, storageRef string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[storageRef]; !ok {
		return common.ErrNotFound
	}
	delete(s.blobs, storageRef)
	return nil
}

// -------- helpers --------

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

var errStorageDown = errors.New("storage backend down")

func newTestLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
}

func newTestMetrics() *metrics.Metrics {
	return metrics.New(prometheus.NewRegistry())
}

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}
