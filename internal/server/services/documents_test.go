package services

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/verisafe/docvault/internal/common"
	"github.com/verisafe/docvault/internal/cryptox"
	"github.com/verisafe/docvault/internal/server/config"
	"github.com/verisafe/docvault/internal/server/models"
)

var docTestSecret = []byte("0123456789abcdef0123456789abcdef")

type documentServiceFixture struct {
	svc   *DocumentService
	rm    *fakeRepoManager
	store *faultyStore
	mock  sqlmock.Sqlmock
}

func newDocumentServiceFixture(t *testing.T) *documentServiceFixture {
	t.Helper()
	db, mock := newSQLMockDB(t)
	t.Cleanup(func() { db.Close() })

	engine, err := cryptox.NewEngine(docTestSecret)
	if err != nil {
		t.Fatalf("NewEngine error: %v", err)
	}

	rm := newFakeRepoManager()
	store := newFaultyStore()
	integrity := NewIntegrityService(db, rm, newTestLogger())
	svc := NewDocumentService(db, rm, engine, store, integrity, newTestLogger())
	return &documentServiceFixture{svc: svc, rm: rm, store: store, mock: mock}
}

func (f *documentServiceFixture) expectRecordTx() {
	// RecordDocument wraps hash persistence and job enqueue in one tx
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
}

func TestUploadDownload_RoundTrip(t *testing.T) {
	f := newDocumentServiceFixture(t)

	plaintext := make([]byte, 10*1024)
	if _, err := rand.Read(plaintext); err != nil {
		t.Fatalf("rand.Read error: %v", err)
	}

	f.expectRecordTx()
	doc, err := f.svc.Upload(context.Background(), "u1", models.DocumentTypeIdentity, plaintext)
	if err != nil {
		t.Fatalf("Upload error: %v", err)
	}

	if doc.Status != models.DocumentStatusPending {
		t.Fatalf("expected pending status, got %s", doc.Status)
	}
	if doc.ContentHash != cryptox.Hash(plaintext) {
		t.Fatalf("content hash mismatch: %s", doc.ContentHash)
	}
	if len(doc.Encryption.Salt) != cryptox.SaltSize {
		t.Fatalf("expected %d-byte salt, got %d", cryptox.SaltSize, len(doc.Encryption.Salt))
	}
	if len(doc.Encryption.IV) != cryptox.IVSize {
		t.Fatalf("expected %d-byte IV, got %d", cryptox.IVSize, len(doc.Encryption.IV))
	}
	if len(doc.Encryption.Ciphertext) != 0 {
		t.Fatalf("ciphertext must not be kept on the metadata record")
	}

	// ciphertext in object storage is not the plaintext
	stored, err := f.store.Get(context.Background(), doc.StorageRef)
	if err != nil {
		t.Fatalf("store.Get error: %v", err)
	}
	if bytes.Contains(stored, plaintext[:64]) {
		t.Fatalf("object store holds plaintext")
	}

	got, gotDoc, err := f.svc.Download(context.Background(), doc.ID, "u1")
	if err != nil {
		t.Fatalf("Download error: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Fatalf("downloaded plaintext differs from the original")
	}
	if gotDoc.ID != doc.ID {
		t.Fatalf("unexpected record returned: %s", gotDoc.ID)
	}
	if err := f.mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}

func TestUpload_InvalidDocumentType(t *testing.T) {
	f := newDocumentServiceFixture(t)

	if _, err := f.svc.Upload(context.Background(), "u1", models.DocumentType("passport"), []byte("x")); err == nil {
		t.Fatalf("expected invalid document type to be rejected")
	}
}

func TestDownload_ForeignOwnerLooksAbsent(t *testing.T) {
	f := newDocumentServiceFixture(t)

	f.expectRecordTx()
	doc, err := f.svc.Upload(context.Background(), "u1", models.DocumentTypePhoto, []byte("selfie bytes"))
	if err != nil {
		t.Fatalf("Upload error: %v", err)
	}

	if _, _, err := f.svc.Download(context.Background(), doc.ID, "u2"); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign owner, got %v", err)
	}
}

func TestDownload_TamperedCiphertext(t *testing.T) {
	f := newDocumentServiceFixture(t)

	f.expectRecordTx()
	doc, err := f.svc.Upload(context.Background(), "u1", models.DocumentTypeAddressProof, []byte("utility bill"))
	if err != nil {
		t.Fatalf("Upload error: %v", err)
	}

	f.store.mu.Lock()
	f.store.blobs[doc.StorageRef][0] ^= 0x01
	f.store.mu.Unlock()

	if _, _, err := f.svc.Download(context.Background(), doc.ID, "u1"); !errors.Is(err, common.ErrIntegrity) {
		t.Fatalf("expected ErrIntegrity for tampered ciphertext, got %v", err)
	}
}

// Upload feeds the anchor queue; a worker drains it against the ledger
// and the document ends up carrying the transaction reference.
func TestUploadThenAnchor_Pipeline(t *testing.T) {
	f := newDocumentServiceFixture(t)

	f.expectRecordTx()
	doc, err := f.svc.Upload(context.Background(), "u1", models.DocumentTypeIdentity, []byte("passport scan"))
	if err != nil {
		t.Fatalf("Upload error: %v", err)
	}
	if len(f.rm.j.jobs) != 1 {
		t.Fatalf("expected upload to enqueue one anchor job, got %d", len(f.rm.j.jobs))
	}

	db, mock := newSQLMockDB(t)
	defer db.Close()
	cfg := &config.Config{}
	cfg.LoadDefaults()
	l := &fakeLedger{nextTxRef: "tx-pipeline"}
	w := NewAnchorWorker(db, f.rm, l, newTestLogger(), newTestMetrics(), cfg)
	w.now = func() time.Time { return time.Now().Add(time.Second) }

	mock.ExpectBegin()
	mock.ExpectCommit()

	processed, err := w.ProcessOne(context.Background())
	if err != nil {
		t.Fatalf("ProcessOne error: %v", err)
	}
	if !processed {
		t.Fatalf("expected the queued job to be processed")
	}

	anchored, _ := f.rm.d.GetByID(context.Background(), doc.ID)
	if anchored.Anchor == nil || anchored.Anchor.TxRef != "tx-pipeline" {
		t.Fatalf("expected anchor reference on document, got %+v", anchored.Anchor)
	}
	if len(l.anchored) != 1 || l.anchored[0] != doc.ContentHash {
		t.Fatalf("expected document hash anchored, got %v", l.anchored)
	}
}
