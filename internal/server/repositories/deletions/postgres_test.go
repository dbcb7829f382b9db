package deletions

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/verisafe/docvault/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestAppend_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	deletedAt := time.Now()
	mock.ExpectExec(`(?s)^\s*INSERT\s+INTO\s+deletion_records\b`).
		WithArgs("r1", "u1", "d1", "identity", "hash", "user requested removal", deletedAt, int64(5), 1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Append(context.Background(), &models.DeletionRecord{
		ID:                 "r1",
		OwnerID:            "u1",
		DocumentID:         "d1",
		DocumentType:       models.DocumentTypeIdentity,
		ContentHash:        "hash",
		Reason:             "user requested removal",
		DeletedAt:          deletedAt,
		MinutesSinceUpload: 5,
		DeletionSequence:   1,
	})
	if err != nil {
		t.Fatalf("Append error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestCountSince(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	since := time.Now().Add(-24 * time.Hour)
	mock.ExpectQuery(`(?s)^\s*SELECT\s+COUNT\(\*\)\s+FROM\s+deletion_records\b`).
		WithArgs("u1", "photo", since).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	n, err := repo.CountSince(context.Background(), "u1", models.DocumentTypePhoto, since)
	if err != nil {
		t.Fatalf("CountSince error: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected count 3, got %d", n)
	}
}

func TestListByOwner(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	deletedAt := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "owner_id", "document_id", "document_type", "content_hash",
		"reason", "deleted_at", "minutes_since_upload", "deletion_sequence",
	}).
		AddRow("r2", "u1", "d2", "photo", "h2", "blurry photo replaced", deletedAt, int64(2), 2).
		AddRow("r1", "u1", "d1", "photo", "h1", "wrong file uploaded", deletedAt.Add(-time.Hour), int64(1), 1)

	mock.ExpectQuery(`(?s)^\s*SELECT\b.*FROM\s+deletion_records\s+WHERE\s+owner_id=\$1`).
		WithArgs("u1").
		WillReturnRows(rows)

	recs, err := repo.ListByOwner(context.Background(), "u1")
	if err != nil {
		t.Fatalf("ListByOwner error: %v", err)
	}
	if len(recs) != 2 || recs[0].ID != "r2" || recs[1].DeletionSequence != 1 {
		t.Fatalf("unexpected records: %+v", recs)
	}
}
