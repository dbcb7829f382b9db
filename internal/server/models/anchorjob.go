package models

import "time"

// AnchorJobStatus is the processing state of a queued anchoring job.
type AnchorJobStatus string

const (
	AnchorJobStatusPending    AnchorJobStatus = "pending"
	AnchorJobStatusInProgress AnchorJobStatus = "in_progress"
	AnchorJobStatusConfirmed  AnchorJobStatus = "confirmed"
	AnchorJobStatusFailed     AnchorJobStatus = "failed"
)

// AnchorJob is one durable entry in the anchoring queue. Created at
// upload time, retried with backoff until confirmed, and marked failed
// (never silently dropped) once the attempt budget is exhausted.
type AnchorJob struct {
	ID            string
	DocumentID    string
	ContentHash   string
	Attempts      int
	Status        AnchorJobStatus
	NextAttemptAt time.Time
	LastError     string
	CreatedAt     time.Time
}
