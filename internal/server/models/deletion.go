package models

import "time"

// MinDeletionReasonLen is the minimum length of the human-readable
// justification required for deleting a compliance artifact.
const MinDeletionReasonLen = 10

// DeletionRecord is an append-only audit entry. It is written durably
// before the document metadata and ciphertext are removed; once written
// it is never updated or retracted, even when the subsequent conditional
// delete loses a race with the reviewer.
type DeletionRecord struct {
	ID                 string
	OwnerID            string
	DocumentID         string
	DocumentType       DocumentType
	ContentHash        string
	Reason             string
	DeletedAt          time.Time
	MinutesSinceUpload int64
	DeletionSequence   int
}
