// Package storage defines the narrow object-storage contract the core
// needs for ciphertext blobs, with S3-compatible and in-memory
// implementations.
package storage

import "context"

// ObjectStore holds encrypted document bytes. The core never assumes a
// specific backend. Delete returns common.ErrNotFound for unknown refs;
// callers treat deletion failures as best-effort (logged, not
// escalated) because the audit trail is the source of truth.
type ObjectStore interface {
	Put(ctx context.Context, documentID string, ciphertext []byte) (storageRef string, err error)
	Get(ctx context.Context, storageRef string) ([]byte, error)
	Delete(ctx context.Context, storageRef string) error
}
