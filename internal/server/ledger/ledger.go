// Package ledger defines the hash-anchoring contract and clients for
// the external write-once ledger. The core only ever calls it from the
// anchor queue worker, never inline with upload or download.
package ledger

import "context"

// Ledger records a content hash on an external immutable ledger and
// returns the transaction reference. Calls may be slow or fail
// transiently; callers own timeouts and retries.
type Ledger interface {
	Anchor(ctx context.Context, contentHash string) (txRef string, err error)
}
